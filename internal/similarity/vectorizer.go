package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Index is a TF-IDF weighted similarity index over a fixed document corpus.
// Document order is preserved: Best reports positions into the slice given
// to Build, and ties resolve to the earliest position.
type Index struct {
	idf  map[string]float64
	docs []map[string]float64
}

// Tokenize lower-cases text, splits on non-alphanumeric runes, and drops
// single-rune tokens and english stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Build constructs the index over the given documents. Documents that yield
// no tokens keep their position with an empty vector so corpus offsets stay
// aligned with the caller's items.
func Build(docs []string) *Index {
	n := len(docs)
	counts := make([]map[string]int, n)
	df := make(map[string]int)
	for i, doc := range docs {
		c := make(map[string]int)
		for _, t := range Tokenize(doc) {
			c[t]++
		}
		counts[i] = c
		for t := range c {
			df[t]++
		}
	}

	// Smooth idf: ln((1+n)/(1+df)) + 1, so terms present everywhere still
	// carry a small positive weight.
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		idf[t] = math.Log(float64(1+n)/float64(1+d)) + 1
	}

	vecs := make([]map[string]float64, n)
	for i, c := range counts {
		vecs[i] = normalize(weigh(c, idf))
	}
	return &Index{idf: idf, docs: vecs}
}

// Len reports the number of indexed documents.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.docs)
}

// Best returns the position of the highest cosine-similarity document for
// the query, with ok=false when the corpus is empty or no document shares a
// single weighted term with the query.
func (ix *Index) Best(query string) (int, float64, bool) {
	if ix.Len() == 0 {
		return 0, 0, false
	}
	q := ix.vectorizeQuery(query)
	if len(q) == 0 {
		return 0, 0, false
	}
	// Fixed term order keeps float accumulation deterministic across runs.
	terms := make([]string, 0, len(q))
	for t := range q {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	best := -1
	bestScore := 0.0
	for i, doc := range ix.docs {
		var dot float64
		for _, t := range terms {
			if w, ok := doc[t]; ok {
				dot += q[t] * w
			}
		}
		if dot > bestScore {
			best = i
			bestScore = dot
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestScore, true
}

// vectorizeQuery maps query text into the corpus vocabulary. Tokens the
// corpus never saw contribute nothing; the vocabulary never grows here.
func (ix *Index) vectorizeQuery(query string) map[string]float64 {
	c := make(map[string]int)
	for _, t := range Tokenize(query) {
		if _, known := ix.idf[t]; !known {
			continue
		}
		c[t]++
	}
	return normalize(weigh(c, ix.idf))
}

func weigh(counts map[string]int, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(counts))
	for t, c := range counts {
		vec[t] = float64(c) * idf[t]
	}
	return vec
}

func normalize(vec map[string]float64) map[string]float64 {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for t, w := range vec {
		vec[t] = w / norm
	}
	return vec
}
