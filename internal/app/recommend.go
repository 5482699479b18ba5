package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"shelfmatch/internal/similarity"
)

// BestMatch is the single top-ranked item for one corpus. Scores and
// vectors stay internal.
type BestMatch struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year,omitempty"`
}

// Recommendation carries the per-corpus results. A nil side means that
// corpus had nothing useful to say, which is a normal outcome.
type Recommendation struct {
	Global *BestMatch `json:"global"`
	Local  *BestMatch `json:"local"`
}

// Recommend ranks both corpora against the query independently. An
// unavailable corpus or a zero-similarity best hit yields nil for that
// side, never an error.
func (a *App) Recommend(ctx context.Context, query string) (Recommendation, error) {
	query = sanitizeText(query)
	if strings.TrimSpace(query) == "" {
		return Recommendation{}, ErrEmptyQuery
	}

	var rec Recommendation
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec.Global = a.recommendGlobal(query)
		return nil
	})
	g.Go(func() error {
		local, err := a.recommendLocal(query)
		if err != nil {
			return err
		}
		rec.Local = local
		return nil
	})
	if err := g.Wait(); err != nil {
		return Recommendation{}, err
	}
	return rec, nil
}

func (a *App) recommendGlobal(query string) *BestMatch {
	if a.catalogIndex.Len() == 0 {
		return nil
	}
	best, _, ok := a.catalogIndex.Best(query)
	if !ok {
		return nil
	}
	entry := a.catalog.Entries[best]
	return &BestMatch{Title: entry.Title, Author: entry.Author, Year: entry.Year}
}

func (a *App) recommendLocal(query string) (*BestMatch, error) {
	snap, err := a.localSnapshot()
	if err != nil {
		return nil, err
	}
	if len(snap.reviews) < a.localMin {
		return nil, nil
	}
	best, _, ok := snap.index.Best(query)
	if !ok {
		return nil, nil
	}
	r := snap.reviews[best]
	return &BestMatch{Title: r.Title, Author: r.Author}, nil
}

// localSnapshot returns the cached local corpus index, rebuilding it when
// the corpus version has moved since the snapshot was taken. The version
// is read before the rows, so a snapshot is never newer than its tag and a
// lookup never sees data older than the store at the time it began.
// Concurrent rebuilds may race; each builds a complete index and the swap
// is atomic, so readers never observe a torn index.
func (a *App) localSnapshot() (*localIndex, error) {
	version := a.corpusVersion.Load()
	if snap := a.localIdx.Load(); snap != nil && snap.version == version {
		return snap, nil
	}
	reviews, err := a.store.ListReviews()
	if err != nil {
		return nil, fmt.Errorf("list reviews for index: %w", err)
	}
	texts := make([]string, len(reviews))
	for i, r := range reviews {
		texts[i] = r.Title + " " + r.Author + " " + r.Content
	}
	snap := &localIndex{
		version: version,
		index:   similarity.Build(texts),
		reviews: reviews,
	}
	a.localIdx.Store(snap)
	return snap, nil
}
