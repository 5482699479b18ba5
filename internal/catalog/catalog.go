package catalog

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Entry is one immutable book record from the static catalog.
type Entry struct {
	Title       string
	Author      string
	Year        string
	Description string
}

// Catalog holds the loaded dataset. Loaded reports whether a source was
// parsed at all; an absent source yields an empty, not-loaded catalog
// rather than an error.
type Catalog struct {
	Entries []Entry
	Loaded  bool
	Skipped int
}

// Size returns the number of usable entries.
func (c Catalog) Size() int {
	return len(c.Entries)
}

// Text synthesizes the similarity corpus text for an entry.
func (e Entry) Text() string {
	return e.Title + " " + e.Author + " " + e.Description
}

// Load reads the book dataset from a semicolon-separated, latin-1 encoded
// CSV with columns Title;Author;Year;Description. Malformed rows are
// skipped individually. When the CSV is missing, a sibling zip archive with
// the same base name is consulted and its first .csv member extracted to
// the expected path before loading.
func Load(ctx context.Context, path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if !extractFromArchive(path) {
			return Catalog{}, nil
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, nil
	}
	defer f.Close()
	return parse(ctx, f)
}

func parse(ctx context.Context, r io.Reader) (Catalog, error) {
	decoded := charmap.ISO8859_1.NewDecoder().Reader(r)
	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	cat := Catalog{Loaded: true}
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return cat, fmt.Errorf("catalog load interrupted: %w", err)
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cat.Skipped++
			continue
		}
		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}
		entry, ok := entryFromRecord(record)
		if !ok {
			cat.Skipped++
			continue
		}
		cat.Entries = append(cat.Entries, entry)
	}
	return cat, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "title")
}

func entryFromRecord(record []string) (Entry, bool) {
	if len(record) < 2 {
		return Entry{}, false
	}
	entry := Entry{
		Title:  strings.TrimSpace(record[0]),
		Author: strings.TrimSpace(record[1]),
	}
	if entry.Title == "" || entry.Author == "" {
		return Entry{}, false
	}
	if len(record) > 2 {
		entry.Year = strings.TrimSpace(record[2])
	}
	if len(record) > 3 {
		entry.Description = strings.TrimSpace(record[3])
	}
	return entry, true
}

// extractFromArchive looks for <path minus extension>.zip and extracts its
// first .csv member to path. Returns true when the CSV now exists.
func extractFromArchive(path string) bool {
	archive := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return false
	}
	defer zr.Close()
	for _, member := range zr.File {
		if !strings.HasSuffix(strings.ToLower(member.Name), ".csv") {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return false
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			rc.Close()
			return false
		}
		out, err := os.Create(path)
		if err != nil {
			rc.Close()
			return false
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		return copyErr == nil
	}
	return false
}
