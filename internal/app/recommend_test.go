package app

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRecommendRejectsEmptyQuery(t *testing.T) {
	a := newTestApp(t, Config{})
	for _, q := range []string{"", "   ", "\n\t", "<p></p>"} {
		if _, err := a.Recommend(context.Background(), q); !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("query %q: err = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestRecommendGlobalMatch(t *testing.T) {
	a := newTestApp(t, Config{
		CatalogPath: writeCatalog(t,
			"Dune;Frank Herbert;1965;desert planet epic science fiction adventure\n"+
				"Emma;Jane Austen;1815;regency comedy of manners\n"),
	})
	rec, err := a.Recommend(context.Background(), "I love science fiction adventure on a desert planet")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	want := &BestMatch{Title: "Dune", Author: "Frank Herbert", Year: "1965"}
	if !reflect.DeepEqual(rec.Global, want) {
		t.Fatalf("global = %+v, want %+v", rec.Global, want)
	}
	if rec.Local != nil {
		t.Fatalf("local should be nil with no reviews, got %+v", rec.Local)
	}
}

func TestRecommendLocalMatchAtThresholdOne(t *testing.T) {
	a := newTestApp(t, Config{LocalMinReviews: 1})
	ctx := context.Background()
	_, err := a.Submit(ctx, SubmitInput{
		Author:  "A. Lee",
		Title:   "Quiet Nights",
		Content: "a slow, melancholic literary drama",
		Score:   9,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec, err := a.Recommend(ctx, "melancholic literary drama")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	want := &BestMatch{Title: "Quiet Nights", Author: "A. Lee"}
	if !reflect.DeepEqual(rec.Local, want) {
		t.Fatalf("local = %+v, want %+v", rec.Local, want)
	}
}

func TestRecommendLocalBelowThresholdIsNil(t *testing.T) {
	a := newTestApp(t, Config{LocalMinReviews: 3})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := a.Submit(ctx, SubmitInput{Author: "A", Title: "Space Saga", Content: "stars and ships", Score: 7}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	rec, err := a.Recommend(ctx, "stars and ships")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Local != nil {
		t.Fatalf("local = %+v, want nil below threshold", rec.Local)
	}
}

func TestRecommendEmptyCatalogYieldsNilGlobal(t *testing.T) {
	a := newTestApp(t, Config{CatalogPath: filepath.Join(t.TempDir(), "absent.csv")})
	rec, err := a.Recommend(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Global != nil {
		t.Fatalf("global = %+v, want nil for empty catalog", rec.Global)
	}
	if a.Status().CatalogReady {
		t.Fatal("catalog_ready should be false")
	}
}

func TestRecommendZeroOverlapYieldsNil(t *testing.T) {
	a := newTestApp(t, Config{
		CatalogPath:     writeCatalog(t, "Dune;Frank Herbert;1965;desert planet epic\n"),
		LocalMinReviews: 1,
	})
	ctx := context.Background()
	if _, err := a.Submit(ctx, SubmitInput{Author: "A", Title: "Gardening", Content: "soil and seeds", Score: 6}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec, err := a.Recommend(ctx, "zzzzq xqwv nonwords")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Global != nil || rec.Local != nil {
		t.Fatalf("expected nil/nil for zero overlap, got %+v / %+v", rec.Global, rec.Local)
	}
}

func TestRecommendIsIdempotent(t *testing.T) {
	a := newTestApp(t, Config{
		CatalogPath: writeCatalog(t,
			"Dune;Frank Herbert;1965;desert planet epic science fiction\n"+
				"Neuromancer;William Gibson;1984;cyberpunk science fiction\n"),
		LocalMinReviews: 1,
	})
	ctx := context.Background()
	if _, err := a.Submit(ctx, SubmitInput{Author: "A", Title: "Starfarer", Content: "science fiction voyage", Score: 8}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	first, err := a.Recommend(ctx, "science fiction")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := a.Recommend(ctx, "science fiction")
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, first, again)
		}
	}
}

func TestRecommendSeesCompletedSubmit(t *testing.T) {
	a := newTestApp(t, Config{LocalMinReviews: 1})
	ctx := context.Background()

	rec, err := a.Recommend(ctx, "midnight trains")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Local != nil {
		t.Fatalf("local = %+v, want nil before any submit", rec.Local)
	}

	if _, err := a.Submit(ctx, SubmitInput{Author: "R", Title: "Midnight Trains", Content: "railway noir", Score: 7}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec, err = a.Recommend(ctx, "midnight trains")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Local == nil || rec.Local.Title != "Midnight Trains" {
		t.Fatalf("local = %+v, want the freshly submitted review", rec.Local)
	}
}
