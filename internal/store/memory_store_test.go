package store

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreAssignsMonotonicIDs(t *testing.T) {
	s := NewMemoryStore()
	first, err := s.CreateReview(Review{Author: "A", Title: "T1", Content: "c", Score: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	second, err := s.CreateReview(Review{Author: "B", Title: "T2", Content: "c", Score: 6})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not monotonic: %d then %d", first.ID, second.ID)
	}

	if err := s.DeleteReview(second.ID); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	third, err := s.CreateReview(Review{Author: "C", Title: "T3", Content: "c", Score: 7})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if third.ID <= second.ID {
		t.Fatalf("deleted id reused: %d after %d", third.ID, second.ID)
	}
}

func TestMemoryStoreListsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.CreateReview(Review{
			Author:    "A",
			Title:     "T",
			Content:   "c",
			Score:     5,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create review: %v", err)
		}
	}
	reviews, err := s.ListReviews()
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("len = %d, want 3", len(reviews))
	}
	for i := 1; i < len(reviews); i++ {
		if reviews[i].CreatedAt.After(reviews[i-1].CreatedAt) {
			t.Fatalf("reviews not newest first at index %d", i)
		}
	}
}

func TestMemoryStoreDeleteMissing(t *testing.T) {
	s := NewMemoryStore()
	if err := s.DeleteReview(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing = %v, want ErrNotFound", err)
	}
}
