package share

import (
	"errors"
	"testing"
	"time"

	"melodygram/model"
)

func TestCreateAndGetCountsViews(t *testing.T) {
	s := NewStore()
	rec := s.Create(model.CreateShareRequest{
		VideoURL: "https://cdn.example.com/v/1.mp4",
		Title:    "Summer Nights",
	})
	if rec.ID == "" {
		t.Fatal("expected a share ID")
	}
	if !rec.IsPublic {
		t.Fatal("shares are public by default")
	}

	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("first view must count 1, got %d", got.Views)
	}

	got, err = s.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Views != 2 {
		t.Fatalf("second view must count 2, got %d", got.Views)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredShareAnswersGoneThenNotFound(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	rec := s.Create(model.CreateShareRequest{VideoURL: "v", Title: "t"})

	// Just inside the TTL.
	now = base.Add(TTL - time.Minute)
	if _, err := s.Get(rec.ID); err != nil {
		t.Fatalf("share must still resolve inside the TTL: %v", err)
	}

	// Past the TTL: expired exactly once, then gone for good.
	now = base.Add(TTL + time.Minute)
	if _, err := s.Get(rec.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired on first access past TTL, got %v", err)
	}
	if _, err := s.Get(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after eviction, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore()
	rec := s.Create(model.CreateShareRequest{VideoURL: "v", Title: "t"})

	if err := s.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("store must be empty, holds %d", s.Len())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	rec := s.Create(model.CreateShareRequest{VideoURL: "v", Title: "t"})

	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Title = "mutated"

	again, _ := s.Get(rec.ID)
	if again.Title != "t" {
		t.Fatal("Get must hand out copies, not the stored record")
	}
}
