package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRequiresConfiguration(t *testing.T) {
	c := NewSongClient("", "")
	_, err := c.Submit(context.Background(), SongRequest{Lyrics: "la"})
	if !errors.Is(err, ErrSetupRequired) {
		t.Fatalf("expected ErrSetupRequired, got %v", err)
	}
}

func TestSubmitReturnsTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/songs" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req SongRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.VocalGender != "female" {
			t.Errorf("unexpected vocal gender %q", req.VocalGender)
		}
		json.NewEncoder(w).Encode(map[string]string{"task_id": "task-42"})
	}))
	defer srv.Close()

	c := NewSongClient(srv.URL, "key")
	taskID, err := c.Submit(context.Background(), SongRequest{
		Title:       "Summer Nights",
		Lyrics:      "la la",
		VocalGender: "female",
		LengthSecs:  20,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if taskID != "task-42" {
		t.Fatalf("taskID = %q", taskID)
	}
}

func TestSubmitMapsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewSongClient(srv.URL, "bad-key")
	_, err := c.Submit(context.Background(), SongRequest{Lyrics: "la"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestWaitForCompletionReportsProgress(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		status := SongStatus{State: JobStateProcessing, Progress: int(n * 30)}
		if n >= 3 {
			status = SongStatus{
				State:    JobStateCompleted,
				Progress: 100,
				AudioURL: "https://cdn.example.com/song.mp3",
				Duration: 20,
			}
		}
		json.NewEncoder(w).Encode(status)
	}))
	defer srv.Close()

	c := NewSongClient(srv.URL, "key")
	var reported []int
	status, err := c.WaitForCompletion(context.Background(), "task-1", time.Millisecond, 10, func(p int) {
		reported = append(reported, p)
	})
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if status.AudioURL != "https://cdn.example.com/song.mp3" {
		t.Fatalf("unexpected audio URL %q", status.AudioURL)
	}
	if len(reported) != 3 || reported[2] != 100 {
		t.Fatalf("unexpected progress reports %v", reported)
	}
}

func TestWaitForCompletionBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SongStatus{State: JobStateProcessing, Progress: 10})
	}))
	defer srv.Close()

	c := NewSongClient(srv.URL, "key")
	_, err := c.WaitForCompletion(context.Background(), "task-1", time.Millisecond, 3, nil)
	if !errors.Is(err, ErrPollBudgetExceeded) {
		t.Fatalf("expected ErrPollBudgetExceeded, got %v", err)
	}
}

func TestWaitForCompletionFailedJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SongStatus{State: JobStateFailed, Message: "voice model unavailable"})
	}))
	defer srv.Close()

	c := NewSongClient(srv.URL, "key")
	_, err := c.WaitForCompletion(context.Background(), "task-1", time.Millisecond, 5, nil)
	if err == nil {
		t.Fatal("expected error for failed job")
	}
}

func TestWaitForCompletionCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SongStatus{State: JobStateProcessing})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewSongClient(srv.URL, "key")
	_, err := c.WaitForCompletion(ctx, "task-1", time.Hour, 5, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
