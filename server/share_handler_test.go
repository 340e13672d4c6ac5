package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"melodygram/config"
	"melodygram/core/share"
)

func shareTestHandler() (*APIHandler, *share.Store) {
	store := share.NewStore()
	h := &APIHandler{
		shares: store,
		cfg:    &config.Config{PublicBaseURL: "https://melodygram.example.com"},
	}
	return h, store
}

func shareTestRouter(h *APIHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/share", withUser(h.CreateShareHandler, 1)).Methods(http.MethodPost)
	r.HandleFunc("/api/share", h.GetShareHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/share", withUser(h.DeleteShareHandler, 1)).Methods(http.MethodDelete)
	r.HandleFunc("/share/{id}", h.GetShareHandler).Methods(http.MethodGet)
	return r
}

// withUser plants an authenticated user the way AuthMiddleware would.
func withUser(next http.HandlerFunc, userID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func TestShareLifecycle(t *testing.T) {
	h, _ := shareTestHandler()
	router := shareTestRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"videoUrl": "https://cdn.example.com/v/1.mp4",
		"title":    "Summer Nights",
		"duration": 20.0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/share", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ShareID  string `json:"shareId"`
		ShareURL string `json:"shareUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ShareID == "" {
		t.Fatal("expected a share ID")
	}
	wantURL := "https://melodygram.example.com/share/" + created.ShareID
	if created.ShareURL != wantURL {
		t.Fatalf("share URL %q, want %q", created.ShareURL, wantURL)
	}

	// Public GET, no auth context. Each fetch counts a view.
	var got struct {
		Data struct {
			Title string `json:"title"`
			Views int    `json:"views"`
		} `json:"data"`
	}
	for i, wantViews := range []int{1, 2} {
		req = httptest.NewRequest(http.MethodGet, "/api/share?id="+created.ShareID, nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("get %d: expected 200, got %d", i, rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode get response: %v", err)
		}
		if got.Data.Title != "Summer Nights" || got.Data.Views != wantViews {
			t.Fatalf("get %d: unexpected share payload: %+v", i, got.Data)
		}
	}

	// The page route resolves the same record by path.
	req = httptest.NewRequest(http.MethodGet, "/share/"+created.ShareID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("page get: expected 200, got %d", rec.Code)
	}

	// Delete, then the share is gone.
	req = httptest.NewRequest(http.MethodDelete, "/api/share?id="+created.ShareID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/share?id="+created.ShareID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateShareRejectsIncompleteBody(t *testing.T) {
	h, _ := shareTestHandler()
	router := shareTestRouter(h)

	body, _ := json.Marshal(map[string]interface{}{"title": "No Video"})
	req := httptest.NewRequest(http.MethodPost, "/api/share", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExpiredShareAnswers410Then404(t *testing.T) {
	h, store := shareTestHandler()
	router := shareTestRouter(h)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })

	body, _ := json.Marshal(map[string]interface{}{
		"videoUrl": "https://cdn.example.com/v/1.mp4",
		"title":    "Summer Nights",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/share", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var created struct {
		ShareID string `json:"shareId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &created)

	now = base.Add(share.TTL + time.Hour)

	req = httptest.NewRequest(http.MethodGet, "/api/share?id="+created.ShareID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 on first access past TTL, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/share?id="+created.ShareID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after eviction, got %d", rec.Code)
	}
}

func TestGetUnknownShare404(t *testing.T) {
	h, _ := shareTestHandler()
	router := shareTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/share?id=missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
