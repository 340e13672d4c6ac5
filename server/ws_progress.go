package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"melodygram/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressEvent is one progress update pushed to websocket subscribers.
type ProgressEvent struct {
	SongID   string `json:"songId"`
	Progress int    `json:"progress"` // 0-100
	Status   string `json:"status"`   // generating, completed, failed
	Message  string `json:"message,omitempty"`
}

// ProgressHub fans generation progress out to websocket subscribers keyed by
// song ID. Publishing never blocks: a subscriber that cannot keep up drops
// events and catches up on the next one.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressEvent]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan ProgressEvent]struct{})}
}

// Subscribe registers a listener for one song's progress.
func (h *ProgressHub) Subscribe(songID string) chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[songID] == nil {
		h.subs[songID] = make(map[chan ProgressEvent]struct{})
	}
	h.subs[songID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *ProgressHub) Unsubscribe(songID string, ch chan ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[songID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, songID)
	}
}

// Publish pushes an event to every subscriber of the song.
func (h *ProgressHub) Publish(songID string, progress int, status, message string) {
	event := ProgressEvent{SongID: songID, Progress: progress, Status: status, Message: message}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[songID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// WebSocketProgressHandler streams progress events for one song until the
// generation reaches a terminal state or the client goes away.
func (h *APIHandler) WebSocketProgressHandler(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["id"]
	if songID == "" {
		http.Error(w, "missing song id", http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	ch := h.progress.Subscribe(songID)
	defer h.progress.Unsubscribe(songID, ch)

	// Drain reads so close frames are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Warn("websocket write failed",
					logger.String("songId", songID),
					logger.ErrorField(err))
				return
			}
			if event.Status != "" && event.Status != "generating" {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
