package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"melodygram/cache"
	"melodygram/core/audio"
	"melodygram/core/auth"
	"melodygram/logger"
)

// WebSocketPreviewHandler streams the currently selected clip window as HLS
// segments so the user can audition the exact audio that would go to the
// avatar API, fades included, without producing a stored asset.
//
// Browsers cannot set headers on websocket requests, so the token rides in
// the query string.
func (h *APIHandler) WebSocketPreviewHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	session, err := h.sessions.Get(r.Context(), userID)
	if err != nil || session == nil {
		http.Error(w, "no creation session", http.StatusBadRequest)
		return
	}
	sel := session.AudioSelection
	if sel == nil || !sel.Valid() || sel.SongIndex != session.SongIndex {
		http.Error(w, "no audio selection for the current song", http.StatusBadRequest)
		return
	}
	if session.SongIndex < 0 || session.SongIndex >= len(session.SongHistory) {
		http.Error(w, "no generated song", http.StatusBadRequest)
		return
	}
	audioURL := session.SongHistory[session.SongIndex].AudioURL

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	tempDir, err := os.MkdirTemp("", fmt.Sprintf("preview-%d-", userID))
	if err != nil {
		logger.Error("temp dir failed", logger.ErrorField(err))
		return
	}

	window := audio.PlaybackWindow{Start: sel.StartTime, End: sel.EndTime}
	fade := window.FadeLen()

	segmentPattern := filepath.Join(tempDir, "segment_%03d.ts")
	playlistPath := filepath.Join(tempDir, "playlist.m3u8")

	args := []string{
		"-ss", fmt.Sprintf("%.3f", window.Start),
		"-t", fmt.Sprintf("%.3f", window.Duration()),
		"-i", audioURL,
		"-af", fmt.Sprintf("afade=t=in:st=0:d=%.3f,afade=t=out:st=%.3f:d=%.3f",
			fade, window.Duration()-fade, fade),
		"-c:a", "aac",
		"-b:a", "192k",
		"-hls_time", "2",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
		"-f", "hls",
		playlistPath,
	}

	cmd := exec.Command(h.clipper.FFmpegPath(), args...)
	if err := cmd.Start(); err != nil {
		logger.Error("ffmpeg start failed", logger.ErrorField(err))
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watcher failed", logger.ErrorField(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(tempDir); err != nil {
		logger.Error("watcher add failed", logger.ErrorField(err))
		return
	}

	processed := make(map[string]bool)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Create == fsnotify.Create && strings.HasSuffix(event.Name, ".ts") {
					if processed[event.Name] {
						continue
					}
					processed[event.Name] = true
					sendPreviewSegment(event.Name, conn, userID)
				}
			case err := <-watcher.Errors:
				logger.Warn("watcher error", logger.ErrorField(err))
			case <-done:
				return
			}
		}
	}()

	_ = cmd.Wait()
	done <- struct{}{}

	go func(dir string) {
		time.Sleep(60 * time.Second)
		os.RemoveAll(dir)
	}(tempDir)
}

func sendPreviewSegment(path string, conn *websocket.Conn, userID int64) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read segment", logger.ErrorField(err))
		return
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		logger.Warn("websocket write", logger.ErrorField(err))
	}

	if cache.RedisClient != nil {
		key := fmt.Sprintf("preview:%d:%s", userID, filepath.Base(path))
		if err := cache.RedisClient.Set(context.Background(), key, data, 5*time.Minute).Err(); err != nil {
			logger.Warn("redis set", logger.ErrorField(err))
		}
	}
}
