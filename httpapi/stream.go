package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// stream serves Server-Sent Events for one channel. Joining needs only the
// channel ID, matching how clients join rooms today.
func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	channel := strings.TrimSpace(r.URL.Query().Get("channel"))
	if channel == "" {
		writeError(w, r, a.log, fmt.Errorf("%w: channel is required", errBadRequest))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, a.log, errors.New("httpapi: response does not support streaming"))
		return
	}

	sub := a.hub.Subscribe(channel)
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	a.log.Debug("stream: joined", slog.String("channel", channel))
	defer a.log.Debug("stream: left", slog.String("channel", channel))

	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if ev.ID != "" {
				fmt.Fprintf(w, "id: %s\n", ev.ID)
			}
			if ev.Name != "" {
				fmt.Fprintf(w, "event: %s\n", ev.Name)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
