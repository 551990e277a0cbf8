package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const keepAlive = 15 * time.Second

// handleEvents streams every View change of the match as an SSE "message" event.
// The first frame is the current view. The stream ends when the client goes away
// or the match is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming_unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames, unsubscribe := m.Board.Subscribe()
	defer unsubscribe()
	ticker := s.clock.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-frames:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				log.Warn().Err(err).Str("gameId", m.ID).Msg("encode view")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", v.Version, data); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.Chan():
			// an open stream keeps the match from being swept
			m.Touch()
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
