package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/middleware"
)

// subscriberBuffer bounds how far a slow client may fall behind before
// events are dropped for it.
const subscriberBuffer = 64

// Events streams notification events to the browser over Server-Sent
// Events. Clients filter by taskId themselves; there is no per-task
// subscription and no replay of missed events.
func (h *TaskHandler) Events(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.handleError(w, "Streaming not supported", nil, traceID, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.hub.Subscribe(subscriberBuffer)
	defer cancel()

	h.logger.Info("Event subscriber connected", zap.String("trace_id", traceID))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("Event subscriber disconnected", zap.String("trace_id", traceID))
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				h.logger.Warn("Failed to encode event", zap.String("kind", ev.Kind), zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
