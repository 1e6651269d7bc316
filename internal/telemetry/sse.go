package telemetry

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/denis-giri/pdraw/internal/logger"
)

// DefaultKeepalive is the SSE comment interval on an idle stream
const DefaultKeepalive = 30 * time.Second

// wantsProtobuf negotiates the event format from the Accept header
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf")
}

// SSEHandler streams latency events to one client per request. Clients that
// accept application/protobuf get base64 wire-format events, others JSON.
func SSEHandler(b *Broadcaster, keepalive time.Duration) http.HandlerFunc {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ch := b.Subscribe()
		defer b.Unsubscribe(id)

		streamEvents(w, r, ch, wantsProtobuf(r), keepalive)
	}
}

// streamEvents writes pre-serialized events until the channel closes or the
// client goes away.
func streamEvents(w http.ResponseWriter, r *http.Request, ch <-chan *SerializedEvent, useProtobuf bool, keepalive time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if useProtobuf {
		w.Header().Set("X-Content-Format", "application/protobuf")
	} else {
		w.Header().Set("X-Content-Format", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	timer := time.NewTimer(keepalive)
	defer timer.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-ch:
			if !ok {
				return
			}
			data := event.JSONData
			if useProtobuf {
				data = event.ProtobufBase64
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.FrameNum, data); err != nil {
				logger.Debug("SSE", "Client disconnected during event write: %v", err)
				return
			}
			flusher.Flush()

		case <-timer.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Debug("SSE", "Client disconnected during keepalive: %v", err)
				return
			}
			flusher.Flush()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(keepalive)
	}
}

// LatestHandler returns the last event as JSON, 204 before the first frame
func LatestHandler(b *Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event := b.Latest()
		if event == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(event.JSONData)
	}
}
