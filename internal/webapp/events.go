// ABOUTME: Server-Sent Events stream of gate view changes for one visitor
// ABOUTME: Open pages reload when their session moves to a different view

package webapp

import (
	"fmt"
	"net/http"
	"time"
)

// handleEvents streams the visitor's current gate view and every change to it
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(VisitorCookieName)
	if err != nil {
		http.Error(w, "Unknown visitor", http.StatusNotFound)
		return
	}
	v, ok := a.visitors.get(cookie.Value)
	if !ok {
		http.Error(w, "Unknown visitor", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	a.metrics.StreamOpened()
	defer a.metrics.StreamClosed()

	views := v.gate.Watch(r.Context())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			a.visitors.touch(v)
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case view, ok := <-views:
			if !ok {
				// Visitor was evicted
				return
			}
			fmt.Fprintf(w, "event: view\ndata: %s\n\n", view)
			flusher.Flush()
		}
	}
}
