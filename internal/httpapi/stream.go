package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Stream handles Server-Sent Events for table change notifications. An
// optional ?table= query narrows the feed to one table.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.changes == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	table := strings.TrimSpace(r.URL.Query().Get("table"))
	ch := a.changes.SubscribeTable(ctx, table)

	// Initial comment establishes the stream for proxies and clients.
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
