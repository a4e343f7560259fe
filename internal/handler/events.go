package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"bhandaraboard/internal/httputil"
	"bhandaraboard/internal/realtime"
	"bhandaraboard/internal/service"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// EventsHandler streams listing changes to clients over Server-Sent Events.
// Every change signal triggers a full refetch of the active set; the client
// replaces its state wholesale, so coalesced or reordered signals are safe.
type EventsHandler struct {
	hub            *realtime.Hub
	listingService *service.ListingService
}

func NewEventsHandler(hub *realtime.Hub, listingService *service.ListingService) *EventsHandler {
	return &EventsHandler{
		hub:            hub,
		listingService: listingService,
	}
}

// Stream handles GET /events
// Sends the current active set immediately, then a fresh snapshot after each
// change signal until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()

	// Coalesce change signals: one pending refetch covers any burst.
	signals := make(chan struct{}, 1)
	unregister := h.hub.Register(func() {
		select {
		case signals <- struct{}{}:
		default:
		}
	})
	defer unregister()

	if err := h.writeSnapshot(ctx, w, flusher); err != nil {
		log.Printf("[Events] Initial snapshot failed: err=%v", err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			if err := h.writeSnapshot(ctx, w, flusher); err != nil {
				log.Printf("[Events] Snapshot write failed: err=%v", err)
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSnapshot refetches the active set and writes it as one SSE event.
func (h *EventsHandler) writeSnapshot(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) error {
	listings, err := h.listingService.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("refetch listings: %w", err)
	}

	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("marshal listings: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: listings\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
