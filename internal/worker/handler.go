package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"bhandaraboard/internal/queue"
)

// Broadcaster abstracts the notification fan-out so the worker doesn't
// depend on the service package directly.
type Broadcaster interface {
	// BroadcastNewListing records the alert and pushes it to active devices.
	BroadcastNewListing(ctx context.Context, event queue.ListingEvent) error
}

// Handler processes listing events from the queue.
type Handler struct {
	broadcaster Broadcaster
}

// NewHandler creates a new event handler.
func NewHandler(broadcaster Broadcaster) *Handler {
	return &Handler{broadcaster: broadcaster}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ListingEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventListingCreated:
		err = h.handleListingCreated(ctx, event)
	case queue.EventListingDeleted, queue.EventListingUpvoted:
		// Clients learn about these through the change feed; no alert goes out.
		log.Printf("[Worker] %s: listing=%s (no fan-out)", event.Type, event.ListingID)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleListingCreated fans the new-listing alert out to subscribed devices.
func (h *Handler) handleListingCreated(ctx context.Context, event queue.ListingEvent) error {
	log.Printf("[Worker] ListingCreated: listing=%s user=%s", event.ListingID, event.UserID)

	if err := h.broadcaster.BroadcastNewListing(ctx, event); err != nil {
		return fmt.Errorf("broadcast new listing: %w", err)
	}

	log.Printf("[Worker] ListingCreated DONE: listing=%s", event.ListingID)
	return nil
}
