package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the listings stream
const (
	EventListingCreated = "listing_created"
	EventListingDeleted = "listing_deleted"
	EventListingUpvoted = "listing_upvoted"
)

// Stream names
const (
	StreamListings = "stream:listings"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotify = "notify_workers"
)

// ListingEvent represents an event published to the listings stream.
// Created events carry a summary of the listing so the worker can build the
// alert without a read-back (the row may already be gone by then).
type ListingEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id,omitempty"`

	// Listing summary (created events)
	LocationDescription string  `json:"location_description,omitempty"`
	NearbyLandmark      *string `json:"nearby_landmark,omitempty"`
	Menu                *string `json:"menu,omitempty"`
}

// NewListingCreatedEvent creates an event for a freshly posted listing.
// The worker fans this out as a broadcast to all subscribed devices.
func NewListingCreatedEvent(listingID, userID, description string, landmark, menu *string) ListingEvent {
	return ListingEvent{
		Type:                EventListingCreated,
		Timestamp:           time.Now().Unix(),
		ListingID:           listingID,
		UserID:              userID,
		LocationDescription: description,
		NearbyLandmark:      landmark,
		Menu:                menu,
	}
}

// NewListingDeletedEvent creates an event for an admin-deleted listing.
func NewListingDeletedEvent(listingID string) ListingEvent {
	return ListingEvent{
		Type:      EventListingDeleted,
		Timestamp: time.Now().Unix(),
		ListingID: listingID,
	}
}

// NewListingUpvotedEvent creates an event for a successful upvote.
func NewListingUpvotedEvent(listingID, userID string) ListingEvent {
	return ListingEvent{
		Type:      EventListingUpvoted,
		Timestamp: time.Now().Unix(),
		ListingID: listingID,
		UserID:    userID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so the event is serialized to JSON
// in a "data" field.
func (e ListingEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseListingEvent parses a ListingEvent from Redis stream message values.
func ParseListingEvent(values map[string]interface{}) (ListingEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ListingEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ListingEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ListingEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
