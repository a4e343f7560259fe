package repository

import (
	"context"
	"time"

	"bhandaraboard/internal/model"
)

type ListingRepository interface {
	// Create inserts a listing and returns the stored row (id and
	// created_at are assigned by the database).
	Create(ctx context.Context, listing *model.Listing) (*model.Listing, error)
	// ListActive returns listings whose expires_at is after now, newest first.
	ListActive(ctx context.Context, now time.Time) ([]model.Listing, error)
	// DeleteExpired removes listings whose expires_at is at or before now.
	// Returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// DeleteByID removes a single listing (admin action).
	DeleteByID(ctx context.Context, id string) error
	// ListAll returns every listing regardless of expiry (admin view).
	ListAll(ctx context.Context) ([]model.Listing, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
}

type VoteRepository interface {
	// Exists reports whether the user already holds a vote on the listing.
	// Advisory: callers must still handle ErrAlreadyVoted from CastVote.
	Exists(ctx context.Context, userID, bhandaraID string) (bool, error)
	// CastVote inserts a vote row and atomically bumps the listing's
	// upvote_count in one transaction, returning the new count. Returns
	// model.ErrAlreadyVoted when the unique constraint rejects a duplicate.
	CastVote(ctx context.Context, userID, bhandaraID string) (int, error)
	// CountForListing returns the number of vote rows for a listing.
	CountForListing(ctx context.Context, bhandaraID string) (int, error)
}

type SubscriptionRepository interface {
	// Upsert creates or reactivates a device's push subscription. A device
	// re-subscribing with new keys reclaims its existing row.
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	// Deactivate flips is_active off without deleting the row.
	Deactivate(ctx context.Context, id string) error
	// DeactivateByEndpoint flips is_active off for a dead push endpoint.
	DeactivateByEndpoint(ctx context.Context, endpoint string) error
	// ListActive returns all subscriptions eligible for fan-out.
	ListActive(ctx context.Context) ([]model.PushSubscription, error)
}

type BroadcastRepository interface {
	// Create inserts a write-once broadcast record.
	Create(ctx context.Context, broadcast *model.Broadcast) (*model.Broadcast, error)
}
