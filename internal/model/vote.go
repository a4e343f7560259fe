package model

import (
	"errors"
	"time"
)

// Vote records one user's consumed upvote right on one listing.
// At most one row exists per (user, listing) pair; the unique constraint in
// the store is the authoritative enforcement.
type Vote struct {
	UserID     string    `db:"user_id" json:"user_id"`
	BhandaraID string    `db:"bhandara_id" json:"bhandara_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Vote outcome statuses
const (
	StatusVoted        = "voted"
	StatusAlreadyVoted = "already_voted"
)

// VoteResult reports the outcome of a cast-vote attempt. AlreadyVoted is an
// idempotent no-op, not an error.
type VoteResult struct {
	Status      string `json:"status"`
	UpvoteCount int    `json:"upvote_count"`
}

var (
	// ErrAlreadyVoted is returned by the repository when the unique
	// constraint rejects a duplicate vote insert.
	ErrAlreadyVoted = errors.New("user has already voted for this listing")
)
