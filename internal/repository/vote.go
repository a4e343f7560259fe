package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bhandaraboard/internal/model"
)

type voteRepository struct {
	db *sqlx.DB
}

func NewVoteRepository(db *sqlx.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Exists checks for an existing vote. This is the advisory pre-check; a
// concurrent caller can still win the race between this check and CastVote.
func (r *voteRepository) Exists(ctx context.Context, userID, bhandaraID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_votes WHERE user_id = $1 AND bhandara_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, bhandaraID); err != nil {
		return false, fmt.Errorf("check vote exists: %w", err)
	}
	return exists, nil
}

// CastVote records a vote and bumps the listing's denormalized count in one
// transaction. The UNIQUE(user_id, bhandara_id) constraint is the
// authoritative duplicate enforcement: a 23505 rejection means this user
// already voted, possibly via a concurrent request, and maps to
// ErrAlreadyVoted with the transaction rolled back so the count is untouched.
func (r *voteRepository) CastVote(ctx context.Context, userID, bhandaraID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin vote tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO user_votes (user_id, bhandara_id) VALUES ($1, $2)`, userID, bhandaraID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return 0, model.ErrAlreadyVoted
			case "23503": // foreign_key_violation, listing row is gone
				return 0, model.ErrListingNotFound
			}
		}
		return 0, fmt.Errorf("insert vote: %w", err)
	}

	// Single UPDATE so concurrent votes cannot under-count.
	var count int
	err = tx.GetContext(ctx, &count,
		`UPDATE bhandaras SET upvote_count = upvote_count + 1 WHERE id = $1 RETURNING upvote_count`, bhandaraID)
	if err == sql.ErrNoRows {
		return 0, model.ErrListingNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment upvote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit vote tx: %w", err)
	}
	return count, nil
}

// CountForListing counts vote rows for a listing. Used to cross-check the
// denormalized upvote_count.
func (r *voteRepository) CountForListing(ctx context.Context, bhandaraID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_votes WHERE bhandara_id = $1`
	if err := r.db.GetContext(ctx, &count, query, bhandaraID); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}
