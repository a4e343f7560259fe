package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"bhandaraboard/internal/model"
)

type listingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create inserts a listing. The database assigns the id; created_at and
// expires_at are computed together by the caller so the 24h window is exact,
// and both are fixed at insert.
func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	query := `
		INSERT INTO bhandaras (location_link, nearby_landmark, photo_urls, menu,
		                       location_description, created_at, expires_at, user_id, user_name, upvote_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
		RETURNING id, location_link, nearby_landmark, photo_urls, menu,
		          location_description, created_at, expires_at, user_id, user_name, upvote_count
	`
	var created model.Listing
	err := r.db.GetContext(ctx, &created, query,
		listing.LocationLink,
		listing.NearbyLandmark,
		listing.PhotoURLs,
		listing.Menu,
		listing.LocationDescription,
		listing.CreatedAt,
		listing.ExpiresAt,
		listing.UserID,
		listing.UserName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}

	return &created, nil
}

// ListActive returns non-expired listings, newest first. Callers are expected
// to run DeleteExpired first; the expires_at filter here only covers rows that
// expired between the sweep and this select.
func (r *listingRepository) ListActive(ctx context.Context, now time.Time) ([]model.Listing, error) {
	query := `
		SELECT id, location_link, nearby_landmark, photo_urls, menu,
		       location_description, created_at, expires_at, user_id, user_name, upvote_count
		FROM bhandaras
		WHERE expires_at > $1
		ORDER BY created_at DESC
	`
	listings := []model.Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, now); err != nil {
		return nil, fmt.Errorf("list active listings: %w", err)
	}
	return listings, nil
}

// DeleteExpired removes every listing whose window has closed. Vote rows go
// with them via ON DELETE CASCADE.
func (r *listingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bhandaras WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired listings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// DeleteByID removes a single listing regardless of expiry.
func (r *listingRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bhandaras WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrListingNotFound
	}
	return nil
}

// ListAll returns every listing including expired ones (admin view).
func (r *listingRepository) ListAll(ctx context.Context) ([]model.Listing, error) {
	query := `
		SELECT id, location_link, nearby_landmark, photo_urls, menu,
		       location_description, created_at, expires_at, user_id, user_name, upvote_count
		FROM bhandaras
		ORDER BY created_at DESC
	`
	listings := []model.Listing{}
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("list all listings: %w", err)
	}
	return listings, nil
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	query := `
		SELECT id, location_link, nearby_landmark, photo_urls, menu,
		       location_description, created_at, expires_at, user_id, user_name, upvote_count
		FROM bhandaras
		WHERE id = $1
	`
	var listing model.Listing
	err := r.db.GetContext(ctx, &listing, query, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &listing, nil
}
