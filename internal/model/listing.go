package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Listing represents one bhandara posting.
// A listing is active while the current time is before ExpiresAt; expired
// rows are swept opportunistically on the read path.
type Listing struct {
	ID                  string         `db:"id" json:"id"`
	LocationLink        string         `db:"location_link" json:"location_link"`
	NearbyLandmark      *string        `db:"nearby_landmark" json:"nearby_landmark,omitempty"`
	PhotoURLs           pq.StringArray `db:"photo_urls" json:"photo_urls"`
	Menu                *string        `db:"menu" json:"menu,omitempty"`
	LocationDescription string         `db:"location_description" json:"location_description"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	ExpiresAt           time.Time      `db:"expires_at" json:"expires_at"`
	UserID              string         `db:"user_id" json:"user_id"`
	UserName            string         `db:"user_name" json:"user_name"`
	UpvoteCount         int            `db:"upvote_count" json:"upvote_count"`
}

// Active reports whether the listing has not yet expired.
func (l *Listing) Active(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}

// ListingDraft is the user-supplied part of a submission. Photos travel
// separately as multipart files and become PhotoURLs after upload.
type ListingDraft struct {
	LocationLink        string  `json:"location_link"`
	NearbyLandmark      *string `json:"nearby_landmark"`
	Menu                *string `json:"menu"`
	LocationDescription string  `json:"location_description"`
}

// Listing constants
const (
	// ListingTTL is how long a listing stays visible. ExpiresAt is fixed at
	// insert time and never extended.
	ListingTTL = 24 * time.Hour

	MinListingPhotos = 1
	MaxListingPhotos = 2

	ListingPhotoFolder  = "bhandara-images"
	MaxListingPhotoSize = 10 * 1024 * 1024 // 10MB per photo
)

// Listing errors
var (
	ErrListingNotFound    = errors.New("listing not found")
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidMapLink     = errors.New("location link is not a recognized map link")
	ErrMissingDescription = errors.New("location description is required")
	ErrNoPhotosProvided   = errors.New("at least one photo is required")
	ErrTooManyPhotos      = errors.New("too many photos")
	ErrPhotoUploadFailed  = errors.New("photo upload failed")
	ErrAdminUnauthorized  = errors.New("invalid admin password")
)
