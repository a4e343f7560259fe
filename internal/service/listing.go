package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"github.com/lib/pq"

	"bhandaraboard/internal/model"
	"bhandaraboard/internal/queue"
	"bhandaraboard/internal/realtime"
	"bhandaraboard/internal/repository"
)

// PhotoFile pairs an opened multipart file with its header. Handlers open
// the files; the service validates and uploads them.
type PhotoFile struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// ListingService owns the listing lifecycle: submission, expiry sweeps, the
// active feed, and admin removal.
type ListingService struct {
	listingRepo   repository.ListingRepository
	uploader      PhotoUploader
	publisher     queue.Publisher
	feed          realtime.ChangeFeed
	adminPassword string
}

func NewListingService(
	listingRepo repository.ListingRepository,
	uploader PhotoUploader,
	publisher queue.Publisher,
	feed realtime.ChangeFeed,
	adminPassword string,
) *ListingService {
	return &ListingService{
		listingRepo:   listingRepo,
		uploader:      uploader,
		publisher:     publisher,
		feed:          feed,
		adminPassword: adminPassword,
	}
}

// Submit validates a draft, uploads its photos in order, and inserts the
// listing with a fixed 24h window. The first failed upload aborts the whole
// submission; already-uploaded blobs are left behind for bucket lifecycle
// rules to clean up.
func (s *ListingService) Submit(ctx context.Context, ident *model.Identity, draft model.ListingDraft, photos []PhotoFile) (*model.Listing, error) {
	start := time.Now()

	if ident == nil || ident.ID == "" {
		return nil, model.ErrAuthRequired
	}

	link := strings.TrimSpace(draft.LocationLink)
	if !model.IsValidMapLink(link) {
		return nil, model.ErrInvalidMapLink
	}

	description := strings.TrimSpace(draft.LocationDescription)
	if description == "" {
		return nil, model.ErrMissingDescription
	}

	if len(photos) < model.MinListingPhotos {
		return nil, model.ErrNoPhotosProvided
	}
	if len(photos) > model.MaxListingPhotos {
		return nil, model.ErrTooManyPhotos
	}

	photoURLs := make(pq.StringArray, 0, len(photos))
	for i, photo := range photos {
		result, err := s.uploader.UploadListingPhoto(ctx, photo.File, photo.Header)
		if err != nil {
			log.Printf("[Listing] Submit upload FAILED: user=%s photo=%d err=%v", ident.ID, i+1, err)
			return nil, fmt.Errorf("photo %d: %w: %w", i+1, model.ErrPhotoUploadFailed, err)
		}
		photoURLs = append(photoURLs, result.URL)
	}

	createdAt := time.Now().UTC()
	listing := &model.Listing{
		LocationLink:        link,
		NearbyLandmark:      optionalText(draft.NearbyLandmark),
		PhotoURLs:           photoURLs,
		Menu:                optionalText(draft.Menu),
		LocationDescription: description,
		CreatedAt:           createdAt,
		ExpiresAt:           createdAt.Add(model.ListingTTL),
		UserID:              ident.ID,
		UserName:            ident.DisplayName(),
	}

	created, err := s.listingRepo.Create(ctx, listing)
	if err != nil {
		log.Printf("[Listing] Submit FAILED: user=%s err=%v", ident.ID, err)
		return nil, err
	}

	// Events and change signals are best-effort; the listing is already stored.
	event := queue.NewListingCreatedEvent(created.ID, created.UserID,
		created.LocationDescription, created.NearbyLandmark, created.Menu)
	if _, err := s.publisher.Publish(ctx, queue.StreamListings, event); err != nil {
		log.Printf("[Listing] Submit event publish failed: listing=%s err=%v", created.ID, err)
	}
	s.notifyChanged(ctx)

	log.Printf("[Listing] Submit OK: listing=%s user=%s photos=%d duration=%v",
		created.ID, created.UserID, len(photoURLs), time.Since(start))
	return created, nil
}

// ListActive sweeps expired rows, then returns the remaining listings newest
// first. A sweep failure degrades to a filtered read rather than blocking it.
func (s *ListingService) ListActive(ctx context.Context) ([]model.Listing, error) {
	now := time.Now().UTC()

	removed, err := s.listingRepo.DeleteExpired(ctx, now)
	if err != nil {
		log.Printf("[Listing] Sweep FAILED: err=%v", err)
	} else if removed > 0 {
		log.Printf("[Listing] Sweep OK: removed=%d", removed)
		s.notifyChanged(ctx)
	}

	return s.listingRepo.ListActive(ctx, now)
}

func (s *ListingService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	return s.listingRepo.GetByID(ctx, id)
}

// VerifyAdmin checks the shared admin password in constant time. This gates
// a community moderation page, not real secrets; there are no per-admin
// accounts.
func (s *ListingService) VerifyAdmin(password string) error {
	if s.adminPassword == "" {
		return model.ErrAdminUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return model.ErrAdminUnauthorized
	}
	return nil
}

// AdminListAll sweeps expired rows and returns everything that remains,
// newest first.
func (s *ListingService) AdminListAll(ctx context.Context, password string) ([]model.Listing, error) {
	if err := s.VerifyAdmin(password); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	removed, err := s.listingRepo.DeleteExpired(ctx, now)
	if err != nil {
		log.Printf("[Listing] AdminListAll sweep FAILED: err=%v", err)
	} else if removed > 0 {
		log.Printf("[Listing] AdminListAll sweep OK: removed=%d", removed)
		s.notifyChanged(ctx)
	}

	return s.listingRepo.ListAll(ctx)
}

// AdminDelete removes a listing before its window closes.
func (s *ListingService) AdminDelete(ctx context.Context, password, id string) error {
	if err := s.VerifyAdmin(password); err != nil {
		return err
	}

	if err := s.listingRepo.DeleteByID(ctx, id); err != nil {
		if err != model.ErrListingNotFound {
			log.Printf("[Listing] AdminDelete FAILED: listing=%s err=%v", id, err)
		}
		return err
	}

	event := queue.NewListingDeletedEvent(id)
	if _, err := s.publisher.Publish(ctx, queue.StreamListings, event); err != nil {
		log.Printf("[Listing] AdminDelete event publish failed: listing=%s err=%v", id, err)
	}
	s.notifyChanged(ctx)

	log.Printf("[Listing] AdminDelete OK: listing=%s", id)
	return nil
}

func (s *ListingService) notifyChanged(ctx context.Context) {
	if err := s.feed.Publish(ctx); err != nil {
		log.Printf("[Listing] Change signal failed: err=%v", err)
	}
}

// optionalText trims an optional field and collapses blank values to nil.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
