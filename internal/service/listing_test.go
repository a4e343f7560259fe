package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"bhandaraboard/internal/model"
	"bhandaraboard/internal/queue"
)

// =============================================================================
// MOCKS
// =============================================================================
//
// The services depend on interfaces, so unit tests swap in mocks with
// per-test behavior instead of hitting Postgres, Redis, or a bucket.

type mockListingRepository struct {
	createFn        func(ctx context.Context, listing *model.Listing) (*model.Listing, error)
	listActiveFn    func(ctx context.Context, now time.Time) ([]model.Listing, error)
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
	deleteByIDFn    func(ctx context.Context, id string) error
	listAllFn       func(ctx context.Context) ([]model.Listing, error)
	getByIDFn       func(ctx context.Context, id string) (*model.Listing, error)

	mu          sync.Mutex
	createCalls []*model.Listing
	callOrder   []string
}

func (m *mockListingRepository) record(call string) {
	m.mu.Lock()
	m.callOrder = append(m.callOrder, call)
	m.mu.Unlock()
}

func (m *mockListingRepository) Create(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, listing)
	m.mu.Unlock()
	m.record("create")
	if m.createFn != nil {
		return m.createFn(ctx, listing)
	}
	created := *listing
	created.ID = "generated-id"
	return &created, nil
}

func (m *mockListingRepository) ListActive(ctx context.Context, now time.Time) ([]model.Listing, error) {
	m.record("list_active")
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now)
	}
	return []model.Listing{}, nil
}

func (m *mockListingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.record("delete_expired")
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

func (m *mockListingRepository) DeleteByID(ctx context.Context, id string) error {
	m.record("delete_by_id")
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockListingRepository) ListAll(ctx context.Context) ([]model.Listing, error) {
	m.record("list_all")
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return []model.Listing{}, nil
}

func (m *mockListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrListingNotFound
}

type mockUploader struct {
	uploadFn func(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)

	mu          sync.Mutex
	uploadCalls int
}

func (m *mockUploader) UploadListingPhoto(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	m.mu.Lock()
	m.uploadCalls++
	call := m.uploadCalls
	m.mu.Unlock()
	if m.uploadFn != nil {
		return m.uploadFn(ctx, file, header)
	}
	return &model.UploadResult{
		URL: fmt.Sprintf("https://cdn.example.com/photo-%d.jpg", call),
		Key: fmt.Sprintf("bhandara-images/photo-%d.jpg", call),
	}, nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, stream string, event queue.ListingEvent) (string, error)

	mu     sync.Mutex
	events []queue.ListingEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.ListingEvent) (string, error) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, stream, event)
	}
	return "0-1", nil
}

func (m *mockPublisher) published() []queue.ListingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.ListingEvent, len(m.events))
	copy(out, m.events)
	return out
}

type mockChangeFeed struct {
	mu           sync.Mutex
	publishCalls int
}

func (m *mockChangeFeed) Publish(ctx context.Context) error {
	m.mu.Lock()
	m.publishCalls++
	m.mu.Unlock()
	return nil
}

func (m *mockChangeFeed) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	ch := make(chan struct{})
	return ch, func() {}, nil
}

func (m *mockChangeFeed) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishCalls
}

func testIdentity() *model.Identity {
	return &model.Identity{ID: "user-1", Name: "Asha", Email: "asha@example.com"}
}

func validDraft() model.ListingDraft {
	landmark := "Near the clock tower"
	return model.ListingDraft{
		LocationLink:        "https://maps.app.goo.gl/AbC123",
		NearbyLandmark:      &landmark,
		LocationDescription: "Community hall, sector 12",
	}
}

func testPhotos(n int) []PhotoFile {
	photos := make([]PhotoFile, n)
	return photos
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestListingService_Submit_Success(t *testing.T) {
	repo := &mockListingRepository{}
	uploader := &mockUploader{}
	pub := &mockPublisher{}
	feed := &mockChangeFeed{}
	svc := NewListingService(repo, uploader, pub, feed, "secret")

	listing, err := svc.Submit(context.Background(), testIdentity(), validDraft(), testPhotos(2))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(listing.PhotoURLs) != 2 {
		t.Fatalf("photo_urls length = %d, want 2", len(listing.PhotoURLs))
	}
	// Uploads preserve submission order
	if listing.PhotoURLs[0] != "https://cdn.example.com/photo-1.jpg" ||
		listing.PhotoURLs[1] != "https://cdn.example.com/photo-2.jpg" {
		t.Errorf("photo_urls out of order: %v", listing.PhotoURLs)
	}

	if got := listing.ExpiresAt.Sub(listing.CreatedAt); got != model.ListingTTL {
		t.Errorf("expiry window = %v, want %v", got, model.ListingTTL)
	}

	if listing.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", listing.UserID, "user-1")
	}
	if listing.UserName != "Asha" {
		t.Errorf("user_name = %q, want %q", listing.UserName, "Asha")
	}
	if listing.UpvoteCount != 0 {
		t.Errorf("upvote_count = %d, want 0", listing.UpvoteCount)
	}

	events := pub.published()
	if len(events) != 1 || events[0].Type != queue.EventListingCreated {
		t.Errorf("published events = %+v, want one %s", events, queue.EventListingCreated)
	}
	if feed.calls() != 1 {
		t.Errorf("change signals = %d, want 1", feed.calls())
	}
}

func TestListingService_Submit_RequiresAuth(t *testing.T) {
	svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "secret")

	_, err := svc.Submit(context.Background(), nil, validDraft(), testPhotos(1))
	if !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("nil identity: err = %v, want ErrAuthRequired", err)
	}

	_, err = svc.Submit(context.Background(), &model.Identity{}, validDraft(), testPhotos(1))
	if !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("empty identity: err = %v, want ErrAuthRequired", err)
	}
}

func TestListingService_Submit_InvalidMapLink(t *testing.T) {
	svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "secret")

	draft := validDraft()
	draft.LocationLink = "https://example.com/some/page"

	_, err := svc.Submit(context.Background(), testIdentity(), draft, testPhotos(1))
	if !errors.Is(err, model.ErrInvalidMapLink) {
		t.Errorf("err = %v, want ErrInvalidMapLink", err)
	}
}

func TestListingService_Submit_MissingDescription(t *testing.T) {
	svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "secret")

	draft := validDraft()
	draft.LocationDescription = "   "

	_, err := svc.Submit(context.Background(), testIdentity(), draft, testPhotos(1))
	if !errors.Is(err, model.ErrMissingDescription) {
		t.Errorf("err = %v, want ErrMissingDescription", err)
	}
}

func TestListingService_Submit_PhotoCount(t *testing.T) {
	cases := []struct {
		name    string
		photos  int
		wantErr error
	}{
		{"zero photos rejected", 0, model.ErrNoPhotosProvided},
		{"one photo accepted", 1, nil},
		{"two photos accepted", 2, nil},
		{"three photos rejected", 3, model.ErrTooManyPhotos},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "secret")
			_, err := svc.Submit(context.Background(), testIdentity(), validDraft(), testPhotos(tc.photos))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestListingService_Submit_UploadFailureAborts(t *testing.T) {
	repo := &mockListingRepository{}
	pub := &mockPublisher{}
	uploader := &mockUploader{}
	uploader.uploadFn = func(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
		uploader.mu.Lock()
		call := uploader.uploadCalls
		uploader.mu.Unlock()
		if call >= 2 {
			return nil, errors.New("bucket unreachable")
		}
		return &model.UploadResult{URL: "https://cdn.example.com/photo-1.jpg", Key: "k1"}, nil
	}
	svc := NewListingService(repo, uploader, pub, &mockChangeFeed{}, "secret")

	_, err := svc.Submit(context.Background(), testIdentity(), validDraft(), testPhotos(2))
	if !errors.Is(err, model.ErrPhotoUploadFailed) {
		t.Fatalf("err = %v, want ErrPhotoUploadFailed", err)
	}

	// Nothing stored, nothing announced
	if len(repo.createCalls) != 0 {
		t.Errorf("create calls = %d, want 0", len(repo.createCalls))
	}
	if len(pub.published()) != 0 {
		t.Errorf("published events = %d, want 0", len(pub.published()))
	}
}

// =============================================================================
// READ PATH TESTS
// =============================================================================

func TestListingService_ListActive_SweepsBeforeSelect(t *testing.T) {
	repo := &mockListingRepository{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 2, nil
		},
		listActiveFn: func(ctx context.Context, now time.Time) ([]model.Listing, error) {
			return []model.Listing{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	feed := &mockChangeFeed{}
	svc := NewListingService(repo, &mockUploader{}, &mockPublisher{}, feed, "secret")

	listings, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(listings) != 2 {
		t.Errorf("listings = %d, want 2", len(listings))
	}

	if len(repo.callOrder) != 2 || repo.callOrder[0] != "delete_expired" || repo.callOrder[1] != "list_active" {
		t.Errorf("call order = %v, want [delete_expired list_active]", repo.callOrder)
	}

	// Evicting rows is a table change other clients must hear about
	if feed.calls() != 1 {
		t.Errorf("change signals = %d, want 1", feed.calls())
	}
}

func TestListingService_ListActive_NoSignalWhenNothingExpired(t *testing.T) {
	feed := &mockChangeFeed{}
	svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, feed, "secret")

	if _, err := svc.ListActive(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if feed.calls() != 0 {
		t.Errorf("change signals = %d, want 0", feed.calls())
	}
}

func TestListingService_ListActive_SweepFailureStillReads(t *testing.T) {
	repo := &mockListingRepository{
		deleteExpiredFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 0, errors.New("deadlock detected")
		},
		listActiveFn: func(ctx context.Context, now time.Time) ([]model.Listing, error) {
			return []model.Listing{{ID: "a"}}, nil
		},
	}
	svc := NewListingService(repo, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "secret")

	listings, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("listings = %d, want 1", len(listings))
	}
}

// =============================================================================
// ADMIN TESTS
// =============================================================================

func TestListingService_VerifyAdmin(t *testing.T) {
	svc := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "letmein")

	if err := svc.VerifyAdmin("letmein"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.VerifyAdmin("wrong"); !errors.Is(err, model.ErrAdminUnauthorized) {
		t.Errorf("wrong password: err = %v, want ErrAdminUnauthorized", err)
	}

	// An unset password must never become a free pass
	unset := NewListingService(&mockListingRepository{}, &mockUploader{}, &mockPublisher{}, &mockChangeFeed{}, "")
	if err := unset.VerifyAdmin(""); !errors.Is(err, model.ErrAdminUnauthorized) {
		t.Errorf("unset password: err = %v, want ErrAdminUnauthorized", err)
	}
}

func TestListingService_AdminDelete(t *testing.T) {
	repo := &mockListingRepository{}
	pub := &mockPublisher{}
	feed := &mockChangeFeed{}
	svc := NewListingService(repo, &mockUploader{}, pub, feed, "letmein")

	if err := svc.AdminDelete(context.Background(), "wrong", "listing-1"); !errors.Is(err, model.ErrAdminUnauthorized) {
		t.Fatalf("wrong password: err = %v, want ErrAdminUnauthorized", err)
	}
	if len(repo.callOrder) != 0 {
		t.Fatalf("repository touched despite bad password: %v", repo.callOrder)
	}

	if err := svc.AdminDelete(context.Background(), "letmein", "listing-1"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	events := pub.published()
	if len(events) != 1 || events[0].Type != queue.EventListingDeleted {
		t.Errorf("published events = %+v, want one %s", events, queue.EventListingDeleted)
	}
	if feed.calls() != 1 {
		t.Errorf("change signals = %d, want 1", feed.calls())
	}
}
