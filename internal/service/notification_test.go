package service

import (
	"context"
	"errors"
	"testing"

	"bhandaraboard/internal/model"
	"bhandaraboard/internal/queue"
)

type mockSubscriptionRepository struct {
	upsertFn     func(ctx context.Context, sub *model.PushSubscription) error
	listActiveFn func(ctx context.Context) ([]model.PushSubscription, error)

	deactivatedEndpoints []string
	upserted             []*model.PushSubscription
}

func (m *mockSubscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	m.upserted = append(m.upserted, sub)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionRepository) Deactivate(ctx context.Context, id string) error {
	return nil
}

func (m *mockSubscriptionRepository) DeactivateByEndpoint(ctx context.Context, endpoint string) error {
	m.deactivatedEndpoints = append(m.deactivatedEndpoints, endpoint)
	return nil
}

func (m *mockSubscriptionRepository) ListActive(ctx context.Context) ([]model.PushSubscription, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []model.PushSubscription{}, nil
}

type mockBroadcastRepository struct {
	createFn func(ctx context.Context, broadcast *model.Broadcast) (*model.Broadcast, error)

	created []*model.Broadcast
}

func (m *mockBroadcastRepository) Create(ctx context.Context, broadcast *model.Broadcast) (*model.Broadcast, error) {
	m.created = append(m.created, broadcast)
	if m.createFn != nil {
		return m.createFn(ctx, broadcast)
	}
	stored := *broadcast
	stored.ID = "broadcast-1"
	return &stored, nil
}

type mockSender struct {
	sendFn func(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error)

	sent []model.PushSubscription
}

func (m *mockSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error) {
	m.sent = append(m.sent, sub)
	if m.sendFn != nil {
		return m.sendFn(ctx, sub, payload)
	}
	return 201, nil
}

func strPtr(s string) *string { return &s }

func createdEvent() queue.ListingEvent {
	return queue.NewListingCreatedEvent("listing-1", "user-1",
		"Community hall, sector 12", strPtr("Near the clock tower"), strPtr("Puri sabzi, halwa"))
}

func TestNotificationService_BroadcastNewListing_FanOut(t *testing.T) {
	subRepo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context) ([]model.PushSubscription, error) {
			return []model.PushSubscription{
				{ID: "d1", Endpoint: "https://push.example.com/1"},
				{ID: "d2", Endpoint: "https://push.example.com/2"},
			}, nil
		},
	}
	broadcastRepo := &mockBroadcastRepository{}
	sender := &mockSender{}
	svc := NewNotificationService(subRepo, broadcastRepo, sender, "pubkey")

	if err := svc.BroadcastNewListing(context.Background(), createdEvent()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(broadcastRepo.created) != 1 {
		t.Fatalf("broadcast records = %d, want 1", len(broadcastRepo.created))
	}
	b := broadcastRepo.created[0]
	if b.Title != "New bhandara just dropped!" {
		t.Errorf("title = %q", b.Title)
	}
	if b.BhandaraID == nil || *b.BhandaraID != "listing-1" {
		t.Errorf("bhandara_id = %v, want listing-1", b.BhandaraID)
	}

	if len(sender.sent) != 2 {
		t.Errorf("pushes sent = %d, want 2", len(sender.sent))
	}
	if len(subRepo.deactivatedEndpoints) != 0 {
		t.Errorf("deactivated = %v, want none", subRepo.deactivatedEndpoints)
	}
}

func TestNotificationService_BroadcastNewListing_DeactivatesDeadEndpoints(t *testing.T) {
	subRepo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context) ([]model.PushSubscription, error) {
			return []model.PushSubscription{
				{ID: "d1", Endpoint: "https://push.example.com/alive"},
				{ID: "d2", Endpoint: "https://push.example.com/gone"},
				{ID: "d3", Endpoint: "https://push.example.com/flaky"},
			}, nil
		},
	}
	sender := &mockSender{
		sendFn: func(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error) {
			switch sub.ID {
			case "d2":
				return 410, nil
			case "d3":
				return 0, errors.New("connection reset")
			}
			return 201, nil
		},
	}
	svc := NewNotificationService(subRepo, &mockBroadcastRepository{}, sender, "pubkey")

	if err := svc.BroadcastNewListing(context.Background(), createdEvent()); err != nil {
		t.Fatalf("delivery failures must not fail the broadcast: %v", err)
	}

	// Only the 410 endpoint is retired; transient errors keep the row active
	if len(subRepo.deactivatedEndpoints) != 1 || subRepo.deactivatedEndpoints[0] != "https://push.example.com/gone" {
		t.Errorf("deactivated = %v, want [https://push.example.com/gone]", subRepo.deactivatedEndpoints)
	}
}

func TestNotificationService_BroadcastNewListing_RecordFailure(t *testing.T) {
	broadcastRepo := &mockBroadcastRepository{
		createFn: func(ctx context.Context, broadcast *model.Broadcast) (*model.Broadcast, error) {
			return nil, errors.New("connection refused")
		},
	}
	sender := &mockSender{}
	svc := NewNotificationService(&mockSubscriptionRepository{}, broadcastRepo, sender, "pubkey")

	if err := svc.BroadcastNewListing(context.Background(), createdEvent()); err == nil {
		t.Fatal("expected error when the broadcast record cannot be written")
	}
	if len(sender.sent) != 0 {
		t.Errorf("pushes sent = %d, want 0", len(sender.sent))
	}
}

func TestNotificationService_Subscribe(t *testing.T) {
	subRepo := &mockSubscriptionRepository{}
	svc := NewNotificationService(subRepo, &mockBroadcastRepository{}, &mockSender{}, "pubkey")

	req := model.SubscribeRequest{
		DeviceID: "device-1",
		Endpoint: "https://push.example.com/1",
	}
	req.Keys.P256dh = "p256dh-key"
	req.Keys.Auth = "auth-key"

	sub, err := svc.Subscribe(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sub.ID != "device-1" {
		t.Errorf("id = %q, want device-1", sub.ID)
	}
	if !sub.IsActive {
		t.Error("expected subscription to be active")
	}

	// A device without a stored id gets one assigned
	req.DeviceID = ""
	sub, err = svc.Subscribe(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sub.ID == "" {
		t.Error("expected a generated device id")
	}
}

func TestNotificationService_Subscribe_RejectsIncomplete(t *testing.T) {
	svc := NewNotificationService(&mockSubscriptionRepository{}, &mockBroadcastRepository{}, &mockSender{}, "pubkey")

	req := model.SubscribeRequest{Endpoint: "https://push.example.com/1"}
	if _, err := svc.Subscribe(context.Background(), req); err == nil {
		t.Error("expected error for missing keys")
	}
}

func TestBuildAlertMessage(t *testing.T) {
	full := createdEvent()
	if got := buildAlertMessage(full); got != "Community hall, sector 12 - Near the clock tower\nMenu: Puri sabzi, halwa" {
		t.Errorf("full message = %q", got)
	}

	bare := queue.NewListingCreatedEvent("listing-1", "user-1", "Community hall, sector 12", nil, nil)
	if got := buildAlertMessage(bare); got != "Community hall, sector 12" {
		t.Errorf("bare message = %q", got)
	}
}
