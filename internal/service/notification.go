package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"bhandaraboard/internal/config"
	"bhandaraboard/internal/model"
	"bhandaraboard/internal/queue"
	"bhandaraboard/internal/repository"
)

// WebPushSender delivers one push message to one subscription and reports
// the push service's HTTP status. Split out so fan-out can be tested without
// a push service.
type WebPushSender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) (statusCode int, err error)
}

type vapidSender struct {
	subscriber string
	publicKey  string
	privateKey string
}

// NewWebPushSender creates a WebPushSender signing with the VAPID keys in cfg.
func NewWebPushSender(cfg *config.Config) WebPushSender {
	return &vapidSender{
		subscriber: cfg.VAPIDSubscriber,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
	}
}

func (s *vapidSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// NotificationService manages push subscriptions and fans new-listing alerts
// out to every active device. Alerts are best-effort: a failed delivery is
// logged and never fails the operation that triggered it.
type NotificationService struct {
	subRepo        repository.SubscriptionRepository
	broadcastRepo  repository.BroadcastRepository
	sender         WebPushSender
	vapidPublicKey string
}

func NewNotificationService(
	subRepo repository.SubscriptionRepository,
	broadcastRepo repository.BroadcastRepository,
	sender WebPushSender,
	vapidPublicKey string,
) *NotificationService {
	return &NotificationService{
		subRepo:        subRepo,
		broadcastRepo:  broadcastRepo,
		sender:         sender,
		vapidPublicKey: vapidPublicKey,
	}
}

// VAPIDPublicKey returns the key browsers need to create a push subscription.
func (s *NotificationService) VAPIDPublicKey() string {
	return s.vapidPublicKey
}

// Subscribe registers or reactivates a device's push subscription.
func (s *NotificationService) Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.PushSubscription, error) {
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return nil, fmt.Errorf("incomplete push subscription")
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	sub := &model.PushSubscription{
		ID:        deviceID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: req.UserAgent,
		IsActive:  true,
	}
	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		log.Printf("[Notification] Subscribe FAILED: err=%v", err)
		return nil, err
	}

	log.Printf("[Notification] Subscribe OK: id=%s", sub.ID)
	return sub, nil
}

// Unsubscribe deactivates the subscription for the given endpoint. The row
// stays so the device keeps its opt-out state.
func (s *NotificationService) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if err := s.subRepo.DeactivateByEndpoint(ctx, endpoint); err != nil {
		log.Printf("[Notification] Unsubscribe FAILED: err=%v", err)
		return err
	}
	log.Printf("[Notification] Unsubscribe OK")
	return nil
}

// BroadcastNewListing records the alert and pushes it to every active
// subscription. The broadcast row is the durable record; push delivery
// failures only deactivate dead endpoints. Returns an error only when the
// record itself cannot be written, so the caller can retry the event.
func (s *NotificationService) BroadcastNewListing(ctx context.Context, event queue.ListingEvent) error {
	start := time.Now()

	broadcast := &model.Broadcast{
		Title:      "New bhandara just dropped!",
		Message:    buildAlertMessage(event),
		BhandaraID: &event.ListingID,
	}
	created, err := s.broadcastRepo.Create(ctx, broadcast)
	if err != nil {
		log.Printf("[Notification] Broadcast record FAILED: listing=%s err=%v", event.ListingID, err)
		return fmt.Errorf("record broadcast: %w", err)
	}

	subs, err := s.subRepo.ListActive(ctx)
	if err != nil {
		log.Printf("[Notification] Broadcast list subscriptions FAILED: err=%v", err)
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title":       created.Title,
		"message":     created.Message,
		"bhandara_id": event.ListingID,
		"url":         "/",
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	sent, failed := 0, 0
	for _, sub := range subs {
		status, err := s.sender.Send(ctx, sub, payload)
		if err != nil {
			failed++
			log.Printf("[Notification] Push send failed: sub=%s err=%v", sub.ID, err)
			continue
		}
		if status == http.StatusNotFound || status == http.StatusGone {
			// The push service no longer knows this endpoint.
			if err := s.subRepo.DeactivateByEndpoint(ctx, sub.Endpoint); err != nil {
				log.Printf("[Notification] Deactivate dead endpoint failed: sub=%s err=%v", sub.ID, err)
			} else {
				log.Printf("[Notification] Deactivated dead endpoint: sub=%s status=%d", sub.ID, status)
			}
			failed++
			continue
		}
		if status >= 400 {
			failed++
			log.Printf("[Notification] Push rejected: sub=%s status=%d", sub.ID, status)
			continue
		}
		sent++
	}

	log.Printf("[Notification] Broadcast OK: listing=%s sent=%d failed=%d total=%d duration=%v",
		event.ListingID, sent, failed, len(subs), time.Since(start))
	return nil
}

// buildAlertMessage formats the alert body from the listing summary carried
// in the event.
func buildAlertMessage(event queue.ListingEvent) string {
	var b strings.Builder
	b.WriteString(event.LocationDescription)
	if event.NearbyLandmark != nil && *event.NearbyLandmark != "" {
		b.WriteString(" - ")
		b.WriteString(*event.NearbyLandmark)
	}
	if event.Menu != nil && *event.Menu != "" {
		b.WriteString("\nMenu: ")
		b.WriteString(*event.Menu)
	}
	return b.String()
}
