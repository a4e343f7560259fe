package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bhandaraboard/internal/model"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert creates or refreshes a device's subscription. If the same push
// endpoint already exists under another device id (browser storage cleared),
// the row is reassigned to the new device.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	query := `
		INSERT INTO notification_subscriptions (id, endpoint, p256dh, auth, user_agent, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (endpoint) DO UPDATE
		SET id = EXCLUDED.id,
		    p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    user_agent = EXCLUDED.user_agent,
		    is_active = TRUE
	`
	_, err := r.db.ExecContext(ctx, query, sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notification_subscriptions SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) DeactivateByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notification_subscriptions SET is_active = FALSE WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("deactivate subscription by endpoint: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]model.PushSubscription, error) {
	query := `
		SELECT id, endpoint, p256dh, auth, user_agent, is_active, created_at
		FROM notification_subscriptions
		WHERE is_active = TRUE
	`
	subs := []model.PushSubscription{}
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return subs, nil
}
