package model

import "time"

// PushSubscription is a device-scoped opt-in record for new-listing alerts.
// One row per browser/device; opting out flips IsActive rather than deleting
// the row, so the device keeps its durable "already asked" state.
type PushSubscription struct {
	ID        string    `db:"id" json:"id"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"-"`
	Auth      string    `db:"auth" json:"-"`
	UserAgent *string   `db:"user_agent" json:"user_agent,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Broadcast is a write-once record of a cross-device "new listing" alert.
// Rows are consumed by subscribed devices and never deleted by this system.
type Broadcast struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Message    string    `db:"message" json:"message"`
	BhandaraID *string   `db:"bhandara_id" json:"bhandara_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SubscribeRequest is the request body for registering a push subscription.
// Endpoint and keys come from the browser's PushManager subscription.
type SubscribeRequest struct {
	DeviceID string `json:"device_id"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	UserAgent *string `json:"user_agent"`
}
