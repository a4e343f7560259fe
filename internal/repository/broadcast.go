package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bhandaraboard/internal/model"
)

type broadcastRepository struct {
	db *sqlx.DB
}

func NewBroadcastRepository(db *sqlx.DB) BroadcastRepository {
	return &broadcastRepository{db: db}
}

// Create inserts a broadcast record. Broadcasts are write-once; nothing in
// this system updates or deletes them.
func (r *broadcastRepository) Create(ctx context.Context, broadcast *model.Broadcast) (*model.Broadcast, error) {
	query := `
		INSERT INTO notification_broadcasts (title, message, bhandara_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, message, bhandara_id, created_at
	`
	var created model.Broadcast
	err := r.db.GetContext(ctx, &created, query, broadcast.Title, broadcast.Message, broadcast.BhandaraID)
	if err != nil {
		return nil, fmt.Errorf("insert broadcast: %w", err)
	}
	return &created, nil
}
