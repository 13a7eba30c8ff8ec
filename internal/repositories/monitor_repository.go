package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"market-chat-service/internal/models"
)

// MonitorRepository records staff triage views of rooms.
type MonitorRepository interface {
	RecordView(ctx context.Context, roomID, staffID string) (models.MonitorView, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.MonitorView, error)
	IsViewed(ctx context.Context, roomID string) (bool, error)
}

// MonitorRepo is a sqlx implementation of MonitorRepository.
type MonitorRepo struct {
	db *sqlx.DB
}

// NewMonitorRepo constructs a MonitorRepo.
func NewMonitorRepo(db *sqlx.DB) *MonitorRepo {
	return &MonitorRepo{db: db}
}

// RecordView marks the room as triaged by the staff member. A repeat view
// refreshes the timestamp.
func (r *MonitorRepo) RecordView(ctx context.Context, roomID, staffID string) (models.MonitorView, error) {
	var view models.MonitorView
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO monitor_views (room_id, staff_id) VALUES ($1, $2)
         ON CONFLICT (room_id, staff_id) DO UPDATE SET viewed_at = NOW()
         RETURNING room_id, staff_id, viewed_at`, roomID, staffID).StructScan(&view)
	return view, err
}

// ListByRoom returns who has triaged the room.
func (r *MonitorRepo) ListByRoom(ctx context.Context, roomID string) ([]models.MonitorView, error) {
	var views []models.MonitorView
	err := r.db.SelectContext(ctx, &views,
		`SELECT room_id, staff_id, viewed_at FROM monitor_views WHERE room_id=$1 ORDER BY viewed_at DESC`, roomID)
	return views, err
}

// IsViewed reports whether any staff member has triaged the room.
func (r *MonitorRepo) IsViewed(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM monitor_views WHERE room_id=$1)`, roomID)
	return exists, err
}
