package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"market-chat-service/internal/models"
)

var ErrLabelNotFound = errors.New("label not found")

// LabelRepository stores per-(room, user) classifications.
type LabelRepository interface {
	UpsertLabel(ctx context.Context, roomID, userID, value string) (models.Label, error)
	GetLabel(ctx context.Context, roomID, userID string) (models.Label, error)
	DeleteLabel(ctx context.Context, roomID, userID string) error
}

// LabelRepo is a sqlx implementation of LabelRepository.
type LabelRepo struct {
	db *sqlx.DB
}

// NewLabelRepo constructs a LabelRepo.
func NewLabelRepo(db *sqlx.DB) *LabelRepo {
	return &LabelRepo{db: db}
}

// UpsertLabel creates or replaces the user's label on the room.
func (r *LabelRepo) UpsertLabel(ctx context.Context, roomID, userID, value string) (models.Label, error) {
	var label models.Label
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO labels (room_id, user_id, value) VALUES ($1, $2, $3)
         ON CONFLICT (room_id, user_id) DO UPDATE SET value = EXCLUDED.value
         RETURNING room_id, user_id, value`, roomID, userID, value).StructScan(&label)
	return label, err
}

// GetLabel fetches the user's label on the room.
func (r *LabelRepo) GetLabel(ctx context.Context, roomID, userID string) (models.Label, error) {
	var label models.Label
	err := r.db.GetContext(ctx, &label,
		`SELECT room_id, user_id, value FROM labels WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Label{}, ErrLabelNotFound
	}
	return label, err
}

// DeleteLabel removes the user's label on the room.
func (r *LabelRepo) DeleteLabel(ctx context.Context, roomID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}
