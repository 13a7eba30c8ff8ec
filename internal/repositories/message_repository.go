package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"market-chat-service/internal/models"
)

const messageColumns = `id, room_id, sender_id, content, type, file_url, read, created_at`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, senderID string, content *string, msgType models.MessageType, fileURL *string) (models.Message, error)
	ListByRooms(ctx context.Context, roomIDs []string) ([]models.Message, error)
	MarkRead(ctx context.Context, roomID, readerID string) (int64, error)
	CountUnread(ctx context.Context, roomIDs []string, viewerID string) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and bumps the parent room's updated_at to
// the current wall clock. The two statements share a transaction so a room
// never advances for a message that was not stored.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID, senderID string, content *string, msgType models.MessageType, fileURL *string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (id, room_id, sender_id, content, type, file_url) VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING `+messageColumns,
		uuid.NewString(), roomID, senderID, content, msgType, fileURL).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE chat_rooms SET updated_at=NOW() WHERE id=$1`, roomID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByRooms returns the union of all the rooms' messages ordered by
// created_at. Each row keeps its origin room_id for traceability.
func (r *MessageRepo) ListByRooms(ctx context.Context, roomIDs []string) ([]models.Message, error) {
	if len(roomIDs) == 0 {
		return []models.Message{}, nil
	}
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE room_id = ANY($1) ORDER BY created_at ASC, id ASC`,
		pq.Array(roomIDs))
	return msgs, err
}

// MarkRead flips read on every unread message in the room not sent by the
// reader. Returns the affected count; calling it again without new messages
// affects zero rows.
func (r *MessageRepo) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read=TRUE WHERE room_id=$1 AND sender_id<>$2 AND read=FALSE`, roomID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnread counts messages across the rooms that the viewer has not read
// and did not send.
func (r *MessageRepo) CountUnread(ctx context.Context, roomIDs []string, viewerID string) (int, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE room_id = ANY($1) AND sender_id<>$2 AND read=FALSE`,
		pq.Array(roomIDs), viewerID)
	return count, err
}
