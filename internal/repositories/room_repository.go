package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"market-chat-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

const roomColumns = `id, participant_a, participant_b, listing_id, status, is_offered, created_at, updated_at`

// RoomRepository abstracts chat room persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, participantA, participantB string, listingID *string) (models.ChatRoom, error)
	GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error)
	GetRoomsByPair(ctx context.Context, userX, userY string) ([]models.ChatRoom, error)
	ListByParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error)
	SetListing(ctx context.Context, roomID string, listingID string) error
	SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error
	SetStatusForPair(ctx context.Context, userX, userY string, from *models.RoomStatus, to models.RoomStatus) (int64, error)
	SetOffered(ctx context.Context, roomID string, offered bool) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateRoom inserts a new room for the pair. Callers that need the
// create-or-reuse semantics go through the conversations resolver, which
// checks for existing pair rooms first.
func (r *RoomRepo) CreateRoom(ctx context.Context, participantA, participantB string, listingID *string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_rooms (id, participant_a, participant_b, listing_id) VALUES ($1, $2, $3, $4)
         RETURNING `+roomColumns,
		uuid.NewString(), participantA, participantB, listingID).StructScan(&room)
	return room, err
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// GetRoomsByPair returns every room between the two users regardless of which
// participant occupies which role, most recently updated first.
func (r *RoomRepo) GetRoomsByPair(ctx context.Context, userX, userY string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT `+roomColumns+` FROM chat_rooms
         WHERE (participant_a=$1 AND participant_b=$2) OR (participant_a=$2 AND participant_b=$1)
         ORDER BY updated_at DESC`, userX, userY)
	return rooms, err
}

// ListByParticipant returns every room the user belongs to, in either role.
func (r *RoomRepo) ListByParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT `+roomColumns+` FROM chat_rooms
         WHERE participant_a=$1 OR participant_b=$1
         ORDER BY updated_at DESC`, userID)
	return rooms, err
}

// SetListing backfills a listing id onto an existing room.
func (r *RoomRepo) SetListing(ctx context.Context, roomID string, listingID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET listing_id=$2, updated_at=NOW() WHERE id=$1`, roomID, listingID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// SetStatus transitions a single room's status.
func (r *RoomRepo) SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET status=$2, updated_at=NOW() WHERE id=$1`, roomID, status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// SetStatusForPair transitions every room between the two users, optionally
// restricted to rooms currently in the `from` status. Returns the number of
// rooms affected.
func (r *RoomRepo) SetStatusForPair(ctx context.Context, userX, userY string, from *models.RoomStatus, to models.RoomStatus) (int64, error) {
	query := `UPDATE chat_rooms SET status=$3, updated_at=NOW()
        WHERE ((participant_a=$1 AND participant_b=$2) OR (participant_a=$2 AND participant_b=$1))`
	args := []interface{}{userX, userY, to}
	if from != nil {
		query += ` AND status=$4`
		args = append(args, *from)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetOffered flips the offered flag on a room.
func (r *RoomRepo) SetOffered(ctx context.Context, roomID string, offered bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET is_offered=$2, updated_at=NOW() WHERE id=$1`, roomID, offered)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteRoom removes the room and everything scoped to it in one transaction.
// The deletion is irreversible.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM messages WHERE room_id=$1`,
		`DELETE FROM labels WHERE room_id=$1`,
		`DELETE FROM monitor_views WHERE room_id=$1`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, roomID); err != nil {
			return err
		}
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM chat_rooms WHERE id=$1`, roomID); err != nil {
		return err
	}
	if err = requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRowAffected(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}
