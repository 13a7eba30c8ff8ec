package models

import "time"

// RoomStatus is the lifecycle state of a chat room.
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "ACTIVE"
	RoomStatusArchived RoomStatus = "ARCHIVED"
	RoomStatusFlagged  RoomStatus = "FLAGGED"
)

// ChatRoom scopes messages between a buyer and a seller, optionally tied to
// one listing. Several rooms may exist for the same participant pair, one per
// listing discussed; the conversations resolver presents them as one thread.
type ChatRoom struct {
	ID           string     `db:"id" json:"id"`
	ParticipantA string     `db:"participant_a" json:"participant_a"`
	ParticipantB string     `db:"participant_b" json:"participant_b"`
	ListingID    *string    `db:"listing_id" json:"listing_id,omitempty"`
	Status       RoomStatus `db:"status" json:"status"`
	IsOffered    bool       `db:"is_offered" json:"is_offered"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the room.
func (r ChatRoom) HasParticipant(userID string) bool {
	return r.ParticipantA == userID || r.ParticipantB == userID
}

// OtherParticipant returns the counterpart of the given user in the room.
func (r ChatRoom) OtherParticipant(userID string) string {
	if r.ParticipantA == userID {
		return r.ParticipantB
	}
	return r.ParticipantA
}

// Label is a per-(room, user) classification, independent of message flow.
type Label struct {
	RoomID string `db:"room_id" json:"room_id"`
	UserID string `db:"user_id" json:"user_id"`
	Value  string `db:"value" json:"value"`
}

// MonitorView marks a room as triaged by a staff member.
type MonitorView struct {
	RoomID   string    `db:"room_id" json:"room_id"`
	StaffID  string    `db:"staff_id" json:"staff_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}
