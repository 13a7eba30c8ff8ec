package models

import "time"

// MessageType distinguishes message payload kinds.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
	MessageTypeOffer MessageType = "OFFER"
	MessageTypeAdmin MessageType = "ADMIN"
	MessageTypeError MessageType = "ERROR"
)

// Message is a persisted chat message. Rows are immutable except for the
// read flag; the id is the only dedup key clients may rely on.
type Message struct {
	ID        string      `db:"id" json:"id"`
	RoomID    string      `db:"room_id" json:"room_id"`
	SenderID  string      `db:"sender_id" json:"sender_id"`
	Content   *string     `db:"content" json:"content,omitempty"`
	Type      MessageType `db:"type" json:"type"`
	FileURL   *string     `db:"file_url" json:"file_url,omitempty"`
	Read      bool        `db:"read" json:"read"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Text returns the content or an empty string.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}
