package models

import "time"

// Conversation is the merged view of every room sharing one unordered
// participant pair. Room metadata comes from the canonical (most recently
// updated) room; messages are the union of all rooms, ordered by created_at.
type Conversation struct {
	Room     ChatRoom  `json:"room"`
	Messages []Message `json:"messages"`
	// RoomIDs lists every room folded into this thread, canonical first.
	RoomIDs []string `json:"room_ids"`
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	Room        ChatRoom  `json:"room"`
	PartnerID   string    `json:"partner_id"`
	UnreadCount int       `json:"unread_count"`
	LastActive  time.Time `json:"last_active"`
}
