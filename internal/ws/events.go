package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"market-chat-service/internal/models"
)

// ErrValidation marks an inbound payload rejected before any side effect.
var ErrValidation = errors.New("invalid event payload")

// Client-to-server event names.
const (
	EventJoinRoom      = "join:room"
	EventLeaveRoom     = "leave:room"
	EventSendMessage   = "send:message"
	EventVideoRegister = "video:register"
	EventCallUser      = "call-user"
	EventAcceptCall    = "accept-call"
	EventEndCall       = "end-call"
	EventMediaStatus   = "media-status"
	EventVideoLeave    = "disconnect"
)

// Server-to-client event names. EventMessage is the sole broadcast event for
// chat content.
const (
	EventMessage        = "message"
	EventRoomJoined     = "room:joined"
	EventMessageFailed  = "message:failed"
	EventAnnouncement   = "announcement"
	EventRefreshList    = "conversations:refresh"
	EventCallUnreached  = "call:unreachable"
	EventIncomingSignal = "signal"
	EventError          = "error"
)

// Envelope is the wire format for every inbound event. Payloads are a closed
// set of tagged variants decoded and validated before handler logic runs.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutEvent is the wire format for every outbound event.
type OutEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinRoomPayload asks to join one conversation room.
type JoinRoomPayload struct {
	ChatID string `json:"chatId"`
}

func (p JoinRoomPayload) Validate() error {
	if p.ChatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	return nil
}

// LeaveRoomPayload leaves one room, or every joined room when ChatID is "all".
type LeaveRoomPayload struct {
	ChatID string `json:"chatId"`
}

func (p LeaveRoomPayload) Validate() error {
	if p.ChatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	return nil
}

// SendMessagePayload carries a message to persist and broadcast. TempID is
// echoed back on persistence failure so the client can revert its
// optimistic placeholder.
type SendMessagePayload struct {
	ChatID   string             `json:"chatId"`
	SenderID string             `json:"senderId"`
	Content  string             `json:"content"`
	Type     models.MessageType `json:"type"`
	FileURL  string             `json:"fileUrl"`
	TempID   string             `json:"tempId"`
}

func (p SendMessagePayload) Validate() error {
	if p.ChatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	if p.SenderID == "" {
		return fmt.Errorf("%w: senderId is required", ErrValidation)
	}
	if p.Content == "" && p.FileURL == "" {
		return fmt.Errorf("%w: content or fileUrl is required", ErrValidation)
	}
	switch p.Type {
	case "", models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile,
		models.MessageTypeOffer, models.MessageTypeAdmin:
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, p.Type)
	}
	return nil
}

// MessageType resolves the effective type, defaulting to TEXT.
func (p SendMessagePayload) MessageType() models.MessageType {
	if p.Type == "" {
		return models.MessageTypeText
	}
	return p.Type
}

// RegisterPayload announces reachability for direct call signaling.
type RegisterPayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (p RegisterPayload) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return nil
}

// SignalPayload is a direct signaling event relayed session-to-session. The
// Signal body is forwarded untouched.
type SignalPayload struct {
	TargetID string          `json:"targetId"`
	FromID   string          `json:"fromId"`
	Signal   json.RawMessage `json:"signal"`
}

func (p SignalPayload) Validate() error {
	if p.TargetID == "" {
		return fmt.Errorf("%w: targetId is required", ErrValidation)
	}
	return nil
}

// RoomJoinedData is the join acknowledgment.
type RoomJoinedData struct {
	ChatID      string `json:"chatId"`
	Success     bool   `json:"success"`
	ClientCount int    `json:"clientCount"`
}

// MessageFailedData tells the sender a persist failed; nothing was broadcast.
type MessageFailedData struct {
	TempID string `json:"tempId,omitempty"`
	Reason string `json:"reason"`
}

// AnnouncementData accompanies a staff ADMIN message.
type AnnouncementData struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// CallUnreachableData reports a signaling target with no presence entry.
type CallUnreachableData struct {
	TargetID string `json:"targetId"`
	Event    string `json:"event"`
}

// RelayedSignal is what the target receives for a relayed signaling event.
type RelayedSignal struct {
	Event  string          `json:"event"`
	FromID string          `json:"fromId"`
	Signal json.RawMessage `json:"signal,omitempty"`
}
