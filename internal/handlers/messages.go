package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"market-chat-service/internal/models"
	"market-chat-service/internal/moderation"
	"market-chat-service/internal/observability"
	"market-chat-service/internal/queue"
	"market-chat-service/internal/repositories"
	"market-chat-service/internal/ws"
)

// MessageHandler serves the synchronous message surface. It runs the same
// persist-then-broadcast pipeline as the websocket gateway so REST clients
// and socket clients observe identical semantics.
type MessageHandler struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	hub      *ws.Hub
	queue    *queue.SecondaryQueue
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, hub *ws.Hub, q *queue.SecondaryQueue) *MessageHandler {
	return &MessageHandler{rooms: rooms, messages: messages, hub: hub, queue: q}
}

// PostMessage validates, persists, and broadcasts one message.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	var req struct {
		Content string             `json:"content"`
		Type    models.MessageType `json:"type"`
		FileURL string             `json:"file_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && req.FileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content or file_url is required"})
		return
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	if !room.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room participant"})
		return
	}

	if req.Content != "" && moderation.ContainsContactInfo(req.Content) {
		notice := moderation.BlockNotice
		blocked := models.Message{
			ID:       uuid.NewString(),
			RoomID:   roomID,
			SenderID: userID,
			Content:  &notice,
			Type:     models.MessageTypeError,
		}
		h.hub.BroadcastEvent(roomID, ws.OutEvent{Event: ws.EventMessage, Data: blocked})
		c.JSON(http.StatusOK, blocked)
		return
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	var content, fileURL *string
	if req.Content != "" {
		content = &req.Content
	}
	if req.FileURL != "" {
		fileURL = &req.FileURL
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), roomID, userID, content, msgType, fileURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	if msg.Type == models.MessageTypeOffer {
		if err := h.rooms.SetOffered(c.Request.Context(), roomID, true); err != nil {
			log.Printf("set offered flag failed room=%s: %v", roomID, err)
		}
	}

	if delivered := h.hub.BroadcastEvent(roomID, ws.OutEvent{Event: ws.EventMessage, Data: msg}); delivered == 0 {
		log.Printf("warning: no members in room %s at broadcast time, message %s persisted", roomID, msg.ID)
		observability.IncBroadcast("empty_room")
	} else {
		observability.IncBroadcast("delivered")
	}

	h.queue.Enqueue(msg)
	h.hub.SendToUser(room.OtherParticipant(userID), ws.OutEvent{
		Event: ws.EventRefreshList,
		Data:  map[string]string{"chatId": roomID},
	})

	c.JSON(http.StatusCreated, msg)
}
