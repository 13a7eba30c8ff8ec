package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"market-chat-service/internal/conversations"
	"market-chat-service/internal/middleware"
	"market-chat-service/internal/repositories"
	"market-chat-service/internal/telemetry"
	"market-chat-service/internal/ws"
)

// RoomHandler serves the synchronous conversation surface.
type RoomHandler struct {
	conversations *conversations.Service
	labels        repositories.LabelRepository
	monitors      repositories.MonitorRepository
	hub           *ws.Hub
	audit         *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(service *conversations.Service, labels repositories.LabelRepository, monitors repositories.MonitorRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		conversations: service,
		labels:        labels,
		monitors:      monitors,
		hub:           hub,
		audit:         audit,
	}
}

// ListConversations returns one merged summary per conversation partner.
// The `open` query parameter names the partner whose conversation the client
// currently displays; its unread count is forced to zero client-locally.
func (h *RoomHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")

	openPairKey := ""
	if open := c.Query("open"); open != "" {
		openPairKey = conversations.PairKey(userID, open)
	}

	summaries, err := h.conversations.ListForUser(c.Request.Context(), userID, openPairKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetConversation returns the merged thread with the given participant,
// flips the caller's read state, and signals both sides to refresh their
// conversation lists.
func (h *RoomHandler) GetConversation(c *gin.Context) {
	userID := c.GetString("userID")
	partnerID := c.Param("participant_id")

	conv, err := h.conversations.Resolve(c.Request.Context(), userID, partnerID)
	if err != nil {
		if errors.Is(err, conversations.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}

	if _, err := h.conversations.MarkRead(c.Request.Context(), conv.Room.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update read state"})
		return
	}

	refresh := ws.OutEvent{Event: ws.EventRefreshList, Data: map[string]string{"chatId": conv.Room.ID}}
	h.hub.SendToUser(userID, refresh)
	h.hub.SendToUser(partnerID, refresh)

	c.JSON(http.StatusOK, conv)
}

// CreateRoom creates or reuses the conversation with another participant.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		ParticipantID string  `json:"participant_id" binding:"required"`
		ListingID     *string `json:"listing_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.ParticipantID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	room, err := h.conversations.CreateRoom(c.Request.Context(), userID, req.ParticipantID, req.ListingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// MarkRead flips the caller's unread messages in the room's conversation.
func (h *RoomHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")
	roomID := c.Param("room_id")

	affected, err := h.conversations.MarkRead(c.Request.Context(), roomID, userID)
	if err != nil {
		h.writeLifecycleError(c, err, "failed to update read state")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": affected})
}

// Archive sets the room's status to ARCHIVED.
func (h *RoomHandler) Archive(c *gin.Context) {
	h.transition(c, h.conversations.Archive, "archived room %s")
}

// Unarchive restores the room's status to ACTIVE.
func (h *RoomHandler) Unarchive(c *gin.Context) {
	h.transition(c, h.conversations.Unarchive, "unarchived room %s")
}

func (h *RoomHandler) transition(c *gin.Context, op func(ctx context.Context, roomID, actorID string) error, auditFormat string) {
	userID := c.GetString("userID")
	roomID := c.Param("room_id")

	if err := op(c.Request.Context(), roomID, userID); err != nil {
		h.writeLifecycleError(c, err, "could not update room")
		return
	}
	h.emitAudit(c, "INFO", fmt.Sprintf(auditFormat, roomID))
	c.Status(http.StatusNoContent)
}

// DeleteRoom removes the room, its messages, labels, and monitor views.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.GetString("userID")
	roomID := c.Param("room_id")

	if err := h.conversations.Delete(c.Request.Context(), roomID, userID); err != nil {
		h.writeLifecycleError(c, err, "could not delete room")
		return
	}
	h.emitAudit(c, "WARN", fmt.Sprintf("deleted room %s", roomID))
	c.Status(http.StatusNoContent)
}

// Block flags every room between the caller and the target.
func (h *RoomHandler) Block(c *gin.Context) {
	userID := c.GetString("userID")
	targetID := c.Param("participant_id")

	affected, err := h.conversations.Block(c.Request.Context(), userID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not block user"})
		return
	}
	h.emitAudit(c, "WARN", fmt.Sprintf("blocked pair %s, %d rooms flagged", conversations.PairKey(userID, targetID), affected))
	c.JSON(http.StatusOK, gin.H{"rooms_flagged": affected})
}

// Unblock reverts currently-flagged rooms for the pair back to active.
func (h *RoomHandler) Unblock(c *gin.Context) {
	userID := c.GetString("userID")
	targetID := c.Param("participant_id")

	affected, err := h.conversations.Unblock(c.Request.Context(), userID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unblock user"})
		return
	}
	h.emitAudit(c, "INFO", fmt.Sprintf("unblocked pair %s, %d rooms restored", conversations.PairKey(userID, targetID), affected))
	c.JSON(http.StatusOK, gin.H{"rooms_restored": affected})
}

// PutLabel sets the caller's label on the room.
func (h *RoomHandler) PutLabel(c *gin.Context) {
	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	label, err := h.labels.UpsertLabel(c.Request.Context(), c.Param("room_id"), c.GetString("userID"), req.Value)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store label"})
		return
	}
	c.JSON(http.StatusOK, label)
}

// GetLabel returns the caller's label on the room.
func (h *RoomHandler) GetLabel(c *gin.Context) {
	label, err := h.labels.GetLabel(c.Request.Context(), c.Param("room_id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, repositories.ErrLabelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "label not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load label"})
		return
	}
	c.JSON(http.StatusOK, label)
}

// DeleteLabel removes the caller's label on the room.
func (h *RoomHandler) DeleteLabel(c *gin.Context) {
	if err := h.labels.DeleteLabel(c.Request.Context(), c.Param("room_id"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete label"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMonitorViews returns the room's staff triage history.
func (h *RoomHandler) ListMonitorViews(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !identity.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	roomID := c.Param("room_id")
	views, err := h.monitors.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load views"})
		return
	}
	viewed, err := h.monitors.IsViewed(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load views"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewed": viewed, "views": views})
}

// RecordMonitorView marks the room as triaged by the calling staff member.
func (h *RoomHandler) RecordMonitorView(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if !identity.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	view, err := h.monitors.RecordView(c.Request.Context(), c.Param("room_id"), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record view"})
		return
	}
	h.emitAudit(c, "INFO", fmt.Sprintf("room %s triaged by %s", view.RoomID, view.StaffID))
	c.JSON(http.StatusOK, view)
}

func (h *RoomHandler) writeLifecycleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, conversations.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room participant"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text string) {
	userID := c.GetString("userID")
	var userPtr *string
	if userID != "" {
		userPtr = &userID
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userPtr)
}
