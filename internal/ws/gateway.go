package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"market-chat-service/internal/middleware"
	"market-chat-service/internal/models"
	"market-chat-service/internal/moderation"
	"market-chat-service/internal/observability"
	"market-chat-service/internal/presence"
	"market-chat-service/internal/queue"
	"market-chat-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway accepts websocket connections and routes the closed set of chat
// and signaling events.
type Gateway struct {
	hub       *Hub
	rooms     repositories.RoomRepository
	messages  repositories.MessageRepository
	queue     *queue.SecondaryQueue
	presence  *presence.Registry
	inspector *middleware.TokenInspector
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, rooms repositories.RoomRepository, messages repositories.MessageRepository, q *queue.SecondaryQueue, registry *presence.Registry, inspector *middleware.TokenInspector) *Gateway {
	return &Gateway{
		hub:       hub,
		rooms:     rooms,
		messages:  messages,
		queue:     q,
		presence:  registry,
		inspector: inspector,
	}
}

// Handle upgrades the connection and runs its read loop. Connections are
// accepted unconditionally; a token, when present, is inspected to bind the
// connection to a user but is not required to proceed.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("market-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	if raw := middleware.BearerToken(c); raw != "" {
		if identity, err := g.inspector.Inspect(raw); err == nil {
			info.UserID = identity.UserID
			info.Role = identity.Role
		} else {
			log.Printf("ws token rejected conn_id=%s: %v", info.ConnID, err)
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	g.hub.Register(conn, info)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	go g.readLoop(conn, info)
}

func (g *Gateway) readLoop(conn *websocket.Conn, info ConnInfo) {
	defer func() {
		g.hub.Unregister(conn)
		if info.UserID != "" {
			g.presence.Unregister(info.UserID)
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		g.dispatch(conn, &info, raw)
	}
}

// dispatch decodes and validates the envelope, then routes it. Invalid
// payloads are rejected before any side effect.
func (g *Gateway) dispatch(conn Conn, info *ConnInfo, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		g.sendError(conn, "malformed event envelope")
		return
	}
	observability.IncWSEvent(envelope.Event)

	switch envelope.Event {
	case EventJoinRoom:
		g.handleJoin(conn, info, envelope.Data)
	case EventLeaveRoom:
		g.handleLeave(conn, envelope.Data)
	case EventSendMessage:
		g.handleSend(conn, info, envelope.Data)
	case EventVideoRegister:
		g.handleRegister(conn, info, envelope.Data)
	case EventCallUser, EventAcceptCall, EventEndCall, EventMediaStatus:
		g.handleSignal(conn, info, envelope.Event, envelope.Data)
	case EventVideoLeave:
		if info.UserID != "" {
			g.presence.Unregister(info.UserID)
		}
	default:
		g.sendError(conn, "unknown event: "+envelope.Event)
	}
}

func (g *Gateway) handleJoin(conn Conn, info *ConnInfo, data json.RawMessage) {
	var payload JoinRoomPayload
	if err := decode(data, &payload); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	var count int
	if isStaff(info) {
		count = g.hub.JoinRoomAsMonitor(conn, payload.ChatID)
	} else {
		count = g.hub.JoinRoom(conn, payload.ChatID)
	}

	g.hub.SendTo(conn, OutEvent{Event: EventRoomJoined, Data: RoomJoinedData{
		ChatID:      payload.ChatID,
		Success:     true,
		ClientCount: count,
	}})
}

func (g *Gateway) handleLeave(conn Conn, data json.RawMessage) {
	var payload LeaveRoomPayload
	if err := decode(data, &payload); err != nil {
		g.sendError(conn, err.Error())
		return
	}
	if payload.ChatID == "all" {
		g.hub.LeaveAll(conn)
		return
	}
	g.hub.LeaveRoom(conn, payload.ChatID)
}

// handleSend runs the persist-then-broadcast pipeline. The persistence write
// is the only suspension point before the broadcast; the secondary queue
// enqueue never blocks the sender.
func (g *Gateway) handleSend(conn Conn, info *ConnInfo, data json.RawMessage) {
	var payload SendMessagePayload
	if err := decode(data, &payload); err != nil {
		g.sendError(conn, err.Error())
		return
	}
	if payload.Type == models.MessageTypeAdmin && !isStaff(info) {
		g.sendError(conn, "admin messages require a staff role")
		return
	}

	if payload.Content != "" && moderation.ContainsContactInfo(payload.Content) {
		// Moderation rejection is not an error: the original content is
		// discarded and a non-persisted ERROR message goes out instead.
		notice := moderation.BlockNotice
		blocked := models.Message{
			ID:        uuid.NewString(),
			RoomID:    payload.ChatID,
			SenderID:  payload.SenderID,
			Content:   &notice,
			Type:      models.MessageTypeError,
			CreatedAt: time.Now(),
		}
		observability.IncWSEvent("message_blocked")
		g.hub.BroadcastEvent(payload.ChatID, OutEvent{Event: EventMessage, Data: blocked})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var content, fileURL *string
	if payload.Content != "" {
		content = &payload.Content
	}
	if payload.FileURL != "" {
		fileURL = &payload.FileURL
	}

	msg, err := g.messages.CreateMessage(ctx, payload.ChatID, payload.SenderID, content, payload.MessageType(), fileURL)
	if err != nil {
		// No broadcast may follow a failed persist; the sender gets the temp
		// id back so its optimistic placeholder can be reverted.
		log.Printf("message persist failed room=%s sender=%s: %v", payload.ChatID, payload.SenderID, err)
		g.hub.SendTo(conn, OutEvent{Event: EventMessageFailed, Data: MessageFailedData{
			TempID: payload.TempID,
			Reason: "failed to store message",
		}})
		return
	}

	if msg.Type == models.MessageTypeOffer {
		if err := g.rooms.SetOffered(ctx, payload.ChatID, true); err != nil {
			log.Printf("set offered flag failed room=%s: %v", payload.ChatID, err)
		}
	}

	if msg.Type == models.MessageTypeAdmin {
		g.hub.BroadcastEvent(payload.ChatID, OutEvent{Event: EventAnnouncement, Data: AnnouncementData{
			ChatID:  payload.ChatID,
			Message: msg.Text(),
		}})
	}

	delivered := g.hub.BroadcastEvent(payload.ChatID, OutEvent{Event: EventMessage, Data: msg})
	if delivered == 0 {
		// Persistence already succeeded, so an empty room is only worth a
		// warning; the message surfaces on the next history fetch.
		log.Printf("warning: no members in room %s at broadcast time, message %s persisted", payload.ChatID, msg.ID)
		observability.IncBroadcast("empty_room")
	} else {
		observability.IncBroadcast("delivered")
	}

	g.queue.Enqueue(msg)
	g.notifyCounterpart(ctx, msg)
}

// notifyCounterpart nudges the other participant's conversation list.
func (g *Gateway) notifyCounterpart(ctx context.Context, msg models.Message) {
	room, err := g.rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		if !errors.Is(err, repositories.ErrRoomNotFound) {
			log.Printf("load room for refresh signal failed: %v", err)
		}
		return
	}
	g.hub.SendToUser(room.OtherParticipant(msg.SenderID), OutEvent{
		Event: EventRefreshList,
		Data:  map[string]string{"chatId": msg.RoomID},
	})
}

func (g *Gateway) handleRegister(conn Conn, info *ConnInfo, data json.RawMessage) {
	var payload RegisterPayload
	if err := decode(data, &payload); err != nil {
		g.sendError(conn, err.Error())
		return
	}
	g.presence.Register(payload.UserID, payload.Token)
	g.hub.BindUser(conn, payload.UserID)
	if info.UserID == "" {
		info.UserID = payload.UserID
	}
}

// handleSignal relays a direct call-signaling event to the target once the
// presence store confirms reachability. An absent entry is surfaced to the
// caller instead of silently dropped.
func (g *Gateway) handleSignal(conn Conn, info *ConnInfo, event string, data json.RawMessage) {
	var payload SignalPayload
	if err := decode(data, &payload); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	fromID := payload.FromID
	if fromID == "" {
		fromID = info.UserID
	}

	if _, ok := g.presence.Lookup(payload.TargetID); !ok {
		g.hub.SendTo(conn, OutEvent{Event: EventCallUnreached, Data: CallUnreachableData{
			TargetID: payload.TargetID,
			Event:    event,
		}})
		return
	}

	delivered := g.hub.SendToUser(payload.TargetID, OutEvent{Event: event, Data: RelayedSignal{
		Event:  event,
		FromID: fromID,
		Signal: payload.Signal,
	}})
	if !delivered {
		// Presence said reachable but no connection is bound here; in a
		// multi-instance deployment another instance holds the target.
		log.Printf("signal target %s registered but not connected locally", payload.TargetID)
	}
}

func (g *Gateway) sendError(conn Conn, message string) {
	observability.IncWSEvent("validation_error")
	g.hub.SendTo(conn, OutEvent{Event: EventError, Data: map[string]string{"message": message}})
}

func decode(data json.RawMessage, payload interface{ Validate() error }) error {
	if len(data) == 0 {
		return ErrValidation
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return ErrValidation
	}
	return payload.Validate()
}

func isStaff(info *ConnInfo) bool {
	return info.Role == "staff" || info.Role == "admin"
}
