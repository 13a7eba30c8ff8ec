package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"market-chat-service/internal/observability"
)

// Conn is the write side of a websocket connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type session struct {
	info ConnInfo
	// room is the single conversation room the connection is in, empty when
	// none. Staff monitor joins live in monitorRooms and are exempt from the
	// one-room invariant.
	room         string
	monitorRooms map[string]bool
}

// Hub tracks websocket sessions, room membership, and per-user private
// channels. It is instance scoped and injected; cross-instance fan-out rides
// the AMQP exchange.
type Hub struct {
	mu       sync.RWMutex
	sessions map[Conn]*session
	rooms    map[string]map[Conn]bool
	users    map[string]map[Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[Conn]*session),
		rooms:    make(map[string]map[Conn]bool),
		users:    make(map[string]map[Conn]bool),
	}
}

// Register adds a connection with an empty joined-room set. A known user id
// also binds the connection to that user's private channel.
func (h *Hub) Register(conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[conn] = &session{info: info, monitorRooms: make(map[string]bool)}
	if info.UserID != "" {
		h.bindUserLocked(conn, info.UserID)
	}
}

// BindUser attaches the connection to a user's private channel after the
// fact (video:register on an anonymous connection).
func (h *Hub) BindUser(conn Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}
	if sess.info.UserID != "" && sess.info.UserID != userID {
		h.unbindUserLocked(conn, sess.info.UserID)
	}
	sess.info.UserID = userID
	h.bindUserLocked(conn, userID)
}

// Unregister drops every trace of the connection: session, rooms, private
// channel. Other members of its rooms are unaffected.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}
	if sess.room != "" {
		h.removeFromRoomLocked(conn, sess.room)
	}
	for roomID := range sess.monitorRooms {
		h.removeFromRoomLocked(conn, roomID)
	}
	if sess.info.UserID != "" {
		h.unbindUserLocked(conn, sess.info.UserID)
	}
	delete(h.sessions, conn)
}

// JoinRoom moves the connection into the room, leaving any previously joined
// conversation room first. The whole leave-then-join runs under one lock so
// no broadcast can observe the connection in both rooms, or in neither while
// the transition is in flight. Returns the member count after the join.
func (h *Hub) JoinRoom(conn Conn, roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return 0
	}
	if sess.room != "" && sess.room != roomID {
		h.removeFromRoomLocked(conn, sess.room)
	}
	sess.room = roomID
	h.addToRoomLocked(conn, roomID)
	return len(h.rooms[roomID])
}

// JoinRoomAsMonitor adds a staff connection to a room without leaving any
// other room; a monitor legitimately watches many rooms at once.
func (h *Hub) JoinRoomAsMonitor(conn Conn, roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return 0
	}
	sess.monitorRooms[roomID] = true
	h.addToRoomLocked(conn, roomID)
	return len(h.rooms[roomID])
}

// LeaveRoom removes the connection from one room.
func (h *Hub) LeaveRoom(conn Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}
	if sess.room == roomID {
		sess.room = ""
	}
	delete(sess.monitorRooms, roomID)
	h.removeFromRoomLocked(conn, roomID)
}

// LeaveAll removes the connection from every joined room.
func (h *Hub) LeaveAll(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}
	if sess.room != "" {
		h.removeFromRoomLocked(conn, sess.room)
		sess.room = ""
	}
	for roomID := range sess.monitorRooms {
		h.removeFromRoomLocked(conn, roomID)
		delete(sess.monitorRooms, roomID)
	}
}

// JoinedRooms returns the connection's current room set.
func (h *Hub) JoinedRooms(conn Conn) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[conn]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, 1+len(sess.monitorRooms))
	if sess.room != "" {
		rooms = append(rooms, sess.room)
	}
	for roomID := range sess.monitorRooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// RoomMemberCount reports the room's current membership.
func (h *Hub) RoomMemberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastEvent sends the event to every member of the room, including the
// sender's connection. Membership is snapshotted at dispatch time; a
// concurrently joining connection may or may not see this event but will see
// every subsequent one. Returns the snapshot size.
func (h *Hub) BroadcastEvent(roomID string, event OutEvent) int {
	h.mu.RLock()
	members := make([]Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	if len(members) == 0 {
		return 0
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return len(members)
	}
	for _, conn := range members {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			observability.IncBroadcast("write_error")
			conn.Close()
			h.Unregister(conn)
		}
	}
	return len(members)
}

// SendToUser delivers an event to every connection bound to the user's
// private channel. Returns false when the user has no connection here.
func (h *Hub) SendToUser(userID string, event OutEvent) bool {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.users[userID]))
	for conn := range h.users[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("direct send marshal error: %v", err)
		return false
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Unregister(conn)
		}
	}
	return true
}

// SendTo writes an event to a single connection.
func (h *Hub) SendTo(conn Conn, event OutEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("send marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		h.Unregister(conn)
	}
}

func (h *Hub) addToRoomLocked(conn Conn, roomID string) {
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[Conn]bool)
	}
	h.rooms[roomID][conn] = true
}

func (h *Hub) removeFromRoomLocked(conn Conn, roomID string) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) bindUserLocked(conn Conn, userID string) {
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Conn]bool)
	}
	h.users[userID][conn] = true
}

func (h *Hub) unbindUserLocked(conn Conn, userID string) {
	if conns, ok := h.users[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}
