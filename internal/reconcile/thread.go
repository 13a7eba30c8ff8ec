// Package reconcile maintains a client-side message list that stays
// duplicate free and correctly ordered under optimistic sends, server
// echoes, and reconnects.
package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"market-chat-service/internal/models"
)

const (
	// Echo replacement windows for placeholders whose temp id tracking was
	// lost. Content+sender matching is only ever used to bridge placeholder
	// replacement, never to dedup persisted messages.
	wideEchoWindow  = 15 * time.Second
	tightEchoWindow = 3 * time.Second
)

// Entry is one row of the local message list. Pending entries carry a temp
// id until the server echo replaces them with the persisted message.
type Entry struct {
	Message models.Message
	Pending bool
	TempID  string
	SentAt  time.Time
}

// Thread holds the reconciled local state of one open conversation.
type Thread struct {
	mu sync.Mutex

	selfID     string
	activeRoom string

	entries []Entry
	// knownIDs tracks every persisted id already present locally; echoes of
	// these are ignored.
	knownIDs map[string]struct{}
	// pendingByContent maps message content to outstanding temp ids for fast
	// exact replacement of own echoes.
	pendingByContent map[string][]string

	atBottom bool

	// onInbound fires for every accepted foreign message.
	onInbound func(models.Message)
}

// NewThread builds a Thread for the given local user.
func NewThread(selfID string) *Thread {
	return &Thread{
		selfID:           selfID,
		knownIDs:         make(map[string]struct{}),
		pendingByContent: make(map[string][]string),
		atBottom:         true,
	}
}

// SetInboundHandler installs the side effect fired on accepted foreign
// messages (notification sound, badge, etc).
func (t *Thread) SetInboundHandler(fn func(models.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onInbound = fn
}

// Load replaces local state wholesale with a freshly fetched conversation.
// Appending here would compound duplicates on re-open, so the previous list
// is discarded and every fetched id becomes known-persisted.
func (t *Thread) Load(conv models.Conversation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeRoom = conv.Room.ID
	t.entries = make([]Entry, 0, len(conv.Messages))
	t.knownIDs = make(map[string]struct{}, len(conv.Messages))
	t.pendingByContent = make(map[string][]string)

	for _, msg := range conv.Messages {
		t.entries = append(t.entries, Entry{Message: msg})
		t.knownIDs[msg.ID] = struct{}{}
	}
}

// AppendLocal adds an optimistic placeholder for a message the user just
// sent and returns its temp id.
func (t *Thread) AppendLocal(content string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tempID := "temp-" + uuid.NewString()
	now := time.Now()
	body := content
	t.entries = append(t.entries, Entry{
		Message: models.Message{
			ID:        tempID,
			RoomID:    t.activeRoom,
			SenderID:  t.selfID,
			Content:   &body,
			Type:      models.MessageTypeText,
			CreatedAt: now,
		},
		Pending: true,
		TempID:  tempID,
		SentAt:  now,
	})
	t.pendingByContent[content] = append(t.pendingByContent[content], tempID)
	return tempID
}

// Receive reconciles a broadcast message into the local list. Exactly one
// final entry ends up representing each persisted message, carrying the
// server id.
func (t *Thread) Receive(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.knownIDs[msg.ID]; seen {
		return
	}

	if msg.SenderID == t.selfID {
		if t.replaceOwnEcho(msg) {
			return
		}
		// Own message with no surviving placeholder (other device, lost
		// tracking past both windows): append like any new message.
		t.appendPersisted(msg)
		return
	}

	t.appendPersisted(msg)
	if t.onInbound != nil {
		t.onInbound(msg)
	}
}

// Fail reverts the optimistic placeholder for a send the server rejected.
func (t *Thread) Fail(tempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, entry := range t.entries {
		if entry.Pending && entry.TempID == tempID {
			t.dropPendingIndex(entry.Message.Text(), tempID)
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// SetAtBottom records whether the viewer is scrolled to the bottom. Manual
// scroll-up suppresses auto-scroll until the viewer returns.
func (t *Thread) SetAtBottom(atBottom bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.atBottom = atBottom
}

// ShouldAutoScroll reports whether a newly received message should scroll
// the view.
func (t *Thread) ShouldAutoScroll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.atBottom
}

// ActiveRoom returns the room to rejoin after a reconnect; empty when no
// room was open. The one-room invariant means there is never more than one.
func (t *Thread) ActiveRoom() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeRoom
}

// Close clears the active room on conversation close or disconnect without
// a pending rejoin target.
func (t *Thread) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeRoom = ""
}

// Messages returns a snapshot of the local list.
func (t *Thread) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry.Message)
	}
	return out
}

// PendingCount reports how many placeholders still await their echo.
func (t *Thread) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, entry := range t.entries {
		if entry.Pending {
			count++
		}
	}
	return count
}

// replaceOwnEcho resolves the echo of one's own message: exact tracked
// temp-id replacement first, then content+sender matching inside the wide
// and tight windows.
func (t *Thread) replaceOwnEcho(msg models.Message) bool {
	content := msg.Text()

	if tempIDs := t.pendingByContent[content]; len(tempIDs) > 0 {
		tempID := tempIDs[0]
		if t.swapEntry(tempID, msg) {
			t.dropPendingIndex(content, tempID)
			return true
		}
	}

	if t.replaceByWindow(msg, wideEchoWindow) {
		return true
	}
	return t.replaceByWindow(msg, tightEchoWindow)
}

func (t *Thread) replaceByWindow(msg models.Message, window time.Duration) bool {
	content := msg.Text()
	for i := range t.entries {
		entry := &t.entries[i]
		if !entry.Pending || entry.Message.SenderID != msg.SenderID {
			continue
		}
		if entry.Message.Text() != content {
			continue
		}
		if msg.CreatedAt.Sub(entry.SentAt) > window || entry.SentAt.Sub(msg.CreatedAt) > window {
			continue
		}
		tempID := entry.TempID
		entry.Message = msg
		entry.Pending = false
		entry.TempID = ""
		t.knownIDs[msg.ID] = struct{}{}
		t.dropPendingIndex(content, tempID)
		return true
	}
	return false
}

func (t *Thread) swapEntry(tempID string, msg models.Message) bool {
	for i := range t.entries {
		if t.entries[i].Pending && t.entries[i].TempID == tempID {
			t.entries[i] = Entry{Message: msg}
			t.knownIDs[msg.ID] = struct{}{}
			return true
		}
	}
	return false
}

func (t *Thread) appendPersisted(msg models.Message) {
	t.entries = append(t.entries, Entry{Message: msg})
	t.knownIDs[msg.ID] = struct{}{}
}

func (t *Thread) dropPendingIndex(content, tempID string) {
	tempIDs := t.pendingByContent[content]
	for i, id := range tempIDs {
		if id == tempID {
			tempIDs = append(tempIDs[:i], tempIDs[i+1:]...)
			break
		}
	}
	if len(tempIDs) == 0 {
		delete(t.pendingByContent, content)
	} else {
		t.pendingByContent[content] = tempIDs
	}
}
