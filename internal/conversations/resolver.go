package conversations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"market-chat-service/internal/models"
	"market-chat-service/internal/repositories"
)

var (
	// ErrForbidden marks an actor that is not a participant of the room.
	ErrForbidden = errors.New("actor is not a room participant")
	// ErrConversationNotFound marks a pair with no rooms at all.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Service resolves the merged-thread view over per-listing rooms and guards
// room lifecycle transitions.
type Service struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
}

// NewService builds a Service.
func NewService(rooms repositories.RoomRepository, messages repositories.MessageRepository) *Service {
	return &Service{rooms: rooms, messages: messages}
}

// PairKey builds the unordered-pair grouping key for two user ids.
func PairKey(userX, userY string) string {
	if userX > userY {
		userX, userY = userY, userX
	}
	return userX + ":" + userY
}

// Resolve returns the one logical conversation between the two users: the
// most recently updated room is canonical, messages are the union across all
// pair rooms ordered strictly by created_at, and the canonical updated_at is
// overridden with the last merged message's timestamp.
func (s *Service) Resolve(ctx context.Context, userX, userY string) (models.Conversation, error) {
	rooms, err := s.rooms.GetRoomsByPair(ctx, userX, userY)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("load pair rooms: %w", err)
	}
	if len(rooms) == 0 {
		return models.Conversation{}, ErrConversationNotFound
	}

	// GetRoomsByPair orders by updated_at descending, so the head is canonical.
	canonical := rooms[0]
	roomIDs := make([]string, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.ID)
	}

	msgs, err := s.messages.ListByRooms(ctx, roomIDs)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("load merged messages: %w", err)
	}
	sortMessages(msgs)

	if len(msgs) > 0 {
		canonical.UpdatedAt = msgs[len(msgs)-1].CreatedAt
	}

	return models.Conversation{Room: canonical, Messages: msgs, RoomIDs: roomIDs}, nil
}

// CreateRoom runs the read algorithm first. An existing conversation is
// reused: when the caller supplies a listing id the canonical room lacks, it
// is backfilled instead of creating a duplicate. A new row is created only
// when the pair has no room at all.
func (s *Service) CreateRoom(ctx context.Context, userX, userY string, listingID *string) (models.ChatRoom, error) {
	if userX == userY {
		return models.ChatRoom{}, errors.New("cannot create room with self")
	}

	rooms, err := s.rooms.GetRoomsByPair(ctx, userX, userY)
	if err != nil {
		return models.ChatRoom{}, fmt.Errorf("load pair rooms: %w", err)
	}
	if len(rooms) > 0 {
		canonical := rooms[0]
		if listingID != nil && canonical.ListingID == nil {
			if err := s.rooms.SetListing(ctx, canonical.ID, *listingID); err != nil {
				return models.ChatRoom{}, fmt.Errorf("backfill listing: %w", err)
			}
			canonical.ListingID = listingID
		}
		return canonical, nil
	}

	room, err := s.rooms.CreateRoom(ctx, userX, userY, listingID)
	if err != nil {
		return models.ChatRoom{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// ListForUser aggregates the user's rooms into one summary per unordered
// pair, keeping the most recently updated room of each group. openPairKey is
// a client-local override: the currently open conversation always shows zero
// unread, nothing is persisted for it.
func (s *Service) ListForUser(ctx context.Context, userID, openPairKey string) ([]models.ConversationSummary, error) {
	rooms, err := s.rooms.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	type group struct {
		head    models.ChatRoom
		roomIDs []string
	}
	groups := map[string]*group{}
	order := []string{}
	for _, room := range rooms {
		key := PairKey(room.ParticipantA, room.ParticipantB)
		g, ok := groups[key]
		if !ok {
			g = &group{head: room}
			groups[key] = g
			order = append(order, key)
		}
		// rooms arrive most-recently-updated first, the head stays canonical
		g.roomIDs = append(g.roomIDs, room.ID)
	}

	summaries := make([]models.ConversationSummary, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		unread := 0
		if key != openPairKey {
			unread, err = s.messages.CountUnread(ctx, g.roomIDs, userID)
			if err != nil {
				return nil, fmt.Errorf("count unread: %w", err)
			}
		}
		summaries = append(summaries, models.ConversationSummary{
			Room:        g.head,
			PartnerID:   g.head.OtherParticipant(userID),
			UnreadCount: unread,
			LastActive:  g.head.UpdatedAt,
		})
	}
	return summaries, nil
}

// MarkRead flips unread messages not sent by the reader across every room of
// the conversation the given room belongs to. Idempotent.
func (s *Service) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	room, err := s.requireParticipant(ctx, roomID, readerID)
	if err != nil {
		return 0, err
	}

	rooms, err := s.rooms.GetRoomsByPair(ctx, room.ParticipantA, room.ParticipantB)
	if err != nil {
		return 0, fmt.Errorf("load pair rooms: %w", err)
	}
	var total int64
	for _, pairRoom := range rooms {
		affected, err := s.messages.MarkRead(ctx, pairRoom.ID, readerID)
		if err != nil {
			return total, fmt.Errorf("mark read: %w", err)
		}
		total += affected
	}
	return total, nil
}

// Archive transitions the room to ARCHIVED. Participants only.
func (s *Service) Archive(ctx context.Context, roomID, actorID string) error {
	return s.transition(ctx, roomID, actorID, models.RoomStatusArchived)
}

// Unarchive transitions the room back to ACTIVE. Participants only.
func (s *Service) Unarchive(ctx context.Context, roomID, actorID string) error {
	return s.transition(ctx, roomID, actorID, models.RoomStatusActive)
}

// Delete removes the room and everything scoped to it. Participants only,
// irreversible.
func (s *Service) Delete(ctx context.Context, roomID, actorID string) error {
	if _, err := s.requireParticipant(ctx, roomID, actorID); err != nil {
		return err
	}
	return s.rooms.DeleteRoom(ctx, roomID)
}

// Block flags every room between the actor and the target, across all
// listing scopes. Returns how many rooms were flagged.
func (s *Service) Block(ctx context.Context, actorID, targetID string) (int64, error) {
	return s.rooms.SetStatusForPair(ctx, actorID, targetID, nil, models.RoomStatusFlagged)
}

// Unblock reverts only currently-FLAGGED rooms for the pair back to ACTIVE.
func (s *Service) Unblock(ctx context.Context, actorID, targetID string) (int64, error) {
	flagged := models.RoomStatusFlagged
	return s.rooms.SetStatusForPair(ctx, actorID, targetID, &flagged, models.RoomStatusActive)
}

func (s *Service) transition(ctx context.Context, roomID, actorID string, status models.RoomStatus) error {
	if _, err := s.requireParticipant(ctx, roomID, actorID); err != nil {
		return err
	}
	return s.rooms.SetStatus(ctx, roomID, status)
}

func (s *Service) requireParticipant(ctx context.Context, roomID, actorID string) (models.ChatRoom, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if !room.HasParticipant(actorID) {
		return models.ChatRoom{}, ErrForbidden
	}
	return room, nil
}

// sortMessages orders strictly by created_at ascending; equal timestamps fall
// back to id so the merge is deterministic.
func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return strings.Compare(msgs[i].ID, msgs[j].ID) < 0
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
