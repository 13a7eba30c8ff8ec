package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"market-chat-service/internal/models"
	"market-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, participantA, participantB string, listingID *string) (models.ChatRoom, error) {
	args := m.Called(ctx, participantA, participantB, listingID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoomsByPair(ctx context.Context, userX, userY string) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userX, userY)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) ListByParticipant(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userID)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) SetListing(ctx context.Context, roomID string, listingID string) error {
	args := m.Called(ctx, roomID, listingID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	args := m.Called(ctx, roomID, status)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SetStatusForPair(ctx context.Context, userX, userY string, from *models.RoomStatus, to models.RoomStatus) (int64, error) {
	args := m.Called(ctx, userX, userY, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RoomRepositoryMock) SetOffered(ctx context.Context, roomID string, offered bool) error {
	args := m.Called(ctx, roomID, offered)
	return args.Error(0)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, roomID, senderID string, content *string, msgType models.MessageType, fileURL *string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, content, msgType, fileURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByRooms(ctx context.Context, roomIDs []string) ([]models.Message, error) {
	args := m.Called(ctx, roomIDs)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	args := m.Called(ctx, roomID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, roomIDs []string, viewerID string) (int, error) {
	args := m.Called(ctx, roomIDs, viewerID)
	return args.Int(0), args.Error(1)
}

type LabelRepositoryMock struct {
	mock.Mock
}

func (m *LabelRepositoryMock) UpsertLabel(ctx context.Context, roomID, userID, value string) (models.Label, error) {
	args := m.Called(ctx, roomID, userID, value)
	var label models.Label
	if val := args.Get(0); val != nil {
		label = val.(models.Label)
	}
	return label, args.Error(1)
}

func (m *LabelRepositoryMock) GetLabel(ctx context.Context, roomID, userID string) (models.Label, error) {
	args := m.Called(ctx, roomID, userID)
	var label models.Label
	if val := args.Get(0); val != nil {
		label = val.(models.Label)
	}
	return label, args.Error(1)
}

func (m *LabelRepositoryMock) DeleteLabel(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

type MonitorRepositoryMock struct {
	mock.Mock
}

func (m *MonitorRepositoryMock) RecordView(ctx context.Context, roomID, staffID string) (models.MonitorView, error) {
	args := m.Called(ctx, roomID, staffID)
	var view models.MonitorView
	if val := args.Get(0); val != nil {
		view = val.(models.MonitorView)
	}
	return view, args.Error(1)
}

func (m *MonitorRepositoryMock) ListByRoom(ctx context.Context, roomID string) ([]models.MonitorView, error) {
	args := m.Called(ctx, roomID)
	var views []models.MonitorView
	if val := args.Get(0); val != nil {
		views = val.([]models.MonitorView)
	}
	return views, args.Error(1)
}

func (m *MonitorRepositoryMock) IsViewed(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.LabelRepository = (*LabelRepositoryMock)(nil)
var _ repositories.MonitorRepository = (*MonitorRepositoryMock)(nil)
