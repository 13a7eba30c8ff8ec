package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"market-chat-service/internal/conversations"
	"market-chat-service/internal/mocks"
	"market-chat-service/internal/models"
	"market-chat-service/internal/repositories"
	"market-chat-service/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// identityStub replaces the auth middleware in tests.
func identityStub(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func strPtr(s string) *string { return &s }

type roomHandlerFixture struct {
	handler  *RoomHandler
	rooms    *mocks.RoomRepositoryMock
	messages *mocks.MessageRepositoryMock
	labels   *mocks.LabelRepositoryMock
	monitors *mocks.MonitorRepositoryMock
}

func newRoomHandlerFixture() *roomHandlerFixture {
	rooms := new(mocks.RoomRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	labels := new(mocks.LabelRepositoryMock)
	monitors := new(mocks.MonitorRepositoryMock)
	service := conversations.NewService(rooms, messages)
	return &roomHandlerFixture{
		handler:  NewRoomHandler(service, labels, monitors, ws.NewHub(), nil),
		rooms:    rooms,
		messages: messages,
		labels:   labels,
		monitors: monitors,
	}
}

func performJSON(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListConversations(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.GET("/conversations", identityStub("u1", "customer"), f.handler.ListConversations)

	now := time.Now()
	f.rooms.On("ListByParticipant", mock.Anything, "u1").Return([]models.ChatRoom{
		{ID: "R1", ParticipantA: "u1", ParticipantB: "u2", UpdatedAt: now},
	}, nil)
	f.messages.On("CountUnread", mock.Anything, []string{"R1"}, "u1").Return(4, nil)

	rec := performJSON(router, http.MethodGet, "/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Conversations, 1)
	assert.Equal(t, "u2", body.Conversations[0].PartnerID)
	assert.Equal(t, 4, body.Conversations[0].UnreadCount)
}

func TestListConversationsOpenPartnerShowsZeroUnread(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.GET("/conversations", identityStub("u1", "customer"), f.handler.ListConversations)

	f.rooms.On("ListByParticipant", mock.Anything, "u1").Return([]models.ChatRoom{
		{ID: "R1", ParticipantA: "u1", ParticipantB: "u2"},
	}, nil)

	rec := performJSON(router, http.MethodGet, "/conversations?open=u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f.messages.AssertNotCalled(t, "CountUnread", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetConversationMergesAndMarksRead(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.GET("/conversations/with/:participant_id", identityStub("u1", "customer"), f.handler.GetConversation)

	room := models.ChatRoom{ID: "R2", ParticipantA: "u1", ParticipantB: "u2"}
	f.rooms.On("GetRoomsByPair", mock.Anything, "u1", "u2").Return([]models.ChatRoom{room}, nil)
	f.rooms.On("GetRoom", mock.Anything, "R2").Return(room, nil)
	content := "hi"
	f.messages.On("ListByRooms", mock.Anything, []string{"R2"}).Return([]models.Message{
		{ID: "m1", RoomID: "R2", SenderID: "u2", Content: &content, CreatedAt: time.Now()},
	}, nil)
	f.messages.On("MarkRead", mock.Anything, "R2", "u1").Return(int64(1), nil)

	rec := performJSON(router, http.MethodGet, "/conversations/with/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "R2", conv.Room.ID)
	require.Len(t, conv.Messages, 1)
	f.messages.AssertCalled(t, "MarkRead", mock.Anything, "R2", "u1")
}

func TestGetConversationUnknownPartnerReturns404(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.GET("/conversations/with/:participant_id", identityStub("u1", "customer"), f.handler.GetConversation)

	f.rooms.On("GetRoomsByPair", mock.Anything, "u1", "ghost").Return([]models.ChatRoom{}, nil)

	rec := performJSON(router, http.MethodGet, "/conversations/with/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRoom(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms", identityStub("u1", "customer"), f.handler.CreateRoom)

	f.rooms.On("GetRoomsByPair", mock.Anything, "u1", "u2").Return([]models.ChatRoom{}, nil)
	created := models.ChatRoom{ID: "R-new", ParticipantA: "u1", ParticipantB: "u2", ListingID: strPtr("L9")}
	f.rooms.On("CreateRoom", mock.Anything, "u1", "u2", strPtr("L9")).Return(created, nil)

	rec := performJSON(router, http.MethodPost, "/rooms", gin.H{"participant_id": "u2", "listing_id": "L9"})
	require.Equal(t, http.StatusOK, rec.Code)

	var room models.ChatRoom
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, "R-new", room.ID)
}

func TestCreateRoomRejectsMissingParticipantAndSelf(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms", identityStub("u1", "customer"), f.handler.CreateRoom)

	rec := performJSON(router, http.MethodPost, "/rooms", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performJSON(router, http.MethodPost, "/rooms", gin.H{"participant_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.rooms.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadEndpoint(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms/:room_id/read", identityStub("u1", "customer"), f.handler.MarkRead)

	room := models.ChatRoom{ID: "R1", ParticipantA: "u1", ParticipantB: "u2"}
	f.rooms.On("GetRoom", mock.Anything, "R1").Return(room, nil)
	f.rooms.On("GetRoomsByPair", mock.Anything, "u1", "u2").Return([]models.ChatRoom{room}, nil)
	f.messages.On("MarkRead", mock.Anything, "R1", "u1").Return(int64(2), nil)

	rec := performJSON(router, http.MethodPost, "/rooms/R1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
}

func TestMarkReadNonParticipantReturns403(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms/:room_id/read", identityStub("intruder", "customer"), f.handler.MarkRead)

	f.rooms.On("GetRoom", mock.Anything, "R1").
		Return(models.ChatRoom{ID: "R1", ParticipantA: "u1", ParticipantB: "u2"}, nil)

	rec := performJSON(router, http.MethodPost, "/rooms/R1/read", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkReadUnknownRoomReturns404(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms/:room_id/read", identityStub("u1", "customer"), f.handler.MarkRead)

	f.rooms.On("GetRoom", mock.Anything, "ghost").
		Return(models.ChatRoom{}, repositories.ErrRoomNotFound)

	rec := performJSON(router, http.MethodPost, "/rooms/ghost/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveAndUnarchiveEndpoints(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	authed := identityStub("u1", "customer")
	router.POST("/rooms/:room_id/archive", authed, f.handler.Archive)
	router.POST("/rooms/:room_id/unarchive", authed, f.handler.Unarchive)

	room := models.ChatRoom{ID: "R1", ParticipantA: "u1", ParticipantB: "u2"}
	f.rooms.On("GetRoom", mock.Anything, "R1").Return(room, nil)
	f.rooms.On("SetStatus", mock.Anything, "R1", models.RoomStatusArchived).Return(nil)
	f.rooms.On("SetStatus", mock.Anything, "R1", models.RoomStatusActive).Return(nil)

	rec := performJSON(router, http.MethodPost, "/rooms/R1/archive", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = performJSON(router, http.MethodPost, "/rooms/R1/unarchive", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.rooms.AssertExpectations(t)
}

func TestDeleteRoomEndpoint(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.DELETE("/rooms/:room_id", identityStub("u1", "customer"), f.handler.DeleteRoom)

	f.rooms.On("GetRoom", mock.Anything, "R1").
		Return(models.ChatRoom{ID: "R1", ParticipantA: "u1", ParticipantB: "u2"}, nil)
	f.rooms.On("DeleteRoom", mock.Anything, "R1").Return(nil)

	rec := performJSON(router, http.MethodDelete, "/rooms/R1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBlockAndUnblockEndpoints(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	authed := identityStub("u1", "customer")
	router.POST("/blocks/:participant_id", authed, f.handler.Block)
	router.DELETE("/blocks/:participant_id", authed, f.handler.Unblock)

	f.rooms.On("SetStatusForPair", mock.Anything, "u1", "u2", (*models.RoomStatus)(nil), models.RoomStatusFlagged).
		Return(int64(3), nil)
	flagged := models.RoomStatusFlagged
	f.rooms.On("SetStatusForPair", mock.Anything, "u1", "u2", &flagged, models.RoomStatusActive).
		Return(int64(3), nil)

	rec := performJSON(router, http.MethodPost, "/blocks/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rooms_flagged":3}`, rec.Body.String())

	rec = performJSON(router, http.MethodDelete, "/blocks/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rooms_restored":3}`, rec.Body.String())
}

func TestPutLabelEndpoint(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.PUT("/rooms/:room_id/label", identityStub("u1", "customer"), f.handler.PutLabel)

	f.labels.On("UpsertLabel", mock.Anything, "R1", "u1", "important").
		Return(models.Label{RoomID: "R1", UserID: "u1", Value: "important"}, nil)

	rec := performJSON(router, http.MethodPut, "/rooms/R1/label", gin.H{"value": "important"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performJSON(router, http.MethodPut, "/rooms/R1/label", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteLabelEndpoints(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	authed := identityStub("u1", "customer")
	router.GET("/rooms/:room_id/label", authed, f.handler.GetLabel)
	router.DELETE("/rooms/:room_id/label", authed, f.handler.DeleteLabel)

	f.labels.On("GetLabel", mock.Anything, "R1", "u1").
		Return(models.Label{RoomID: "R1", UserID: "u1", Value: "important"}, nil)
	f.labels.On("GetLabel", mock.Anything, "R2", "u1").
		Return(models.Label{}, repositories.ErrLabelNotFound)
	f.labels.On("DeleteLabel", mock.Anything, "R1", "u1").Return(nil)

	rec := performJSON(router, http.MethodGet, "/rooms/R1/label", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performJSON(router, http.MethodGet, "/rooms/R2/label", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performJSON(router, http.MethodDelete, "/rooms/R1/label", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListMonitorViews(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.GET("/rooms/:room_id/monitor", identityStub("s1", "admin"), f.handler.ListMonitorViews)

	f.monitors.On("ListByRoom", mock.Anything, "R1").
		Return([]models.MonitorView{{RoomID: "R1", StaffID: "s1", ViewedAt: time.Now()}}, nil)
	f.monitors.On("IsViewed", mock.Anything, "R1").Return(true, nil)

	rec := performJSON(router, http.MethodGet, "/rooms/R1/monitor", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Viewed bool                 `json:"viewed"`
		Views  []models.MonitorView `json:"views"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Viewed)
	require.Len(t, body.Views, 1)
}

func TestRecordMonitorViewRequiresStaff(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms/:room_id/monitor", identityStub("u1", "customer"), f.handler.RecordMonitorView)

	rec := performJSON(router, http.MethodPost, "/rooms/R1/monitor", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.monitors.AssertNotCalled(t, "RecordView", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordMonitorViewAsStaff(t *testing.T) {
	f := newRoomHandlerFixture()
	router := gin.New()
	router.POST("/rooms/:room_id/monitor", identityStub("s1", "staff"), f.handler.RecordMonitorView)

	f.monitors.On("RecordView", mock.Anything, "R1", "s1").
		Return(models.MonitorView{RoomID: "R1", StaffID: "s1", ViewedAt: time.Now()}, nil)

	rec := performJSON(router, http.MethodPost, "/rooms/R1/monitor", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view models.MonitorView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "s1", view.StaffID)
}
