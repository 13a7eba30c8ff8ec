package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"market-chat-service/internal/models"
)

func TestJoinRoomPayloadValidate(t *testing.T) {
	assert.NoError(t, JoinRoomPayload{ChatID: "room-1"}.Validate())
	assert.ErrorIs(t, JoinRoomPayload{}.Validate(), ErrValidation)
}

func TestSendMessagePayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload SendMessagePayload
		wantErr bool
	}{
		{
			name:    "text message",
			payload: SendMessagePayload{ChatID: "r1", SenderID: "u1", Content: "hi"},
		},
		{
			name:    "file without content",
			payload: SendMessagePayload{ChatID: "r1", SenderID: "u1", FileURL: "https://cdn/x.png", Type: models.MessageTypeImage},
		},
		{
			name:    "missing chat id",
			payload: SendMessagePayload{SenderID: "u1", Content: "hi"},
			wantErr: true,
		},
		{
			name:    "missing sender",
			payload: SendMessagePayload{ChatID: "r1", Content: "hi"},
			wantErr: true,
		},
		{
			name:    "no content and no file",
			payload: SendMessagePayload{ChatID: "r1", SenderID: "u1"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			payload: SendMessagePayload{ChatID: "r1", SenderID: "u1", Content: "hi", Type: "SHOUT"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendMessagePayloadTypeDefaultsToText(t *testing.T) {
	assert.Equal(t, models.MessageTypeText, SendMessagePayload{}.MessageType())
	assert.Equal(t, models.MessageTypeOffer, SendMessagePayload{Type: models.MessageTypeOffer}.MessageType())
}

func TestSignalPayloadValidate(t *testing.T) {
	assert.NoError(t, SignalPayload{TargetID: "u2"}.Validate())
	assert.ErrorIs(t, SignalPayload{FromID: "u1"}.Validate(), ErrValidation)
}

func TestRegisterPayloadValidate(t *testing.T) {
	assert.NoError(t, RegisterPayload{UserID: "u1"}.Validate())
	assert.ErrorIs(t, RegisterPayload{Token: "t"}.Validate(), ErrValidation)
}
