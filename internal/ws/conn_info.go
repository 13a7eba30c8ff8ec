package ws

import "time"

// ConnInfo describes one websocket connection for logging and telemetry.
// UserID is empty when the connection presented no usable token.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Role        string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
