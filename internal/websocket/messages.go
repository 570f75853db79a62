package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeBookingsSyncCompleted MessageType = "bookings.sync_completed"
	TypeBookingsSyncError     MessageType = "bookings.sync_error"
	TypeTaskChanged           MessageType = "task.changed"
	TypeAssignmentsPending    MessageType = "task.assignments_pending"
	TypeSeriesExpanded        MessageType = "series.expanded"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypePing        MessageType = "ping"

	// Server -> Client response types
	TypeSubscribeAck MessageType = "subscribe.ack"
	TypePong         MessageType = "pong"
	TypeError        MessageType = "error"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncErrorPayload is the payload for bookings.sync_error events.
type SyncErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TaskChangedPayload is the payload for task.changed events. Action is
// one of created, updated, deleted, assigned, status.
type TaskChangedPayload struct {
	TaskID int64  `json:"task_id"`
	Action string `json:"action"`
	Date   string `json:"date,omitempty"`
}

// SeriesExpandedPayload is the payload for series.expanded events.
type SeriesExpandedPayload struct {
	TasksCreated       int `json:"tasks_created"`
	PendingAssignments int `json:"pending_assignments"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
