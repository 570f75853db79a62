package websocket

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/sync"
)

// EventBroadcaster turns domain events into WebSocket messages. It
// satisfies the sync.Broadcaster and series.Notifier interfaces.
type EventBroadcaster struct {
	hub *Hub
	log *zap.Logger
}

// NewEventBroadcaster creates an event broadcaster on the hub.
func NewEventBroadcaster(hub *Hub, log *zap.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, log: log}
}

// SyncCompleted announces a finished booking refresh pass.
func (b *EventBroadcaster) SyncCompleted(result *sync.Result) {
	b.broadcast(NewMessage(TypeBookingsSyncCompleted, result))
}

// SyncError announces a failed booking refresh pass.
func (b *EventBroadcaster) SyncError(err error) {
	b.broadcast(NewMessage(TypeBookingsSyncError, SyncErrorPayload{
		Error:   "sync_error",
		Message: err.Error(),
	}))
}

// TaskChanged announces a task create, update, delete, assignment or
// status change made through the API.
func (b *EventBroadcaster) TaskChanged(taskID int64, action, date string) {
	b.broadcast(NewMessage(TypeTaskChanged, TaskChangedPayload{
		TaskID: taskID,
		Action: action,
		Date:   date,
	}))
}

// SeriesExpanded announces tasks materialized by a series expansion
// pass. Newly assigned tasks additionally raise an assignments-pending
// event so cleaner clients can prompt for accept or reject.
func (b *EventBroadcaster) SeriesExpanded(created, pendingAssignments int) {
	payload := SeriesExpandedPayload{
		TasksCreated:       created,
		PendingAssignments: pendingAssignments,
	}
	b.broadcast(NewMessage(TypeSeriesExpanded, payload))
	if pendingAssignments > 0 {
		b.broadcast(NewMessage(TypeAssignmentsPending, payload))
	}
	b.Notification("info", "Recurring tasks scheduled",
		fmt.Sprintf("%d new tasks on the board", created))
}

// Notification sends a dismissible notification to all clients.
func (b *EventBroadcaster) Notification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error("encoding websocket message", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
