package feature

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixitquick/realtime/internal/protocol"
)

// Notification is one received alert with local read state.
type Notification struct {
	protocol.NotificationPayload
	ReceivedAt time.Time
	Read       bool
}

// MetricsSnapshot is the latest payload of a periodic metrics event.
type MetricsSnapshot struct {
	Data       json.RawMessage
	ReceivedAt time.Time
}

// NotificationCenter accumulates global (non-room-scoped) alerts and live
// metric snapshots. State is purely additive until MarkRead / MarkAllRead /
// Clear.
type NotificationCenter struct {
	sess   Session
	logger *slog.Logger

	mu           sync.Mutex
	stopped      bool
	items        []Notification
	dashboard    MetricsSnapshot
	orderMetrics MetricsSnapshot

	unsubs []func()
}

// NewNotificationCenter subscribes to the global alert and metrics events.
// Call Stop when done.
func NewNotificationCenter(sess Session, logger *slog.Logger) *NotificationCenter {
	if logger == nil {
		logger = slog.Default()
	}
	n := &NotificationCenter{
		sess:   sess,
		logger: logger,
	}

	n.unsubs = []func(){
		sess.Subscribe(protocol.TypeNotification, n.onNotification),
		sess.Subscribe(protocol.TypeNewOrderNotification, n.onNotification),
		sess.Subscribe(protocol.TypeDashboardMetricsUpdate, func(data json.RawMessage) {
			n.onMetrics(&n.dashboard, data)
		}),
		sess.Subscribe(protocol.TypeOrderMetricsUpdate, func(data json.RawMessage) {
			n.onMetrics(&n.orderMetrics, data)
		}),
	}

	return n
}

// Stop removes all subscriptions synchronously.
func (n *NotificationCenter) Stop() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Notifications returns a copy of the received alerts, newest last.
func (n *NotificationCenter) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Unread returns the count of alerts not yet marked read.
func (n *NotificationCenter) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, item := range n.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// MarkRead marks the alert with the given id as read. Returns false when no
// such alert exists.
func (n *NotificationCenter) MarkRead(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every alert as read.
func (n *NotificationCenter) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		n.items[i].Read = true
	}
}

// Clear discards all alerts.
func (n *NotificationCenter) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = nil
}

// DashboardMetrics returns the latest dashboard snapshot. Data is nil when
// none has arrived.
func (n *NotificationCenter) DashboardMetrics() MetricsSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dashboard
}

// OrderMetrics returns the latest order metrics snapshot. Data is nil when
// none has arrived.
func (n *NotificationCenter) OrderMetrics() MetricsSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orderMetrics
}

func (n *NotificationCenter) onNotification(data json.RawMessage) {
	var payload protocol.NotificationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		n.logger.Warn("bad notification payload", "error", err)
		return
	}
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}
	n.items = append(n.items, Notification{
		NotificationPayload: payload,
		ReceivedAt:          time.Now(),
	})
}

func (n *NotificationCenter) onMetrics(slot *MetricsSnapshot, data json.RawMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}
	slot.Data = append(json.RawMessage(nil), data...)
	slot.ReceivedAt = time.Now()
}
