package feature

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/fixitquick/realtime/internal/protocol"
)

// OrderTracker follows one order in real time. On creation it joins the
// order's room and asks the server for order events; it then keeps the
// latest status, provider position, and assignment as local snapshots.
type OrderTracker struct {
	orderID string
	sess    Session
	logger  *slog.Logger

	mu          sync.Mutex
	stopped     bool
	status      protocol.OrderStatusPayload
	hasStatus   bool
	location    protocol.LocationPayload
	hasLocation bool
	provider    protocol.ProviderAssignedPayload
	hasProvider bool

	unsubs []func()
}

// NewOrderTracker starts tracking orderID. Call Stop when done.
func NewOrderTracker(sess Session, orderID string, logger *slog.Logger) *OrderTracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &OrderTracker{
		orderID: orderID,
		sess:    sess,
		logger:  logger.With("order_id", orderID),
	}

	t.unsubs = []func(){
		sess.Subscribe(protocol.TypeOrderStatusUpdated, t.onStatus),
		sess.Subscribe(protocol.TypeProviderLocationUpdate, t.onLocation),
		sess.Subscribe(protocol.TypeProviderAssigned, t.onAssigned),
	}

	sess.JoinRoom(OrderRoom(orderID))
	sess.Send(protocol.TypeSubscribeOrder, protocol.OrderPayload{OrderID: orderID})

	return t
}

// Stop tears the tracker down synchronously: all three subscriptions are
// removed before Stop returns, the room is left, and the server-side order
// subscription is cancelled.
func (t *OrderTracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	unsubs := t.unsubs
	t.unsubs = nil
	t.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	t.sess.LeaveRoom(OrderRoom(t.orderID))
	t.sess.Send(protocol.TypeUnsubscribeOrder, protocol.OrderPayload{OrderID: t.orderID})
}

// UpdateStatus pushes a status change for the tracked order. The boolean
// mirrors Send: false means the frame was queued for later delivery.
func (t *OrderTracker) UpdateStatus(status, notes string) bool {
	return t.sess.Send(protocol.TypeOrderStatus, protocol.OrderStatusPayload{
		OrderID: t.orderID,
		Status:  status,
		Notes:   notes,
	})
}

// ShareLocation pushes the provider's position for the tracked order.
func (t *OrderTracker) ShareLocation(latitude, longitude, accuracy float64) bool {
	return t.sess.Send(protocol.TypeProviderLocation, protocol.LocationPayload{
		OrderID:   t.orderID,
		Latitude:  latitude,
		Longitude: longitude,
		Accuracy:  accuracy,
	})
}

// Status returns the latest status update, if any has arrived.
func (t *OrderTracker) Status() (protocol.OrderStatusPayload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.hasStatus
}

// Location returns the latest provider position, if any has arrived.
func (t *OrderTracker) Location() (protocol.LocationPayload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.location, t.hasLocation
}

// Provider returns the assigned provider, if one has been announced.
func (t *OrderTracker) Provider() (protocol.ProviderAssignedPayload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.provider, t.hasProvider
}

func (t *OrderTracker) onStatus(data json.RawMessage) {
	var payload protocol.OrderStatusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.logger.Warn("bad order status payload", "error", err)
		return
	}
	if payload.OrderID != t.orderID {
		return
	}

	t.mu.Lock()
	if !t.stopped {
		t.status = payload
		t.hasStatus = true
	}
	t.mu.Unlock()
}

func (t *OrderTracker) onLocation(data json.RawMessage) {
	var payload protocol.LocationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.logger.Warn("bad provider location payload", "error", err)
		return
	}
	if payload.OrderID != t.orderID {
		return
	}

	t.mu.Lock()
	if !t.stopped {
		t.location = payload
		t.hasLocation = true
	}
	t.mu.Unlock()
}

func (t *OrderTracker) onAssigned(data json.RawMessage) {
	var payload protocol.ProviderAssignedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.logger.Warn("bad provider assignment payload", "error", err)
		return
	}
	if payload.OrderID != t.orderID {
		return
	}

	t.mu.Lock()
	if !t.stopped {
		t.provider = payload
		t.hasProvider = true
	}
	t.mu.Unlock()
}
