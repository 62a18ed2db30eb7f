package feature

import (
	"testing"

	"github.com/fixitquick/realtime/internal/protocol"
)

func TestOrderTracker_MountJoinsAndSubscribes(t *testing.T) {
	sess := newFakeSession()
	tracker := NewOrderTracker(sess, "o1", nil)
	defer tracker.Stop()

	joined := sess.joinedRooms()
	if len(joined) != 1 || joined[0] != "order:o1" {
		t.Errorf("joined rooms = %v, want [order:o1]", joined)
	}

	frames := sess.framesOf(protocol.TypeSubscribeOrder)
	if len(frames) != 1 {
		t.Fatalf("subscribe_order frames = %d, want 1", len(frames))
	}
	if payload := frames[0].Data.(protocol.OrderPayload); payload.OrderID != "o1" {
		t.Errorf("subscribe_order orderId = %q, want o1", payload.OrderID)
	}

	if sess.registry.HandlerCount(protocol.TypeOrderStatusUpdated) != 1 ||
		sess.registry.HandlerCount(protocol.TypeProviderLocationUpdate) != 1 ||
		sess.registry.HandlerCount(protocol.TypeProviderAssigned) != 1 {
		t.Error("expected one handler per tracked event type")
	}
}

func TestOrderTracker_Snapshots(t *testing.T) {
	sess := newFakeSession()
	tracker := NewOrderTracker(sess, "o1", nil)
	defer tracker.Stop()

	if _, ok := tracker.Status(); ok {
		t.Error("no status should be known before any event")
	}

	sess.emit(t, protocol.TypeOrderStatusUpdated, protocol.OrderStatusPayload{
		OrderID: "o1", Status: "en_route",
	})
	sess.emit(t, protocol.TypeProviderLocationUpdate, protocol.LocationPayload{
		OrderID: "o1", Latitude: 12.9, Longitude: 77.6, Accuracy: 8,
	})
	sess.emit(t, protocol.TypeProviderAssigned, protocol.ProviderAssignedPayload{
		OrderID: "o1", ProviderID: "p7", ProviderName: "Asha",
	})

	if status, ok := tracker.Status(); !ok || status.Status != "en_route" {
		t.Errorf("Status = %+v ok=%v, want en_route", status, ok)
	}
	if loc, ok := tracker.Location(); !ok || loc.Latitude != 12.9 {
		t.Errorf("Location = %+v ok=%v, want latitude 12.9", loc, ok)
	}
	if provider, ok := tracker.Provider(); !ok || provider.ProviderID != "p7" {
		t.Errorf("Provider = %+v ok=%v, want p7", provider, ok)
	}
}

func TestOrderTracker_IgnoresOtherOrders(t *testing.T) {
	sess := newFakeSession()
	tracker := NewOrderTracker(sess, "o1", nil)
	defer tracker.Stop()

	sess.emit(t, protocol.TypeOrderStatusUpdated, protocol.OrderStatusPayload{
		OrderID: "o2", Status: "completed",
	})

	if _, ok := tracker.Status(); ok {
		t.Error("status for an unrelated order must be ignored")
	}
}

func TestOrderTracker_OutboundActions(t *testing.T) {
	sess := newFakeSession()
	tracker := NewOrderTracker(sess, "o1", nil)
	defer tracker.Stop()

	if !tracker.UpdateStatus("arrived", "at the gate") {
		t.Error("UpdateStatus = false, want true")
	}
	if !tracker.ShareLocation(12.9, 77.6, 5) {
		t.Error("ShareLocation = false, want true")
	}

	frames := sess.framesOf(protocol.TypeOrderStatus)
	if len(frames) != 1 {
		t.Fatalf("order_status_update frames = %d, want 1", len(frames))
	}
	status := frames[0].Data.(protocol.OrderStatusPayload)
	if status.OrderID != "o1" || status.Status != "arrived" || status.Notes != "at the gate" {
		t.Errorf("status frame = %+v", status)
	}

	frames = sess.framesOf(protocol.TypeProviderLocation)
	if len(frames) != 1 {
		t.Fatalf("provider_location frames = %d, want 1", len(frames))
	}
	if loc := frames[0].Data.(protocol.LocationPayload); loc.Longitude != 77.6 {
		t.Errorf("location frame = %+v", loc)
	}
}

func TestOrderTracker_StopTearsDown(t *testing.T) {
	sess := newFakeSession()
	tracker := NewOrderTracker(sess, "o1", nil)

	tracker.Stop()
	tracker.Stop() // idempotent

	left := sess.leftRooms()
	if len(left) != 1 || left[0] != "order:o1" {
		t.Errorf("left rooms = %v, want [order:o1] exactly once", left)
	}
	if frames := sess.framesOf(protocol.TypeUnsubscribeOrder); len(frames) != 1 {
		t.Errorf("unsubscribe_order frames = %d, want 1", len(frames))
	}

	if sess.registry.HandlerCount(protocol.TypeOrderStatusUpdated) != 0 ||
		sess.registry.HandlerCount(protocol.TypeProviderLocationUpdate) != 0 ||
		sess.registry.HandlerCount(protocol.TypeProviderAssigned) != 0 {
		t.Error("Stop must remove all handlers synchronously")
	}

	// Late events must not resurrect state.
	sess.emit(t, protocol.TypeOrderStatusUpdated, protocol.OrderStatusPayload{
		OrderID: "o1", Status: "completed",
	})
	if _, ok := tracker.Status(); ok {
		t.Error("status set after Stop")
	}
}
