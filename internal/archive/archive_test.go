package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fixitquick/realtime/internal/protocol"
)

func TestTransform(t *testing.T) {
	receivedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	env := protocol.Envelope{
		Type:      protocol.TypeOrderStatusUpdated,
		Data:      json.RawMessage(`{"orderId":"o1","status":"en_route"}`),
		Timestamp: 1770000000000,
		MessageID: "m-1",
	}

	row := transform(env, receivedAt)

	if row.MessageID != "m-1" {
		t.Errorf("MessageID = %s, want m-1", row.MessageID)
	}
	if row.FrameType != protocol.TypeOrderStatusUpdated {
		t.Errorf("FrameType = %s, want order_status_updated", row.FrameType)
	}
	if row.EventTs != 1770000000000 {
		t.Errorf("EventTs = %d, want 1770000000000", row.EventTs)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
	if string(row.Payload) != `{"orderId":"o1","status":"en_route"}` {
		t.Errorf("Payload = %s", row.Payload)
	}
}

func TestTransform_MissingMessageID(t *testing.T) {
	env := protocol.Envelope{Type: protocol.TypeNotification}

	row := transform(env, time.Now())

	if row.MessageID == "" {
		t.Error("expected a generated message id for the dedup key")
	}
}

func TestFrameBuffer_OrderAndGrowth(t *testing.T) {
	buf := newFrameBuffer(2)

	for i := 0; i < 10; i++ {
		if !buf.Push(frameRow{MessageID: string(rune('a' + i))}) {
			t.Fatalf("Push %d failed", i)
		}
	}
	if buf.Len() != 10 {
		t.Fatalf("Len = %d, want 10 (buffer grows, never drops)", buf.Len())
	}

	for i := 0; i < 10; i++ {
		row, ok := buf.TryPop()
		if !ok {
			t.Fatalf("TryPop %d failed", i)
		}
		if want := string(rune('a' + i)); row.MessageID != want {
			t.Errorf("pop %d = %s, want %s", i, row.MessageID, want)
		}
	}
	if _, ok := buf.TryPop(); ok {
		t.Error("TryPop on empty buffer = true, want false")
	}
}

func TestFrameBuffer_CloseRejectsPushKeepsDrain(t *testing.T) {
	buf := newFrameBuffer(4)
	buf.Push(frameRow{MessageID: "m1"})
	buf.Close()

	if buf.Push(frameRow{MessageID: "m2"}) {
		t.Error("Push after Close = true, want false")
	}
	if row, ok := buf.TryPop(); !ok || row.MessageID != "m1" {
		t.Errorf("buffered rows must stay poppable after Close, got %v %v", row, ok)
	}
}

func TestArchiver_RecordBatches(t *testing.T) {
	cfg := Config{
		BatchSize:     100, // Large batch so no auto-flush
		FlushInterval: time.Hour,
	}
	a := NewArchiver(cfg, nil, nil)

	a.Record(protocol.Envelope{Type: protocol.TypeNotification, MessageID: "m1"}, time.Now())
	a.Record(protocol.Envelope{Type: protocol.TypeNotification, MessageID: "m2"}, time.Now())

	if got := a.input.Len(); got != 2 {
		t.Errorf("intake length = %d, want 2", got)
	}
	if got := a.Stats().Received; got != 2 {
		t.Errorf("Received = %d, want 2", got)
	}
}

func TestArchiver_Lifecycle(t *testing.T) {
	cfg := Config{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}

	// Without a database the archiver still consumes and discards batches;
	// this exercises the goroutine lifecycle.
	a := NewArchiver(cfg, nil, nil)

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	a.Record(protocol.Envelope{Type: protocol.TypeNotification, MessageID: "m1"}, time.Now())
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	if got := a.input.Len(); got != 0 {
		t.Errorf("intake not drained on Stop, %d rows left", got)
	}
}
