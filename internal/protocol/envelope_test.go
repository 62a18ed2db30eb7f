package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewEnvelope(t *testing.T) {
	before := time.Now().UnixMilli()
	env, err := NewEnvelope(TypeChatMessage, ChatPayload{OrderID: "o1", Message: "hi"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	after := time.Now().UnixMilli()

	if env.Type != TypeChatMessage {
		t.Errorf("Type = %q, want %q", env.Type, TypeChatMessage)
	}
	if env.MessageID == "" {
		t.Error("expected non-empty MessageID")
	}
	if env.Timestamp < before || env.Timestamp > after {
		t.Errorf("Timestamp = %d, want within [%d, %d]", env.Timestamp, before, after)
	}

	var payload ChatPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if payload.OrderID != "o1" || payload.Message != "hi" {
		t.Errorf("payload = %+v, want OrderID o1, Message hi", payload)
	}
}

func TestNewControlEnvelope_NoMessageID(t *testing.T) {
	env, err := NewControlEnvelope(TypePing, PingPayload{Timestamp: 123})
	if err != nil {
		t.Fatalf("NewControlEnvelope failed: %v", err)
	}
	if env.MessageID != "" {
		t.Errorf("MessageID = %q, want empty for control frames", env.MessageID)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantErr  bool
	}{
		{
			name:     "valid frame",
			raw:      `{"type":"pong","data":{},"timestamp":1700000000000}`,
			wantType: "pong",
		},
		{
			name:     "frame with messageId",
			raw:      `{"type":"chat_message","data":{"orderId":"o1"},"timestamp":1,"messageId":"m1"}`,
			wantType: "chat_message",
		},
		{
			name:    "malformed json",
			raw:     `{"type":`,
			wantErr: true,
		},
		{
			name:    "missing type",
			raw:     `{"data":{},"timestamp":1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Parse([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if env.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", env.Type, tt.wantType)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(TypeJoinRoom, RoomPayload{RoomID: "order:o1"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}

	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Type != env.Type || parsed.MessageID != env.MessageID || parsed.Timestamp != env.Timestamp {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, env)
	}
}

func TestIsControl(t *testing.T) {
	for _, msgType := range []string{TypeConnectionEstablished, TypeAuthSuccess, TypeAuthFailed, TypePong, TypeError} {
		if !IsControl(msgType) {
			t.Errorf("IsControl(%q) = false, want true", msgType)
		}
	}
	for _, msgType := range []string{TypeChatMessage, TypeNotification, TypeOrderStatusUpdated, "unknown"} {
		if IsControl(msgType) {
			t.Errorf("IsControl(%q) = true, want false", msgType)
		}
	}
}
