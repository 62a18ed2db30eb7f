package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the uniform wrapper around every real-time message.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"` // milliseconds since epoch
	MessageID string          `json:"messageId,omitempty"`
}

// NewEnvelope wraps an application payload in an Envelope, assigning the
// send timestamp and a locally-unique message ID.
func NewEnvelope(msgType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
		MessageID: uuid.NewString(),
	}, nil
}

// NewControlEnvelope wraps a control payload without a message ID.
// Control frames (ping, auth) carry only a timestamp.
func NewControlEnvelope(msgType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Parse decodes a raw frame into an Envelope.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("parse envelope: missing type")
	}
	return env, nil
}

// Encode serializes an Envelope to a JSON frame.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", e.Type, err)
	}
	return data, nil
}
