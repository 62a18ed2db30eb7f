// Package protocol defines the wire format for the FixitQuick real-time
// channel.
//
// Every frame is a JSON Envelope:
//
//	{"type": "...", "data": {...}, "timestamp": 1700000000000, "messageId": "..."}
//
// The type string discriminates the payload. Control types (auth, ping,
// pong, ...) are consumed by the session layer; application types
// (chat_message, order_status_updated, ...) are fanned out to subscribers.
package protocol
