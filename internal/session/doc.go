// Package session implements the Connection Manager for the FixitQuick
// real-time channel.
//
// The Manager owns exactly one live WebSocket at a time. It reconnects with
// exponential backoff up to a configured attempt budget, runs the heartbeat
// and quality monitor, queues outbound envelopes while disconnected, replays
// room joins after reconnect, and fans inbound application frames out to
// subscribers through the dispatch registry. No other component touches the
// raw transport.
package session
