// Package feature implements the derived real-time consumers: per-order
// tracking, order chat, and global notifications. Each feature is a small
// state machine built purely on the session primitives (Send, Subscribe,
// JoinRoom, LeaveRoom) and never touches the transport directly.
package feature
