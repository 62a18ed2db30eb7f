// Package transport owns the raw WebSocket connection.
//
// The session layer never touches gorilla/websocket directly: it dials
// through a Dialer and talks to the resulting Socket. URL construction is
// origin-relative only (https origin -> wss, http -> ws, fixed /ws path);
// there is no per-environment hostname branching.
package transport
