// Package archive persists forwarded application frames to Postgres for
// diagnostics and replay. It taps the session layer as a frame sink,
// batches rows in memory, and writes them append-only with messageId as
// the dedup key. The core session works fine without it.
package archive
