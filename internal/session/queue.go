package session

import (
	"sync"

	"github.com/fixitquick/realtime/internal/protocol"
)

// outboundQueue is a FIFO ring buffer for envelopes awaiting transmission.
// It is lossy under pressure: when an enqueue would exceed capacity, the
// oldest entries are discarded so that only the most recent `retain`
// envelopes survive. Recency beats completeness during a long outage.
type outboundQueue struct {
	mu       sync.Mutex
	buf      []protocol.Envelope
	head     int // read position
	count    int
	capacity int
	retain   int

	totalQueued  int64
	totalDropped int64
}

// newOutboundQueue creates a queue with the given capacity and overflow
// retention count. retain must not exceed capacity.
func newOutboundQueue(capacity, retain int) *outboundQueue {
	if capacity < 1 {
		capacity = 1
	}
	if retain < 1 || retain > capacity {
		retain = capacity
	}
	return &outboundQueue{
		buf:      make([]protocol.Envelope, capacity),
		capacity: capacity,
		retain:   retain,
	}
}

// Push appends an envelope, evicting the oldest entries on overflow.
func (q *outboundQueue) Push(env protocol.Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.capacity {
		// Keep the most recent retain-1 entries plus the new one.
		drop := q.count - (q.retain - 1)
		q.head = (q.head + drop) % q.capacity
		q.count -= drop
		q.totalDropped += int64(drop)
	}

	q.buf[(q.head+q.count)%q.capacity] = env
	q.count++
	q.totalQueued++
}

// Drain removes and returns all queued envelopes in enqueue order.
func (q *outboundQueue) Drain() []protocol.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	out := make([]protocol.Envelope, q.count)
	for i := 0; i < len(out); i++ {
		out[i] = q.buf[q.head]
		q.buf[q.head] = protocol.Envelope{}
		q.head = (q.head + 1) % q.capacity
	}
	q.count = 0

	return out
}

// Len returns the number of queued envelopes.
func (q *outboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns the total number of envelopes evicted on overflow.
func (q *outboundQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalDropped
}
