package archive

import (
	"sync"
	"time"
)

// Config contains settings for the frame archiver.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the intake buffer.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		BufferSize:    1024,
	}
}

// Metrics counts archiver activity.
type Metrics struct {
	Received  int64
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// frameRow is one row of the realtime_frames table.
type frameRow struct {
	MessageID  string
	FrameType  string
	EventTs    int64 // Milliseconds, from the envelope
	ReceivedAt int64 // Microseconds, local receive time
	Payload    []byte
}

// frameBuffer is a mutex-guarded ring that grows when it nears capacity,
// so Record never blocks the session's read loop.
type frameBuffer struct {
	mu       sync.Mutex
	buf      []frameRow
	head     int
	tail     int
	count    int
	capacity int
	closed   bool
}

func newFrameBuffer(initialCapacity int) *frameBuffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &frameBuffer{
		buf:      make([]frameRow, initialCapacity),
		capacity: initialCapacity,
	}
}

// Push adds a row, growing the ring at 70% occupancy. Returns false when
// the buffer is closed.
func (b *frameBuffer) Push(row frameRow) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = row
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	return true
}

// TryPop removes the oldest row without blocking.
func (b *frameBuffer) TryPop() (frameRow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return frameRow{}, false
	}

	row := b.buf[b.head]
	b.buf[b.head] = frameRow{}
	b.head = (b.head + 1) % b.capacity
	b.count--
	return row, true
}

// Close rejects further pushes. Buffered rows remain poppable.
func (b *frameBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Len returns the number of buffered rows.
func (b *frameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// grow doubles capacity, preserving order. Caller holds the lock.
func (b *frameBuffer) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]frameRow, newCapacity)
	for i := 0; i < b.count; i++ {
		newBuf[i] = b.buf[(b.head+i)%b.capacity]
	}
	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
}
