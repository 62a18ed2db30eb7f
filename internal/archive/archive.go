package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixitquick/realtime/internal/protocol"
)

// Archiver consumes forwarded frames from the session layer and writes
// them to the realtime_frames table in batches. It satisfies
// session.FrameSink.
type Archiver struct {
	cfg    Config
	logger *slog.Logger

	// Intake from the session's frame tap
	input *frameBuffer

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []frameRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewArchiver creates a frame archiver writing to db.
func NewArchiver(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Archiver{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  newFrameBuffer(cfg.BufferSize),
		batch:  make([]frameRow, 0, cfg.BatchSize),
	}
}

// Record accepts one forwarded frame. Never blocks: the intake buffer
// grows instead of applying backpressure to the session read loop.
func (a *Archiver) Record(env protocol.Envelope, receivedAt time.Time) {
	a.batchMu.Lock()
	a.metrics.Received++
	a.batchMu.Unlock()

	a.input.Push(transform(env, receivedAt))
}

// Start begins consuming recorded frames and writing batches.
func (a *Archiver) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.flushTicker = time.NewTicker(a.cfg.FlushInterval)

	a.wg.Add(1)
	go a.consumeLoop()

	a.wg.Add(1)
	go a.flushLoop()

	a.logger.Info("frame archiver started",
		"batch_size", a.cfg.BatchSize,
		"flush_interval", a.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the goroutines and performs a final flush.
func (a *Archiver) Stop(ctx context.Context) error {
	a.logger.Info("stopping frame archiver")

	a.input.Close()
	if a.cancel != nil {
		a.cancel()
	}
	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("frame archiver stopped")
	case <-ctx.Done():
		a.logger.Warn("frame archiver stop timed out")
	}

	// Drain whatever the consumer did not get to.
	for {
		row, ok := a.input.TryPop()
		if !ok {
			break
		}
		a.batchMu.Lock()
		a.batch = append(a.batch, row)
		a.batchMu.Unlock()
	}
	a.flush()

	return nil
}

// Stats returns current metrics.
func (a *Archiver) Stats() Metrics {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.metrics
}

func (a *Archiver) consumeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		default:
			row, ok := a.input.TryPop()
			if !ok {
				select {
				case <-a.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			a.handleRow(row)
		}
	}
}

func (a *Archiver) flushLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flush()
		}
	}
}

func (a *Archiver) handleRow(row frameRow) {
	a.batchMu.Lock()
	a.batch = append(a.batch, row)
	shouldFlush := len(a.batch) >= a.cfg.BatchSize
	a.batchMu.Unlock()

	if shouldFlush {
		a.flush()
	}
}

// transform converts an envelope to a frameRow. Frames without a server
// messageId get a local one so the dedup key is always populated.
func transform(env protocol.Envelope, receivedAt time.Time) frameRow {
	messageID := env.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return frameRow{
		MessageID:  messageID,
		FrameType:  env.Type,
		EventTs:    env.Timestamp,
		ReceivedAt: receivedAt.UnixMicro(),
		Payload:    []byte(env.Data),
	}
}

// flush writes the current batch to the database.
func (a *Archiver) flush() {
	a.batchMu.Lock()
	if len(a.batch) == 0 {
		a.batchMu.Unlock()
		return
	}
	batch := a.batch
	a.batch = make([]frameRow, 0, a.cfg.BatchSize)
	a.batchMu.Unlock()

	if a.db == nil {
		return
	}

	start := time.Now()

	conflicts, err := a.batchInsert(batch)
	if err != nil {
		a.logger.Error("batch insert failed", "error", err, "count", len(batch))
		a.batchMu.Lock()
		a.metrics.Errors++
		a.batchMu.Unlock()
		return
	}

	a.batchMu.Lock()
	a.metrics.Inserts += int64(len(batch) - conflicts)
	a.metrics.Conflicts += int64(conflicts)
	a.metrics.Flushes++
	a.batchMu.Unlock()

	a.logger.Debug("flushed frames",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (a *Archiver) batchInsert(rows []frameRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO realtime_frames (message_id, frame_type, event_ts, received_at, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (message_id) DO NOTHING
		`, r.MessageID, r.FrameType, r.EventTs, r.ReceivedAt, r.Payload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := a.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return conflicts, err
		}
		if tag.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
