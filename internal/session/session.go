package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fixitquick/realtime/internal/dispatch"
	"github.com/fixitquick/realtime/internal/protocol"
	"github.com/fixitquick/realtime/internal/transport"
)

// Manager owns the single real-time connection for an authenticated session.
//
// All public operations are total: they never panic or propagate transport
// errors for ordinary operational conditions. Send reports queued-vs-sent
// through its boolean result; everything else is observable via Stats,
// IsConnected, and ConnectionError.
type Manager struct {
	cfg      Config
	dialer   transport.Dialer
	tokens   TokenSource
	registry *dispatch.Registry
	logger   *slog.Logger

	queue *outboundQueue
	hb    *heartbeat

	mu                sync.Mutex
	ctx               context.Context
	state             State
	dialGen           uint64
	sock              transport.Socket
	rooms             map[string]struct{}
	reconnectAttempts int
	lastConnected     time.Time
	lastPong          time.Time
	quality           Quality
	connErr           string
	reconnectTimer    *time.Timer
	terminalNotified  bool
}

// NewManager creates a Connection Manager. A token source is required:
// unauthenticated sessions never get a socket. A nil dialer uses the
// gorilla-backed default.
func NewManager(cfg Config, dialer transport.Dialer, tokens TokenSource, logger *slog.Logger) (*Manager, error) {
	if tokens == nil {
		return nil, ErrTokenSourceRequired
	}
	if dialer == nil {
		dialer = transport.NewDialer(transport.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	m := &Manager{
		cfg:      cfg,
		dialer:   dialer,
		tokens:   tokens,
		registry: dispatch.NewRegistry(logger),
		logger:   logger,
		queue:    newOutboundQueue(cfg.QueueCapacity, cfg.QueueRetain),
		rooms:    make(map[string]struct{}),
		quality:  QualityDisconnected,
	}
	m.hb = newHeartbeat(cfg.HeartbeatInterval, cfg.HeartbeatGrace, m.sendPing, m.checkPong)

	return m, nil
}

// Connect establishes the connection. Idempotent: a call while the
// connection is open or already connecting is a no-op. The context is kept
// for the lifetime of the session and bounds automatic reconnects.
func (m *Manager) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	switch m.state {
	case StateOpen, StateConnecting:
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.ctx = ctx
	// Each dial attempt gets a generation token; Disconnect bumps the
	// generation so a dial that resolves afterwards cannot install a socket.
	m.dialGen++
	gen := m.dialGen
	m.mu.Unlock()

	url, err := transport.BuildURL(m.cfg.Origin, m.cfg.Path)
	if err != nil {
		// Not retryable: no origin-derived endpoint exists for this config.
		m.mu.Lock()
		m.state = StateClosed
		m.quality = QualityDisconnected
		m.connErr = "transport unsupported"
		m.mu.Unlock()
		m.logger.Error("realtime transport unavailable", "error", err)
		return fmt.Errorf("%w: %v", ErrTransportUnsupported, err)
	}

	sock, err := m.dialer.Dial(ctx, url, nil)

	m.mu.Lock()
	stale := gen != m.dialGen
	m.mu.Unlock()
	if stale {
		// Disconnect intervened while the dial was in flight.
		if sock != nil {
			sock.Close()
		}
		return err
	}

	if err != nil {
		m.logger.Warn("connect failed", "url", url, "error", err)
		m.setConnError(err.Error())
		m.handleDisconnect()
		return err
	}

	m.onOpen(ctx, sock, gen)
	return nil
}

// Disconnect cancels any pending reconnect, stops the heartbeat, and
// performs a normal closure. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	// Invalidate any dial still in flight.
	m.dialGen++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	sock := m.sock
	m.sock = nil
	if sock != nil {
		m.state = StateClosing
	}
	m.mu.Unlock()

	m.hb.Stop()

	if sock != nil {
		sock.Close()
	}

	m.mu.Lock()
	m.state = StateClosed
	m.quality = QualityDisconnected
	m.mu.Unlock()
}

// Send transmits an application message, or queues it while disconnected.
// The boolean is the sole synchronous signal: true means transmitted, false
// means deferred to the outbound queue (not lost).
func (m *Manager) Send(msgType string, data any) bool {
	env, err := protocol.NewEnvelope(msgType, data)
	if err != nil {
		m.logger.Warn("dropping unencodable message", "type", msgType, "error", err)
		return false
	}
	return m.sendOrQueue(env)
}

// Subscribe registers a callback for an inbound application event type and
// returns its unsubscribe function.
func (m *Manager) Subscribe(eventType string, fn dispatch.Handler) func() {
	return m.registry.Subscribe(eventType, fn)
}

// JoinRoom records intent to be joined to a room and, when connected,
// sends the join frame. Membership survives reconnects: every room in the
// set is re-joined after the queue flush on each open.
func (m *Manager) JoinRoom(roomID string) {
	m.mu.Lock()
	m.rooms[roomID] = struct{}{}
	sock, open := m.sock, m.state == StateOpen
	m.mu.Unlock()

	if open {
		m.sendControl(sock, protocol.TypeJoinRoom, protocol.RoomPayload{RoomID: roomID})
	}
}

// LeaveRoom removes the room from the set and, when connected, sends the
// leave frame. While disconnected no frame is owed: the server-side session
// is already gone.
func (m *Manager) LeaveRoom(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	sock, open := m.sock, m.state == StateOpen
	m.mu.Unlock()

	if open {
		m.sendControl(sock, protocol.TypeLeaveRoom, protocol.RoomPayload{RoomID: roomID})
	}
}

// IsConnected reports whether the connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

// ConnectionError returns the current connection error, or "" when none.
func (m *Manager) ConnectionError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connErr
}

// Stats returns a snapshot of connection statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		ReconnectAttempts: m.reconnectAttempts,
		LastConnected:     m.lastConnected,
		ConnectionQuality: m.quality,
		QueuedMessages:    m.queue.Len(),
	}
}

// onOpen installs the new socket and runs the open sequence: auth handshake
// first, then backlog flush, then room rejoin, then heartbeat. The socket is
// discarded when a Disconnect invalidated this dial generation.
func (m *Manager) onOpen(ctx context.Context, sock transport.Socket, gen uint64) {
	m.mu.Lock()
	if gen != m.dialGen {
		m.mu.Unlock()
		sock.Close()
		return
	}
	m.state = StateOpen
	m.sock = sock
	m.reconnectAttempts = 0
	now := time.Now()
	m.lastConnected = now
	m.lastPong = now
	m.quality = QualityGood
	m.connErr = ""
	m.terminalNotified = false
	m.mu.Unlock()

	m.logger.Info("realtime connected")

	go m.readLoop(sock)

	m.authenticate(ctx, sock)
	m.flushQueue()
	m.rejoinRooms(sock)
	m.hb.Start()
}

// authenticate fetches the short-lived token and sends it as the first
// envelope. Failure surfaces an auth error but keeps the socket open; the
// server decides whether to drop unauthenticated sessions.
func (m *Manager) authenticate(ctx context.Context, sock transport.Socket) {
	token, err := m.tokens.WSToken(ctx)
	if err != nil {
		m.logger.Warn("realtime token fetch failed", "error", err)
		m.setConnError("authentication failed: " + err.Error())
		return
	}

	if err := m.sendControl(sock, protocol.TypeAuth, protocol.AuthPayload{Token: token}); err != nil {
		m.logger.Warn("auth handshake send failed", "error", err)
		m.setConnError("authentication failed: " + err.Error())
	}
}

// readLoop pumps one socket until it ends. Stale sockets (replaced after a
// reconnect) are ignored when their close event finally arrives.
func (m *Manager) readLoop(sock transport.Socket) {
	for {
		select {
		case msg, ok := <-sock.Messages():
			if !ok {
				return
			}
			m.handleFrame(msg)

		case event := <-sock.Closed():
			m.mu.Lock()
			stale := m.sock != sock
			m.mu.Unlock()
			if stale {
				return
			}

			m.logger.Warn("connection closed",
				"code", event.Code,
				"reason", event.Reason,
				"error", event.Err,
			)
			m.handleDisconnect()
			return
		}
	}
}

// handleFrame parses one inbound frame. Control types are consumed here;
// everything else is fanned out to subscribers. A malformed frame is
// logged and dropped without disturbing the stream.
func (m *Manager) handleFrame(msg transport.Message) {
	env, err := protocol.Parse(msg.Data)
	if err != nil {
		m.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	switch env.Type {
	case protocol.TypeConnectionEstablished:
		m.logger.Debug("connection acknowledged by server")

	case protocol.TypeAuthSuccess:
		m.logger.Debug("realtime auth confirmed")
		m.setConnError("")

	case protocol.TypeAuthFailed:
		m.logger.Warn("realtime auth rejected")
		m.setConnError("authentication failed")

	case protocol.TypePong:
		m.mu.Lock()
		m.lastPong = time.Now()
		if m.state == StateOpen {
			m.quality = QualityGood
		}
		m.mu.Unlock()

	case protocol.TypeError:
		var payload protocol.ErrorPayload
		if err := unmarshalPayload(env.Data, &payload); err == nil && payload.Message != "" {
			m.setConnError(payload.Message)
			m.logger.Warn("server error frame", "message", payload.Message)
		} else {
			m.setConnError("server error")
			m.logger.Warn("server error frame")
		}

	default:
		if m.cfg.FrameSink != nil {
			m.cfg.FrameSink.Record(env, msg.ReceivedAt)
		}
		m.registry.Dispatch(env.Type, env.Data)
	}
}

// handleDisconnect transitions to closed and schedules the next reconnect,
// or surfaces the terminal failure once the budget is spent.
func (m *Manager) handleDisconnect() {
	m.hb.Stop()

	m.mu.Lock()
	m.state = StateClosed
	m.sock = nil
	m.quality = QualityDisconnected

	if m.reconnectAttempts < m.cfg.MaxReconnectAttempts {
		attempt := m.reconnectAttempts
		m.reconnectAttempts++
		delay := backoffDelay(m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay, attempt)
		ctx := m.ctx
		m.reconnectTimer = time.AfterFunc(delay, func() {
			if ctx != nil && ctx.Err() != nil {
				return
			}
			m.Connect(ctx)
		})
		m.mu.Unlock()

		m.logger.Info("reconnect scheduled", "attempt", attempt+1, "delay", delay)
		return
	}

	notify := !m.terminalNotified
	m.terminalNotified = true
	m.connErr = "connection failed"
	cb := m.cfg.OnConnectionFailed
	attempts := m.reconnectAttempts
	m.mu.Unlock()

	if notify {
		m.logger.Error("reconnect budget exhausted", "attempts", attempts)
		if cb != nil {
			cb(ErrConnectionFailed)
		}
	}
}

// backoffDelay returns min(base * 2^attempt, max).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// flushQueue drains the backlog oldest-first. Entries that fail to send
// (connection dropped mid-flush) are re-queued, not lost.
func (m *Manager) flushQueue() {
	backlog := m.queue.Drain()
	if len(backlog) == 0 {
		return
	}

	sent := 0
	for _, env := range backlog {
		m.mu.Lock()
		sock, open := m.sock, m.state == StateOpen
		m.mu.Unlock()

		if !open || sock == nil {
			m.queue.Push(env)
			continue
		}
		if err := m.sendRaw(sock, env); err != nil {
			m.queue.Push(env)
			continue
		}
		sent++
	}

	m.logger.Debug("flushed backlog", "sent", sent, "requeued", len(backlog)-sent)
}

// rejoinRooms replays every room in the membership set. Runs after the
// queue flush: backlog first, presence second.
func (m *Manager) rejoinRooms(sock transport.Socket) {
	m.mu.Lock()
	rooms := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		rooms = append(rooms, id)
	}
	m.mu.Unlock()

	for _, id := range rooms {
		m.sendControl(sock, protocol.TypeJoinRoom, protocol.RoomPayload{RoomID: id})
	}

	if len(rooms) > 0 {
		m.logger.Debug("rejoined rooms", "count", len(rooms))
	}
}

func (m *Manager) sendOrQueue(env protocol.Envelope) bool {
	m.mu.Lock()
	sock, open := m.sock, m.state == StateOpen
	m.mu.Unlock()

	if !open || sock == nil {
		m.queue.Push(env)
		return false
	}

	if err := m.sendRaw(sock, env); err != nil {
		m.logger.Warn("send failed, queuing", "type", env.Type, "error", err)
		// A write error on an open socket is an early liveness signal.
		m.mu.Lock()
		if m.state == StateOpen {
			m.quality = QualityPoor
		}
		m.mu.Unlock()
		m.queue.Push(env)
		return false
	}
	return true
}

func (m *Manager) sendControl(sock transport.Socket, msgType string, payload any) error {
	env, err := protocol.NewControlEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return m.sendRaw(sock, env)
}

func (m *Manager) sendRaw(sock transport.Socket, env protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return sock.Send(data)
}

// sendPing is the heartbeat probe.
func (m *Manager) sendPing() {
	m.mu.Lock()
	sock, open := m.sock, m.state == StateOpen
	m.mu.Unlock()

	if !open || sock == nil {
		return
	}
	m.sendControl(sock, protocol.TypePing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
}

// checkPong is the heartbeat follow-up: downgrade quality when the last
// pong is overdue. Never touches a closed connection.
func (m *Manager) checkPong() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOpen {
		return
	}
	if time.Since(m.lastPong) > m.cfg.PongTimeout {
		m.quality = QualityPoor
	}
}

func (m *Manager) setConnError(msg string) {
	m.mu.Lock()
	m.connErr = msg
	m.mu.Unlock()
}

func unmarshalPayload(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(data, v)
}
