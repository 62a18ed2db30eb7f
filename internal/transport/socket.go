package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send after the socket has closed.
var ErrNotConnected = errors.New("transport: not connected")

// Message wraps a raw inbound frame with its receive timestamp.
type Message struct {
	Data       []byte
	ReceivedAt time.Time
}

// CloseEvent carries the close code and reason observed when the peer
// closed the connection, or a zero code for local errors.
type CloseEvent struct {
	Code   int
	Reason string
	Err    error
}

// Socket is a single live WebSocket connection.
type Socket interface {
	// Send writes one text frame. Writes are serialized.
	Send(data []byte) error

	// Messages returns the channel of inbound frames.
	Messages() <-chan Message

	// Closed returns a channel that receives exactly one CloseEvent when
	// the connection ends for any reason other than a local Close call.
	Closed() <-chan CloseEvent

	// Close performs a normal closure. Idempotent.
	Close() error
}

// Dialer establishes Sockets. The session layer owns exactly one at a time.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Socket, error)
}

// Config tunes the gorilla-backed dialer.
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int // inbound message channel depth
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// wsDialer dials real connections via gorilla/websocket.
type wsDialer struct {
	cfg Config
}

// NewDialer creates a Dialer backed by gorilla/websocket.
func NewDialer(cfg Config) Dialer {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}
	return &wsDialer{cfg: cfg}
}

func (d *wsDialer) Dial(ctx context.Context, url string, header http.Header) (Socket, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	s := &socket{
		cfg:      d.cfg,
		conn:     conn,
		messages: make(chan Message, d.cfg.BufferSize),
		closed:   make(chan CloseEvent, 1),
		done:     make(chan struct{}),
	}

	// Answer protocol-level pings so intermediaries keep the connection up.
	// Application liveness uses JSON ping/pong envelopes, not WS control frames.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	go s.readLoop()

	return s, nil
}

// socket implements Socket over a gorilla connection.
type socket struct {
	cfg  Config
	conn *websocket.Conn

	messages chan Message
	closed   chan CloseEvent
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *socket) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrNotConnected
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *socket) Messages() <-chan Message {
	return s.messages
}

func (s *socket) Closed() <-chan CloseEvent {
	return s.closed
}

func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// readLoop pumps inbound frames until the connection ends.
func (s *socket) readLoop() {
	defer close(s.messages)

	for {
		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Local Close already signalled the session; stay quiet.
			select {
			case <-s.done:
				return
			default:
			}

			event := CloseEvent{Err: err}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				event.Code = closeErr.Code
				event.Reason = closeErr.Text
			}
			s.closed <- event
			return
		}

		select {
		case s.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-s.done:
			return
		}
	}
}
