package feature

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fixitquick/realtime/internal/protocol"
)

const (
	// How long a peer stays in the typing set without a follow-up event.
	defaultTypingExpiry = 10 * time.Second
	// Idle window after which our own typing signal is auto-cancelled.
	defaultTypingIdle = 3 * time.Second
)

// ChatOption configures a ChatSession.
type ChatOption func(*ChatSession)

// WithTypingExpiry overrides the peer typing-indicator expiry window.
func WithTypingExpiry(d time.Duration) ChatOption {
	return func(c *ChatSession) { c.typingExpiry = d }
}

// WithTypingIdle overrides the own-typing idle auto-cancel window.
func WithTypingIdle(d time.Duration) ChatOption {
	return func(c *ChatSession) { c.typingIdle = d }
}

// ChatSession is the live chat for one order. Message history is loaded
// over REST by the caller; this type handles only the real-time tail:
// incoming messages, the unread counter, and typing indicators in both
// directions.
type ChatSession struct {
	orderID string
	userID  string
	sess    Session
	logger  *slog.Logger

	typingExpiry time.Duration
	typingIdle   time.Duration

	mu        sync.Mutex
	stopped   bool
	messages  []protocol.ChatPayload
	unread    int
	typing    map[string]*time.Timer
	ownTimer  *time.Timer
	ownTyping bool

	unsubs []func()
}

// NewChatSession opens the chat for orderID on behalf of userID. Call Stop
// when done.
func NewChatSession(sess Session, orderID, userID string, logger *slog.Logger, opts ...ChatOption) *ChatSession {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ChatSession{
		orderID:      orderID,
		userID:       userID,
		sess:         sess,
		logger:       logger.With("order_id", orderID),
		typingExpiry: defaultTypingExpiry,
		typingIdle:   defaultTypingIdle,
		typing:       make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.unsubs = []func(){
		sess.Subscribe(protocol.TypeChatMessage, c.onMessage),
		sess.Subscribe(protocol.TypeTypingIndicator, c.onTyping),
	}
	sess.JoinRoom(OrderRoom(orderID))

	return c
}

// Stop tears the chat down: subscriptions are removed synchronously, every
// pending typing timer is cancelled so nothing fires against stopped state,
// and the room is left.
func (c *ChatSession) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	unsubs := c.unsubs
	c.unsubs = nil
	for _, timer := range c.typing {
		timer.Stop()
	}
	c.typing = map[string]*time.Timer{}
	if c.ownTimer != nil {
		c.ownTimer.Stop()
		c.ownTimer = nil
	}
	wasTyping := c.ownTyping
	c.ownTyping = false
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if wasTyping {
		c.sendTyping(false)
	}
	c.sess.LeaveRoom(OrderRoom(c.orderID))
}

// Send transmits a chat message authored by the current user. Sending also
// cancels any outstanding own-typing signal.
func (c *ChatSession) Send(message string, attachments ...string) bool {
	c.cancelOwnTyping()
	return c.sess.Send(protocol.TypeChatMessage, protocol.ChatPayload{
		OrderID:     c.orderID,
		SenderID:    c.userID,
		Message:     message,
		MessageType: "text",
		Attachments: attachments,
	})
}

// NotifyTyping signals that the current user is typing. The signal
// auto-cancels after the idle window unless refreshed by another call.
func (c *ChatSession) NotifyTyping() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	announce := !c.ownTyping
	c.ownTyping = true
	if c.ownTimer != nil {
		c.ownTimer.Stop()
	}
	c.ownTimer = time.AfterFunc(c.typingIdle, func() { c.cancelOwnTyping() })
	c.mu.Unlock()

	if announce {
		c.sendTyping(true)
	}
}

// StopTyping cancels the current user's typing signal immediately.
func (c *ChatSession) StopTyping() {
	c.cancelOwnTyping()
}

// Unread returns the count of messages from other users since the last
// MarkRead.
func (c *ChatSession) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// MarkRead resets the unread counter.
func (c *ChatSession) MarkRead() {
	c.mu.Lock()
	c.unread = 0
	c.mu.Unlock()
}

// Messages returns a copy of the messages received during this session.
func (c *ChatSession) Messages() []protocol.ChatPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.ChatPayload, len(c.messages))
	copy(out, c.messages)
	return out
}

// TypingUsers returns the users currently typing, sorted for stable output.
func (c *ChatSession) TypingUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	users := make([]string, 0, len(c.typing))
	for id := range c.typing {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func (c *ChatSession) onMessage(data json.RawMessage) {
	var payload protocol.ChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("bad chat payload", "error", err)
		return
	}
	if payload.OrderID != c.orderID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.messages = append(c.messages, payload)
	if payload.SenderID != "" && payload.SenderID != c.userID {
		c.unread++
	}

	// A message from a peer supersedes their typing indicator.
	if timer, ok := c.typing[payload.SenderID]; ok {
		timer.Stop()
		delete(c.typing, payload.SenderID)
	}
}

func (c *ChatSession) onTyping(data json.RawMessage) {
	var payload protocol.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("bad typing payload", "error", err)
		return
	}
	if payload.OrderID != c.orderID || payload.UserID == c.userID || payload.UserID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	if timer, ok := c.typing[payload.UserID]; ok {
		timer.Stop()
		delete(c.typing, payload.UserID)
	}
	if payload.IsTyping {
		userID := payload.UserID
		c.typing[userID] = time.AfterFunc(c.typingExpiry, func() { c.expireTyping(userID) })
	}
}

// expireTyping removes a peer whose indicator was never followed up.
func (c *ChatSession) expireTyping(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	delete(c.typing, userID)
}

// cancelOwnTyping clears the outgoing typing state and, when a signal was
// active, sends the stopped-typing frame.
func (c *ChatSession) cancelOwnTyping() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	wasTyping := c.ownTyping
	c.ownTyping = false
	if c.ownTimer != nil {
		c.ownTimer.Stop()
		c.ownTimer = nil
	}
	c.mu.Unlock()

	if wasTyping {
		c.sendTyping(false)
	}
}

func (c *ChatSession) sendTyping(isTyping bool) {
	c.sess.Send(protocol.TypeTypingIndicator, protocol.TypingPayload{
		OrderID:  c.orderID,
		UserID:   c.userID,
		IsTyping: isTyping,
	})
}
