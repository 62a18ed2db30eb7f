package session

import (
	"sync"
	"time"
)

// heartbeat probes connection liveness while the session is open.
//
// Every interval it invokes sendPing, then arms a follow-up check that
// fires after grace. The check downgrades quality when the last pong is
// older than the configured threshold. Stop cancels the ticker and any
// pending follow-up so nothing fires after the connection closes.
type heartbeat struct {
	interval time.Duration
	grace    time.Duration

	sendPing  func()
	checkPong func()

	mu         sync.Mutex
	stop       chan struct{}
	graceTimer *time.Timer
}

func newHeartbeat(interval, grace time.Duration, sendPing, checkPong func()) *heartbeat {
	return &heartbeat{
		interval:  interval,
		grace:     grace,
		sendPing:  sendPing,
		checkPong: checkPong,
	}
}

// Start begins the probe loop. No-op if already running.
func (h *heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		return
	}
	stop := make(chan struct{})
	h.stop = stop

	go h.run(stop)
}

// Stop cancels the probe loop and any pending follow-up check. Idempotent.
func (h *heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop == nil {
		return
	}
	close(h.stop)
	h.stop = nil

	if h.graceTimer != nil {
		h.graceTimer.Stop()
		h.graceTimer = nil
	}
}

func (h *heartbeat) run(stop chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.sendPing()
			h.armCheck(stop)
		}
	}
}

func (h *heartbeat) armCheck(stop chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Stopped between tick and arm; do not schedule against a dead session.
	select {
	case <-stop:
		return
	default:
	}

	if h.graceTimer != nil {
		h.graceTimer.Stop()
	}
	h.graceTimer = time.AfterFunc(h.grace, h.checkPong)
}
