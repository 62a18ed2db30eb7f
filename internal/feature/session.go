package feature

import (
	"github.com/fixitquick/realtime/internal/dispatch"
)

// Session is the slice of the Connection Manager the features depend on.
// Satisfied by session.Manager.
type Session interface {
	Send(msgType string, data any) bool
	Subscribe(eventType string, fn dispatch.Handler) func()
	JoinRoom(roomID string)
	LeaveRoom(roomID string)
}

// OrderRoom returns the room identifier scoping one order's events.
func OrderRoom(orderID string) string {
	return "order:" + orderID
}
