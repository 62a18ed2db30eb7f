package protocol

// Outbound control types sent by the client.
const (
	TypeAuth             = "auth"
	TypePing             = "ping"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypeSubscribeOrder   = "subscribe_order"
	TypeUnsubscribeOrder = "unsubscribe_order"
	TypeOrderStatus      = "order_status_update"
	TypeProviderLocation = "provider_location"
	TypeChatMessage      = "chat_message"
	TypeTypingIndicator  = "typing_indicator"
)

// Inbound control types consumed by the session layer, never forwarded.
const (
	TypeConnectionEstablished = "connection_established"
	TypeAuthSuccess           = "auth_success"
	TypeAuthFailed            = "auth_failed"
	TypePong                  = "pong"
	TypeError                 = "error"
)

// Inbound application types forwarded to subscribers.
const (
	TypeOrderStatusUpdated     = "order_status_updated"
	TypeProviderLocationUpdate = "provider_location_update"
	TypeProviderAssigned       = "provider_assigned"
	TypeNotification           = "notification"
	TypeNewOrderNotification   = "new_order_notification"
	TypeDashboardMetricsUpdate = "dashboard_metrics_update"
	TypeOrderMetricsUpdate     = "order_metrics_update"
)

// IsControl reports whether the type is handled internally by the session.
func IsControl(msgType string) bool {
	switch msgType {
	case TypeConnectionEstablished, TypeAuthSuccess, TypeAuthFailed, TypePong, TypeError:
		return true
	}
	return false
}

// AuthPayload carries the short-lived real-time token.
type AuthPayload struct {
	Token string `json:"token"`
}

// PingPayload carries the client send time for round-trip tracking.
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// RoomPayload identifies a room for join/leave frames.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// OrderPayload identifies an order for subscribe/unsubscribe frames.
type OrderPayload struct {
	OrderID string `json:"orderId"`
}

// OrderStatusPayload reports a status change for an order.
type OrderStatusPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Notes   string `json:"notes,omitempty"`
}

// LocationPayload shares a provider position for an order.
type LocationPayload struct {
	OrderID   string  `json:"orderId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// ChatPayload is a chat message scoped to an order.
type ChatPayload struct {
	OrderID     string   `json:"orderId"`
	SenderID    string   `json:"senderId,omitempty"`
	Message     string   `json:"message"`
	MessageType string   `json:"messageType,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// TypingPayload signals typing activity in an order chat.
type TypingPayload struct {
	OrderID  string `json:"orderId"`
	UserID   string `json:"userId,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// ProviderAssignedPayload announces the provider matched to an order.
type ProviderAssignedPayload struct {
	OrderID      string `json:"orderId"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName,omitempty"`
}

// NotificationPayload is a push-style alert.
type NotificationPayload struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// ErrorPayload is the content of a server-side error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}
