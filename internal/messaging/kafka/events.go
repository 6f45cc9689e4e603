package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Checkout события
	EventTypeCheckoutStarted   EventType = "checkout.started"
	EventTypeCheckoutCompleted EventType = "checkout.completed"
	EventTypeCheckoutFailed    EventType = "checkout.failed"

	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderConfirmed     EventType = "order.confirmed"
	EventTypeOrderCanceled      EventType = "order.canceled"
	EventTypeOrderRefunded      EventType = "order.refunded"
	EventTypeOrderStatusChanged EventType = "order.status_changed"

	// Payment события
	EventTypePaymentSucceeded EventType = "payment.succeeded"
	EventTypePaymentFailed    EventType = "payment.failed"

	// Stock события
	EventTypeStockReserved EventType = "stock.reserved"
	EventTypeStockReleased EventType = "stock.released"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "commerce.checkout.events"
	TopicOrderEvents    = "commerce.order.events"
)

// CheckoutEvent представляет событие чекаута
type CheckoutEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType   EventType              `json:"event_type"`
	OrderID     string                 `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создает новое событие чекаута
func NewCheckoutEvent(eventType EventType, orderID string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, orderNumber, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      status,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}
