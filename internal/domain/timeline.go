package domain

import "time"

// TimelineEvent — запись аудита по заказу: что произошло и когда.
// Лента только дописывается, записи не изменяются и не удаляются.
type TimelineEvent struct {
	ID      string
	OrderID string
	// Event — машинно-читаемый код события, например "order_created" или "payment_failed".
	Event string
	// FromStatus и ToStatus заполняются для событий перехода статуса.
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Detail     string
	CreatedAt  time.Time
}

// Коды событий ленты заказа.
const (
	TimelineOrderCreated       = "order_created"
	TimelineStockReserved      = "stock_reserved"
	TimelineStockReleased      = "stock_released"
	TimelineStockSold          = "stock_sold"
	TimelinePaymentSucceeded   = "payment_succeeded"
	TimelinePaymentFailed      = "payment_failed"
	TimelinePaymentRefunded    = "payment_refunded"
	TimelineShipmentDispatched = "shipment_dispatched"
	TimelineShipmentFailed     = "shipment_failed"
	TimelineStatusChanged      = "status_changed"
	TimelineOrderCanceled      = "order_canceled"
	TimelineReservationExpired = "reservation_expired"
)
