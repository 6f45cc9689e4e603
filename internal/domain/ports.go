package domain

// CreateOrderRequest — входные данные чекаута. Формат транспорта здесь не фиксируется.
type CreateOrderRequest struct {
	ShippingAddress      string
	BillingAddress       string
	Method               PaymentMethod
	GuestEmail           string
	ExpressShipping      bool
	DiscountMinor        int64
	DeliveryInstructions string
	PromoCode            string
}

// PaymentRequest — данные для списания. Провайдер-специфичные поля валидируются
// соответствующей gateway до обращения к провайдеру.
type PaymentRequest struct {
	AmountMinor int64
	Currency    string
	CardNumber  string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	PayPalEmail string
}

// PaymentGateway описывает способность провайдера списывать и возвращать деньги.
type PaymentGateway interface {
	// Charge выполняет списание и возвращает идентификатор транзакции провайдера.
	// Ошибки типизированы: ErrPaymentInvalid, ErrPaymentDeclined, ErrGatewayUnavailable.
	Charge(payment Payment, req PaymentRequest) (string, error)
	// Refund возвращает средства по успешно списанному платежу.
	Refund(payment Payment) error
}

// PricingPolicy вычисляет налог и стоимость доставки.
// Константы источника вынесены за интерфейс, чтобы политику можно было заменить.
type PricingPolicy interface {
	TaxMinor(subtotalMinor int64) int64
	ShippingMinor(express bool) int64
}

// NotificationKind — тип клиентского уведомления.
type NotificationKind string

const (
	NotificationOrderConfirmation NotificationKind = "order_confirmation"
	NotificationPaymentFailure    NotificationKind = "payment_failure"
	NotificationOrderCancellation NotificationKind = "order_cancellation"
	NotificationOrderProcessing   NotificationKind = "order_processing"
	NotificationOrderShipped      NotificationKind = "order_shipped"
	NotificationOrderDelivered    NotificationKind = "order_delivered"
	NotificationOrderCompleted    NotificationKind = "order_completed"
)

// Notification — уведомление клиенту о терминальном событии заказа.
type Notification struct {
	Kind        NotificationKind
	OrderNumber string
	// Recipient — userID или guest email, в зависимости от владельца заказа.
	Recipient string
	Reason    string
}

// NotificationSink доставляет уведомление. Ошибки доставки не влияют на сагу:
// диспетчер их логирует и глотает.
type NotificationSink interface {
	Send(n Notification) error
}
