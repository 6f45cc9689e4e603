package domain

import "time"

// OrderStatus описывает жизненный цикл заказа от оформления до завершения.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, резервы взяты, оплата ещё не выполнена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — оплата прошла, заказ подтверждён.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing — заказ собирается на складе.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан перевозчику.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCompleted — заказ закрыт, возврат больше невозможен.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCanceled — заказ отменён до отгрузки.
	OrderStatusCanceled OrderStatus = "canceled"
	// OrderStatusFailed — оплата не прошла, заказ не состоялся.
	OrderStatusFailed OrderStatus = "failed"
	// OrderStatusRefunded — деньги возвращены клиенту после доставки.
	OrderStatusRefunded OrderStatus = "refunded"
)

// orderTransitions задаёт закрытую таблицу допустимых переходов статуса.
// Статусы, отсутствующие в таблице, терминальные.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCanceled, OrderStatusFailed},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted, OrderStatusRefunded},
}

// CanTransitionTo сообщает, разрешён ли переход из текущего статуса в to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal возвращает true для статусов без исходящих переходов.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderItem представляет одну позицию заказа, скопированную из корзины.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара из каталога.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// TotalMinor — сумма позиции: qty * unit price.
	TotalMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует заказ целиком: позиции, платёж, отгрузку и складские резервы.
// Владение эксклюзивное: агрегат сохраняется и загружается одной операцией.
type Order struct {
	ID          string
	OrderNumber string

	// Владелец: либо зарегистрированный пользователь, либо гость с email.
	// Поля взаимоисключающие.
	UserID     string
	GuestID    string
	GuestEmail string

	// Денежная раскладка в минимальных единицах.
	// Инвариант: TotalMinor = Subtotal + Tax + Shipping - Discount.
	SubtotalMinor int64
	TaxMinor      int64
	ShippingMinor int64
	DiscountMinor int64
	TotalMinor    int64

	Currency string
	Status   OrderStatus

	ShippingAddress string
	BillingAddress  string
	Notes           string

	Items        []OrderItem
	Payment      *Payment
	Shipment     *Shipment
	Reservations []StockReservation

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	CanceledAt   time.Time
	CancelReason string
}

// IsGuestOrder возвращает true для заказа без привязки к пользователю.
func (o *Order) IsGuestOrder() bool {
	return o.UserID == "" && o.GuestID != ""
}

// CanBeCanceled разрешает отмену только до передачи заказа перевозчику.
func (o *Order) CanBeCanceled() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	default:
		return false
	}
}

// CanBeRefunded разрешает возврат только после доставки.
func (o *Order) CanBeRefunded() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCompleted
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	switch {
	case o.UserID == "" && o.GuestID == "":
		errs = append(errs, ErrOwnerRequired)
	case o.UserID != "" && o.GuestID != "":
		errs = append(errs, ErrOwnerConflict)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.SubtotalMinor < 0 || o.TaxMinor < 0 || o.ShippingMinor < 0 || o.DiscountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем subtotal с суммой позиций: qty * unit price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if calc != o.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.TotalMinor != o.SubtotalMinor+o.TaxMinor+o.ShippingMinor-o.DiscountMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
