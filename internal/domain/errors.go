package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего владельца заказа (ни пользователь, ни гость).
	ErrOwnerRequired = errors.New("order owner is required")
	// Ошибка одновременного указания пользователя и гостя.
	ErrOwnerConflict = errors.New("order owner must be either user or guest, not both")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы в денежной раскладке.
	ErrAmountNegative = errors.New("amounts must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия subtotal и сумм позиций.
	ErrAmountMismatch = errors.New("order subtotal does not match items sum")
	// Ошибка нарушения инварианта total = subtotal + tax + shipping - discount.
	ErrTotalMismatch = errors.New("order total does not match amount breakdown")
	// Ошибка отсутствующего идентификатора заказа в платежах/резервах.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего product_id в резерве или стоке.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка некорректного количества в резерве.
	ErrReservationQtyInvalid = errors.New("reservation qty must be greater than zero")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStockNotFound возвращается, если складская запись по товару отсутствует.
	ErrStockNotFound = errors.New("stock not found")
	// ErrReservationNotFound возвращается при обновлении несохранённого резерва.
	ErrReservationNotFound = errors.New("stock reservation not found")
	// ErrCartNotFound возвращается, если корзина владельца не существует.
	ErrCartNotFound = errors.New("cart not found")
	// ErrGuestEmailInvalid — гостевой чекаут требует корректный контактный email.
	ErrGuestEmailInvalid = errors.New("guest checkout requires a valid email")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrEmptyCart — попытка оформить заказ из пустой корзины или с нулевой суммой.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock — доступного остатка не хватает на запрошенное количество.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStatusTransition — запрошенный переход отсутствует в таблице переходов.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrOrderNotCancelable — заказ уже ушёл дальше PROCESSING, отмена запрещена.
	ErrOrderNotCancelable = errors.New("order cannot be canceled in current status")
	// ErrOrderStateInvalid — операция не применима к текущему статусу заказа
	// (в том числе повторный ProcessPayment по уже обработанному заказу).
	ErrOrderStateInvalid = errors.New("order is not in a valid state for this operation")
	// ErrNoPaymentRecord — у заказа нет прикреплённого платежа.
	ErrNoPaymentRecord = errors.New("order has no payment record")
	// ErrShipmentStateInvalid — операция не применима к текущему статусу отгрузки.
	ErrShipmentStateInvalid = errors.New("shipment is not in a valid state for this operation")

	// ErrPaymentInvalid — запрос платежа не прошёл локальную валидацию, провайдер не вызывался.
	ErrPaymentInvalid = errors.New("payment request validation failed")
	// ErrPaymentDeclined — платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrGatewayUnavailable — транспортная ошибка или таймаут платёжного провайдера.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPaymentNotRefundable — возврат возможен только из статуса succeeded.
	ErrPaymentNotRefundable = errors.New("payment cannot be refunded in current status")

	// ErrInconsistentState — компенсация или подтверждение частично не выполнились
	// после уже зафиксированного шага; требуется вмешательство оператора.
	ErrInconsistentState = errors.New("inconsistent state detected")
	// ErrStockInvariantViolated — счётчики стока нарушили инвариант available+reserved <= total.
	ErrStockInvariantViolated = errors.New("stock invariant violated")
)

// InvalidTransitionError уточняет ErrInvalidStatusTransition исходным и целевым статусами.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}

// NewInvalidTransition создаёт типизированную ошибку перехода статуса.
func NewInvalidTransition(from, to OrderStatus) error {
	return &InvalidTransitionError{From: from, To: to}
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
