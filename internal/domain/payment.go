package domain

import "time"

// PaymentStatus описывает состояние платежа в системе.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан вместе с заказом, списание не выполнялось.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusProcessing — запрос отправлен провайдеру, ответа ещё нет.
	PaymentStatusProcessing PaymentStatus = "processing"
	// PaymentStatusSucceeded — провайдер подтвердил списание.
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	// PaymentStatusFailed — провайдер отклонил платёж или произошла ошибка.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusCanceled — платёж отменён до списания.
	PaymentStatusCanceled PaymentStatus = "canceled"
	// PaymentStatusRefunded — деньги возвращены клиенту полностью.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusPartiallyRefunded — возвращена часть суммы.
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentMethod — способ оплаты, выбранный клиентом.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
)

// PaymentProvider — закрытое множество платёжных провайдеров.
// Диспетчеризация идёт через реестр, собираемый на старте, а не по строковым ключам.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderPayPal PaymentProvider = "paypal"
)

// ProviderForMethod выбирает провайдера по способу оплаты.
func ProviderForMethod(method PaymentMethod) (PaymentProvider, bool) {
	switch method {
	case PaymentMethodCreditCard, PaymentMethodDebitCard:
		return PaymentProviderStripe, true
	case PaymentMethodPayPal:
		return PaymentProviderPayPal, true
	default:
		return "", false
	}
}

// Payment описывает платёж, связанный с заказом. У заказа не более одного платежа.
type Payment struct {
	ID      string
	OrderID string
	// Reference — уникальный внутренний референс вида PAY-XXXX.
	Reference   string
	Provider    PaymentProvider
	Method      PaymentMethod
	AmountMinor int64
	Currency    string
	Status      PaymentStatus
	// ProviderTxnID может быть пустым, если провайдер не вернул идентификатор.
	ProviderTxnID string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        time.Time
	RefundedAt    time.Time
}

// CanBeRefunded разрешает возврат только по успешно списанному платежу.
func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentStatusSucceeded
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if p.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}

	return errs
}
