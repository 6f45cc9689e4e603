package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// Service диспетчеризует платежи по провайдерам. Реестр собирается на старте,
// способ оплаты определяет провайдера через domain.ProviderForMethod.
type Service struct {
	gateways map[domain.PaymentProvider]domain.PaymentGateway
	logger   *log.Entry
}

// NewService создаёт платёжный сервис с пустым реестром провайдеров.
func NewService(logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "payment-service")
	}
	return &Service{
		gateways: make(map[domain.PaymentProvider]domain.PaymentGateway),
		logger:   logger,
	}
}

// NewDefaultService создаёт сервис со стандартными провайдерами,
// каждый за своим circuit breaker-ом.
func NewDefaultService(logger *log.Entry) *Service {
	svc := NewService(logger)

	breakerTimeout := 30 * time.Second
	stripeBreaker := NewCircuitBreaker(5, breakerTimeout, nil)
	paypalBreaker := NewCircuitBreaker(5, breakerTimeout, nil)

	svc.Register(domain.PaymentProviderStripe, GuardGateway(NewStripeGateway(nil), stripeBreaker))
	svc.Register(domain.PaymentProviderPayPal, GuardGateway(NewPayPalGateway(nil), paypalBreaker))
	return svc
}

// Register добавляет провайдера в реестр.
func (s *Service) Register(provider domain.PaymentProvider, gateway domain.PaymentGateway) {
	s.gateways[provider] = gateway
}

// CreatePending создаёт платёж в статусе pending: списание будет выполнено
// отдельным шагом после сохранения заказа.
func (s *Service) CreatePending(orderID string, method domain.PaymentMethod, amountMinor int64, currency string) (domain.Payment, error) {
	provider, ok := domain.ProviderForMethod(method)
	if !ok {
		return domain.Payment{}, fmt.Errorf("unsupported payment method %q: %w", method, domain.ErrPaymentInvalid)
	}
	if amountMinor <= 0 {
		return domain.Payment{}, domain.ErrAmountNegative
	}
	if currency == "" {
		return domain.Payment{}, domain.ErrCurrencyRequired
	}

	now := time.Now().UTC()
	return domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Reference:   newPaymentReference(),
		Provider:    provider,
		Method:      method,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Process выполняет списание по платежу. Мутирует payment по результату:
// succeeded с provider txn id либо failed с причиной. Возвращённая ошибка
// типизирована для выбора компенсации вызывающей стороной.
func (s *Service) Process(payment *domain.Payment, req domain.PaymentRequest) error {
	if payment.Status != domain.PaymentStatusPending {
		// Уже обработанный платёж не списывается повторно.
		return fmt.Errorf("process payment in status %q: %w", payment.Status, domain.ErrPaymentInvalid)
	}

	gateway, ok := s.gateways[payment.Provider]
	if !ok {
		return fmt.Errorf("no gateway registered for provider %q: %w", payment.Provider, domain.ErrGatewayUnavailable)
	}

	if req.AmountMinor == 0 {
		req.AmountMinor = payment.AmountMinor
	}
	if req.Currency == "" {
		req.Currency = payment.Currency
	}
	if req.AmountMinor != payment.AmountMinor {
		return fmt.Errorf("charge amount does not match the order: %w", domain.ErrAmountMismatch)
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentStatusProcessing
	payment.UpdatedAt = now

	txnID, err := gateway.Charge(*payment, req)
	if err != nil {
		payment.Status = domain.PaymentStatusFailed
		payment.FailureReason = err.Error()
		payment.UpdatedAt = time.Now().UTC()
		s.logger.WithError(err).WithFields(log.Fields{
			"payment_ref": payment.Reference,
			"provider":    payment.Provider,
		}).Warn("payment charge failed")
		return err
	}

	payment.Status = domain.PaymentStatusSucceeded
	payment.ProviderTxnID = txnID
	payment.FailureReason = ""
	payment.PaidAt = time.Now().UTC()
	payment.UpdatedAt = payment.PaidAt
	return nil
}

// Refund возвращает средства по успешно списанному платежу.
func (s *Service) Refund(payment *domain.Payment) error {
	if !payment.CanBeRefunded() {
		return fmt.Errorf("payment in status %q: %w", payment.Status, domain.ErrPaymentNotRefundable)
	}

	gateway, ok := s.gateways[payment.Provider]
	if !ok {
		return fmt.Errorf("no gateway registered for provider %q: %w", payment.Provider, domain.ErrGatewayUnavailable)
	}

	if err := gateway.Refund(*payment); err != nil {
		s.logger.WithError(err).WithField("payment_ref", payment.Reference).Warn("payment refund failed")
		return err
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentStatusRefunded
	payment.RefundedAt = now
	payment.UpdatedAt = now
	return nil
}

// newPaymentReference генерирует внутренний референс вида PAY-XXXXXXXX.
func newPaymentReference() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:8])
}
