package payment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// declinePrefix — тестовый префикс карты, который провайдер всегда отклоняет.
const declinePrefix = "400000"

// minCardDigits — минимальная длина номера карты.
const minCardDigits = 13

// StripeGateway — адаптер карточного провайдера. Сетевых вызовов нет,
// правила валидации и отказов повторяют тестовый режим провайдера.
type StripeGateway struct {
	logger *log.Entry
}

// NewStripeGateway создаёт карточный gateway.
func NewStripeGateway(logger *log.Entry) *StripeGateway {
	if logger == nil {
		logger = log.WithField("component", "stripe-gateway")
	}
	return &StripeGateway{logger: logger}
}

// Charge валидирует карточные данные и выполняет списание.
func (g *StripeGateway) Charge(payment domain.Payment, req domain.PaymentRequest) (string, error) {
	card := strings.ReplaceAll(req.CardNumber, " ", "")

	if len(card) < minCardDigits {
		return "", fmt.Errorf("card number too short: %w", domain.ErrPaymentInvalid)
	}
	if req.ExpiryMonth == "" || req.ExpiryYear == "" {
		return "", fmt.Errorf("card expiry is required: %w", domain.ErrPaymentInvalid)
	}
	if req.CVV == "" {
		return "", fmt.Errorf("card cvv is required: %w", domain.ErrPaymentInvalid)
	}
	if req.AmountMinor <= 0 {
		return "", fmt.Errorf("charge amount must be positive: %w", domain.ErrPaymentInvalid)
	}

	if strings.HasPrefix(card, declinePrefix) {
		g.logger.WithField("payment_ref", payment.Reference).Info("card declined by provider")
		return "", fmt.Errorf("card declined: %w", domain.ErrPaymentDeclined)
	}

	txnID := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.logger.WithFields(log.Fields{
		"payment_ref":  payment.Reference,
		"amount_minor": req.AmountMinor,
		"currency":     req.Currency,
	}).Info("card charge succeeded")
	return txnID, nil
}

// Refund возвращает средства по карточному платежу.
func (g *StripeGateway) Refund(payment domain.Payment) error {
	if payment.ProviderTxnID == "" {
		return fmt.Errorf("missing provider transaction id: %w", domain.ErrPaymentNotRefundable)
	}
	g.logger.WithFields(log.Fields{
		"payment_ref":  payment.Reference,
		"provider_txn": payment.ProviderTxnID,
	}).Info("card refund succeeded")
	return nil
}

var _ domain.PaymentGateway = (*StripeGateway)(nil)
