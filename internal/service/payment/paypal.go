package payment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// PayPalGateway — адаптер кошелькового провайдера.
type PayPalGateway struct {
	logger *log.Entry
}

// NewPayPalGateway создаёт PayPal gateway.
func NewPayPalGateway(logger *log.Entry) *PayPalGateway {
	if logger == nil {
		logger = log.WithField("component", "paypal-gateway")
	}
	return &PayPalGateway{logger: logger}
}

// Charge валидирует аккаунт и выполняет списание.
func (g *PayPalGateway) Charge(payment domain.Payment, req domain.PaymentRequest) (string, error) {
	if !strings.Contains(req.PayPalEmail, "@") {
		return "", fmt.Errorf("invalid paypal account email: %w", domain.ErrPaymentInvalid)
	}
	if req.AmountMinor <= 0 {
		return "", fmt.Errorf("charge amount must be positive: %w", domain.ErrPaymentInvalid)
	}

	txnID := "pp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.logger.WithFields(log.Fields{
		"payment_ref":  payment.Reference,
		"amount_minor": req.AmountMinor,
		"currency":     req.Currency,
	}).Info("paypal charge succeeded")
	return txnID, nil
}

// Refund возвращает средства на аккаунт PayPal.
func (g *PayPalGateway) Refund(payment domain.Payment) error {
	if payment.ProviderTxnID == "" {
		return fmt.Errorf("missing provider transaction id: %w", domain.ErrPaymentNotRefundable)
	}
	g.logger.WithFields(log.Fields{
		"payment_ref":  payment.Reference,
		"provider_txn": payment.ProviderTxnID,
	}).Info("paypal refund succeeded")
	return nil
}

var _ domain.PaymentGateway = (*PayPalGateway)(nil)
