package payment

import "github.com/aabdeab/para-ecommerce/internal/domain"

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	ChargeTxnID string
	ChargeErr   error
	RefundErr   error

	ChargeCalls int
	RefundCalls int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{ChargeTxnID: "txn_mock"}
}

// Charge возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Charge(payment domain.Payment, req domain.PaymentRequest) (string, error) {
	m.ChargeCalls++
	if m.ChargeErr != nil {
		return "", m.ChargeErr
	}
	return m.ChargeTxnID, nil
}

// Refund возвращает настроенный результат и считает вызовы.
func (m *MockGateway) Refund(payment domain.Payment) error {
	m.RefundCalls++
	return m.RefundErr
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
