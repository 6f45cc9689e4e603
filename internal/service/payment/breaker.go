package payment

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker защищает платёжного провайдера от шторма запросов при его
// деградации. После maxFailures подряд провайдер на resetTimeout считается
// недоступным, вызовы отклоняются с ErrGatewayUnavailable без обращения к нему.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
	logger      *log.Entry
}

// NewCircuitBreaker создаёт circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "payment-circuit-breaker")
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		logger:       logger,
	}
}

// Execute выполняет операцию через circuit breaker.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if err := cb.allow(operation); err != nil {
		return err
	}

	err := fn()
	cb.record(operation, err)
	return err
}

func (cb *CircuitBreaker) allow(operation string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
		} else {
			return domain.ErrGatewayUnavailable
		}
	}
	return nil
}

func (cb *CircuitBreaker) record(operation string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()

		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("circuit breaker opened")
		}
		return
	}

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.failures = 0
}

// State возвращает текущее состояние breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// guardedGateway оборачивает gateway circuit breaker-ом.
// Отказы провайдера (decline) не считаются сбоями, breaker реагирует
// только на недоступность.
type guardedGateway struct {
	inner   domain.PaymentGateway
	breaker *CircuitBreaker
}

// GuardGateway возвращает gateway, защищённый circuit breaker-ом.
func GuardGateway(inner domain.PaymentGateway, breaker *CircuitBreaker) domain.PaymentGateway {
	return &guardedGateway{inner: inner, breaker: breaker}
}

func (g *guardedGateway) Charge(payment domain.Payment, req domain.PaymentRequest) (string, error) {
	if err := g.breaker.allow("charge"); err != nil {
		return "", err
	}
	txnID, err := g.inner.Charge(payment, req)
	g.breaker.record("charge", infraError(err))
	return txnID, err
}

func (g *guardedGateway) Refund(payment domain.Payment) error {
	if err := g.breaker.allow("refund"); err != nil {
		return err
	}
	err := g.inner.Refund(payment)
	g.breaker.record("refund", infraError(err))
	return err
}

// infraError отсеивает бизнес-отказы: breaker должен реагировать
// только на недоступность провайдера.
func infraError(err error) error {
	if err == nil ||
		errors.Is(err, domain.ErrPaymentDeclined) ||
		errors.Is(err, domain.ErrPaymentInvalid) ||
		errors.Is(err, domain.ErrPaymentNotRefundable) {
		return nil
	}
	return err
}

var _ domain.PaymentGateway = (*guardedGateway)(nil)
