package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// Service управляет жизненным циклом заказа: валидирует переходы статусов
// по закрытой таблице и переживает гонки записи через optimistic locking.
type Service struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository, timeline domain.TimelineRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		orders:   orders,
		timeline: timeline,
		logger:   logger,
	}
}

// Get возвращает заказ по внутреннему идентификатору.
func (s *Service) Get(id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	return s.orders.Get(id)
}

// GetByNumber возвращает заказ по клиентскому номеру вида ORD-XXXX.
func (s *Service) GetByNumber(number string) (domain.Order, error) {
	if number == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	return s.orders.GetByNumber(number)
}

// ListByUser возвращает заказы пользователя, новые сначала.
func (s *Service) ListByUser(userID string, limit int) ([]domain.Order, error) {
	return s.orders.ListByUser(userID, limit)
}

// ListByStatus возвращает заказы в заданном статусе.
func (s *Service) ListByStatus(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return s.orders.ListByStatus(status, limit)
}

// Timeline возвращает ленту событий заказа в хронологическом порядке.
func (s *Service) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	return s.timeline.List(orderID)
}

// UpdateStatus переводит заказ в новый статус, проверяя переход по таблице.
// Version conflict обрабатывается перезагрузкой заказа и повтором с exponential
// backoff; после перезагрузки переход валидируется заново.
func (s *Service) UpdateStatus(order *domain.Order, newStatus domain.OrderStatus) error {
	if order.Status == newStatus {
		return nil
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return domain.NewInvalidTransition(order.Status, newStatus)
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		previousStatus := order.Status
		order.Status = newStatus
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := s.orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					s.logger.WithError(loadErr).WithField("order_id", order.ID).Error("failed to reload order after conflict")
					return loadErr
				}
				*order = fresh

				// Конкурент мог успеть перевести заказ сам.
				if order.Status == newStatus {
					return nil
				}
				if !order.Status.CanTransitionTo(newStatus) {
					return domain.NewInvalidTransition(order.Status, newStatus)
				}

				delay := baseDelay * time.Duration(1<<uint(attempt))
				time.Sleep(delay)
				continue
			}

			order.Status = previousStatus
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return err
		}

		order.Version = prevVersion + 1
		s.appendStatusEvent(order, previousStatus)
		return nil
	}

	return domain.ErrOrderVersionConflict
}

// SaveWithRetry сохраняет заказ целиком с той же retry-семантикой, что и
// UpdateStatus. mutate применяется заново к свежей копии после каждого конфликта.
func (s *Service) SaveWithRetry(order *domain.Order, mutate func(*domain.Order)) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		mutate(order)
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := s.orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					return fmt.Errorf("reload order after conflict: %w", loadErr)
				}
				*order = fresh

				delay := baseDelay * time.Duration(1<<uint(attempt))
				time.Sleep(delay)
				continue
			}
			return err
		}

		order.Version = prevVersion + 1
		return nil
	}

	return domain.ErrOrderVersionConflict
}

func (s *Service) appendStatusEvent(order *domain.Order, from domain.OrderStatus) {
	if s.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		Event:      domain.TimelineStatusChanged,
		FromStatus: from,
		ToStatus:   order.Status,
		CreatedAt:  order.UpdatedAt,
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    event.Event,
		}).Warn("append timeline event failed")
	}
}
