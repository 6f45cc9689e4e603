package memory

import (
	"sort"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// reservationRepositoryInMemory — представление резервов поверх общего Store.
// Создание резервов идёт через OrderRepository.Create вместе с заказом.
type reservationRepositoryInMemory struct {
	store *Store
}

// NewReservationRepository возвращает in-memory репозиторий резервов.
func NewReservationRepository(store *Store) domain.ReservationRepository {
	return &reservationRepositoryInMemory{store: store}
}

// ListByOrder возвращает все резервы заказа в стабильном порядке.
func (r *reservationRepositoryInMemory) ListByOrder(orderID string) ([]domain.StockReservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.StockReservation, 0)
	for _, res := range r.store.reservations {
		if res.OrderID == orderID {
			result = append(result, res)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListExpired возвращает активные резервы с истёкшим сроком, старые сначала.
func (r *reservationRepositoryInMemory) ListExpired(before time.Time, limit int) ([]domain.StockReservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.StockReservation, 0)
	for _, res := range r.store.reservations {
		if res.Status != domain.ReservationStatusActive {
			continue
		}
		if res.ExpiresAt.IsZero() || !res.ExpiresAt.Before(before) {
			continue
		}
		result = append(result, res)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpiresAt.Equal(result[j].ExpiresAt) {
			return result[i].ExpiresAt.Before(result[j].ExpiresAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Update перезаписывает резерв или возвращает ErrReservationNotFound.
func (r *reservationRepositoryInMemory) Update(reservation domain.StockReservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.reservations[reservation.ID]; !ok {
		return domain.ErrReservationNotFound
	}
	r.store.reservations[reservation.ID] = reservation
	return nil
}

var _ domain.ReservationRepository = (*reservationRepositoryInMemory)(nil)
