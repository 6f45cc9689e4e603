package memory

import (
	"sort"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// orderRepositoryInMemory хранит заказы в общем Store.
// Резервы складируются отдельно и присоединяются к агрегату при чтении,
// по аналогии с отдельной таблицей в PostgreSQL.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create сохраняет агрегат целиком: заказ, позиции, платёж, отгрузку и резервы.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}

	cp := cloneOrder(order)
	for _, res := range cp.Reservations {
		r.store.reservations[res.ID] = res
	}
	// Внутри хранилища резервы живут в собственной map, агрегат собирается при чтении.
	cp.Reservations = nil
	r.store.orders[order.ID] = cp
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.compose(order), nil
}

// GetByNumber ищет заказ по клиентскому номеру вида ORD-XXXX.
func (r *orderRepositoryInMemory) GetByNumber(number string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, order := range r.store.orders {
		if order.OrderNumber == number {
			return r.compose(order), nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// ListByUser возвращает заказы пользователя, новые сначала, не более limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, r.compose(order))
	}

	sortOrders(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListByStatus возвращает заказы в заданном статусе, новые сначала.
func (r *orderRepositoryInMemory) ListByStatus(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if order.Status != status {
			continue
		}
		result = append(result, r.compose(order))
	}

	sortOrders(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	cp := cloneOrder(order)
	cp.Reservations = nil
	// Инкрементируем версию перед сохранением.
	cp.Version++
	r.store.orders[order.ID] = cp
	return nil
}

// compose присоединяет резервы к копии заказа. Вызывается под мьютексом store.
func (r *orderRepositoryInMemory) compose(order domain.Order) domain.Order {
	cp := cloneOrder(order)
	for _, res := range r.store.reservations {
		if res.OrderID == order.ID {
			cp.Reservations = append(cp.Reservations, res)
		}
	}
	sort.Slice(cp.Reservations, func(i, j int) bool {
		return cp.Reservations[i].ID < cp.Reservations[j].ID
	})
	return cp
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
