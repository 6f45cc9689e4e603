package memory

import (
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// stockRepositoryInMemory хранит складские записи в общем Store.
// Все мутации выполняются под мьютексом store, поэтому проверка и
// изменение счётчиков атомарны, как условный UPDATE в PostgreSQL.
type stockRepositoryInMemory struct {
	store *Store
}

// NewStockRepository возвращает in-memory репозиторий складских записей.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepositoryInMemory{store: store}
}

// Create регистрирует новую складскую запись для товара.
func (r *stockRepositoryInMemory) Create(stock domain.Stock) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.stocks[stock.ProductID]; exists {
		return domain.ErrStockInvariantViolated
	}
	r.store.stocks[stock.ProductID] = stock
	return nil
}

// Get возвращает складскую запись или ErrStockNotFound.
func (r *stockRepositoryInMemory) Get(productID string) (domain.Stock, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stock, ok := r.store.stocks[productID]
	if !ok {
		return domain.Stock{}, domain.ErrStockNotFound
	}
	return stock, nil
}

// Reserve атомарно переносит qty из available в reserved.
func (r *stockRepositoryInMemory) Reserve(productID string, qty int32) (domain.Stock, error) {
	return r.mutate(productID, func(stock *domain.Stock) error {
		return stock.ApplyReserve(qty)
	})
}

// Release атомарно возвращает qty из reserved в available.
func (r *stockRepositoryInMemory) Release(productID string, qty int32) (domain.Stock, error) {
	return r.mutate(productID, func(stock *domain.Stock) error {
		stock.ApplyRelease(qty)
		return nil
	})
}

// ConfirmSale атомарно списывает qty из reserved и total.
func (r *stockRepositoryInMemory) ConfirmSale(productID string, qty int32) (domain.Stock, error) {
	return r.mutate(productID, func(stock *domain.Stock) error {
		stock.ApplyConfirmSale(qty)
		return nil
	})
}

func (r *stockRepositoryInMemory) mutate(productID string, apply func(*domain.Stock) error) (domain.Stock, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stock, ok := r.store.stocks[productID]
	if !ok {
		return domain.Stock{}, domain.ErrStockNotFound
	}
	if err := apply(&stock); err != nil {
		return domain.Stock{}, err
	}
	stock.UpdatedAt = time.Now().UTC()
	r.store.stocks[productID] = stock
	return stock, nil
}

var _ domain.StockRepository = (*stockRepositoryInMemory)(nil)
