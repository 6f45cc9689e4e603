package memory

import (
	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// cartRepositoryInMemory хранит корзины в общем Store.
type cartRepositoryInMemory struct {
	store *Store
}

// NewCartRepository возвращает in-memory репозиторий корзин.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepositoryInMemory{store: store}
}

// GetByUser возвращает корзину пользователя или ErrCartNotFound.
func (r *cartRepositoryInMemory) GetByUser(userID string) (domain.Cart, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, cart := range r.store.carts {
		if cart.UserID != "" && cart.UserID == userID {
			return cloneCart(cart), nil
		}
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

// GetByGuest возвращает корзину гостевой сессии или ErrCartNotFound.
func (r *cartRepositoryInMemory) GetByGuest(guestID string) (domain.Cart, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, cart := range r.store.carts {
		if cart.GuestID != "" && cart.GuestID == guestID {
			return cloneCart(cart), nil
		}
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

// Save создаёт корзину или перезаписывает существующую.
func (r *cartRepositoryInMemory) Save(cart domain.Cart) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.carts[cart.ID] = cloneCart(cart)
	return nil
}

// Delete удаляет корзину. Отсутствие корзины ошибкой не считается.
func (r *cartRepositoryInMemory) Delete(cartID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.carts, cartID)
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
