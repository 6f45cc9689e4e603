package domain

import "time"

// OrderRepository — хранилище заказов. Create сохраняет агрегат целиком
// (заказ, позиции, платёж, отгрузку и резервы) атомарно; Save проверяет версию
// и возвращает ErrOrderVersionConflict при гонке записи.
type OrderRepository interface {
	Create(order Order) error
	Get(id string) (Order, error)
	GetByNumber(number string) (Order, error)
	ListByUser(userID string, limit int) ([]Order, error)
	ListByStatus(status OrderStatus, limit int) ([]Order, error)
	Save(order Order) error
}

// StockRepository — хранилище складских записей. Reserve, Release и ConfirmSale
// атомарны на уровне хранилища: Reserve возвращает ErrInsufficientStock, не
// допуская ухода available в минус при конкурирующих заказах.
type StockRepository interface {
	Create(stock Stock) error
	Get(productID string) (Stock, error)
	Reserve(productID string, qty int32) (Stock, error)
	Release(productID string, qty int32) (Stock, error)
	ConfirmSale(productID string, qty int32) (Stock, error)
}

// ReservationRepository — представление резервов для зачистки и смены статусов.
// Сами резервы создаются вместе с заказом через OrderRepository.Create.
type ReservationRepository interface {
	ListByOrder(orderID string) ([]StockReservation, error)
	// ListExpired возвращает активные резервы с истёкшим сроком, не более limit.
	ListExpired(before time.Time, limit int) ([]StockReservation, error)
	Update(reservation StockReservation) error
}

// CartRepository — хранилище корзин. Корзина ищется по владельцу, не по ID.
type CartRepository interface {
	GetByUser(userID string) (Cart, error)
	GetByGuest(guestID string) (Cart, error)
	Save(cart Cart) error
	Delete(cartID string) error
}

// TimelineRepository — append-only лента событий заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
