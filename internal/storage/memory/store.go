package memory

import (
	"sync"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// Store — общее in-memory хранилище для локальной разработки и тестов.
// Репозитории делят один мьютекс, поэтому составные операции (заказ + резервы)
// атомарны так же, как транзакции в PostgreSQL-реализации.
type Store struct {
	mu           sync.RWMutex
	orders       map[string]domain.Order
	stocks       map[string]domain.Stock
	reservations map[string]domain.StockReservation
	carts        map[string]domain.Cart
	events       map[string][]domain.TimelineEvent
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		orders:       make(map[string]domain.Order),
		stocks:       make(map[string]domain.Stock),
		reservations: make(map[string]domain.StockReservation),
		carts:        make(map[string]domain.Cart),
		events:       make(map[string][]domain.TimelineEvent),
	}
}

// cloneOrder возвращает глубокую копию заказа, чтобы хранилище
// не делило слайсы и указатели с вызывающим кодом.
func cloneOrder(order domain.Order) domain.Order {
	cp := order

	if order.Items != nil {
		cp.Items = make([]domain.OrderItem, len(order.Items))
		copy(cp.Items, order.Items)
	}
	if order.Reservations != nil {
		cp.Reservations = make([]domain.StockReservation, len(order.Reservations))
		copy(cp.Reservations, order.Reservations)
	}
	if order.Payment != nil {
		payment := *order.Payment
		cp.Payment = &payment
	}
	if order.Shipment != nil {
		shipment := *order.Shipment
		cp.Shipment = &shipment
	}

	return cp
}

// cloneCart возвращает копию корзины с собственным слайсом позиций.
func cloneCart(cart domain.Cart) domain.Cart {
	cp := cart
	if cart.Items != nil {
		cp.Items = make([]domain.CartItem, len(cart.Items))
		copy(cp.Items, cart.Items)
	}
	return cp
}
