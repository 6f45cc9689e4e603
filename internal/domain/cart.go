package domain

import "time"

// CartItem — одна позиция корзины.
type CartItem struct {
	ProductID      string
	Qty            int32
	UnitPriceMinor int64
	AddedAt        time.Time
}

// SubtotalMinor возвращает сумму позиции: qty * unit price.
func (i CartItem) SubtotalMinor() int64 {
	return int64(i.Qty) * i.UnitPriceMinor
}

// Cart — корзина пользователя или гостя. Внешний коллаборатор для оркестратора:
// чекаут читает её и явно очищает после успешной оплаты.
type Cart struct {
	ID string
	// Владелец: UserID для зарегистрированного пользователя, GuestID для гостевой сессии.
	UserID    string
	GuestID   string
	SessionID string
	Items     []CartItem
	// TotalItems и TotalMinor пересчитываются при каждом изменении состава.
	TotalItems int32
	TotalMinor int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsEmpty возвращает true для корзины без позиций или с нулевой суммой.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0 || c.TotalMinor <= 0
}

// RecalculateTotals пересчитывает количество и сумму по текущим позициям.
func (c *Cart) RecalculateTotals() {
	var items int32
	var total int64
	for _, item := range c.Items {
		items += item.Qty
		total += item.SubtotalMinor()
	}
	c.TotalItems = items
	c.TotalMinor = total
}

// Item возвращает позицию по товару, если она есть в корзине.
func (c *Cart) Item(productID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}
