package domain

import "time"

// Stock — складская запись по одному товару. Запись общая для всех заказов:
// счётчики мутируются только через примитивы reserve/release/confirm-sale.
// Инвариант после каждой мутации: available + reserved <= total, оба счётчика >= 0.
type Stock struct {
	ProductID string
	// Total — сколько единиц физически числится на складе.
	Total int32
	// Available — сколько можно продать прямо сейчас.
	Available int32
	// Reserved — сколько удержано под неоплаченные заказы.
	Reserved int32
	// LowStockThreshold — порог, ниже которого остаток считается критичным.
	LowStockThreshold int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanReserve — read-only проверка доступности количества.
func (s *Stock) CanReserve(qty int32) bool {
	return qty > 0 && s.Available >= qty
}

// LowStock сообщает, упал ли доступный остаток ниже порога.
func (s *Stock) LowStock() bool {
	return s.LowStockThreshold > 0 && s.Available < s.LowStockThreshold
}

// ApplyReserve переносит qty из available в reserved.
// Возвращает ErrInsufficientStock, если доступного остатка не хватает.
// Вызывающая сторона обязана обеспечить атомарность (мьютекс или условный UPDATE).
func (s *Stock) ApplyReserve(qty int32) error {
	if qty <= 0 {
		return ErrReservationQtyInvalid
	}
	if s.Available < qty {
		return ErrInsufficientStock
	}
	s.Available -= qty
	s.Reserved += qty
	return nil
}

// ApplyRelease возвращает qty из reserved в available.
// Счётчики зажимаются: reserved не уходит ниже нуля, available не превышает total.
func (s *Stock) ApplyRelease(qty int32) {
	if qty <= 0 {
		return
	}
	if qty > s.Reserved {
		qty = s.Reserved
	}
	s.Reserved -= qty
	s.Available += qty
	if s.Available > s.Total {
		s.Available = s.Total
	}
}

// ApplyConfirmSale списывает qty из reserved и total: товар покидает склад.
func (s *Stock) ApplyConfirmSale(qty int32) {
	if qty <= 0 {
		return
	}
	s.Reserved -= qty
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	s.Total -= qty
	if s.Total < 0 {
		s.Total = 0
	}
	if s.Available > s.Total {
		s.Available = s.Total
	}
}

// CheckInvariants возвращает ErrStockInvariantViolated, если счётчики разъехались.
func (s *Stock) CheckInvariants() error {
	if s.Available < 0 || s.Reserved < 0 || s.Available+s.Reserved > s.Total {
		return ErrStockInvariantViolated
	}
	return nil
}
