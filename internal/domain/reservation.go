package domain

import "time"

// ReservationStatus отражает статус временного резерва товара на складе.
type ReservationStatus string

const (
	// ReservationStatusActive — количество удержано в reserved, ждём исхода оплаты.
	ReservationStatusActive ReservationStatus = "active"
	// ReservationStatusConfirmed — резерв превращён в продажу. Терминальный статус.
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	// ReservationStatusReleased — резерв снят (отмена, провал оплаты, истечение). Терминальный статус.
	ReservationStatusReleased ReservationStatus = "released"
)

// StockReservation — временная заявка на количество одного товара внутри одного заказа.
// Пока резерв активен, его количество отражено в счётчике reserved соответствующего Stock.
type StockReservation struct {
	ID        string
	OrderID   string
	ProductID string
	Qty       int32
	Status    ReservationStatus
	CreatedAt time.Time
	// ExpiresAt — момент, после которого фоновая зачистка снимет активный резерв.
	ExpiresAt   time.Time
	ConfirmedAt time.Time
	ReleasedAt  time.Time
}

// Active возвращает true, пока резерв не достиг терминального статуса.
func (r *StockReservation) Active() bool {
	return r.Status == ReservationStatusActive
}

// Expired сообщает, просрочен ли активный резерв на момент now.
func (r *StockReservation) Expired(now time.Time) bool {
	return r.Status == ReservationStatusActive && !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Validate проверяет, корректно ли заполнены ключевые поля резерва.
func (r *StockReservation) Validate() []error {
	var errs []error

	if r.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if r.Qty <= 0 {
		errs = append(errs, ErrReservationQtyInvalid)
	}

	return errs
}
