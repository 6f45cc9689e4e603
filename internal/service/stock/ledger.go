package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// defaultHoldTTL — срок жизни резерва: если оплата не пришла за это время,
// фоновая зачистка вернёт количество в продажу.
const defaultHoldTTL = 30 * time.Minute

// Ledger управляет складскими остатками: резервирует количество под заказ,
// превращает резервы в продажи после оплаты и снимает их при компенсации.
// Атомарность отдельных мутаций обеспечивает StockRepository; Ledger отвечает
// за последовательность и компенсацию частично выполненных резервов.
type Ledger struct {
	stocks       domain.StockRepository
	reservations domain.ReservationRepository
	logger       *log.Entry
	holdTTL      time.Duration
}

// LedgerOption настраивает Ledger.
type LedgerOption func(*Ledger)

// WithHoldTTL задаёт срок жизни резерва.
func WithHoldTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) {
		if ttl > 0 {
			l.holdTTL = ttl
		}
	}
}

// WithLedgerLogger задаёт logger.
func WithLedgerLogger(logger *log.Entry) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger создаёт сервис складского учёта.
func NewLedger(stocks domain.StockRepository, reservations domain.ReservationRepository, options ...LedgerOption) *Ledger {
	l := &Ledger{
		stocks:       stocks,
		reservations: reservations,
		logger:       log.WithField("component", "stock-ledger"),
		holdTTL:      defaultHoldTTL,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// CreateStock регистрирует товар на складе.
func (l *Ledger) CreateStock(productID string, total, lowStockThreshold int32) (domain.Stock, error) {
	if productID == "" {
		return domain.Stock{}, domain.ErrProductIDRequired
	}
	if total < 0 {
		return domain.Stock{}, domain.ErrReservationQtyInvalid
	}

	now := time.Now().UTC()
	stock := domain.Stock{
		ProductID:         productID,
		Total:             total,
		Available:         total,
		LowStockThreshold: lowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := l.stocks.Create(stock); err != nil {
		return domain.Stock{}, fmt.Errorf("create stock %s: %w", productID, err)
	}
	return stock, nil
}

// Stock возвращает текущую складскую запись товара.
func (l *Ledger) Stock(productID string) (domain.Stock, error) {
	return l.stocks.Get(productID)
}

// IsAvailable — read-only проверка, хватает ли доступного остатка.
func (l *Ledger) IsAvailable(productID string, qty int32) (bool, error) {
	stock, err := l.stocks.Get(productID)
	if err != nil {
		return false, err
	}
	return stock.CanReserve(qty), nil
}

// ReserveForCart резервирует количество под каждую позицию заказа.
// При нехватке остатка по любой позиции уже взятые резервы снимаются,
// наружу уходит ErrInsufficientStock: заказ либо резервируется целиком, либо никак.
// Возвращённые записи ещё не сохранены: их персистит OrderRepository.Create
// вместе с заказом.
func (l *Ledger) ReserveForCart(orderID string, items []domain.OrderItem) ([]domain.StockReservation, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	if len(items) == 0 {
		return nil, domain.ErrItemsRequired
	}

	now := time.Now().UTC()
	reserved := make([]domain.StockReservation, 0, len(items))

	for _, item := range items {
		stock, err := l.stocks.Reserve(item.ProductID, item.Qty)
		if err != nil {
			l.rollbackReserved(reserved)
			return nil, fmt.Errorf("reserve %s x%d: %w", item.ProductID, item.Qty, err)
		}

		if stock.LowStock() {
			l.logger.WithFields(log.Fields{
				"product_id": item.ProductID,
				"available":  stock.Available,
				"threshold":  stock.LowStockThreshold,
			}).Warn("product stock below threshold")
		}

		reserved = append(reserved, domain.StockReservation{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Status:    domain.ReservationStatusActive,
			CreatedAt: now,
			ExpiresAt: now.Add(l.holdTTL),
		})
	}

	return reserved, nil
}

// ConfirmReservations превращает активные резервы заказа в продажи.
// Вызывается после успешной оплаты. Ошибка здесь означает расхождение
// между оплатой и складом, поэтому наружу уходит ErrInconsistentState:
// автоматическая компенсация уже невозможна, нужен оператор.
func (l *Ledger) ConfirmReservations(order *domain.Order) error {
	now := time.Now().UTC()

	for i := range order.Reservations {
		res := &order.Reservations[i]
		if !res.Active() {
			continue
		}

		if _, err := l.stocks.ConfirmSale(res.ProductID, res.Qty); err != nil {
			return fmt.Errorf("confirm sale %s x%d: %w: %w", res.ProductID, res.Qty, err, domain.ErrInconsistentState)
		}

		res.Status = domain.ReservationStatusConfirmed
		res.ConfirmedAt = now
		if err := l.updateReservation(*res); err != nil {
			return fmt.Errorf("mark reservation %s confirmed: %w: %w", res.ID, err, domain.ErrInconsistentState)
		}
	}

	return nil
}

// ReleaseReservations снимает активные резервы заказа и возвращает количество
// в продажу. Операция идемпотентна: уже снятые и подтверждённые резервы
// пропускаются, повторный вызов безопасен.
func (l *Ledger) ReleaseReservations(order *domain.Order) error {
	now := time.Now().UTC()

	var firstErr error
	for i := range order.Reservations {
		res := &order.Reservations[i]
		if !res.Active() {
			continue
		}

		if _, err := l.stocks.Release(res.ProductID, res.Qty); err != nil {
			// Продолжаем по остальным позициям: частичный release лучше, чем никакой.
			l.logger.WithError(err).WithField("product_id", res.ProductID).Error("release stock failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("release %s x%d: %w", res.ProductID, res.Qty, err)
			}
			continue
		}

		res.Status = domain.ReservationStatusReleased
		res.ReleasedAt = now
		if err := l.updateReservation(*res); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mark reservation %s released: %w", res.ID, err)
		}
	}

	return firstErr
}

// rollbackReserved снимает резервы, взятые до провала ReserveForCart.
// Записи ещё не персистированы, достаточно вернуть счётчики.
func (l *Ledger) rollbackReserved(reserved []domain.StockReservation) {
	for _, res := range reserved {
		if _, err := l.stocks.Release(res.ProductID, res.Qty); err != nil {
			l.logger.WithError(err).WithField("product_id", res.ProductID).Error("rollback release failed")
		}
	}
}

// updateReservation сохраняет статус резерва. ErrReservationNotFound не ошибка:
// на пути компенсации после провала создания заказа записи ещё не персистированы.
func (l *Ledger) updateReservation(res domain.StockReservation) error {
	err := l.reservations.Update(res)
	if err != nil && errors.Is(err, domain.ErrReservationNotFound) {
		return nil
	}
	return err
}
