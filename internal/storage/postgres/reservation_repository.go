package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type reservationRepository struct {
	db *sql.DB
}

// NewReservationRepository создаёт PostgreSQL-реализацию ReservationRepository.
// Резервы создаются вместе с заказом через OrderRepository.Create, здесь живут
// только чтение и обновление статуса.
func NewReservationRepository(store *Store) domain.ReservationRepository {
	return &reservationRepository{db: store.DB()}
}

func (r *reservationRepository) ListByOrder(orderID string) ([]domain.StockReservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return loadReservations(ctx, r.db, orderID)
}

// ListExpired возвращает активные резервы с истёкшим сроком, старые сначала.
func (r *reservationRepository) ListExpired(before time.Time, limit int) ([]domain.StockReservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, status, created_at, expires_at, confirmed_at, released_at
		FROM stock_reservations
		WHERE status = $1
		  AND expires_at IS NOT NULL
		  AND expires_at < $2
		ORDER BY expires_at ASC
		LIMIT $3
	`, string(domain.ReservationStatusActive), before, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

func (r *reservationRepository) Update(res domain.StockReservation) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_reservations
		SET status = $1,
		    confirmed_at = $2,
		    released_at = $3
		WHERE id = $4
	`, string(res.Status), nullTime(res.ConfirmedAt), nullTime(res.ReleasedAt), res.ID)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func loadReservations(ctx context.Context, db *sql.DB, orderID string) ([]domain.StockReservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, status, created_at, expires_at, confirmed_at, released_at
		FROM stock_reservations
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

func scanReservations(rows *sql.Rows) ([]domain.StockReservation, error) {
	reservations := make([]domain.StockReservation, 0)
	for rows.Next() {
		var (
			res         domain.StockReservation
			status      string
			expiresAt   sql.NullTime
			confirmedAt sql.NullTime
			releasedAt  sql.NullTime
		)
		if err := rows.Scan(
			&res.ID, &res.OrderID, &res.ProductID, &res.Qty, &status,
			&res.CreatedAt, &expiresAt, &confirmedAt, &releasedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = domain.ReservationStatus(status)
		if expiresAt.Valid {
			res.ExpiresAt = expiresAt.Time
		}
		if confirmedAt.Valid {
			res.ConfirmedAt = confirmedAt.Time
		}
		if releasedAt.Valid {
			res.ReleasedAt = releasedAt.Time
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}

	return reservations, nil
}

var _ domain.ReservationRepository = (*reservationRepository)(nil)
