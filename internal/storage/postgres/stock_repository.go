package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type stockRepository struct {
	db *sql.DB
}

// NewStockRepository создаёт PostgreSQL-реализацию StockRepository.
// Мутации счётчиков выполняются условными UPDATE: атомарность обеспечивает
// база, приложение не держит блокировок.
func NewStockRepository(store *Store) domain.StockRepository {
	return &stockRepository{db: store.DB()}
}

func (r *stockRepository) Create(stock domain.Stock) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stocks (
			product_id, total, available, reserved, low_stock_threshold, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		stock.ProductID, stock.Total, stock.Available, stock.Reserved,
		stock.LowStockThreshold, stock.CreatedAt, stock.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("stock %s already exists: %w", stock.ProductID, err)
		}
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

func (r *stockRepository) Get(productID string) (domain.Stock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock domain.Stock
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, total, available, reserved, low_stock_threshold, created_at, updated_at
		FROM stocks
		WHERE product_id = $1
	`, productID).Scan(
		&stock.ProductID, &stock.Total, &stock.Available, &stock.Reserved,
		&stock.LowStockThreshold, &stock.CreatedAt, &stock.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stock{}, domain.ErrStockNotFound
		}
		return domain.Stock{}, fmt.Errorf("select stock: %w", err)
	}
	return stock, nil
}

// Reserve атомарно переносит qty из available в reserved.
// Условие available >= qty в WHERE исключает oversell при любой конкуренции.
func (r *stockRepository) Reserve(productID string, qty int32) (domain.Stock, error) {
	if qty <= 0 {
		return domain.Stock{}, domain.ErrReservationQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock domain.Stock
	err := r.db.QueryRowContext(ctx, `
		UPDATE stocks
		SET available = available - $2,
		    reserved = reserved + $2,
		    updated_at = NOW()
		WHERE product_id = $1
		  AND available >= $2
		RETURNING product_id, total, available, reserved, low_stock_threshold, created_at, updated_at
	`, productID, qty).Scan(
		&stock.ProductID, &stock.Total, &stock.Available, &stock.Reserved,
		&stock.LowStockThreshold, &stock.CreatedAt, &stock.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо товара нет, либо остатка не хватило.
			if _, getErr := r.Get(productID); getErr != nil {
				return domain.Stock{}, getErr
			}
			return domain.Stock{}, domain.ErrInsufficientStock
		}
		return domain.Stock{}, fmt.Errorf("reserve stock: %w", err)
	}
	return stock, nil
}

// Release возвращает qty из reserved в available с зажимом счётчиков,
// чтобы повторный release не увёл их в минус.
func (r *stockRepository) Release(productID string, qty int32) (domain.Stock, error) {
	if qty <= 0 {
		return domain.Stock{}, domain.ErrReservationQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock domain.Stock
	err := r.db.QueryRowContext(ctx, `
		UPDATE stocks
		SET available = LEAST(available + LEAST(reserved, $2), total),
		    reserved = GREATEST(reserved - $2, 0),
		    updated_at = NOW()
		WHERE product_id = $1
		RETURNING product_id, total, available, reserved, low_stock_threshold, created_at, updated_at
	`, productID, qty).Scan(
		&stock.ProductID, &stock.Total, &stock.Available, &stock.Reserved,
		&stock.LowStockThreshold, &stock.CreatedAt, &stock.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stock{}, domain.ErrStockNotFound
		}
		return domain.Stock{}, fmt.Errorf("release stock: %w", err)
	}
	return stock, nil
}

// ConfirmSale списывает qty из reserved и total: товар покидает склад.
func (r *stockRepository) ConfirmSale(productID string, qty int32) (domain.Stock, error) {
	if qty <= 0 {
		return domain.Stock{}, domain.ErrReservationQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock domain.Stock
	err := r.db.QueryRowContext(ctx, `
		UPDATE stocks
		SET reserved = GREATEST(reserved - $2, 0),
		    total = GREATEST(total - $2, 0),
		    available = LEAST(available, GREATEST(total - $2, 0)),
		    updated_at = NOW()
		WHERE product_id = $1
		RETURNING product_id, total, available, reserved, low_stock_threshold, created_at, updated_at
	`, productID, qty).Scan(
		&stock.ProductID, &stock.Total, &stock.Available, &stock.Reserved,
		&stock.LowStockThreshold, &stock.CreatedAt, &stock.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stock{}, domain.ErrStockNotFound
		}
		return domain.Stock{}, fmt.Errorf("confirm sale: %w", err)
	}
	return stock, nil
}

var _ domain.StockRepository = (*stockRepository)(nil)
