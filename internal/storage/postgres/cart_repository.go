package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Позиции корзины хранятся JSONB-массивом: корзина всегда читается
// и пишется целиком, реляционная развязка позиций не нужна.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) GetByUser(userID string) (domain.Cart, error) {
	return r.getBy(`user_id = $1`, userID)
}

func (r *cartRepository) GetByGuest(guestID string) (domain.Cart, error) {
	return r.getBy(`guest_id = $1`, guestID)
}

func (r *cartRepository) getBy(where string, arg string) (domain.Cart, error) {
	if arg == "" {
		return domain.Cart{}, domain.ErrCartNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		cart     domain.Cart
		itemsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, guest_id, session_id, items, total_items, total_minor, created_at, updated_at
		FROM carts
		WHERE `+where+`
	`, arg).Scan(
		&cart.ID, &cart.UserID, &cart.GuestID, &cart.SessionID,
		&itemsRaw, &cart.TotalItems, &cart.TotalMinor, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &cart.Items); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart items: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) Save(cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	itemsRaw, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (
			id, user_id, guest_id, session_id, items, total_items, total_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE
		SET items = EXCLUDED.items,
		    total_items = EXCLUDED.total_items,
		    total_minor = EXCLUDED.total_minor,
		    updated_at = EXCLUDED.updated_at
	`,
		cart.ID, cart.UserID, cart.GuestID, cart.SessionID,
		itemsRaw, cart.TotalItems, cart.TotalMinor, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

// Delete удаляет корзину. Отсутствующая корзина не ошибка.
func (r *cartRepository) Delete(cartID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
