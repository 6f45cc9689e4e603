package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Заказ хранится агрегатом: orders, order_items, payments, shipments
// и stock_reservations пишутся одной транзакцией.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, guest_id, guest_email,
			subtotal_minor, tax_minor, shipping_minor, discount_minor, total_minor,
			currency, status, shipping_address, billing_address, notes,
			version, created_at, updated_at, canceled_at, cancel_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		order.ID, order.OrderNumber, order.UserID, order.GuestID, order.GuestEmail,
		order.SubtotalMinor, order.TaxMinor, order.ShippingMinor, order.DiscountMinor, order.TotalMinor,
		order.Currency, string(order.Status), order.ShippingAddress, order.BillingAddress, order.Notes,
		order.Version, order.CreatedAt, order.UpdatedAt, nullTime(order.CanceledAt), order.CancelReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, qty, unit_price_minor, total_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			item.ID, order.ID, item.ProductID, item.Qty, item.UnitPriceMinor, item.TotalMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if order.Payment != nil {
		if err = upsertPaymentTx(ctx, tx, order.ID, *order.Payment); err != nil {
			return err
		}
	}
	if order.Shipment != nil {
		if err = upsertShipmentTx(ctx, tx, order.ID, *order.Shipment); err != nil {
			return err
		}
	}

	for _, res := range order.Reservations {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO stock_reservations (
				id, order_id, product_id, qty, status, created_at, expires_at, confirmed_at, released_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			res.ID, order.ID, res.ProductID, res.Qty, string(res.Status),
			res.CreatedAt, nullTime(res.ExpiresAt), nullTime(res.ConfirmedAt), nullTime(res.ReleasedAt),
		); err != nil {
			return fmt.Errorf("insert stock reservation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

const orderColumns = `
	id, order_number, user_id, guest_id, guest_email,
	subtotal_minor, tax_minor, shipping_minor, discount_minor, total_minor,
	currency, status, shipping_address, billing_address, notes,
	version, created_at, updated_at, canceled_at, cancel_reason
`

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)
	return r.scanAggregate(ctx, row)
}

func (r *orderRepository) GetByNumber(number string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_number = $1
	`, number)
	return r.scanAggregate(ctx, row)
}

func (r *orderRepository) ListByUser(userID string, limit int) ([]domain.Order, error) {
	return r.list(`WHERE user_id = $1`, userID, limit)
}

func (r *orderRepository) ListByStatus(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return r.list(`WHERE status = $1`, string(status), limit)
}

func (r *orderRepository) list(where string, arg any, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		` + where + `
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", arg, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadRelations(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// Save обновляет корень агрегата с проверкой версии и upsert-ит платёж
// и отгрузку. Резервы живут своим жизненным циклом через ReservationRepository.
func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    notes = $2,
		    version = version + 1,
		    updated_at = $3,
		    canceled_at = $4,
		    cancel_reason = $5
		WHERE id = $6
		  AND version = $7
	`,
		string(order.Status),
		order.Notes,
		order.UpdatedAt,
		nullTime(order.CanceledAt),
		order.CancelReason,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExistsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	if order.Payment != nil {
		if err = upsertPaymentTx(ctx, tx, order.ID, *order.Payment); err != nil {
			return err
		}
	}
	if order.Shipment != nil {
		if err = upsertShipmentTx(ctx, tx, order.ID, *order.Shipment); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save order: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (domain.Order, error) {
	var (
		order      domain.Order
		status     string
		canceledAt sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.UserID, &order.GuestID, &order.GuestEmail,
		&order.SubtotalMinor, &order.TaxMinor, &order.ShippingMinor, &order.DiscountMinor, &order.TotalMinor,
		&order.Currency, &status, &order.ShippingAddress, &order.BillingAddress, &order.Notes,
		&order.Version, &order.CreatedAt, &order.UpdatedAt, &canceledAt, &order.CancelReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	if canceledAt.Valid {
		order.CanceledAt = canceledAt.Time
	}
	return order, nil
}

func (r *orderRepository) scanAggregate(ctx context.Context, row rowScanner) (domain.Order, error) {
	order, err := scanOrderRow(row)
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadRelations(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) loadRelations(ctx context.Context, order *domain.Order) error {
	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items

	payment, err := r.loadPayment(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Payment = payment

	shipment, err := r.loadShipment(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Shipment = shipment

	reservations, err := loadReservations(ctx, r.db, order.ID)
	if err != nil {
		return err
	}
	order.Reservations = reservations

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, qty, unit_price_minor, total_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Qty, &item.UnitPriceMinor, &item.TotalMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) loadPayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	var (
		payment    domain.Payment
		provider   string
		method     string
		status     string
		paidAt     sql.NullTime
		refundedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, reference, provider, method, amount_minor, currency, status,
		       provider_txn_id, failure_reason, created_at, updated_at, paid_at, refunded_at
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(
		&payment.ID, &payment.OrderID, &payment.Reference, &provider, &method,
		&payment.AmountMinor, &payment.Currency, &status,
		&payment.ProviderTxnID, &payment.FailureReason,
		&payment.CreatedAt, &payment.UpdatedAt, &paidAt, &refundedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	payment.Provider = domain.PaymentProvider(provider)
	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	if refundedAt.Valid {
		payment.RefundedAt = refundedAt.Time
	}
	return &payment, nil
}

func (r *orderRepository) loadShipment(ctx context.Context, orderID string) (*domain.Shipment, error) {
	var (
		shipment    domain.Shipment
		status      string
		carrier     string
		estimated   sql.NullTime
		shippedAt   sql.NullTime
		deliveredAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, status, express, cost_minor, address, carrier, tracking_number,
		       estimated_delivery, failure_reason, created_at, updated_at, shipped_at, delivered_at
		FROM shipments
		WHERE order_id = $1
	`, orderID).Scan(
		&shipment.ID, &shipment.OrderID, &status, &shipment.Express, &shipment.CostMinor,
		&shipment.Address, &carrier, &shipment.TrackingNumber,
		&estimated, &shipment.FailureReason,
		&shipment.CreatedAt, &shipment.UpdatedAt, &shippedAt, &deliveredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	shipment.Status = domain.ShipmentStatus(status)
	shipment.Carrier = domain.ShipmentCarrier(carrier)
	if estimated.Valid {
		shipment.EstimatedDelivery = estimated.Time
	}
	if shippedAt.Valid {
		shipment.ShippedAt = shippedAt.Time
	}
	if deliveredAt.Valid {
		shipment.DeliveredAt = deliveredAt.Time
	}
	return &shipment, nil
}

func upsertPaymentTx(ctx context.Context, tx *sql.Tx, orderID string, payment domain.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, reference, provider, method, amount_minor, currency, status,
			provider_txn_id, failure_reason, created_at, updated_at, paid_at, refunded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (order_id) DO UPDATE
		SET status = EXCLUDED.status,
		    provider_txn_id = EXCLUDED.provider_txn_id,
		    failure_reason = EXCLUDED.failure_reason,
		    updated_at = EXCLUDED.updated_at,
		    paid_at = EXCLUDED.paid_at,
		    refunded_at = EXCLUDED.refunded_at
	`,
		payment.ID, orderID, payment.Reference, string(payment.Provider), string(payment.Method),
		payment.AmountMinor, payment.Currency, string(payment.Status),
		payment.ProviderTxnID, payment.FailureReason,
		payment.CreatedAt, payment.UpdatedAt, nullTime(payment.PaidAt), nullTime(payment.RefundedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func upsertShipmentTx(ctx context.Context, tx *sql.Tx, orderID string, shipment domain.Shipment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shipments (
			id, order_id, status, express, cost_minor, address, carrier, tracking_number,
			estimated_delivery, failure_reason, created_at, updated_at, shipped_at, delivered_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (order_id) DO UPDATE
		SET status = EXCLUDED.status,
		    carrier = EXCLUDED.carrier,
		    tracking_number = EXCLUDED.tracking_number,
		    failure_reason = EXCLUDED.failure_reason,
		    updated_at = EXCLUDED.updated_at,
		    shipped_at = EXCLUDED.shipped_at,
		    delivered_at = EXCLUDED.delivered_at
	`,
		shipment.ID, orderID, string(shipment.Status), shipment.Express, shipment.CostMinor,
		shipment.Address, string(shipment.Carrier), shipment.TrackingNumber,
		nullTime(shipment.EstimatedDelivery), shipment.FailureReason,
		shipment.CreatedAt, shipment.UpdatedAt, nullTime(shipment.ShippedAt), nullTime(shipment.DeliveredAt),
	)
	if err != nil {
		return fmt.Errorf("upsert shipment: %w", err)
	}
	return nil
}

func (r *orderRepository) orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// nullTime превращает нулевое время в NULL при записи.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ domain.OrderRepository = (*orderRepository)(nil)
