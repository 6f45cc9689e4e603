package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type timelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
// Лента append-only: записи не обновляются и не удаляются.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_timeline (
			id, order_id, event, from_status, to_status, detail, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		event.ID, event.OrderID, event.Event,
		string(event.FromStatus), string(event.ToStatus), event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, event, from_status, to_status, detail, created_at
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var (
			event domain.TimelineEvent
			from  string
			to    string
		)
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Event, &from, &to, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		event.FromStatus = domain.OrderStatus(from)
		event.ToStatus = domain.OrderStatus(to)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}

	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
