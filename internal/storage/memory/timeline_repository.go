package memory

import (
	"sort"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// timelineRepositoryInMemory хранит события ленты заказа в общем Store.
type timelineRepositoryInMemory struct {
	store *Store
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepositoryInMemory{store: store}
}

// Append добавляет событие в ленту заказа.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.events[event.OrderID] = append(r.store.events[event.OrderID], event)

	sort.Slice(r.store.events[event.OrderID], func(i, j int) bool {
		return r.store.events[event.OrderID][i].CreatedAt.Before(r.store.events[event.OrderID][j].CreatedAt)
	})

	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events := r.store.events[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
