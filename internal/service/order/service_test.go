package order

import (
	"errors"
	"testing"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
	"github.com/aabdeab/para-ecommerce/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, domain.OrderRepository) {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewOrderRepository(store)
	svc := NewService(repo, memory.NewTimelineRepository(store), nil)
	return svc, repo
}

func seedOrder(t *testing.T, repo domain.OrderRepository, id string, status domain.OrderStatus) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		UserID:      "user-1",
		Currency:    "USD",
		Status:      status,
		Items: []domain.OrderItem{
			{ID: id + "-item", ProductID: "prod-1", Qty: 1, UnitPriceMinor: 1000, TotalMinor: 1000},
		},
		SubtotalMinor: 1000,
		TotalMinor:    1000,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestUpdateStatusHappyPath(t *testing.T) {
	svc, repo := newTestService(t)
	order := seedOrder(t, repo, "ord-1", domain.OrderStatusPending)

	if err := svc.UpdateStatus(&order, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Errorf("in-memory copy not updated: %s", order.Status)
	}

	stored, _ := repo.Get("ord-1")
	if stored.Status != domain.OrderStatusConfirmed {
		t.Errorf("stored status not updated: %s", stored.Status)
	}
	if stored.Version != 1 {
		t.Errorf("version must increment, got %d", stored.Version)
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	svc, repo := newTestService(t)
	order := seedOrder(t, repo, "ord-1", domain.OrderStatusShipped)

	err := svc.UpdateStatus(&order, domain.OrderStatusCanceled)
	if !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	stored, _ := repo.Get("ord-1")
	if stored.Status != domain.OrderStatusShipped {
		t.Errorf("status must not change on invalid transition: %s", stored.Status)
	}
}

func TestUpdateStatusIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	order := seedOrder(t, repo, "ord-1", domain.OrderStatusConfirmed)

	if err := svc.UpdateStatus(&order, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("same-status update must be a no-op: %v", err)
	}

	stored, _ := repo.Get("ord-1")
	if stored.Version != 0 {
		t.Errorf("no-op update must not touch the version, got %d", stored.Version)
	}
}

// Устаревшая копия заказа: сервис перезагружает свежую версию и повторяет запись.
func TestUpdateStatusRetriesOnVersionConflict(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, repo, "ord-1", domain.OrderStatusPending)

	stale, _ := repo.Get("ord-1")

	// Конкурент успевает первым: меняет заметки, версия растёт.
	winner, _ := repo.Get("ord-1")
	winner.Notes = "gift wrap"
	if err := repo.Save(winner); err != nil {
		t.Fatalf("concurrent save failed: %v", err)
	}

	if err := svc.UpdateStatus(&stale, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("update must survive version conflict: %v", err)
	}

	stored, _ := repo.Get("ord-1")
	if stored.Status != domain.OrderStatusConfirmed {
		t.Errorf("status not updated after retry: %s", stored.Status)
	}
	if stored.Notes != "gift wrap" {
		t.Errorf("concurrent change lost after retry: %q", stored.Notes)
	}
}

// Конкурент уже перевёл заказ в целевой статус: повтор завершается успехом без записи.
func TestUpdateStatusConcurrentSameTarget(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, repo, "ord-1", domain.OrderStatusPending)

	stale, _ := repo.Get("ord-1")

	winner, _ := repo.Get("ord-1")
	winner.Status = domain.OrderStatusConfirmed
	if err := repo.Save(winner); err != nil {
		t.Fatalf("concurrent save failed: %v", err)
	}

	if err := svc.UpdateStatus(&stale, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("expected success when target already reached, got %v", err)
	}
	if stale.Status != domain.OrderStatusConfirmed {
		t.Errorf("local copy must reflect the reached status: %s", stale.Status)
	}
}

// Конкурент увёл заказ в терминальный статус: повтор возвращает ошибку перехода.
func TestUpdateStatusConcurrentTerminal(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, repo, "ord-1", domain.OrderStatusPending)

	stale, _ := repo.Get("ord-1")

	winner, _ := repo.Get("ord-1")
	winner.Status = domain.OrderStatusCanceled
	if err := repo.Save(winner); err != nil {
		t.Fatalf("concurrent save failed: %v", err)
	}

	err := svc.UpdateStatus(&stale, domain.OrderStatusConfirmed)
	if !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition after terminal concurrent change, got %v", err)
	}
}

func TestUpdateStatusAppendsTimeline(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewOrderRepository(store)
	timeline := memory.NewTimelineRepository(store)
	svc := NewService(repo, timeline, nil)

	order := seedOrder(t, repo, "ord-1", domain.OrderStatusPending)
	if err := svc.UpdateStatus(&order, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	events, err := timeline.List("ord-1")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 timeline event, got %d", len(events))
	}
	ev := events[0]
	if ev.Event != domain.TimelineStatusChanged ||
		ev.FromStatus != domain.OrderStatusPending ||
		ev.ToStatus != domain.OrderStatusConfirmed {
		t.Errorf("unexpected timeline event: %+v", ev)
	}
}

func TestSaveWithRetry(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, repo, "ord-1", domain.OrderStatusPending)

	stale, _ := repo.Get("ord-1")

	winner, _ := repo.Get("ord-1")
	winner.Notes = "concurrent"
	if err := repo.Save(winner); err != nil {
		t.Fatalf("concurrent save failed: %v", err)
	}

	err := svc.SaveWithRetry(&stale, func(o *domain.Order) {
		o.CancelReason = "customer request"
	})
	if err != nil {
		t.Fatalf("save with retry failed: %v", err)
	}

	stored, _ := repo.Get("ord-1")
	if stored.CancelReason != "customer request" {
		t.Errorf("mutation lost: %q", stored.CancelReason)
	}
	if stored.Notes != "concurrent" {
		t.Errorf("concurrent change lost: %q", stored.Notes)
	}
}
