package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

func testOrder(id, number, userID string, created time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: number,
		UserID:      userID,
		Currency:    "USD",
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ID: id + "-item", ProductID: "prod-1", Qty: 1, UnitPriceMinor: 1000, TotalMinor: 1000},
		},
		SubtotalMinor: 1000,
		TotalMinor:    1000,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestOrderRepositoryCreateAndGet(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	order := testOrder("ord-1", "ORD-0001", "user-1", time.Now())
	order.Reservations = []domain.StockReservation{
		{ID: "res-1", OrderID: "ord-1", ProductID: "prod-1", Qty: 1, Status: domain.ReservationStatusActive},
	}

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.Get("ord-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.OrderNumber != "ORD-0001" {
		t.Errorf("unexpected order number: %s", got.OrderNumber)
	}
	if len(got.Reservations) != 1 || got.Reservations[0].ID != "res-1" {
		t.Errorf("reservations must be attached on read, got %v", got.Reservations)
	}

	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Errorf("duplicate create must conflict, got %v", err)
	}
}

func TestOrderRepositoryGetByNumber(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	if err := repo.Create(testOrder("ord-1", "ORD-0001", "user-1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByNumber("ORD-0001")
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if got.ID != "ord-1" {
		t.Errorf("unexpected order: %s", got.ID)
	}

	if _, err := repo.GetByNumber("ORD-MISSING"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepositorySaveVersionConflict(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	if err := repo.Create(testOrder("ord-1", "ORD-0001", "user-1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, _ := repo.Get("ord-1")
	second, _ := repo.Get("ord-1")

	first.Status = domain.OrderStatusConfirmed
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second.Status = domain.OrderStatusCanceled
	if err := repo.Save(second); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("stale save must conflict, got %v", err)
	}

	got, _ := repo.Get("ord-1")
	if got.Status != domain.OrderStatusConfirmed {
		t.Errorf("winner's status lost: %s", got.Status)
	}
	if got.Version != first.Version+1 {
		t.Errorf("version must increment on save: got %d, want %d", got.Version, first.Version+1)
	}
}

func TestOrderRepositoryListByUser(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	base := time.Now()
	for i, id := range []string{"ord-1", "ord-2", "ord-3"} {
		order := testOrder(id, "ORD-000"+id, "user-1", base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(order); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}
	if err := repo.Create(testOrder("ord-other", "ORD-OTHER", "user-2", base)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := repo.ListByUser("user-1", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "ord-3" || orders[1].ID != "ord-2" {
		t.Errorf("expected newest first, got %s, %s", orders[0].ID, orders[1].ID)
	}
}

func TestOrderRepositoryListByStatus(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	pending := testOrder("ord-1", "ORD-0001", "user-1", time.Now())
	confirmed := testOrder("ord-2", "ORD-0002", "user-1", time.Now())
	confirmed.Status = domain.OrderStatusConfirmed

	if err := repo.Create(pending); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(confirmed); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := repo.ListByStatus(domain.OrderStatusConfirmed, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "ord-2" {
		t.Errorf("unexpected result: %v", orders)
	}
}

func TestOrderRepositoryIsolation(t *testing.T) {
	store := NewStore()
	repo := NewOrderRepository(store)

	order := testOrder("ord-1", "ORD-0001", "user-1", time.Now())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, _ := repo.Get("ord-1")
	got.Items[0].Qty = 99

	again, _ := repo.Get("ord-1")
	if again.Items[0].Qty != 1 {
		t.Error("mutating a returned order must not affect the stored copy")
	}
}
