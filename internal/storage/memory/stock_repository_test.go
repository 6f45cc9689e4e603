package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

func TestStockRepositoryReserveRelease(t *testing.T) {
	store := NewStore()
	repo := NewStockRepository(store)

	if err := repo.Create(domain.Stock{ProductID: "prod-1", Total: 10, Available: 10}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stock, err := repo.Reserve("prod-1", 4)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if stock.Available != 6 || stock.Reserved != 4 {
		t.Errorf("unexpected counters: available=%d reserved=%d", stock.Available, stock.Reserved)
	}

	stock, err = repo.Release("prod-1", 4)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if stock.Available != 10 || stock.Reserved != 0 {
		t.Errorf("unexpected counters after release: available=%d reserved=%d", stock.Available, stock.Reserved)
	}
}

func TestStockRepositoryReserveInsufficient(t *testing.T) {
	store := NewStore()
	repo := NewStockRepository(store)

	if err := repo.Create(domain.Stock{ProductID: "prod-1", Total: 3, Available: 3}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repo.Reserve("prod-1", 5); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stock, _ := repo.Get("prod-1")
	if stock.Available != 3 || stock.Reserved != 0 {
		t.Errorf("failed reserve must not change counters: available=%d reserved=%d", stock.Available, stock.Reserved)
	}
}

func TestStockRepositoryConfirmSale(t *testing.T) {
	store := NewStore()
	repo := NewStockRepository(store)

	if err := repo.Create(domain.Stock{ProductID: "prod-1", Total: 10, Available: 10}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Reserve("prod-1", 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	stock, err := repo.ConfirmSale("prod-1", 4)
	if err != nil {
		t.Fatalf("confirm sale failed: %v", err)
	}
	if stock.Total != 6 || stock.Available != 6 || stock.Reserved != 0 {
		t.Errorf("unexpected counters after sale: total=%d available=%d reserved=%d",
			stock.Total, stock.Available, stock.Reserved)
	}
}

// Проверяем, что при конкурирующих резервах склад никогда не уходит в овердрафт.
func TestStockRepositoryConcurrentReserveNoOversell(t *testing.T) {
	store := NewStore()
	repo := NewStockRepository(store)

	const total = 50
	if err := repo.Create(domain.Stock{ProductID: "prod-1", Total: total, Available: total}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	var reserved int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve("prod-1", 1); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if reserved != total {
		t.Errorf("expected exactly %d successful reserves, got %d", total, reserved)
	}

	stock, err := repo.Get("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stock.Available != 0 || stock.Reserved != total {
		t.Errorf("unexpected counters: available=%d reserved=%d", stock.Available, stock.Reserved)
	}
	if err := stock.CheckInvariants(); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestReservationRepositoryListExpired(t *testing.T) {
	store := NewStore()
	orders := NewOrderRepository(store)
	reservations := NewReservationRepository(store)

	now := time.Now()
	order := testOrder("ord-1", "ORD-0001", "user-1", now)
	order.Reservations = []domain.StockReservation{
		{ID: "res-1", OrderID: "ord-1", ProductID: "prod-1", Qty: 1, Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-time.Minute)},
		{ID: "res-2", OrderID: "ord-1", ProductID: "prod-2", Qty: 1, Status: domain.ReservationStatusActive, ExpiresAt: now.Add(time.Hour)},
		{ID: "res-3", OrderID: "ord-1", ProductID: "prod-3", Qty: 1, Status: domain.ReservationStatusReleased, ExpiresAt: now.Add(-time.Hour)},
	}
	if err := orders.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	expired, err := reservations.ListExpired(now, 10)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "res-1" {
		t.Fatalf("expected only res-1 expired, got %v", expired)
	}

	expired[0].Status = domain.ReservationStatusReleased
	expired[0].ReleasedAt = now
	if err := reservations.Update(expired[0]); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	again, err := reservations.ListExpired(now, 10)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("released reservation must not be listed as expired: %v", again)
	}
}
