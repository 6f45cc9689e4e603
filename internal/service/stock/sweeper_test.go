package stock

import (
	"context"
	"testing"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
	"github.com/aabdeab/para-ecommerce/internal/storage/memory"
)

func TestSweeperReleaseExpired(t *testing.T) {
	store := memory.NewStore()
	stocks := memory.NewStockRepository(store)
	reservations := memory.NewReservationRepository(store)
	timeline := memory.NewTimelineRepository(store)

	if err := stocks.Create(domain.Stock{ProductID: "prod-1", Total: 10, Available: 6, Reserved: 4}); err != nil {
		t.Fatalf("create stock: %v", err)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:       "ord-1",
		UserID:   "user-1",
		Currency: "USD",
		Status:   domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "prod-1", Qty: 4, UnitPriceMinor: 100, TotalMinor: 400},
		},
		SubtotalMinor: 400,
		TotalMinor:    400,
		Reservations: []domain.StockReservation{
			{ID: "res-expired", OrderID: "ord-1", ProductID: "prod-1", Qty: 3, Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-time.Minute)},
			{ID: "res-live", OrderID: "ord-1", ProductID: "prod-1", Qty: 1, Status: domain.ReservationStatusActive, ExpiresAt: now.Add(time.Hour)},
		},
	}
	if err := memory.NewOrderRepository(store).Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	sweeper := NewSweeper(reservations, stocks, timeline, WithSweepBatchSize(10))

	released, err := sweeper.ReleaseExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("release expired failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released reservation, got %d", released)
	}

	stock, _ := stocks.Get("prod-1")
	if stock.Available != 9 || stock.Reserved != 1 {
		t.Errorf("unexpected counters: available=%d reserved=%d", stock.Available, stock.Reserved)
	}

	remaining, _ := reservations.ListByOrder("ord-1")
	for _, res := range remaining {
		switch res.ID {
		case "res-expired":
			if res.Status != domain.ReservationStatusReleased {
				t.Errorf("expired reservation must be released, got %s", res.Status)
			}
		case "res-live":
			if res.Status != domain.ReservationStatusActive {
				t.Errorf("live reservation must stay active, got %s", res.Status)
			}
		}
	}

	events, _ := timeline.List("ord-1")
	if len(events) != 1 || events[0].Event != domain.TimelineReservationExpired {
		t.Errorf("expected a reservation_expired timeline event, got %v", events)
	}
}

func TestSweeperReleaseExpiredEmpty(t *testing.T) {
	store := memory.NewStore()
	sweeper := NewSweeper(
		memory.NewReservationRepository(store),
		memory.NewStockRepository(store),
		memory.NewTimelineRepository(store),
	)

	released, err := sweeper.ReleaseExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("release expired failed: %v", err)
	}
	if released != 0 {
		t.Errorf("expected 0 released, got %d", released)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	sweeper := NewSweeper(
		memory.NewReservationRepository(store),
		memory.NewStockRepository(store),
		memory.NewTimelineRepository(store),
		WithSweepInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
