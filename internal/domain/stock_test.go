package domain

import (
	"errors"
	"testing"
)

func TestStockApplyReserve(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 10}

	if err := s.ApplyReserve(4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if s.Available != 6 || s.Reserved != 4 {
		t.Errorf("unexpected counters after reserve: available=%d reserved=%d", s.Available, s.Reserved)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestStockApplyReserveInsufficient(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 3}

	err := s.ApplyReserve(5)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if s.Available != 3 || s.Reserved != 0 {
		t.Errorf("counters must not change on failed reserve: available=%d reserved=%d", s.Available, s.Reserved)
	}
}

func TestStockApplyReserveInvalidQty(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 10}
	if err := s.ApplyReserve(0); !errors.Is(err, ErrReservationQtyInvalid) {
		t.Errorf("expected ErrReservationQtyInvalid for qty 0, got %v", err)
	}
	if err := s.ApplyReserve(-1); !errors.Is(err, ErrReservationQtyInvalid) {
		t.Errorf("expected ErrReservationQtyInvalid for negative qty, got %v", err)
	}
}

func TestStockApplyRelease(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 6, Reserved: 4}

	s.ApplyRelease(3)
	if s.Available != 9 || s.Reserved != 1 {
		t.Errorf("unexpected counters after release: available=%d reserved=%d", s.Available, s.Reserved)
	}

	// Повторный release сверх остатка резерва зажимается, счётчики не уходят в минус.
	s.ApplyRelease(5)
	if s.Available != 10 || s.Reserved != 0 {
		t.Errorf("release must clamp: available=%d reserved=%d", s.Available, s.Reserved)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestStockApplyConfirmSale(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 6, Reserved: 4}

	s.ApplyConfirmSale(4)
	if s.Total != 6 || s.Reserved != 0 || s.Available != 6 {
		t.Errorf("unexpected counters after sale: total=%d available=%d reserved=%d", s.Total, s.Available, s.Reserved)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestStockLowStock(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 10, Available: 2, LowStockThreshold: 5}
	if !s.LowStock() {
		t.Error("expected low stock when available below threshold")
	}

	s.Available = 5
	if s.LowStock() {
		t.Error("available at threshold is not low stock")
	}

	s.LowStockThreshold = 0
	s.Available = 0
	if s.LowStock() {
		t.Error("zero threshold disables low stock signal")
	}
}

func TestStockCheckInvariants(t *testing.T) {
	s := &Stock{ProductID: "prod-1", Total: 5, Available: 4, Reserved: 3}
	if err := s.CheckInvariants(); !errors.Is(err, ErrStockInvariantViolated) {
		t.Fatalf("expected ErrStockInvariantViolated, got %v", err)
	}
}
