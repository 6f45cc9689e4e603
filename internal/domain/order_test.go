package domain

import (
	"errors"
	"testing"
)

func validOrder() *Order {
	return &Order{
		ID:          "ord-1",
		OrderNumber: "ORD-TEST0001",
		UserID:      "user-1",
		Items: []OrderItem{
			{ID: "item-1", ProductID: "prod-1", Qty: 2, UnitPriceMinor: 1000, TotalMinor: 2000},
		},
		SubtotalMinor: 2000,
		TaxMinor:      160,
		ShippingMinor: 500,
		TotalMinor:    2660,
		Currency:      "USD",
		Status:        OrderStatusPending,
	}
}

func TestOrderTransitionTable(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusConfirmed, OrderStatusCanceled, true},
		{OrderStatusConfirmed, OrderStatusFailed, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCanceled, true},
		{OrderStatusProcessing, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCanceled, false},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusDelivered, OrderStatusRefunded, true},
		{OrderStatusCanceled, OrderStatusPending, false},
		{OrderStatusFailed, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusRefunded, false},
		{OrderStatusRefunded, OrderStatusCompleted, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderTerminalStatuses(t *testing.T) {
	terminal := []OrderStatus{OrderStatusCanceled, OrderStatusFailed, OrderStatusCompleted, OrderStatusRefunded}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("status %s should be terminal", s)
		}
	}

	active := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("status %s should not be terminal", s)
		}
	}
}

func TestOrderCanBeCanceled(t *testing.T) {
	cancelable := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing}
	for _, s := range cancelable {
		o := &Order{Status: s}
		if !o.CanBeCanceled() {
			t.Errorf("order in status %s should be cancelable", s)
		}
	}

	notCancelable := []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCanceled, OrderStatusFailed, OrderStatusRefunded}
	for _, s := range notCancelable {
		o := &Order{Status: s}
		if o.CanBeCanceled() {
			t.Errorf("order in status %s should not be cancelable", s)
		}
	}
}

func TestOrderValidateInvariantsOK(t *testing.T) {
	o := validOrder()
	if errs := o.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected valid order, got errors: %v", errs)
	}
}

func TestOrderValidateInvariantsOwner(t *testing.T) {
	o := validOrder()
	o.UserID = ""
	errs := o.ValidateInvariants()
	if !containsErr(errs, ErrOwnerRequired) {
		t.Errorf("expected ErrOwnerRequired, got %v", errs)
	}

	o = validOrder()
	o.GuestID = "guest-1"
	errs = o.ValidateInvariants()
	if !containsErr(errs, ErrOwnerConflict) {
		t.Errorf("expected ErrOwnerConflict, got %v", errs)
	}
}

func TestOrderValidateInvariantsTotals(t *testing.T) {
	o := validOrder()
	o.TotalMinor = 9999
	errs := o.ValidateInvariants()
	if !containsErr(errs, ErrTotalMismatch) {
		t.Errorf("expected ErrTotalMismatch, got %v", errs)
	}

	o = validOrder()
	o.SubtotalMinor = 100
	o.TotalMinor = 100 + o.TaxMinor + o.ShippingMinor
	errs = o.ValidateInvariants()
	if !containsErr(errs, ErrAmountMismatch) {
		t.Errorf("expected ErrAmountMismatch, got %v", errs)
	}
}

func TestOrderGuestFlags(t *testing.T) {
	o := &Order{GuestID: "guest-1", GuestEmail: "g@example.com"}
	if !o.IsGuestOrder() {
		t.Error("order with guest ID should be a guest order")
	}

	o = &Order{UserID: "user-1"}
	if o.IsGuestOrder() {
		t.Error("order with user ID should not be a guest order")
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := NewInvalidTransition(OrderStatusShipped, OrderStatusCanceled)
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected errors.Is(err, ErrInvalidStatusTransition), got %v", err)
	}

	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if ite.From != OrderStatusShipped || ite.To != OrderStatusCanceled {
		t.Errorf("unexpected transition in error: %s -> %s", ite.From, ite.To)
	}
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
