package cart

import (
	"errors"
	"testing"

	"github.com/aabdeab/para-ecommerce/internal/cache"
	"github.com/aabdeab/para-ecommerce/internal/domain"
	"github.com/aabdeab/para-ecommerce/internal/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := memory.NewStore()
	return NewService(memory.NewCartRepository(store), cache.NewMemory(), nil, nil)
}

// fakeStockChecker отвечает фиксированным остатком по каждому товару.
type fakeStockChecker struct {
	available map[string]int32
}

func (f *fakeStockChecker) IsAvailable(productID string, qty int32) (bool, error) {
	limit, ok := f.available[productID]
	if !ok {
		return false, domain.ErrStockNotFound
	}
	return qty <= limit, nil
}

func userOwner() Owner  { return Owner{UserID: "user-1"} }
func guestOwner() Owner { return Owner{GuestID: "guest-1"} }

func TestGetEmptyCart(t *testing.T) {
	svc := newTestService(t)

	cart, err := svc.Get(userOwner())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !cart.IsEmpty() {
		t.Error("new cart must be empty")
	}
	if cart.UserID != "user-1" {
		t.Errorf("cart owner not set: %+v", cart)
	}
}

func TestOwnerValidation(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Get(Owner{}); !errors.Is(err, domain.ErrOwnerRequired) {
		t.Errorf("expected ErrOwnerRequired, got %v", err)
	}
	if _, err := svc.Get(Owner{UserID: "u", GuestID: "g"}); !errors.Is(err, domain.ErrOwnerConflict) {
		t.Errorf("expected ErrOwnerConflict, got %v", err)
	}
}

func TestAddItemAndTotals(t *testing.T) {
	svc := newTestService(t)

	cart, err := svc.AddItem(userOwner(), "prod-1", 2, 1000)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if cart.TotalItems != 2 || cart.TotalMinor != 2000 {
		t.Errorf("unexpected totals: items=%d total=%d", cart.TotalItems, cart.TotalMinor)
	}

	// Повторное добавление того же товара сливается в одну позицию.
	cart, err = svc.AddItem(userOwner(), "prod-1", 1, 1000)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Qty != 3 {
		t.Errorf("items must merge: %+v", cart.Items)
	}

	cart, err = svc.AddItem(userOwner(), "prod-2", 1, 500)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if cart.TotalItems != 4 || cart.TotalMinor != 3500 {
		t.Errorf("unexpected totals: items=%d total=%d", cart.TotalItems, cart.TotalMinor)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddItem(userOwner(), "", 1, 100); !errors.Is(err, domain.ErrProductIDRequired) {
		t.Errorf("expected ErrProductIDRequired, got %v", err)
	}
	if _, err := svc.AddItem(userOwner(), "prod-1", 0, 100); !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Errorf("expected ErrItemQtyInvalid, got %v", err)
	}
	if _, err := svc.AddItem(userOwner(), "prod-1", 1, -5); !errors.Is(err, domain.ErrItemPriceInvalid) {
		t.Errorf("expected ErrItemPriceInvalid, got %v", err)
	}
}

func TestAddItemChecksAvailability(t *testing.T) {
	store := memory.NewStore()
	stocks := &fakeStockChecker{available: map[string]int32{"prod-1": 3}}
	svc := NewService(memory.NewCartRepository(store), nil, stocks, nil)

	if _, err := svc.AddItem(userOwner(), "prod-1", 2, 1000); err != nil {
		t.Fatalf("add within stock failed: %v", err)
	}

	// Слияние с уже лежащим количеством тоже проверяется: 2 + 2 > 3.
	if _, err := svc.AddItem(userOwner(), "prod-1", 2, 1000); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock on merge, got %v", err)
	}

	if _, err := svc.AddItem(userOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add up to stock limit failed: %v", err)
	}

	if _, err := svc.AddItem(userOwner(), "prod-unknown", 1, 1000); !errors.Is(err, domain.ErrStockNotFound) {
		t.Errorf("expected ErrStockNotFound, got %v", err)
	}

	cart, err := svc.Get(userOwner())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Qty != 3 {
		t.Errorf("rejected adds must not change the cart: %+v", cart.Items)
	}
}

func TestUpdateItemQtyChecksAvailability(t *testing.T) {
	store := memory.NewStore()
	stocks := &fakeStockChecker{available: map[string]int32{"prod-1": 3}}
	svc := NewService(memory.NewCartRepository(store), nil, stocks, nil)

	if _, err := svc.AddItem(userOwner(), "prod-1", 2, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if _, err := svc.UpdateItemQty(userOwner(), "prod-1", 5); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := svc.UpdateItemQty(userOwner(), "prod-1", 3); err != nil {
		t.Fatalf("update within stock failed: %v", err)
	}
}

func TestUpdateItemQty(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddItem(userOwner(), "prod-1", 2, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	cart, err := svc.UpdateItemQty(userOwner(), "prod-1", 5)
	if err != nil {
		t.Fatalf("update qty failed: %v", err)
	}
	if cart.Items[0].Qty != 5 || cart.TotalMinor != 5000 {
		t.Errorf("unexpected cart state: %+v", cart)
	}

	// Нулевое количество удаляет позицию.
	cart, err = svc.UpdateItemQty(userOwner(), "prod-1", 0)
	if err != nil {
		t.Fatalf("zero qty update failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("zero qty must remove the item: %+v", cart.Items)
	}

	if _, err := svc.UpdateItemQty(userOwner(), "prod-missing", 1); !errors.Is(err, domain.ErrCartNotFound) {
		t.Errorf("expected ErrCartNotFound for unknown item, got %v", err)
	}
}

func TestRemoveItem(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddItem(userOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := svc.AddItem(userOwner(), "prod-2", 1, 500); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	cart, err := svc.RemoveItem(userOwner(), "prod-1")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "prod-2" {
		t.Errorf("unexpected items: %+v", cart.Items)
	}
	if cart.TotalMinor != 500 {
		t.Errorf("totals not recalculated: %d", cart.TotalMinor)
	}
}

func TestClear(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddItem(guestOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if err := svc.Clear(guestOwner()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	cart, err := svc.Get(guestOwner())
	if err != nil {
		t.Fatalf("get after clear failed: %v", err)
	}
	if !cart.IsEmpty() {
		t.Errorf("cart must be empty after clear: %+v", cart)
	}

	// Повторная очистка — no-op.
	if err := svc.Clear(guestOwner()); err != nil {
		t.Fatalf("repeated clear must be a no-op: %v", err)
	}
}

func TestGuestAndUserCartsAreSeparate(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddItem(userOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := svc.AddItem(guestOwner(), "prod-2", 2, 500); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	userCart, _ := svc.Get(userOwner())
	guestCart, _ := svc.Get(guestOwner())

	if len(userCart.Items) != 1 || userCart.Items[0].ProductID != "prod-1" {
		t.Errorf("unexpected user cart: %+v", userCart.Items)
	}
	if len(guestCart.Items) != 1 || guestCart.Items[0].ProductID != "prod-2" {
		t.Errorf("unexpected guest cart: %+v", guestCart.Items)
	}
}

// Мутация через репозиторий в обход кэша: сервис инвалидирует ключ при мутациях,
// поэтому повторное чтение после мутации видит свежие данные.
func TestCacheInvalidationOnMutation(t *testing.T) {
	store := memory.NewStore()
	c := cache.NewMemory()
	svc := NewService(memory.NewCartRepository(store), c, nil, nil)

	if _, err := svc.AddItem(userOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	// Прогреваем кэш.
	if _, err := svc.Get(userOwner()); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if _, err := svc.AddItem(userOwner(), "prod-1", 1, 1000); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	cart, err := svc.Get(userOwner())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cart.Items[0].Qty != 2 {
		t.Errorf("stale cache served after mutation: %+v", cart.Items)
	}
}
