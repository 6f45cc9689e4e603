package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

func createIntegrationStock(t *testing.T, repo domain.StockRepository, productID string, total int32) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Create(domain.Stock{
		ProductID: productID,
		Total:     total,
		Available: total,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestStockRepositoryIntegrationReserveRelease(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStockRepository(store)

	createIntegrationStock(t, repo, "sku-int-1", 10)

	stock, err := repo.Reserve("sku-int-1", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(6), stock.Available)
	assert.Equal(t, int32(4), stock.Reserved)

	_, err = repo.Reserve("sku-int-1", 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	stock, err = repo.Release("sku-int-1", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(10), stock.Available)
	assert.Equal(t, int32(0), stock.Reserved)
}

func TestStockRepositoryIntegrationReserveMissingProduct(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStockRepository(store)

	_, err := repo.Reserve("sku-missing", 1)
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestStockRepositoryIntegrationConfirmSale(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStockRepository(store)

	createIntegrationStock(t, repo, "sku-int-2", 10)

	_, err := repo.Reserve("sku-int-2", 3)
	require.NoError(t, err)

	stock, err := repo.ConfirmSale("sku-int-2", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(7), stock.Total)
	assert.Equal(t, int32(7), stock.Available)
	assert.Equal(t, int32(0), stock.Reserved)
}

// Конкурентные резервы не должны продать больше, чем есть на складе:
// условный UPDATE в базе отбивает лишние попытки.
func TestStockRepositoryIntegrationConcurrentReserve(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewStockRepository(store)

	const total = 20
	createIntegrationStock(t, repo, "sku-int-3", total)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve("sku-int-3", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, total, succeeded)

	stock, err := repo.Get("sku-int-3")
	require.NoError(t, err)
	assert.Equal(t, int32(0), stock.Available)
	assert.Equal(t, int32(total), stock.Reserved)
}
