package app

import (
	"context"
	"testing"

	"github.com/aabdeab/para-ecommerce/internal/config"
)

func TestBuildInMemoryDependencies(t *testing.T) {
	cfg := config.Default()

	deps, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}
	defer deps.Close()

	if deps.Store != nil {
		t.Error("in-memory config must not open postgres")
	}
	if deps.Producer != nil {
		t.Error("kafka producer must not be created without brokers")
	}
	if deps.Orders == nil || deps.Stocks == nil || deps.Reservations == nil ||
		deps.Carts == nil || deps.Timeline == nil {
		t.Fatal("repositories are not wired")
	}
	if deps.Cache == nil {
		t.Fatal("cache is not wired")
	}
	if deps.Ledger == nil || deps.OrderService == nil || deps.CartService == nil {
		t.Fatal("services are not wired")
	}
	if deps.Orchestrator == nil || deps.Dispatcher == nil || deps.Sweeper == nil {
		t.Fatal("checkout pipeline is not wired")
	}
	if deps.Health == nil || deps.API == nil {
		t.Fatal("http surface is not wired")
	}
}

func TestBuildFailsOnBadPostgresDSN(t *testing.T) {
	cfg := config.Default()
	cfg.PostgresDSN = "not-a-dsn"

	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for invalid postgres dsn")
	}
}

func TestDependenciesWorkEndToEnd(t *testing.T) {
	deps, err := Build(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}
	defer deps.Close()

	if _, err := deps.Ledger.CreateStock("sku-1", 5, 0); err != nil {
		t.Fatalf("create stock: %v", err)
	}
	stock, err := deps.Ledger.Stock("sku-1")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.Available != 5 {
		t.Errorf("expected 5 available, got %d", stock.Available)
	}
}
