package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aabdeab/para-ecommerce/internal/config"
)

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := config.Default()
	// Случайные порты, чтобы параллельные тесты не конфликтовали.
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
