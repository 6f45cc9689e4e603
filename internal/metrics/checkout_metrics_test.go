package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCheckoutMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := newCheckoutMetricsWithRegisterer(registry)
	if m == nil {
		t.Fatal("expected metrics instance")
	}

	m.RecordCheckoutStarted()
	m.RecordCheckoutCompleted()
	m.RecordCheckoutFailed()
	m.RecordOrderCanceled()
	m.RecordOrderRefunded()
	m.RecordPaymentDeclined()
	m.RecordCheckoutFinished()
	m.RecordCheckoutDuration(150 * time.Millisecond)
	m.RecordStepDuration("reserve", 5*time.Millisecond)
	m.RecordTimelineEvent()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

// Повторное создание на том же registerer возвращает уже зарегистрированные коллекторы.
func TestNewCheckoutMetricsReuse(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(registry)
	second := newCheckoutMetricsWithRegisterer(registry)

	first.RecordCheckoutStarted()
	second.RecordCheckoutStarted()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	for _, family := range families {
		if family.GetName() == "commerce_checkout_started_total" {
			value := family.GetMetric()[0].GetCounter().GetValue()
			if value != 2 {
				t.Errorf("expected shared counter value 2, got %v", value)
			}
			return
		}
	}
	t.Fatal("commerce_checkout_started_total not found")
}
