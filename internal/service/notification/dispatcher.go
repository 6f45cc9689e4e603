package notification

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 4
)

var (
	notificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_notifications_sent_total",
		Help: "Total number of notifications handed to the sink grouped by kind and result.",
	}, []string{"kind", "result"})
	notificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_notifications_dropped_total",
		Help: "Total number of notifications dropped due to a full queue.",
	})
)

// Dispatcher асинхронно доставляет клиентские уведомления через пул воркеров.
// Очередь ограничена: при переполнении уведомление отбрасывается с warning,
// чекаут никогда не блокируется на доставке.
type Dispatcher struct {
	sink    domain.NotificationSink
	logger  *log.Entry
	queue   chan domain.Notification
	workers int

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// DispatcherOption настраивает Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize задаёт ёмкость очереди уведомлений.
func WithQueueSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan domain.Notification, size)
		}
	}
}

// WithWorkers задаёт число воркеров доставки.
func WithWorkers(workers int) DispatcherOption {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workers = workers
		}
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(sink domain.NotificationSink, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		logger:  log.WithField("component", "notification-dispatcher"),
		queue:   make(chan domain.Notification, defaultQueueSize),
		workers: defaultWorkers,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Start запускает воркеры доставки. Повторные вызовы игнорируются.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
		d.logger.WithField("workers", d.workers).Info("notification dispatcher started")
	})
}

// Enqueue ставит уведомление в очередь без блокировки.
// При переполненной очереди уведомление теряется, это осознанный trade-off:
// уведомления не влияют на исход саги.
func (d *Dispatcher) Enqueue(n domain.Notification) {
	select {
	case d.queue <- n:
	default:
		notificationsDroppedTotal.Inc()
		d.logger.WithFields(log.Fields{
			"kind":         n.Kind,
			"order_number": n.OrderNumber,
		}).Warn("notification queue full, dropping")
	}
}

// Close останавливает приём, дожидается доставки уже принятых уведомлений.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.queue)
		d.wg.Wait()
		d.logger.Info("notification dispatcher stopped")
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for n := range d.queue {
		if err := d.sink.Send(n); err != nil {
			notificationsSentTotal.WithLabelValues(string(n.Kind), "error").Inc()
			d.logger.WithError(err).WithFields(log.Fields{
				"kind":         n.Kind,
				"order_number": n.OrderNumber,
			}).Warn("notification delivery failed")
			continue
		}
		notificationsSentTotal.WithLabelValues(string(n.Kind), "ok").Inc()
	}
}

// LogSink пишет уведомления в лог. Реальные каналы доставки (email, sms)
// подключаются собственными реализациями NotificationSink.
type LogSink struct {
	logger *log.Entry
}

// NewLogSink создаёт лог-реализацию NotificationSink.
func NewLogSink(logger *log.Entry) *LogSink {
	if logger == nil {
		logger = log.WithField("component", "notification-log-sink")
	}
	return &LogSink{logger: logger}
}

// Send пишет уведомление в лог.
func (s *LogSink) Send(n domain.Notification) error {
	s.logger.WithFields(log.Fields{
		"kind":         n.Kind,
		"order_number": n.OrderNumber,
		"recipient":    n.Recipient,
		"reason":       n.Reason,
	}).Info("notification sent")
	return nil
}

var _ domain.NotificationSink = (*LogSink)(nil)
