package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

const (
	defaultSweepInterval  = time.Minute
	defaultSweepBatchSize = 200
)

var (
	sweeperRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_reservation_sweeper_runs_total",
		Help: "Total number of reservation sweeper runs grouped by result.",
	}, []string{"result"})
	sweeperReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_reservation_sweeper_released_total",
		Help: "Total number of expired reservations released back to stock.",
	})
	sweeperLastReleased = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commerce_reservation_sweeper_last_released",
		Help: "Number of reservations released during the last sweeper run.",
	})
)

// SweeperOptions задаёт параметры фоновой зачистки просроченных резервов.
type SweeperOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// SweeperOption настраивает Sweeper.
type SweeperOption func(*SweeperOptions)

// WithSweeperLogger задаёт logger для воркера.
func WithSweeperLogger(logger *log.Entry) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Logger = logger
	}
}

// WithSweepInterval задаёт интервал между проходами.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Interval = interval
	}
}

// WithSweepBatchSize задаёт максимум резервов за один проход.
func WithSweepBatchSize(batchSize int) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.BatchSize = batchSize
	}
}

// Sweeper периодически снимает просроченные резервы, возвращая количество
// в продажу. Подстраховка на случай заказов, так и не дошедших до оплаты.
type Sweeper struct {
	reservations domain.ReservationRepository
	stocks       domain.StockRepository
	timeline     domain.TimelineRepository
	logger       *log.Entry
	interval     time.Duration
	batchSize    int
}

// NewSweeper создаёт воркер зачистки просроченных резервов.
func NewSweeper(
	reservations domain.ReservationRepository,
	stocks domain.StockRepository,
	timeline domain.TimelineRepository,
	options ...SweeperOption,
) *Sweeper {
	opts := SweeperOptions{
		Interval:  defaultSweepInterval,
		BatchSize: defaultSweepBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "reservation-sweeper")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSweepBatchSize
	}

	return &Sweeper{
		reservations: reservations,
		stocks:       stocks,
		timeline:     timeline,
		logger:       logger,
		interval:     opts.Interval,
		batchSize:    opts.BatchSize,
	}
}

// Run запускает периодическую зачистку до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.reservations == nil || s.stocks == nil {
		s.logger.Warn("reservation sweeper is disabled: repositories are not configured")
		return
	}

	s.sweep(ctx, time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, time.Now().UTC())
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	released, err := s.ReleaseExpired(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		sweeperRunsTotal.WithLabelValues("error").Inc()
		s.logger.WithError(err).Warn("reservation sweep failed")
		return
	}

	sweeperRunsTotal.WithLabelValues("ok").Inc()
	sweeperLastReleased.Set(float64(released))
	if released > 0 {
		s.logger.WithField("released", released).Info("expired reservations released")
	}
}

// ReleaseExpired снимает все резервы с истёкшим сроком порциями batchSize
// и возвращает число обработанных записей.
func (s *Sweeper) ReleaseExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalReleased := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalReleased, err
		}

		expired, err := s.reservations.ListExpired(before, s.batchSize)
		if err != nil {
			return totalReleased, err
		}
		if len(expired) == 0 {
			break
		}

		for _, res := range expired {
			if err := s.releaseOne(res, before); err != nil {
				s.logger.WithError(err).WithFields(log.Fields{
					"reservation_id": res.ID,
					"order_id":       res.OrderID,
				}).Error("release expired reservation failed")
				continue
			}
			totalReleased++
			sweeperReleasedTotal.Inc()
		}

		if len(expired) < s.batchSize {
			break
		}
	}

	return totalReleased, nil
}

func (s *Sweeper) releaseOne(res domain.StockReservation, now time.Time) error {
	if _, err := s.stocks.Release(res.ProductID, res.Qty); err != nil {
		return err
	}

	res.Status = domain.ReservationStatusReleased
	res.ReleasedAt = now
	if err := s.reservations.Update(res); err != nil {
		return err
	}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			ID:        uuid.NewString(),
			OrderID:   res.OrderID,
			Event:     domain.TimelineReservationExpired,
			Detail:    "reservation expired, stock released",
			CreatedAt: now,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithField("order_id", res.OrderID).Warn("append timeline event failed")
		}
	}

	return nil
}
