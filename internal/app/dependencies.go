package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/cache"
	"github.com/aabdeab/para-ecommerce/internal/config"
	"github.com/aabdeab/para-ecommerce/internal/domain"
	"github.com/aabdeab/para-ecommerce/internal/health"
	"github.com/aabdeab/para-ecommerce/internal/httpapi"
	"github.com/aabdeab/para-ecommerce/internal/messaging/kafka"
	"github.com/aabdeab/para-ecommerce/internal/service/cart"
	"github.com/aabdeab/para-ecommerce/internal/service/checkout"
	"github.com/aabdeab/para-ecommerce/internal/service/notification"
	"github.com/aabdeab/para-ecommerce/internal/service/order"
	"github.com/aabdeab/para-ecommerce/internal/service/payment"
	"github.com/aabdeab/para-ecommerce/internal/service/shipping"
	"github.com/aabdeab/para-ecommerce/internal/service/stock"
	"github.com/aabdeab/para-ecommerce/internal/storage/memory"
	"github.com/aabdeab/para-ecommerce/internal/storage/postgres"
	"github.com/aabdeab/para-ecommerce/internal/version"
)

// Dependencies содержит собранный граф зависимостей приложения.
type Dependencies struct {
	Store *postgres.Store // nil при in-memory хранилище

	Orders       domain.OrderRepository
	Stocks       domain.StockRepository
	Reservations domain.ReservationRepository
	Carts        domain.CartRepository
	Timeline     domain.TimelineRepository

	Cache    cache.Cache
	Producer *kafka.Producer

	Ledger       *stock.Ledger
	OrderService *order.Service
	CartService  *cart.Service
	Orchestrator *checkout.Orchestrator
	Dispatcher   *notification.Dispatcher
	Sweeper      *stock.Sweeper

	Health *health.Handler
	API    *httpapi.Server

	Logger *log.Entry
}

// Build собирает зависимости по конфигурации. Хранилище выбирается по
// наличию PostgreSQL DSN, Redis и Kafka подключаются опционально.
func Build(ctx context.Context, cfg config.Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Logger: logger,
		Health: health.NewHandler(version.String()),
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, err
	}
	if err := deps.initCache(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	deps.initKafka(cfg)
	deps.initServices(cfg)

	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg config.Config) error {
	if cfg.PostgresDSN == "" {
		store := memory.NewStore()
		d.Orders = memory.NewOrderRepository(store)
		d.Stocks = memory.NewStockRepository(store)
		d.Reservations = memory.NewReservationRepository(store)
		d.Carts = memory.NewCartRepository(store)
		d.Timeline = memory.NewTimelineRepository(store)
		d.Logger.Info("using in-memory storage")
		return nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	d.Store = store
	d.Orders = postgres.NewOrderRepository(store)
	d.Stocks = postgres.NewStockRepository(store)
	d.Reservations = postgres.NewReservationRepository(store)
	d.Carts = postgres.NewCartRepository(store)
	d.Timeline = postgres.NewTimelineRepository(store)

	d.Health.RegisterFunc("postgres", func() error {
		return store.Ping(context.Background())
	})
	d.Logger.Info("using postgres storage")
	return nil
}

func (d *Dependencies) initCache(cfg config.Config) error {
	if cfg.RedisAddr == "" {
		d.Cache = cache.NewMemory()
		return nil
	}

	redisCache, err := cache.NewRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	d.Cache = redisCache

	d.Health.RegisterFunc("redis", func() error {
		_, err := redisCache.Get("healthcheck:ping")
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil
		}
		return err
	})
	d.Logger.WithField("addr", cfg.RedisAddr).Info("redis cache connected")
	return nil
}

// initKafka подключает producer опционально: без брокеров сервис работает,
// события просто не публикуются.
func (d *Dependencies) initKafka(cfg config.Config) {
	if len(cfg.KafkaBrokers) == 0 {
		return
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		d.Logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return
	}
	d.Producer = producer
	d.Logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
}

func (d *Dependencies) initServices(cfg config.Config) {
	d.Ledger = stock.NewLedger(d.Stocks, d.Reservations)
	d.CartService = cart.NewService(d.Carts, d.Cache, d.Ledger, log.WithField("component", "cart-service"))
	d.OrderService = order.NewService(d.Orders, d.Timeline, log.WithField("component", "order-service"))
	shipSvc := shipping.NewService(log.WithField("component", "shipping-service"))
	paySvc := payment.NewDefaultService(log.WithField("component", "payment-service"))

	d.Dispatcher = notification.NewDispatcher(notification.NewLogSink(nil))

	options := []checkout.Option{
		checkout.WithNotifier(d.Dispatcher),
	}
	if d.Producer != nil {
		options = append(options, checkout.WithKafkaProducer(d.Producer))
	}
	d.Orchestrator = checkout.NewOrchestrator(
		d.Orders,
		d.OrderService,
		d.CartService,
		d.Ledger,
		paySvc,
		shipSvc,
		d.Timeline,
		options...,
	)

	d.Sweeper = stock.NewSweeper(d.Reservations, d.Stocks, d.Timeline,
		stock.WithSweepInterval(cfg.SweepInterval),
	)

	d.API = httpapi.NewServer(
		d.Orchestrator,
		d.OrderService,
		d.CartService,
		d.Ledger,
		d.Health,
		log.WithField("component", "httpapi"),
	)
}

// Close освобождает внешние ресурсы в обратном порядке инициализации.
func (d *Dependencies) Close() {
	if d.Dispatcher != nil {
		d.Dispatcher.Close()
	}
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			d.Logger.Info("kafka producer closed")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
