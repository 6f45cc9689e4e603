package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/health"
	"github.com/aabdeab/para-ecommerce/internal/service/cart"
	"github.com/aabdeab/para-ecommerce/internal/service/checkout"
	"github.com/aabdeab/para-ecommerce/internal/service/order"
	"github.com/aabdeab/para-ecommerce/internal/service/stock"
)

// Server — тонкая HTTP-граница над сервисами чекаута.
// Вся бизнес-логика живёт в сервисах, здесь только декодирование,
// маршрутизация и трансляция типизированных ошибок в HTTP-коды.
type Server struct {
	orch    *checkout.Orchestrator
	orders  *order.Service
	carts   *cart.Service
	ledger  *stock.Ledger
	healthH *health.Handler
	logger  *log.Entry
	router  chi.Router
}

// NewServer собирает HTTP-сервер с маршрутами API.
func NewServer(
	orch *checkout.Orchestrator,
	orders *order.Service,
	carts *cart.Service,
	ledger *stock.Ledger,
	healthHandler *health.Handler,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}

	s := &Server{
		orch:    orch,
		orders:  orders,
		carts:   carts,
		ledger:  ledger,
		healthH: healthHandler,
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/livez", health.LivenessHandler)
	if s.healthH != nil {
		r.Method(http.MethodGet, "/healthz", s.healthH)
		r.Get("/readyz", s.healthH.ReadinessHandler)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/users/{userID}/orders", s.handleCheckoutUser)
			r.Post("/guests/{guestID}/orders", s.handleCheckoutGuest)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/number/{orderNumber}", s.handleGetOrderByNumber)
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", s.handleGetOrder)
				r.Get("/timeline", s.handleGetTimeline)
				r.Post("/payment", s.handleProcessPayment)
				r.Post("/cancel", s.handleCancelOrder)
				r.Post("/status", s.handleAdvanceStatus)
			})
		})

		r.Get("/users/{userID}/orders", s.handleListUserOrders)

		r.Route("/users/{userID}/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart(userOwner))
			r.Delete("/", s.handleClearCart(userOwner))
			r.Post("/items", s.handleAddCartItem(userOwner))
			r.Put("/items/{productID}", s.handleUpdateCartItem(userOwner))
			r.Delete("/items/{productID}", s.handleRemoveCartItem(userOwner))
		})
		r.Route("/guests/{guestID}/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart(guestOwner))
			r.Delete("/", s.handleClearCart(guestOwner))
			r.Post("/items", s.handleAddCartItem(guestOwner))
			r.Put("/items/{productID}", s.handleUpdateCartItem(guestOwner))
			r.Delete("/items/{productID}", s.handleRemoveCartItem(guestOwner))
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Post("/", s.handleCreateStock)
			r.Get("/{productID}", s.handleGetStock)
		})
	})

	return r
}

// logRequests пишет access-лог в стиле structured logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}

type ownerKind int

const (
	userOwner ownerKind = iota
	guestOwner
)

func ownerFromRequest(r *http.Request, kind ownerKind) cart.Owner {
	if kind == userOwner {
		return cart.Owner{UserID: chi.URLParam(r, "userID")}
	}
	return cart.Owner{GuestID: chi.URLParam(r, "guestID")}
}
