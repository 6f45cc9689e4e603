package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type checkoutRequest struct {
	ShippingAddress      string `json:"shipping_address"`
	BillingAddress       string `json:"billing_address"`
	Method               string `json:"payment_method"`
	GuestEmail           string `json:"guest_email"`
	ExpressShipping      bool   `json:"express_shipping"`
	DiscountMinor        int64  `json:"discount_minor"`
	DeliveryInstructions string `json:"delivery_instructions"`
	PromoCode            string `json:"promo_code"`
}

func (req checkoutRequest) toDomain() domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		ShippingAddress:      req.ShippingAddress,
		BillingAddress:       req.BillingAddress,
		Method:               domain.PaymentMethod(req.Method),
		GuestEmail:           req.GuestEmail,
		ExpressShipping:      req.ExpressShipping,
		DiscountMinor:        req.DiscountMinor,
		DeliveryInstructions: req.DeliveryInstructions,
		PromoCode:            req.PromoCode,
	}
}

func (s *Server) handleCheckoutUser(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := s.orch.CreateOrderForUser(chi.URLParam(r, "userID"), req.toDomain())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(order))
}

func (s *Server) handleCheckoutGuest(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := s.orch.CreateOrderForGuest(chi.URLParam(r, "guestID"), req.toDomain())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(order))
}

type paymentRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	CardNumber  string `json:"card_number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
	PayPalEmail string `json:"paypal_email"`
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := s.orch.ProcessPayment(chi.URLParam(r, "orderID"), domain.PaymentRequest{
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		CardNumber:  req.CardNumber,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
		PayPalEmail: req.PayPalEmail,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := s.orch.CancelOrder(chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type advanceStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var req advanceStatusRequest
	if err := decodeJSON(r, &req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}

	order, err := s.orch.AdvanceOrderStatus(chi.URLParam(r, "orderID"), domain.OrderStatus(req.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) handleGetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetByNumber(chi.URLParam(r, "orderNumber"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) handleListUserOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	orders, err := s.orders.ListByUser(chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, toOrderView(order))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	// Лента пустая и для несуществующего заказа, проверяем существование явно.
	if _, err := s.orders.Get(orderID); err != nil {
		s.writeError(w, err)
		return
	}

	events, err := s.orders.Timeline(orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineView(events))
}

type createStockRequest struct {
	ProductID         string `json:"product_id"`
	Total             int32  `json:"total"`
	LowStockThreshold int32  `json:"low_stock_threshold"`
}

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	stock, err := s.ledger.CreateStock(req.ProductID, req.Total, req.LowStockThreshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockView(stock))
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := s.ledger.Stock(chi.URLParam(r, "productID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockView(stock))
}
