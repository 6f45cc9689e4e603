package httpapi

import (
	"time"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// JSON-представления доменных объектов. Доменные структуры не несут
// json-тегов, форма ответа фиксируется здесь.

type orderView struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	UserID          string             `json:"user_id,omitempty"`
	GuestID         string             `json:"guest_id,omitempty"`
	GuestEmail      string             `json:"guest_email,omitempty"`
	SubtotalMinor   int64              `json:"subtotal_minor"`
	TaxMinor        int64              `json:"tax_minor"`
	ShippingMinor   int64              `json:"shipping_minor"`
	DiscountMinor   int64              `json:"discount_minor"`
	TotalMinor      int64              `json:"total_minor"`
	Currency        string             `json:"currency"`
	Status          string             `json:"status"`
	ShippingAddress string             `json:"shipping_address"`
	BillingAddress  string             `json:"billing_address"`
	Notes           string             `json:"notes,omitempty"`
	Items           []orderItemView    `json:"items"`
	Payment         *paymentView       `json:"payment,omitempty"`
	Shipment        *shipmentView      `json:"shipment,omitempty"`
	Reservations    []reservationView  `json:"reservations,omitempty"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	CanceledAt      *time.Time         `json:"canceled_at,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
}

type orderItemView struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	TotalMinor     int64  `json:"total_minor"`
}

type paymentView struct {
	ID            string     `json:"id"`
	Reference     string     `json:"reference"`
	Provider      string     `json:"provider"`
	Method        string     `json:"method"`
	AmountMinor   int64      `json:"amount_minor"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	ProviderTxnID string     `json:"provider_txn_id,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
}

type shipmentView struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Express           bool       `json:"express"`
	CostMinor         int64      `json:"cost_minor"`
	Address           string     `json:"address"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

type reservationView struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Qty       int32     `json:"qty"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type cartView struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	GuestID    string         `json:"guest_id,omitempty"`
	Items      []cartItemView `json:"items"`
	TotalItems int32          `json:"total_items"`
	TotalMinor int64          `json:"total_minor"`
}

type cartItemView struct {
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	SubtotalMinor  int64  `json:"subtotal_minor"`
}

type stockView struct {
	ProductID         string `json:"product_id"`
	Total             int32  `json:"total"`
	Available         int32  `json:"available"`
	Reserved          int32  `json:"reserved"`
	LowStockThreshold int32  `json:"low_stock_threshold"`
}

type timelineEventView struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toOrderView(order domain.Order) orderView {
	view := orderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		GuestID:         order.GuestID,
		GuestEmail:      order.GuestEmail,
		SubtotalMinor:   order.SubtotalMinor,
		TaxMinor:        order.TaxMinor,
		ShippingMinor:   order.ShippingMinor,
		DiscountMinor:   order.DiscountMinor,
		TotalMinor:      order.TotalMinor,
		Currency:        order.Currency,
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		Notes:           order.Notes,
		Items:           make([]orderItemView, 0, len(order.Items)),
		Version:         order.Version,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		CanceledAt:      optionalTime(order.CanceledAt),
		CancelReason:    order.CancelReason,
	}

	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			TotalMinor:     item.TotalMinor,
		})
	}

	if order.Payment != nil {
		view.Payment = &paymentView{
			ID:            order.Payment.ID,
			Reference:     order.Payment.Reference,
			Provider:      string(order.Payment.Provider),
			Method:        string(order.Payment.Method),
			AmountMinor:   order.Payment.AmountMinor,
			Currency:      order.Payment.Currency,
			Status:        string(order.Payment.Status),
			ProviderTxnID: order.Payment.ProviderTxnID,
			FailureReason: order.Payment.FailureReason,
			PaidAt:        optionalTime(order.Payment.PaidAt),
			RefundedAt:    optionalTime(order.Payment.RefundedAt),
		}
	}

	if order.Shipment != nil {
		view.Shipment = &shipmentView{
			ID:                order.Shipment.ID,
			Status:            string(order.Shipment.Status),
			Express:           order.Shipment.Express,
			CostMinor:         order.Shipment.CostMinor,
			Address:           order.Shipment.Address,
			Carrier:           string(order.Shipment.Carrier),
			TrackingNumber:    order.Shipment.TrackingNumber,
			EstimatedDelivery: optionalTime(order.Shipment.EstimatedDelivery),
			FailureReason:     order.Shipment.FailureReason,
			ShippedAt:         optionalTime(order.Shipment.ShippedAt),
			DeliveredAt:       optionalTime(order.Shipment.DeliveredAt),
		}
	}

	for _, res := range order.Reservations {
		view.Reservations = append(view.Reservations, reservationView{
			ID:        res.ID,
			ProductID: res.ProductID,
			Qty:       res.Qty,
			Status:    string(res.Status),
			ExpiresAt: res.ExpiresAt,
		})
	}

	return view
}

func toCartView(cart domain.Cart) cartView {
	view := cartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		GuestID:    cart.GuestID,
		Items:      make([]cartItemView, 0, len(cart.Items)),
		TotalItems: cart.TotalItems,
		TotalMinor: cart.TotalMinor,
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, cartItemView{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			SubtotalMinor:  item.SubtotalMinor(),
		})
	}
	return view
}

func toStockView(stock domain.Stock) stockView {
	return stockView{
		ProductID:         stock.ProductID,
		Total:             stock.Total,
		Available:         stock.Available,
		Reserved:          stock.Reserved,
		LowStockThreshold: stock.LowStockThreshold,
	}
}

func toTimelineView(events []domain.TimelineEvent) []timelineEventView {
	views := make([]timelineEventView, 0, len(events))
	for _, event := range events {
		views = append(views, timelineEventView{
			ID:         event.ID,
			Event:      event.Event,
			FromStatus: string(event.FromStatus),
			ToStatus:   string(event.ToStatus),
			Detail:     event.Detail,
			CreatedAt:  event.CreatedAt,
		})
	}
	return views
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
