package domain

import "time"

// ShipmentStatus описывает состояние отгрузки заказа.
type ShipmentStatus string

const (
	// ShipmentStatusPending — отгрузка создана вместе с заказом, перевозчик не назначен.
	ShipmentStatusPending ShipmentStatus = "pending"
	// ShipmentStatusShipped — заказ передан перевозчику, трек-номер присвоен.
	ShipmentStatusShipped ShipmentStatus = "shipped"
	// ShipmentStatusDelivered — перевозчик подтвердил доставку.
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	// ShipmentStatusFailed — отгрузка не состоялась (отмена или провал оплаты).
	ShipmentStatusFailed ShipmentStatus = "failed"
)

// ShipmentCarrier — перевозчик, назначаемый при отправке.
type ShipmentCarrier string

const (
	CarrierFedEx ShipmentCarrier = "FEDEX"
	CarrierUPS   ShipmentCarrier = "UPS"
)

// Shipment — отгрузка заказа. У заказа не более одной отгрузки; она создаётся
// в статусе pending одновременно с заказом и движется синхронно с его статусом.
type Shipment struct {
	ID      string
	OrderID string
	Status  ShipmentStatus
	// Express — признак срочной доставки, влияет на стоимость и срок.
	Express bool
	// CostMinor — стоимость доставки в минимальных денежных единицах.
	CostMinor int64
	Address   string
	// Carrier и TrackingNumber заполняются при переходе в shipped.
	Carrier        ShipmentCarrier
	TrackingNumber string
	// EstimatedDelivery рассчитывается при создании по признаку срочности.
	EstimatedDelivery time.Time
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ShippedAt         time.Time
	DeliveredAt       time.Time
}

// Dispatched возвращает true, если заказ уже передан перевозчику.
func (s *Shipment) Dispatched() bool {
	return s.Status == ShipmentStatusShipped || s.Status == ShipmentStatusDelivered
}
