package shipping

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

const (
	expressDeliveryDays  = 2
	standardDeliveryDays = 5

	// premiumCarrierThresholdMinor — отгрузки дороже этого порога едут FedEx.
	premiumCarrierThresholdMinor = 1000
)

// Service управляет жизненным циклом отгрузки. Перевозчик и трек-номер
// назначаются при отправке, не при создании.
type Service struct {
	logger *log.Entry
}

// NewService создаёт сервис отгрузок.
func NewService(logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "shipping-service")
	}
	return &Service{logger: logger}
}

// CreatePending создаёт отгрузку в статусе pending с расчётным сроком доставки.
func (s *Service) CreatePending(orderID, address string, express bool, costMinor int64) domain.Shipment {
	now := time.Now().UTC()

	days := standardDeliveryDays
	if express {
		days = expressDeliveryDays
	}

	return domain.Shipment{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		Status:            domain.ShipmentStatusPending,
		Express:           express,
		CostMinor:         costMinor,
		Address:           address,
		EstimatedDelivery: now.AddDate(0, 0, days),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Dispatch передаёт отгрузку перевозчику: назначает перевозчика по стоимости
// и присваивает трек-номер. Допускается только из статуса pending.
func (s *Service) Dispatch(shipment *domain.Shipment) error {
	if shipment.Status != domain.ShipmentStatusPending {
		return fmt.Errorf("dispatch from status %q: %w", shipment.Status, domain.ErrShipmentStateInvalid)
	}

	carrier := domain.CarrierUPS
	if shipment.CostMinor > premiumCarrierThresholdMinor {
		carrier = domain.CarrierFedEx
	}

	now := time.Now().UTC()
	shipment.Carrier = carrier
	shipment.TrackingNumber = newTrackingNumber()
	shipment.Status = domain.ShipmentStatusShipped
	shipment.ShippedAt = now
	shipment.UpdatedAt = now

	s.logger.WithFields(log.Fields{
		"order_id": shipment.OrderID,
		"carrier":  carrier,
		"tracking": shipment.TrackingNumber,
	}).Info("shipment dispatched")
	return nil
}

// MarkDelivered фиксирует доставку. Допускается только из статуса shipped.
func (s *Service) MarkDelivered(shipment *domain.Shipment) error {
	if shipment.Status != domain.ShipmentStatusShipped {
		return fmt.Errorf("deliver from status %q: %w", shipment.Status, domain.ErrShipmentStateInvalid)
	}

	now := time.Now().UTC()
	shipment.Status = domain.ShipmentStatusDelivered
	shipment.DeliveredAt = now
	shipment.UpdatedAt = now
	return nil
}

// Fail закрывает несостоявшуюся отгрузку (отмена заказа, провал оплаты).
// Уже отправленную отгрузку провалить нельзя.
func (s *Service) Fail(shipment *domain.Shipment, reason string) error {
	if shipment.Status == domain.ShipmentStatusFailed {
		return nil
	}
	if shipment.Dispatched() {
		return fmt.Errorf("fail dispatched shipment: %w", domain.ErrShipmentStateInvalid)
	}

	now := time.Now().UTC()
	shipment.Status = domain.ShipmentStatusFailed
	shipment.FailureReason = reason
	shipment.UpdatedAt = now
	return nil
}

// newTrackingNumber генерирует трек-номер вида TRK-XXXXXXXXXXXX.
func newTrackingNumber() string {
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
