package checkout

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/domain"
	"github.com/aabdeab/para-ecommerce/internal/messaging/kafka"
	"github.com/aabdeab/para-ecommerce/internal/metrics"
	"github.com/aabdeab/para-ecommerce/internal/service/cart"
	"github.com/aabdeab/para-ecommerce/internal/service/order"
	"github.com/aabdeab/para-ecommerce/internal/service/payment"
	"github.com/aabdeab/para-ecommerce/internal/service/shipping"
	"github.com/aabdeab/para-ecommerce/internal/service/stock"
)

const defaultCurrency = "USD"

// Notifier ставит уведомление в очередь доставки без блокировки.
type Notifier interface {
	Enqueue(n domain.Notification)
}

// Orchestrator последовательно ведёт чекаут: резерв склада, создание заказа,
// оплата и подтверждение либо компенсация. Все операции по одному заказу
// сериализуются keyed-мьютексом, межзаказной конкуренцией управляют
// optimistic locking заказов и атомарные мутации склада.
type Orchestrator struct {
	orders    domain.OrderRepository
	orderSvc  *order.Service
	carts     *cart.Service
	ledger    *stock.Ledger
	payments  *payment.Service
	shipments *shipping.Service
	timeline  domain.TimelineRepository
	pricing   domain.PricingPolicy
	notifier  Notifier
	producer  *kafka.Producer // опциональный Kafka producer для event-driven интеграций
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry

	locks sync.Map // order_id -> *sync.Mutex
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithKafkaProducer подключает публикацию событий в Kafka.
func WithKafkaProducer(producer *kafka.Producer) Option {
	return func(o *Orchestrator) {
		o.producer = producer
	}
}

// WithNotifier подключает диспетчер клиентских уведомлений.
func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

// WithPricing заменяет ценовую политику.
func WithPricing(pricing domain.PricingPolicy) Option {
	return func(o *Orchestrator) {
		if pricing != nil {
			o.pricing = pricing
		}
	}
}

// WithoutMetrics отключает метрики (для тестов).
func WithoutMetrics() Option {
	return func(o *Orchestrator) {
		o.metrics = nil
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator создаёт оркестратор чекаута.
func NewOrchestrator(
	orders domain.OrderRepository,
	orderSvc *order.Service,
	carts *cart.Service,
	ledger *stock.Ledger,
	payments *payment.Service,
	shipments *shipping.Service,
	timeline domain.TimelineRepository,
	options ...Option,
) *Orchestrator {
	o := &Orchestrator{
		orders:    orders,
		orderSvc:  orderSvc,
		carts:     carts,
		ledger:    ledger,
		payments:  payments,
		shipments: shipments,
		timeline:  timeline,
		pricing:   FlatRatePricing{},
		metrics:   metrics.NewCheckoutMetrics(),
		logger:    log.WithField("component", "checkout"),
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// CreateOrderForUser оформляет заказ из корзины зарегистрированного пользователя.
func (o *Orchestrator) CreateOrderForUser(userID string, req domain.CreateOrderRequest) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrOwnerRequired
	}
	return o.createOrder(cart.Owner{UserID: userID}, "", req)
}

// CreateOrderForGuest оформляет заказ из гостевой корзины.
// Гостю обязателен контактный email: других способов связаться с ним нет.
func (o *Orchestrator) CreateOrderForGuest(guestID string, req domain.CreateOrderRequest) (domain.Order, error) {
	if guestID == "" {
		return domain.Order{}, domain.ErrOwnerRequired
	}
	if !strings.Contains(req.GuestEmail, "@") {
		return domain.Order{}, domain.ErrGuestEmailInvalid
	}
	return o.createOrder(cart.Owner{GuestID: guestID}, req.GuestEmail, req)
}

func (o *Orchestrator) createOrder(owner cart.Owner, guestEmail string, req domain.CreateOrderRequest) (domain.Order, error) {
	if _, ok := domain.ProviderForMethod(req.Method); !ok {
		return domain.Order{}, fmt.Errorf("unsupported payment method %q: %w", req.Method, domain.ErrPaymentInvalid)
	}
	if req.DiscountMinor < 0 {
		return domain.Order{}, domain.ErrAmountNegative
	}

	crt, err := o.carts.Get(owner)
	if err != nil {
		return domain.Order{}, err
	}
	if crt.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()

	items := make([]domain.OrderItem, 0, len(crt.Items))
	for _, ci := range crt.Items {
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      ci.ProductID,
			Qty:            ci.Qty,
			UnitPriceMinor: ci.UnitPriceMinor,
			TotalMinor:     ci.SubtotalMinor(),
			CreatedAt:      now,
		})
	}

	subtotal := crt.TotalMinor
	tax := o.pricing.TaxMinor(subtotal)
	shippingCost := o.pricing.ShippingMinor(req.ExpressShipping)
	discount := req.DiscountMinor
	if discount > subtotal {
		discount = subtotal
	}
	total := subtotal + tax + shippingCost - discount

	reservations, err := o.ledger.ReserveForCart(orderID, items)
	if err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("stock reservation failed")
		return domain.Order{}, err
	}

	pay, err := o.payments.CreatePending(orderID, req.Method, total, defaultCurrency)
	if err != nil {
		o.releaseOrphanReservations(orderID, reservations)
		return domain.Order{}, err
	}

	shipment := o.shipments.CreatePending(orderID, req.ShippingAddress, req.ExpressShipping, shippingCost)

	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}

	ord := domain.Order{
		ID:              orderID,
		OrderNumber:     newOrderNumber(),
		UserID:          owner.UserID,
		GuestID:         owner.GuestID,
		GuestEmail:      guestEmail,
		SubtotalMinor:   subtotal,
		TaxMinor:        tax,
		ShippingMinor:   shippingCost,
		DiscountMinor:   discount,
		TotalMinor:      total,
		Currency:        defaultCurrency,
		Status:          domain.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Notes:           req.DeliveryInstructions,
		Items:           items,
		Payment:         &pay,
		Shipment:        &shipment,
		Reservations:    reservations,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if errs := ord.ValidateInvariants(); len(errs) > 0 {
		o.releaseOrphanReservations(orderID, reservations)
		return domain.Order{}, errors.Join(errs...)
	}

	if err := o.orders.Create(ord); err != nil {
		// Заказ не сохранился, резервы возвращаем сразу.
		o.releaseOrphanReservations(orderID, reservations)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	o.appendTimeline(ord.ID, domain.TimelineOrderCreated, "", "", ord.Status, now)
	o.appendTimeline(ord.ID, domain.TimelineStockReserved, fmt.Sprintf("%d reservations", len(reservations)), "", "", now)
	o.publishOrderEvent(kafka.EventTypeOrderCreated, &ord, nil)
	o.publishCheckoutEvent(kafka.EventTypeCheckoutStarted, ord.ID, map[string]interface{}{
		"order_number": ord.OrderNumber,
		"total_minor":  ord.TotalMinor,
	})

	o.logger.WithFields(log.Fields{
		"order_id":     ord.ID,
		"order_number": ord.OrderNumber,
		"total_minor":  ord.TotalMinor,
	}).Info("order created")
	return ord, nil
}

// ProcessPayment выполняет оплату pending-заказа и завершает чекаут:
// успех подтверждает заказ и продажу, отказ компенсирует резервы.
// Повторный вызов по уже обработанному заказу отклоняется с ErrOrderStateInvalid.
func (o *Orchestrator) ProcessPayment(orderID string, req domain.PaymentRequest) (domain.Order, error) {
	unlock := o.lockOrder(orderID)
	defer unlock()

	ord, err := o.orderSvc.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if ord.Status != domain.OrderStatusPending {
		return ord, fmt.Errorf("process payment for order in status %q: %w", ord.Status, domain.ErrOrderStateInvalid)
	}
	if ord.Payment == nil {
		return ord, domain.ErrNoPaymentRecord
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDuration(time.Since(start))
			o.metrics.RecordCheckoutFinished()
		}
	}()

	pay := *ord.Payment
	chargeErr := o.payments.Process(&pay, req)

	if saveErr := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
		x.Payment = &pay
	}); saveErr != nil {
		o.logger.WithError(saveErr).WithField("order_id", ord.ID).Error("persist payment outcome failed")
		return ord, saveErr
	}

	if chargeErr != nil {
		return o.failCheckout(ord, chargeErr)
	}
	return o.completeCheckout(ord)
}

// completeCheckout фиксирует успешную оплату: подтверждение заказа,
// продажа на складе, очистка корзины, уведомление. Заказ подтверждается
// первым: пока он pending, повторный ProcessPayment прошёл бы статусную
// проверку и списал деньги второй раз.
func (o *Orchestrator) completeCheckout(ord domain.Order) (domain.Order, error) {
	now := time.Now().UTC()

	if err := o.orderSvc.UpdateStatus(&ord, domain.OrderStatusConfirmed); err != nil {
		o.logger.WithError(err).WithField("order_id", ord.ID).Error("confirm order failed after successful charge")
		if o.metrics != nil {
			o.metrics.RecordCheckoutFailed()
		}
		return ord, fmt.Errorf("confirm order: %w: %w", err, domain.ErrInconsistentState)
	}

	if err := o.ledger.ConfirmReservations(&ord); err != nil {
		// Деньги списаны, заказ подтверждён, склад продажу не зафиксировал.
		// Автоматическая компенсация здесь опаснее расхождения, разбор за
		// оператором; повторную оплату отсекает статус confirmed.
		o.logger.WithError(err).WithField("order_id", ord.ID).Error("stock confirmation failed after successful charge")
		if o.metrics != nil {
			o.metrics.RecordCheckoutFailed()
		}
		return ord, fmt.Errorf("confirm reservations: %w: %w", err, domain.ErrInconsistentState)
	}

	if err := o.carts.Clear(o.ownerOf(&ord)); err != nil {
		// Заказ уже подтверждён, несброшенная корзина не повод его валить.
		o.logger.WithError(err).WithField("order_id", ord.ID).Warn("clear cart after checkout failed")
	}

	o.appendTimeline(ord.ID, domain.TimelinePaymentSucceeded, ord.Payment.Reference, "", "", now)
	o.appendTimeline(ord.ID, domain.TimelineStockSold, "", "", "", now)
	o.publishCheckoutEvent(kafka.EventTypeCheckoutCompleted, ord.ID, map[string]interface{}{
		"order_number": ord.OrderNumber,
		"amount_minor": ord.Payment.AmountMinor,
	})
	o.publishOrderEvent(kafka.EventTypeOrderConfirmed, &ord, nil)
	o.notify(domain.NotificationOrderConfirmation, &ord, "")

	if o.metrics != nil {
		o.metrics.RecordCheckoutCompleted()
	}
	o.logger.WithFields(log.Fields{
		"order_id":     ord.ID,
		"order_number": ord.OrderNumber,
	}).Info("checkout completed")
	return ord, nil
}

// failCheckout компенсирует неудачную оплату: резервы назад, отгрузка
// закрывается, заказ переходит в failed.
func (o *Orchestrator) failCheckout(ord domain.Order, cause error) (domain.Order, error) {
	now := time.Now().UTC()

	if err := o.ledger.ReleaseReservations(&ord); err != nil {
		o.logger.WithError(err).WithField("order_id", ord.ID).Error("release reservations during compensation failed")
	}

	if ord.Shipment != nil {
		sh := *ord.Shipment
		if err := o.shipments.Fail(&sh, "Payment failed: "+cause.Error()); err == nil {
			if saveErr := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
				x.Shipment = &sh
			}); saveErr != nil {
				o.logger.WithError(saveErr).WithField("order_id", ord.ID).Error("persist failed shipment failed")
			}
		}
	}

	if err := o.orderSvc.UpdateStatus(&ord, domain.OrderStatusFailed); err != nil {
		o.logger.WithError(err).WithField("order_id", ord.ID).Error("mark order failed after payment failure")
	}

	o.appendTimeline(ord.ID, domain.TimelinePaymentFailed, cause.Error(), "", "", now)
	o.appendTimeline(ord.ID, domain.TimelineStockReleased, "", "", "", now)
	o.publishCheckoutEvent(kafka.EventTypeCheckoutFailed, ord.ID, map[string]interface{}{
		"order_number": ord.OrderNumber,
		"reason":       cause.Error(),
	})
	o.notify(domain.NotificationPaymentFailure, &ord, cause.Error())

	if o.metrics != nil {
		o.metrics.RecordCheckoutFailed()
		if errors.Is(cause, domain.ErrPaymentDeclined) {
			o.metrics.RecordPaymentDeclined()
		}
	}
	o.logger.WithError(cause).WithFields(log.Fields{
		"order_id":     ord.ID,
		"order_number": ord.OrderNumber,
	}).Warn("checkout failed")
	return ord, cause
}

// CancelOrder отменяет заказ до отгрузки: снимает резервы, возвращает деньги,
// закрывает отгрузку. Повторная отмена — no-op.
func (o *Orchestrator) CancelOrder(orderID, reason string) (domain.Order, error) {
	unlock := o.lockOrder(orderID)
	defer unlock()

	ord, err := o.orderSvc.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if ord.Status == domain.OrderStatusCanceled {
		return ord, nil
	}
	if !ord.CanBeCanceled() {
		return ord, fmt.Errorf("cancel order in status %q: %w", ord.Status, domain.ErrOrderNotCancelable)
	}

	now := time.Now().UTC()

	hadActiveReservations := false
	for _, res := range ord.Reservations {
		if res.Active() {
			hadActiveReservations = true
			break
		}
	}
	if err := o.ledger.ReleaseReservations(&ord); err != nil {
		o.logger.WithError(err).WithField("order_id", ord.ID).Error("release reservations during cancel failed")
	}

	refunded := false
	var pay domain.Payment
	if ord.Payment != nil && ord.Payment.CanBeRefunded() {
		pay = *ord.Payment
		if err := o.payments.Refund(&pay); err != nil {
			// Без возврата денег отмену не фиксируем.
			o.logger.WithError(err).WithField("order_id", ord.ID).Error("refund during cancel failed")
			return ord, err
		}
		refunded = true
	}

	var sh domain.Shipment
	failedShipment := false
	if ord.Shipment != nil && !ord.Shipment.Dispatched() {
		sh = *ord.Shipment
		if err := o.shipments.Fail(&sh, "Order canceled: "+reason); err == nil {
			failedShipment = true
		}
	}

	if err := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
		if refunded {
			x.Payment = &pay
		}
		if failedShipment {
			x.Shipment = &sh
		}
		x.CanceledAt = now
		x.CancelReason = reason
	}); err != nil {
		return ord, err
	}

	if err := o.orderSvc.UpdateStatus(&ord, domain.OrderStatusCanceled); err != nil {
		return ord, err
	}

	o.appendTimeline(ord.ID, domain.TimelineOrderCanceled, reason, "", "", now)
	if refunded {
		o.appendTimeline(ord.ID, domain.TimelinePaymentRefunded, pay.Reference, "", "", now)
	}
	if hadActiveReservations {
		o.appendTimeline(ord.ID, domain.TimelineStockReleased, "", "", "", now)
	}
	o.publishOrderEvent(kafka.EventTypeOrderCanceled, &ord, map[string]interface{}{"reason": reason})
	o.notify(domain.NotificationOrderCancellation, &ord, reason)

	if o.metrics != nil {
		o.metrics.RecordOrderCanceled()
	}
	o.logger.WithFields(log.Fields{
		"order_id": ord.ID,
		"reason":   reason,
	}).Info("order canceled")
	return ord, nil
}

// AdvanceOrderStatus двигает подтверждённый заказ по жизненному циклу
// (processing, shipped, delivered, completed, refunded), выполняя
// сопутствующие действия: отправку, фиксацию доставки, возврат денег.
// Переходы confirmed и failed принадлежат платёжному флоу и здесь запрещены.
func (o *Orchestrator) AdvanceOrderStatus(orderID string, to domain.OrderStatus) (domain.Order, error) {
	if to == domain.OrderStatusCanceled {
		return o.CancelOrder(orderID, "")
	}

	unlock := o.lockOrder(orderID)
	defer unlock()

	ord, err := o.orderSvc.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if ord.Status == to {
		return ord, nil
	}
	if !ord.Status.CanTransitionTo(to) {
		return ord, domain.NewInvalidTransition(ord.Status, to)
	}

	now := time.Now().UTC()

	switch to {
	case domain.OrderStatusConfirmed, domain.OrderStatusFailed:
		return ord, fmt.Errorf("status %q is driven by the payment flow: %w", to, domain.ErrOrderStateInvalid)

	case domain.OrderStatusProcessing:
		// Только смена статуса и уведомление.

	case domain.OrderStatusShipped:
		if ord.Shipment == nil {
			return ord, domain.ErrShipmentStateInvalid
		}
		sh := *ord.Shipment
		if err := o.shipments.Dispatch(&sh); err != nil {
			return ord, err
		}
		if err := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
			x.Shipment = &sh
		}); err != nil {
			return ord, err
		}
		o.appendTimeline(ord.ID, domain.TimelineShipmentDispatched, string(sh.Carrier)+" "+sh.TrackingNumber, "", "", now)

	case domain.OrderStatusDelivered:
		if ord.Shipment == nil {
			return ord, domain.ErrShipmentStateInvalid
		}
		sh := *ord.Shipment
		if err := o.shipments.MarkDelivered(&sh); err != nil {
			return ord, err
		}
		if err := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
			x.Shipment = &sh
		}); err != nil {
			return ord, err
		}

	case domain.OrderStatusCompleted:
		// Только смена статуса и уведомление.

	case domain.OrderStatusRefunded:
		if ord.Payment == nil {
			return ord, domain.ErrNoPaymentRecord
		}
		pay := *ord.Payment
		if err := o.payments.Refund(&pay); err != nil {
			return ord, err
		}
		if err := o.orderSvc.SaveWithRetry(&ord, func(x *domain.Order) {
			x.Payment = &pay
		}); err != nil {
			return ord, err
		}
		o.appendTimeline(ord.ID, domain.TimelinePaymentRefunded, pay.Reference, "", "", now)
		if o.metrics != nil {
			o.metrics.RecordOrderRefunded()
		}

	default:
		return ord, domain.NewInvalidTransition(ord.Status, to)
	}

	if err := o.orderSvc.UpdateStatus(&ord, to); err != nil {
		return ord, err
	}

	o.publishOrderEvent(kafka.EventTypeOrderStatusChanged, &ord, nil)
	if kind, ok := notificationForStatus(to); ok {
		o.notify(kind, &ord, "")
	}
	return ord, nil
}

func notificationForStatus(status domain.OrderStatus) (domain.NotificationKind, bool) {
	switch status {
	case domain.OrderStatusProcessing:
		return domain.NotificationOrderProcessing, true
	case domain.OrderStatusShipped:
		return domain.NotificationOrderShipped, true
	case domain.OrderStatusDelivered:
		return domain.NotificationOrderDelivered, true
	case domain.OrderStatusCompleted:
		return domain.NotificationOrderCompleted, true
	default:
		return "", false
	}
}

// lockOrder сериализует операции по одному заказу.
func (o *Orchestrator) lockOrder(orderID string) func() {
	value, _ := o.locks.LoadOrStore(orderID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// releaseOrphanReservations возвращает резервы заказа, который так и не был сохранён.
func (o *Orchestrator) releaseOrphanReservations(orderID string, reservations []domain.StockReservation) {
	orphan := domain.Order{ID: orderID, Reservations: reservations}
	if err := o.ledger.ReleaseReservations(&orphan); err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Error("release orphan reservations failed")
	}
}

func (o *Orchestrator) ownerOf(ord *domain.Order) cart.Owner {
	if ord.IsGuestOrder() {
		return cart.Owner{GuestID: ord.GuestID}
	}
	return cart.Owner{UserID: ord.UserID}
}

func (o *Orchestrator) recipientOf(ord *domain.Order) string {
	if ord.IsGuestOrder() {
		return ord.GuestEmail
	}
	return ord.UserID
}

func (o *Orchestrator) notify(kind domain.NotificationKind, ord *domain.Order, reason string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Enqueue(domain.Notification{
		Kind:        kind,
		OrderNumber: ord.OrderNumber,
		Recipient:   o.recipientOf(ord),
		Reason:      reason,
	})
}

func (o *Orchestrator) appendTimeline(orderID, event, detail string, from, to domain.OrderStatus, at time.Time) {
	if o.timeline == nil {
		return
	}

	err := o.timeline.Append(domain.TimelineEvent{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Event:      event,
		FromStatus: from,
		ToStatus:   to,
		Detail:     detail,
		CreatedAt:  at,
	})
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    event,
		}).Warn("append timeline event failed")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordTimelineEvent()
	}
}

func (o *Orchestrator) publishCheckoutEvent(eventType kafka.EventType, orderID string, metadata map[string]interface{}) {
	if o.producer == nil {
		return
	}

	event := kafka.NewCheckoutEvent(eventType, orderID, metadata)
	if err := o.producer.PublishEvent(kafka.TopicCheckoutEvents, orderID, event); err != nil {
		// Kafka опциональна, чекаут не прерываем.
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   orderID,
		}).Warn("failed to publish checkout event to kafka")
	}
}

func (o *Orchestrator) publishOrderEvent(eventType kafka.EventType, ord *domain.Order, metadata map[string]interface{}) {
	if o.producer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, ord.ID, ord.OrderNumber, string(ord.Status), metadata)
	if err := o.producer.PublishEvent(kafka.TopicOrderEvents, ord.ID, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   ord.ID,
		}).Warn("failed to publish order event to kafka")
	}
}

// newOrderNumber генерирует клиентский номер заказа вида ORD-XXXXXXXX.
func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
