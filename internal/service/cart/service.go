package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aabdeab/para-ecommerce/internal/cache"
	"github.com/aabdeab/para-ecommerce/internal/domain"
)

// cartCacheTTL — срок жизни кэшированной корзины. Мутации инвалидируют
// ключ явно, TTL подстраховывает от устаревших записей.
const cartCacheTTL = 5 * time.Minute

// Owner идентифицирует владельца корзины: пользователь или гостевая сессия.
type Owner struct {
	UserID  string
	GuestID string
}

// Validate проверяет, что задан ровно один владелец.
func (o Owner) Validate() error {
	switch {
	case o.UserID == "" && o.GuestID == "":
		return domain.ErrOwnerRequired
	case o.UserID != "" && o.GuestID != "":
		return domain.ErrOwnerConflict
	default:
		return nil
	}
}

func (o Owner) cacheKey() string {
	if o.UserID != "" {
		return "cart:user:" + o.UserID
	}
	return "cart:guest:" + o.GuestID
}

// StockChecker проверяет, хватает ли доступного остатка под запрошенное количество.
type StockChecker interface {
	IsAvailable(productID string, qty int32) (bool, error)
}

// Service управляет корзинами пользователей и гостей.
// Чтение идёт через cache-aside, каждая мутация явно инвалидирует ключ.
type Service struct {
	carts  domain.CartRepository
	cache  cache.Cache
	stocks StockChecker
	logger *log.Entry
}

// NewService создаёт сервис корзин. cache может быть nil, тогда кэширование
// выключено; stocks nil отключает проверку остатков при добавлении.
func NewService(carts domain.CartRepository, c cache.Cache, stocks StockChecker, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart-service")
	}
	return &Service{carts: carts, cache: c, stocks: stocks, logger: logger}
}

// Get возвращает корзину владельца. Отсутствующая корзина не ошибка:
// возвращается пустая, она будет сохранена при первом добавлении.
func (s *Service) Get(owner Owner) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}

	if cached, ok := s.fromCache(owner); ok {
		return cached, nil
	}

	cart, err := s.load(owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return s.emptyCart(owner), nil
		}
		return domain.Cart{}, err
	}

	s.toCache(owner, cart)
	return cart, nil
}

// AddItem добавляет товар в корзину или увеличивает количество существующей позиции.
func (s *Service) AddItem(owner Owner, productID string, qty int32, unitPriceMinor int64) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}
	if productID == "" {
		return domain.Cart{}, domain.ErrProductIDRequired
	}
	if qty <= 0 {
		return domain.Cart{}, domain.ErrItemQtyInvalid
	}
	if unitPriceMinor < 0 {
		return domain.Cart{}, domain.ErrItemPriceInvalid
	}

	cart, err := s.loadOrCreate(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	// Проверяется итоговое количество позиции, с учётом уже лежащего в корзине.
	requested := qty
	for _, item := range cart.Items {
		if item.ProductID == productID {
			requested += item.Qty
			break
		}
	}
	if err := s.checkAvailability(productID, requested); err != nil {
		return domain.Cart{}, err
	}

	now := time.Now().UTC()
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Qty += qty
			cart.Items[i].UnitPriceMinor = unitPriceMinor
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:      productID,
			Qty:            qty,
			UnitPriceMinor: unitPriceMinor,
			AddedAt:        now,
		})
	}

	return s.persist(owner, cart)
}

// UpdateItemQty меняет количество позиции. Нулевое количество удаляет позицию.
func (s *Service) UpdateItemQty(owner Owner, productID string, qty int32) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}
	if qty < 0 {
		return domain.Cart{}, domain.ErrItemQtyInvalid
	}
	if qty == 0 {
		return s.RemoveItem(owner, productID)
	}
	if err := s.checkAvailability(productID, qty); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.load(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Qty = qty
			found = true
			break
		}
	}
	if !found {
		return domain.Cart{}, domain.ErrCartNotFound
	}

	return s.persist(owner, cart)
}

// RemoveItem удаляет позицию из корзины.
func (s *Service) RemoveItem(owner Owner, productID string) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.load(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items

	return s.persist(owner, cart)
}

// Clear удаляет корзину владельца целиком. Вызывается после успешной оплаты.
func (s *Service) Clear(owner Owner) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	cart, err := s.load(owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			s.invalidate(owner)
			return nil
		}
		return err
	}

	if err := s.carts.Delete(cart.ID); err != nil {
		return fmt.Errorf("delete cart %s: %w", cart.ID, err)
	}
	s.invalidate(owner)
	return nil
}

// checkAvailability сверяет запрошенное количество с доступным остатком.
func (s *Service) checkAvailability(productID string, qty int32) error {
	if s.stocks == nil {
		return nil
	}

	ok, err := s.stocks.IsAvailable(productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("product %s: requested %d: %w", productID, qty, domain.ErrInsufficientStock)
	}
	return nil
}

func (s *Service) load(owner Owner) (domain.Cart, error) {
	if owner.UserID != "" {
		return s.carts.GetByUser(owner.UserID)
	}
	return s.carts.GetByGuest(owner.GuestID)
}

func (s *Service) loadOrCreate(owner Owner) (domain.Cart, error) {
	cart, err := s.load(owner)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, domain.ErrCartNotFound) {
		return s.emptyCart(owner), nil
	}
	return domain.Cart{}, err
}

func (s *Service) emptyCart(owner Owner) domain.Cart {
	now := time.Now().UTC()
	return domain.Cart{
		ID:        uuid.NewString(),
		UserID:    owner.UserID,
		GuestID:   owner.GuestID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) persist(owner Owner, cart domain.Cart) (domain.Cart, error) {
	cart.RecalculateTotals()
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart %s: %w", cart.ID, err)
	}
	s.invalidate(owner)
	return cart, nil
}

func (s *Service) fromCache(owner Owner) (domain.Cart, bool) {
	if s.cache == nil {
		return domain.Cart{}, false
	}

	data, err := s.cache.Get(owner.cacheKey())
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithError(err).Warn("cart cache read failed")
		}
		return domain.Cart{}, false
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.logger.WithError(err).Warn("cart cache entry corrupted")
		s.invalidate(owner)
		return domain.Cart{}, false
	}
	return cart, true
}

func (s *Service) toCache(owner Owner, cart domain.Cart) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(cart)
	if err != nil {
		s.logger.WithError(err).Warn("cart cache marshal failed")
		return
	}
	if err := s.cache.Set(owner.cacheKey(), data, cartCacheTTL); err != nil {
		s.logger.WithError(err).Warn("cart cache write failed")
	}
}

func (s *Service) invalidate(owner Owner) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(owner.cacheKey()); err != nil {
		s.logger.WithError(err).Warn("cart cache invalidation failed")
	}
}
