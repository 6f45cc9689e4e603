package checkout

import "github.com/aabdeab/para-ecommerce/internal/domain"

const (
	// taxRatePercent — плоская ставка налога от subtotal.
	taxRatePercent = 8

	expressShippingMinor  = 1500
	standardShippingMinor = 500
)

// FlatRatePricing — плоская ценовая политика: фиксированный процент налога
// и два тарифа доставки.
type FlatRatePricing struct{}

// TaxMinor возвращает налог от subtotal, округляя вниз до минимальной единицы.
func (FlatRatePricing) TaxMinor(subtotalMinor int64) int64 {
	if subtotalMinor <= 0 {
		return 0
	}
	return subtotalMinor * taxRatePercent / 100
}

// ShippingMinor возвращает стоимость доставки по признаку срочности.
func (FlatRatePricing) ShippingMinor(express bool) int64 {
	if express {
		return expressShippingMinor
	}
	return standardShippingMinor
}

var _ domain.PricingPolicy = FlatRatePricing{}
