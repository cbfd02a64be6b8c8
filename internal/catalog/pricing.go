package catalog

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MaxAmount - наибольшая сумма, которую вмещает колонка NUMERIC(10, 2).
var MaxAmount = decimal.RequireFromString("99999999.99")

// EffectiveDiscount is the larger of the product's promotional discount (only when
// the product is promoted) and the restaurant's blanket discount, clamped to [0, 100].
func EffectiveDiscount(isPromoted bool, productPct, restaurantPct int) int {
	productDiscount := 0
	if isPromoted && productPct > 0 {
		productDiscount = productPct
	}

	effective := max(productDiscount, restaurantPct, 0)
	return min(effective, 100)
}

// DiscountedPrice returns price * (1 - effective/100) rounded to cents.
func DiscountedPrice(price decimal.Decimal, effective int) decimal.Decimal {
	if effective <= 0 {
		return price
	}
	if effective > 100 {
		effective = 100
	}

	factor := hundred.Sub(decimal.NewFromInt(int64(effective))).Div(hundred)
	return price.Mul(factor).Round(2)
}
