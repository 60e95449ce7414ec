package cart

import "github.com/shopspring/decimal"

var (
	freeShippingAbove = decimal.NewFromInt(100)
	flatShipping      = decimal.NewFromInt(10)
	taxRate           = decimal.RequireFromString("0.15")
	hundred           = decimal.NewFromInt(100)
)

type Totals struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	Discount      float64 `json:"discount"`
	TotalPrice    float64 `json:"totalPrice"`
}

func ItemsPrice(items []Item) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum.InexactFloat64()
}

// Quote derives checkout totals from the items subtotal. Shipping is free
// only strictly above 100; tax is 15% rounded to cents; the coupon
// discount applies to the items subtotal alone.
func Quote(itemsPrice float64, discountPercent int) Totals {
	items := decimal.NewFromFloat(itemsPrice)

	shipping := flatShipping
	if items.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}

	tax := items.Mul(taxRate).Round(2)
	discount := Discount(items, discountPercent)
	total := items.Add(shipping).Add(tax).Sub(discount)

	return Totals{
		ItemsPrice:    items.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		Discount:      discount.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

func Discount(itemsPrice decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return decimal.Zero
	}
	if percent > 100 {
		percent = 100
	}
	return decimal.NewFromInt(int64(percent)).Div(hundred).Mul(itemsPrice)
}
