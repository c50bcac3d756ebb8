package market

// Shipping is a base fee plus a percentage of the subtotal, in integer
// currency units. The base fee applies even to an empty cart.
const (
	baseShipping    = 1000
	shippingRatePct = 5
)

// Subtotal sums price*quantity over the cart lines. Lines without a price
// entry contribute nothing; callers resolve prices for every line they care
// about.
func Subtotal(items map[string]int, prices map[string]int) int {
	total := 0
	for id, qty := range items {
		total += prices[id] * qty
	}
	return total
}

// ShippingCost is a pure function of the subtotal: 1000 + 5% of subtotal,
// truncated. An empty cart therefore costs the base 1000.
func ShippingCost(subtotal int) int {
	return baseShipping + subtotal*shippingRatePct/100
}

// Totals bundles subtotal, shipping and their sum for a cart.
func Totals(items map[string]int, prices map[string]int) CartTotals {
	sub := Subtotal(items, prices)
	ship := ShippingCost(sub)
	return CartTotals{Subtotal: sub, Shipping: ship, Total: sub + ship}
}
