package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtotal(t *testing.T) {
	items := map[string]int{"a": 2, "b": 1}
	prices := map[string]int{"a": 2000, "b": 3000}
	assert.Equal(t, 7000, Subtotal(items, prices))
}

func TestSubtotalEmptyCart(t *testing.T) {
	assert.Equal(t, 0, Subtotal(map[string]int{}, map[string]int{"a": 2000}))
}

func TestShippingCost(t *testing.T) {
	tests := []struct {
		subtotal int
		want     int
	}{
		{0, 1000},    // empty cart pays the base fee
		{7000, 1350},
		{19, 1000},   // below one percent step, truncates to base
		{100, 1005},
		{20000, 2000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShippingCost(tt.subtotal), "subtotal=%d", tt.subtotal)
	}
}

func TestTotals(t *testing.T) {
	items := map[string]int{"a": 2, "b": 1}
	prices := map[string]int{"a": 2000, "b": 3000}
	got := Totals(items, prices)
	assert.Equal(t, CartTotals{Subtotal: 7000, Shipping: 1350, Total: 8350}, got)
}
