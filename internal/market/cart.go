package market

import "sort"

const (
	// MaxCartLines caps distinct products per cart.
	MaxCartLines = 8
	// MaxPerProduct caps the quantity of a single product per cart line.
	MaxPerProduct = 100
)

// Add applies the cart rules and mutates the quantity map on success. Stock is
// checked against the product's current stock, not against other carts: lines
// do not hold stock until checkout.
func (c *Cart) Add(p Product, amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	if c.Items == nil {
		c.Items = make(map[string]int)
	}
	have := c.Items[p.ID]
	if have == 0 && len(c.Items) >= MaxCartLines {
		return ErrCartFull
	}
	if have+amount > MaxPerProduct {
		return ErrQuantityCap
	}
	if have+amount > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, Requested: have + amount, Available: p.Stock}
	}
	c.Items[p.ID] = have + amount
	return nil
}

func (c *Cart) Remove(productID string) error {
	if _, ok := c.Items[productID]; !ok {
		return ErrItemNotFound
	}
	delete(c.Items, productID)
	return nil
}

// Clear empties the quantity map. Idempotent.
func (c *Cart) Clear() {
	c.Items = make(map[string]int)
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// SortedProductIDs returns the line product ids in a stable order, so checkout
// always locks product rows in the same order.
func (c *Cart) SortedProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
