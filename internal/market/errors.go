package market

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidSlot     = errors.New("requested time is outside the product schedule")
	ErrCartFull        = errors.New("cart line limit reached")
	ErrQuantityCap     = errors.New("per-product purchase cap exceeded")
	ErrItemNotFound    = errors.New("product is not in the cart")
	ErrEmptyCart       = errors.New("cart has no items")
	ErrBadTransition   = errors.New("invalid status transition")

	// ErrPersistence marks failures of the underlying store after validation
	// passed. Callers surface it generically; no partial state is left behind.
	ErrPersistence = errors.New("persistence failure")

	// ErrInsufficientStock is the match target for InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports which product ran short and by how much.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func persistErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
