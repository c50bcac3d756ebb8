package market

import (
	"context"
	"time"
)

type CreateRequestInput struct {
	ProductID string
	UserID    string
	Quantity  int
	SlotTime  *time.Time // nil for a plain purchase
}

// Store is the persistence contract for the engine. Every mutating operation
// runs as a single unit of work: a stock deduction and its owning request row
// commit or roll back together.
type Store interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	GetRequest(ctx context.Context, id string) (Request, error)
	CreateRequest(ctx context.Context, in CreateRequestInput) (Request, error)
	ApproveRequest(ctx context.Context, id string) (Request, error)
	DeleteRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, userID string) ([]Request, error)

	GetCart(ctx context.Context, userID string) (Cart, error)
	AddCartItem(ctx context.Context, userID, productID string, amount int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID string) ([]Request, error)
}

// validateCreate runs the request-creation checks against the product as
// currently read. The stock check and the slot check are independent; both
// must pass before any mutation happens.
func validateCreate(p Product, in CreateRequestInput) (info string, err error) {
	if in.Quantity <= 0 {
		return "", ErrInvalidQuantity
	}
	if in.Quantity > p.Stock {
		return "", &InsufficientStockError{ProductID: p.ID, Requested: in.Quantity, Available: p.Stock}
	}
	if in.SlotTime != nil {
		if !ParseSchedule(p.Schedule).Covers(*in.SlotTime) {
			return "", ErrInvalidSlot
		}
		info = ReservationInfo(*in.SlotTime)
	}
	return info, nil
}
