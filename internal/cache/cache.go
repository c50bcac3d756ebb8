package cache

import (
	"context"
	"errors"

	"github.com/canchalibre/market/internal/market"
)

var ErrCacheMiss = errors.New("totals not in cache")

// TotalsCache is a read cache for computed cart totals, invalidated on every
// cart mutation.
type TotalsCache interface {
	Get(ctx context.Context, userID string) (market.CartTotals, error)
	Set(ctx context.Context, userID string, t market.CartTotals) error
	Invalidate(ctx context.Context, userID string) error
}
