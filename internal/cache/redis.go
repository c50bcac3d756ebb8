package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canchalibre/market/internal/market"
	"github.com/canchalibre/market/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

var _ TotalsCache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, userID string) (market.CartTotals, error) {
	key := fmt.Sprintf(redisx.KeyCartTotals, userID)
	s, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return market.CartTotals{}, ErrCacheMiss
	}
	if err != nil {
		return market.CartTotals{}, err
	}
	var t market.CartTotals
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return market.CartTotals{}, err
	}
	return t, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, t market.CartTotals) error {
	key := fmt.Sprintf(redisx.KeyCartTotals, userID)
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, redisx.TTLTotalsCache).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	key := fmt.Sprintf(redisx.KeyCartTotals, userID)
	return c.Client.Del(ctx, key).Err()
}
