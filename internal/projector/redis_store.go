package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/canchalibre/market/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the read models in redis under the shared key scheme.
type RedisStore struct {
	Client  *redis.Client
	Service string // dedup namespace
}

var _ StatusStore = (*RedisStore)(nil)

func (r *RedisStore) Seen(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf(redisx.KeyDedup, r.Service, eventID)
	ok, err := r.Client.SetNX(ctx, key, "1", redisx.TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (r *RedisStore) SetStatus(ctx context.Context, requestID, status string) error {
	key := fmt.Sprintf(redisx.KeyRequestStatus, requestID)
	b, _ := json.Marshal(map[string]string{"status": status})
	return r.Client.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (r *RedisStore) DropStatus(ctx context.Context, requestID string) error {
	key := fmt.Sprintf(redisx.KeyRequestStatus, requestID)
	return r.Client.Del(ctx, key).Err()
}

func (r *RedisStore) AddSellerPending(ctx context.Context, sellerID string, delta int) error {
	key := fmt.Sprintf(redisx.KeySellerPending, sellerID)
	return r.Client.IncrBy(ctx, key, int64(delta)).Err()
}
