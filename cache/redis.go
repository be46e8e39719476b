package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-svc/config"
	"storefront-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

const idempotencyPending = "pending"

func InitRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// Store holds cached product reads and checkout idempotency keys.
type Store struct {
	rdb            *redis.Client
	productTTL     time.Duration
	idempotencyTTL time.Duration
}

func NewStore(rdb *redis.Client, productTTL, idempotencyTTL time.Duration) *Store {
	return &Store{rdb: rdb, productTTL: productTTL, idempotencyTTL: idempotencyTTL}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func idempotencyKey(userID, key string) string {
	return fmt.Sprintf("idempotency:checkout:%s:%s", userID, key)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	data, err := s.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return &p, nil
}

func (s *Store) SetProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, productKey(p.ID), data, s.productTTL).Err()
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, productKey(id)).Err()
}

// ReserveIdempotencyKey claims key for userID. When the key is already taken it
// returns reserved=false and, if that earlier checkout completed, its order id.
func (s *Store) ReserveIdempotencyKey(ctx context.Context, userID, key string) (orderID string, reserved bool, err error) {
	k := idempotencyKey(userID, key)
	ok, err := s.rdb.SetNX(ctx, k, idempotencyPending, s.idempotencyTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; treat as in flight
			return "", false, nil
		}
		return "", false, err
	}
	if val == idempotencyPending {
		return "", false, nil
	}
	return val, false, nil
}

func (s *Store) CompleteIdempotencyKey(ctx context.Context, userID, key, orderID string) error {
	return s.rdb.Set(ctx, idempotencyKey(userID, key), orderID, s.idempotencyTTL).Err()
}

// ReleaseIdempotencyKey frees a reservation whose checkout failed so the client may retry.
func (s *Store) ReleaseIdempotencyKey(ctx context.Context, userID, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(userID, key)).Err()
}
