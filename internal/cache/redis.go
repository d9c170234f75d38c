package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

var ErrNotFound = errors.New("not found in cache")

// RedisCache keeps the recent swaps of every pool and its latest snapshot.
type RedisCache struct {
	client    *redis.Client
	maxRecent int64
}

func NewRedisCache(client *redis.Client, maxRecent int64) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if maxRecent <= 0 {
		maxRecent = constants.MaxRecentSwaps
	}
	return &RedisCache{client: client, maxRecent: maxRecent}, nil
}

func recentSwapsKey(pool string) string {
	return constants.RedisKeyRecentSwapsPrefix + pool
}

func poolKey(pool string) string {
	return constants.RedisKeyPoolPrefix + pool
}

func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	key := recentSwapsKey(swap.Pool)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.maxRecent-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, pool string, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > r.maxRecent {
		limit = r.maxRecent
	}

	vals, err := r.client.LRange(ctx, recentSwapsKey(pool), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(vals))
	for _, v := range vals {
		var swap models.SwapEvent
		if err := json.Unmarshal([]byte(v), &swap); err != nil {
			continue
		}
		out = append(out, &swap)
	}
	return out, nil
}

func (r *RedisCache) SetPoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	err := r.client.HSet(ctx, poolKey(snap.Pool), map[string]interface{}{
		"token0":     snap.Token0,
		"token1":     snap.Token1,
		"reserve0":   strconv.FormatUint(snap.Reserve0, 10),
		"reserve1":   strconv.FormatUint(snap.Reserve1, 10),
		"lp_supply":  strconv.FormatUint(snap.LPSupply, 10),
		"k_last":     snap.KLast,
		"updated_at": snap.UpdatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("set pool snapshot: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	fields, err := r.client.HGetAll(ctx, poolKey(pool)).Result()
	if err != nil {
		return nil, fmt.Errorf("get pool snapshot: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	snap := &models.PoolSnapshot{
		Pool:   pool,
		Token0: fields["token0"],
		Token1: fields["token1"],
		KLast:  fields["k_last"],
	}
	if snap.Reserve0, err = strconv.ParseUint(fields["reserve0"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse reserve0: %w", err)
	}
	if snap.Reserve1, err = strconv.ParseUint(fields["reserve1"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse reserve1: %w", err)
	}
	if snap.LPSupply, err = strconv.ParseUint(fields["lp_supply"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse lp_supply: %w", err)
	}
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return snap, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
