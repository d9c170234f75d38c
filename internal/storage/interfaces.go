package storage

import (
	"context"
	"io"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

// EventCache holds hot AMM data for the API
type EventCache interface {
	// AddRecentSwap pushes a swap onto the pool's recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps of a pool, newest first
	GetRecentSwaps(ctx context.Context, pool string, limit int64) ([]*models.SwapEvent, error)

	// SetPoolSnapshot stores the latest state of a pool
	SetPoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error

	// GetPoolSnapshot retrieves the latest cached state of a pool
	GetPoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// EventPublisher fans events out to real-time subscribers
type EventPublisher interface {
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error
	PublishLiquidity(ctx context.Context, ev *models.LiquidityEvent) error
}

// EventStore is the append-only history of AMM events
type EventStore interface {
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error
	InsertLiquidity(ctx context.Context, ev *models.LiquidityEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}
