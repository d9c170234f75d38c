package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

type ClickHouseStore struct {
	conn driver.Conn
}

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS amm_swaps (
		id String,
		timestamp DateTime64(3),
		pool String,
		trader String,
		token_in String,
		token_out String,
		amount_in UInt64,
		amount_out UInt64,
		fee_bps UInt64,
		exact_output Bool,
		reserve0 UInt64,
		reserve1 UInt64,
		price Float64
	) ENGINE = MergeTree()
	ORDER BY (pool, timestamp)
`

const createLiquidityTable = `
	CREATE TABLE IF NOT EXISTS amm_liquidity (
		id String,
		timestamp DateTime64(3),
		pool String,
		provider String,
		action LowCardinality(String),
		amount0 UInt64,
		amount1 UInt64,
		liquidity UInt64,
		reserve0 UInt64,
		reserve1 UInt64,
		lp_supply UInt64,
		k_last String
	) ENGINE = MergeTree()
	ORDER BY (pool, timestamp)
`

func NewClickHouseStore(ctx context.Context, opts ClickHouseOptions, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	store := &ClickHouseStore{conn: conn}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.WithField("addr", opts.Addr).Info("connected to ClickHouse")
	return store, nil
}

// EnsureSchema creates the event tables if they are missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{createSwapsTable, createLiquidityTable} {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO amm_swaps (
			id, timestamp, pool, trader, token_in, token_out,
			amount_in, amount_out, fee_bps, exact_output, reserve0, reserve1, price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.ID,
		swap.Timestamp,
		swap.Pool,
		swap.Trader,
		swap.TokenIn,
		swap.TokenOut,
		swap.AmountIn,
		swap.AmountOut,
		swap.FeeBps,
		swap.ExactOutput,
		swap.Reserve0,
		swap.Reserve1,
		swap.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertLiquidity(ctx context.Context, ev *models.LiquidityEvent) error {
	query := `
		INSERT INTO amm_liquidity (
			id, timestamp, pool, provider, action,
			amount0, amount1, liquidity, reserve0, reserve1, lp_supply, k_last
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		ev.ID,
		ev.Timestamp,
		ev.Pool,
		ev.Provider,
		string(ev.Action),
		ev.Amount0,
		ev.Amount1,
		ev.Liquidity,
		ev.Reserve0,
		ev.Reserve1,
		ev.LPSupply,
		ev.KLast,
	)
	if err != nil {
		return fmt.Errorf("failed to insert liquidity event: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
