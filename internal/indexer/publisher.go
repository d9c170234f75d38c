package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/metrics"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/storage"
)

// Publisher fans committed receipts out to the cache, pub/sub, the event
// store and metrics. Every sink is optional and failures never reach the
// pool state, which is already committed.
type Publisher struct {
	cache   storage.EventCache
	pubsub  storage.EventPublisher
	store   storage.EventStore
	metrics *metrics.AMMMetrics
	logger  *logrus.Logger
	now     func() time.Time
}

type Options struct {
	Cache   storage.EventCache
	PubSub  storage.EventPublisher
	Store   storage.EventStore
	Metrics *metrics.AMMMetrics
	Logger  *logrus.Logger
}

func NewPublisher(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{
		cache:   opts.Cache,
		pubsub:  opts.PubSub,
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessSwap publishes a committed swap. The returned error reports a failed
// write to the event store; cache and pub/sub failures are only logged.
func (p *Publisher) ProcessSwap(ctx context.Context, receipt amm.SwapReceipt) error {
	swap := models.NewSwapEvent(receipt, p.now())
	log := p.logger.WithFields(logrus.Fields{
		"id":         swap.ID,
		"pool":       swap.Pool,
		"amount_in":  swap.AmountIn,
		"amount_out": swap.AmountOut,
	})
	log.Info("processing swap")

	if p.metrics != nil {
		p.metrics.RecordSwap(swap)
	}

	if p.cache != nil {
		if err := p.cache.AddRecentSwap(ctx, swap); err != nil {
			log.WithError(err).Warn("redis cache error")
		}
		p.snapshot(ctx, receipt.State, log)
	}

	if p.pubsub != nil {
		if err := p.pubsub.PublishSwap(ctx, swap); err != nil {
			log.WithError(err).Warn("pub/sub error")
		}
	}

	if p.store != nil {
		if err := p.store.InsertSwap(ctx, swap); err != nil {
			log.WithError(err).Error("clickhouse error")
			return fmt.Errorf("store swap %s: %w", swap.ID, err)
		}
	}
	return nil
}

// ProcessLiquidity publishes a committed deposit or withdrawal.
func (p *Publisher) ProcessLiquidity(ctx context.Context, receipt amm.LiquidityReceipt) error {
	ev := models.NewLiquidityEvent(receipt, p.now())
	log := p.logger.WithFields(logrus.Fields{
		"id":        ev.ID,
		"pool":      ev.Pool,
		"action":    ev.Action,
		"liquidity": ev.Liquidity,
	})
	log.Info("processing liquidity event")

	if p.metrics != nil {
		p.metrics.RecordLiquidity(ev)
	}

	if p.cache != nil {
		p.snapshot(ctx, receipt.State, log)
	}

	if p.pubsub != nil {
		if err := p.pubsub.PublishLiquidity(ctx, ev); err != nil {
			log.WithError(err).Warn("pub/sub error")
		}
	}

	if p.store != nil {
		if err := p.store.InsertLiquidity(ctx, ev); err != nil {
			log.WithError(err).Error("clickhouse error")
			return fmt.Errorf("store liquidity event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// PoolCreated records a new pool.
func (p *Publisher) PoolCreated(ctx context.Context, st amm.PoolState) {
	if p.metrics != nil {
		p.metrics.PoolsTotal.Inc()
	}
	if p.cache != nil {
		p.snapshot(ctx, st, p.logger.WithField("pool", st.Pool.String()))
	}
}

// RecordError counts a failed operation by its error kind.
func (p *Publisher) RecordError(operation string, err error) {
	if p.metrics != nil {
		p.metrics.RecordError(operation, amm.KindOf(err).String())
	}
}

func (p *Publisher) snapshot(ctx context.Context, st amm.PoolState, log *logrus.Entry) {
	if err := p.cache.SetPoolSnapshot(ctx, models.NewPoolSnapshot(st, p.now())); err != nil {
		log.WithError(err).Warn("pool snapshot error")
	}
}
