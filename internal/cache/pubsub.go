package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// PublishSwap publishes a swap to the global and the pool channel
func (p *PubSubManager) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelSwaps, data)
	pipe.Publish(ctx, constants.PubSubChannelPoolSwaps+swap.Pool, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

func (p *PubSubManager) PublishLiquidity(ctx context.Context, ev *models.LiquidityEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal liquidity event: %w", err)
	}
	if err := p.client.Publish(ctx, constants.PubSubChannelPoolLiquidity+ev.Pool, data).Err(); err != nil {
		return fmt.Errorf("publish liquidity event: %w", err)
	}
	return nil
}

// SubscribeSwaps delivers swaps published on channel until ctx is done.
func (p *PubSubManager) SubscribeSwaps(ctx context.Context, channel string, handler func(*models.SwapEvent)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var swap models.SwapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed swap")
				continue
			}
			handler(&swap)
		}
	}
}
