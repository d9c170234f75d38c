package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/cache"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/config"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

var watchPool string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream swap events published by a running server",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchPool, "pool", "", "only show swaps of this pool")
	rootCmd.AddCommand(watchCmd)
}

// swapChannel returns the pub/sub channel carrying swaps for pool, or all
// swaps when pool is empty.
func swapChannel(pool string) string {
	if pool == "" {
		return constants.PubSubChannelSwaps
	}
	return constants.PubSubChannelPoolSwaps + pool
}

func runWatch(_ *cobra.Command, _ []string) error {
	logger := newLogger()
	loadEnv(logger)

	cfg := config.Load()
	applyLevel(logger, cfg.LogLevel)
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required")
	}
	if watchPool != "" {
		if _, err := solana.PublicKeyFromBase58(watchPool); err != nil {
			return fmt.Errorf("--pool: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	pubsub := cache.NewPubSubManager(rclient, logger)
	err := pubsub.SubscribeSwaps(ctx, swapChannel(watchPool), func(swap *models.SwapEvent) {
		logger.WithFields(logrus.Fields{
			"pool":       swap.Pool,
			"trader":     swap.Trader,
			"token_in":   swap.TokenIn,
			"amount_in":  swap.AmountIn,
			"amount_out": swap.AmountOut,
			"price":      swap.Price,
		}).Info("swap")
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}
