package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/cache"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/config"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/flags"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/indexer"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/metrics"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the AMM HTTP API",
	Long: `Runs the AMM HTTP API. Redis (recent swaps, pub/sub, operator flags) and
ClickHouse (event history) are used when REDIS_ADDR and CLICKHOUSE_ADDR are set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := newLogger()
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyLevel(logger, cfg.LogLevel)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	program := amm.NewProgram(cfg.ProgramKey(), logger)
	if cfg.Owner != "" {
		owner := solana.MustPublicKeyFromBase58(cfg.Owner)
		if _, err := program.Initialize(owner, cfg.FeeBps); err != nil {
			return fmt.Errorf("initialize config: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := indexer.Options{Metrics: metrics.NewAMMMetrics(reg), Logger: logger}
	h := &server.Handlers{
		Program: program,
		DevMode: cfg.DevMode,
		Logger:  logger,
		Timeout: cfg.HTTPTimeout,
	}

	// Redis backs recent swaps, pub/sub and operator flags
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer rclient.Close()

		eventCache, err := cache.NewRedisCache(rclient, int64(cfg.RecentSwapsLimit))
		if err != nil {
			return err
		}
		flagStore, err := flags.NewStore(rclient)
		if err != nil {
			return fmt.Errorf("failed to create flags store: %w", err)
		}
		opts.Cache = eventCache
		opts.PubSub = cache.NewPubSubManager(rclient, logger)
		h.Cache = eventCache
		h.Flags = flagStore
		logger.WithField("addr", cfg.RedisAddr).Info("redis connected")
	} else {
		logger.Warn("REDIS_ADDR not set, recent swaps, pub/sub and flags are disabled")
	}

	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseOptions{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer store.Close()
		opts.Store = store
	}
	h.Publisher = indexer.NewPublisher(opts)

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:     cfg.APIAddr,
			DevMode:  cfg.DevMode,
			APIKey:   cfg.APIKey,
			Gatherer: reg,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":       cfg.APIAddr,
		"program_id": cfg.ProgramID,
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}

	// Wait for server to be fully shut down
	return srv.WaitClosed(context.Background())
}
