package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
)

const (
	namespace = "amm"
	subsystem = "pool"
)

// AMMMetrics holds the Prometheus collectors of the AMM
type AMMMetrics struct {
	// Swap metrics
	SwapsTotal *prometheus.CounterVec
	SwapVolume *prometheus.CounterVec

	// Liquidity metrics
	LiquidityEvents *prometheus.CounterVec
	PoolReserves    *prometheus.GaugeVec
	LPTokenSupply   *prometheus.GaugeVec

	// Pool metrics
	PoolsTotal prometheus.Gauge

	// Errors by kind, labelled with the operation that failed
	OperationErrors *prometheus.CounterVec
}

// NewAMMMetrics creates the collectors and registers them with reg.
func NewAMMMetrics(reg prometheus.Registerer) *AMMMetrics {
	factory := promauto.With(reg)
	return &AMMMetrics{
		SwapsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swaps_total",
				Help:      "Total number of swaps executed",
			},
			[]string{"pool", "token_in", "mode"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "swap_volume_total",
				Help:      "Total swap volume in base units",
			},
			[]string{"pool", "token", "side"},
		),
		LiquidityEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "liquidity_events_total",
				Help:      "Total liquidity deposits and withdrawals",
			},
			[]string{"pool", "action"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reserves",
				Help:      "Current pool reserves in base units",
			},
			[]string{"pool", "side"},
		),
		LPTokenSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_supply",
				Help:      "Outstanding LP token units",
			},
			[]string{"pool"},
		),
		PoolsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pools",
				Help:      "Number of pools created",
			},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Failed operations by error kind",
			},
			[]string{"operation", "kind"},
		),
	}
}

func mode(exactOutput bool) string {
	if exactOutput {
		return "exact_out"
	}
	return "exact_in"
}

func (m *AMMMetrics) RecordSwap(swap *models.SwapEvent) {
	m.SwapsTotal.WithLabelValues(swap.Pool, swap.TokenIn, mode(swap.ExactOutput)).Inc()
	m.SwapVolume.WithLabelValues(swap.Pool, swap.TokenIn, "in").Add(float64(swap.AmountIn))
	m.SwapVolume.WithLabelValues(swap.Pool, swap.TokenOut, "out").Add(float64(swap.AmountOut))
	m.PoolReserves.WithLabelValues(swap.Pool, "0").Set(float64(swap.Reserve0))
	m.PoolReserves.WithLabelValues(swap.Pool, "1").Set(float64(swap.Reserve1))
}

func (m *AMMMetrics) RecordLiquidity(ev *models.LiquidityEvent) {
	m.LiquidityEvents.WithLabelValues(ev.Pool, string(ev.Action)).Inc()
	m.PoolReserves.WithLabelValues(ev.Pool, "0").Set(float64(ev.Reserve0))
	m.PoolReserves.WithLabelValues(ev.Pool, "1").Set(float64(ev.Reserve1))
	m.LPTokenSupply.WithLabelValues(ev.Pool).Set(float64(ev.LPSupply))
}

func (m *AMMMetrics) RecordError(operation, kind string) {
	m.OperationErrors.WithLabelValues(operation, kind).Inc()
}
