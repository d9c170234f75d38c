package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
)

// SwapEvent is the published record of a committed swap.
type SwapEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Pool        string    `json:"pool"`
	Trader      string    `json:"trader"`
	TokenIn     string    `json:"token_in"`
	TokenOut    string    `json:"token_out"`
	AmountIn    uint64    `json:"amount_in"`
	AmountOut   uint64    `json:"amount_out"`
	FeeBps      uint64    `json:"fee_bps"`
	ExactOutput bool      `json:"exact_output"`
	Reserve0    uint64    `json:"reserve0"`
	Reserve1    uint64    `json:"reserve1"`
	// Price is amount_out per unit of amount_in, for display only.
	Price float64 `json:"price"`
}

type LiquidityAction string

const (
	LiquidityAdd    LiquidityAction = "add"
	LiquidityRemove LiquidityAction = "remove"
)

// LiquidityEvent is the published record of a committed deposit or withdrawal.
type LiquidityEvent struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Pool      string          `json:"pool"`
	Provider  string          `json:"provider"`
	Action    LiquidityAction `json:"action"`
	Amount0   uint64          `json:"amount0"`
	Amount1   uint64          `json:"amount1"`
	Liquidity uint64          `json:"liquidity"`
	Reserve0  uint64          `json:"reserve0"`
	Reserve1  uint64          `json:"reserve1"`
	LPSupply  uint64          `json:"lp_supply"`
	KLast     string          `json:"k_last"`
}

// PoolSnapshot is the cached view of a pool after its latest change.
type PoolSnapshot struct {
	Pool      string    `json:"pool"`
	Token0    string    `json:"token0"`
	Token1    string    `json:"token1"`
	Reserve0  uint64    `json:"reserve0"`
	Reserve1  uint64    `json:"reserve1"`
	LPSupply  uint64    `json:"lp_supply"`
	KLast     string    `json:"k_last"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSwapEvent(r amm.SwapReceipt, at time.Time) *SwapEvent {
	var price float64
	if r.AmountIn > 0 {
		price = float64(r.AmountOut) / float64(r.AmountIn)
	}
	return &SwapEvent{
		ID:          uuid.NewString(),
		Timestamp:   at.UTC(),
		Pool:        r.Pool.String(),
		Trader:      r.Trader.String(),
		TokenIn:     r.TokenIn.String(),
		TokenOut:    r.TokenOut.String(),
		AmountIn:    r.AmountIn,
		AmountOut:   r.AmountOut,
		FeeBps:      r.Fee,
		ExactOutput: r.ExactOutput,
		Reserve0:    r.State.Reserve0,
		Reserve1:    r.State.Reserve1,
		Price:       price,
	}
}

func NewLiquidityEvent(r amm.LiquidityReceipt, at time.Time) *LiquidityEvent {
	action := LiquidityAdd
	if r.Removed {
		action = LiquidityRemove
	}
	return &LiquidityEvent{
		ID:        uuid.NewString(),
		Timestamp: at.UTC(),
		Pool:      r.Pool.String(),
		Provider:  r.Provider.String(),
		Action:    action,
		Amount0:   r.Amount0,
		Amount1:   r.Amount1,
		Liquidity: r.Liquidity,
		Reserve0:  r.State.Reserve0,
		Reserve1:  r.State.Reserve1,
		LPSupply:  r.State.LPSupply,
		KLast:     r.State.KLast.String(),
	}
}

func NewPoolSnapshot(st amm.PoolState, at time.Time) *PoolSnapshot {
	return &PoolSnapshot{
		Pool:      st.Pool.String(),
		Token0:    st.Token0.String(),
		Token1:    st.Token1.String(),
		Reserve0:  st.Reserve0,
		Reserve1:  st.Reserve1,
		LPSupply:  st.LPSupply,
		KLast:     st.KLast.String(),
		UpdatedAt: at.UTC(),
	}
}
