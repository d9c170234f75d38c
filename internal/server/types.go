package server

import "github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // AMM error kind, when the core rejected the request
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK          bool   `json:"ok"`
	ProgramID   string `json:"program_id"`
	Initialized bool   `json:"initialized"`
	Pools       int    `json:"pools"`
}

// ConfigInitRequest initializes the protocol config with the caller as owner
type ConfigInitRequest struct {
	Fee uint64 `json:"fee"` // Fee in basis points
}

type SetFeeRequest struct {
	Fee uint64 `json:"fee"`
}

type SetFeeToRequest struct {
	FeeTo string `json:"fee_to"` // Base58 recipient
}

// CreatePoolRequest names the two tokens in any order
type CreatePoolRequest struct {
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
}

type AddLiquidityRequest struct {
	Amount0Desired uint64 `json:"amount0_desired"`
	Amount1Desired uint64 `json:"amount1_desired"`
	Amount0Min     uint64 `json:"amount0_min"`
	Amount1Min     uint64 `json:"amount1_min"`
	UserTokenA     string `json:"user_token_a,omitempty"`
	UserTokenB     string `json:"user_token_b,omitempty"`
}

type RemoveLiquidityRequest struct {
	Liquidity  uint64 `json:"liquidity"`
	Amount0Min uint64 `json:"amount0_min"`
	Amount1Min uint64 `json:"amount1_min"`
	UserTokenA string `json:"user_token_a,omitempty"`
	UserTokenB string `json:"user_token_b,omitempty"`
}

const (
	ModeExactIn  = "exact_in"
	ModeExactOut = "exact_out"
)

// SwapRequest covers both swap modes. For exact_in, Amount is the input and
// Limit the minimum output; for exact_out, Amount is the output and Limit
// the maximum input.
type SwapRequest struct {
	Mode         string `json:"mode"`
	TokenIn      string `json:"token_in"`
	Amount       uint64 `json:"amount"`
	Limit        uint64 `json:"limit"`
	UserTokenIn  string `json:"user_token_in,omitempty"`
	UserTokenOut string `json:"user_token_out,omitempty"`
}

type OpenAccountRequest struct {
	Mint string `json:"mint"`
}

type CreditRequest struct {
	Amount uint64 `json:"amount"`
}

type PoolsResponse struct {
	Items []amm.PoolState `json:"items"`
}

type AccountsResponse struct {
	Items []amm.TokenAccount `json:"items"`
}

// FlagUpsertRequest represents a request to create or update an operator flag
type FlagUpsertRequest struct {
	Key    string `json:"key"`
	Value  bool   `json:"value"`
	Reason string `json:"reason,omitempty"`
}

// FlagUpdateRequest represents a request to update an existing operator flag
type FlagUpdateRequest struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason,omitempty"`
}
