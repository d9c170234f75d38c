package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/indexer"
)

// publish hands a committed operation to the publisher. Failures are logged
// and never change the response: the operation has already happened.
func (h *Handlers) publish(c echo.Context, what string, fn func(ctx context.Context, p *indexer.Publisher) error) {
	if h.Publisher == nil {
		return
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	if err := fn(ctx, h.Publisher); err != nil {
		h.Logger.WithError(err).WithField("event", what).Warn("failed to publish event")
	}
}

func (h *Handlers) poolParam(c echo.Context) (solana.PublicKey, error) {
	return parseKey(c.Param("pool"))
}

// PoolsList returns every pool
func (h *Handlers) PoolsList(c echo.Context) error {
	return c.JSON(http.StatusOK, PoolsResponse{Items: h.Program.Pools()})
}

// PoolCreate provisions the vaults of a pair and creates its pool
func (h *Handlers) PoolCreate(c echo.Context) error {
	var req CreatePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	tokenA, err := parseKey(req.TokenA)
	if err != nil {
		return h.invalidKey(c, "token_a")
	}
	tokenB, err := parseKey(req.TokenB)
	if err != nil {
		return h.invalidKey(c, "token_b")
	}

	// only the owner may open vault accounts
	if err := h.Program.RequireOwner(callerFrom(c)); err != nil {
		return h.fail(c, "create_pool", err)
	}
	if _, err := h.Program.ProvisionVaults(tokenA, tokenB); err != nil {
		return h.fail(c, "create_pool", err)
	}
	st, err := h.Program.CreatePool(callerFrom(c), tokenA, tokenB)
	if err != nil {
		return h.fail(c, "create_pool", err)
	}

	h.publish(c, "pool_created", func(ctx context.Context, p *indexer.Publisher) error {
		p.PoolCreated(ctx, st)
		return nil
	})
	return c.JSON(http.StatusCreated, st)
}

// PoolGet returns a pool by address
func (h *Handlers) PoolGet(c echo.Context) error {
	pool, err := h.poolParam(c)
	if err != nil {
		return h.invalidKey(c, "pool")
	}
	st, err := h.Program.Pool(pool)
	if err != nil {
		return h.fail(c, "pool", err)
	}
	return c.JSON(http.StatusOK, st)
}

// PoolByPair looks a pool up by its two tokens, given in either order
func (h *Handlers) PoolByPair(c echo.Context) error {
	tokenA, err := parseKey(c.QueryParam("token_a"))
	if err != nil {
		return h.invalidKey(c, "token_a")
	}
	tokenB, err := parseKey(c.QueryParam("token_b"))
	if err != nil {
		return h.invalidKey(c, "token_b")
	}
	st, err := h.Program.PoolByPair(tokenA, tokenB)
	if err != nil {
		return h.fail(c, "pool", err)
	}
	return c.JSON(http.StatusOK, st)
}

// PoolQuote prices a trade without executing it
// Query: token_in, amount, mode (exact_in|exact_out, default exact_in)
func (h *Handlers) PoolQuote(c echo.Context) error {
	pool, err := h.poolParam(c)
	if err != nil {
		return h.invalidKey(c, "pool")
	}
	tokenIn, err := parseKey(c.QueryParam("token_in"))
	if err != nil {
		return h.invalidKey(c, "token_in")
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(c.QueryParam("amount")), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}

	var q amm.SwapQuote
	switch mode := c.QueryParam("mode"); mode {
	case "", ModeExactIn:
		q, err = h.Program.QuoteExactInput(pool, tokenIn, amount)
	case ModeExactOut:
		q, err = h.Program.QuoteExactOutput(pool, tokenIn, amount)
	default:
		return h.err(c, http.StatusBadRequest, "invalid mode", map[string]any{"mode": "exact_in or exact_out"})
	}
	if err != nil {
		return h.fail(c, "quote", err)
	}
	return c.JSON(http.StatusOK, q)
}

// LiquidityAdd deposits into a pool and mints LP units to the caller
func (h *Handlers) LiquidityAdd(c echo.Context) error {
	pool, err := h.poolParam(c)
	if err != nil {
		return h.invalidKey(c, "pool")
	}
	var req AddLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	userA, err := parseOptionalKey(req.UserTokenA)
	if err != nil {
		return h.invalidKey(c, "user_token_a")
	}
	userB, err := parseOptionalKey(req.UserTokenB)
	if err != nil {
		return h.invalidKey(c, "user_token_b")
	}

	receipt, err := h.Program.AddLiquidity(callerFrom(c), pool, amm.AddLiquidityParams{
		Amount0Desired: req.Amount0Desired,
		Amount1Desired: req.Amount1Desired,
		Amount0Min:     req.Amount0Min,
		Amount1Min:     req.Amount1Min,
		UserTokenA:     userA,
		UserTokenB:     userB,
	})
	if err != nil {
		return h.fail(c, "add_liquidity", err)
	}

	h.publish(c, "liquidity", func(ctx context.Context, p *indexer.Publisher) error {
		return p.ProcessLiquidity(ctx, receipt)
	})
	return c.JSON(http.StatusOK, receipt)
}

// LiquidityRemove burns the caller's LP units for the pro-rata reserves
func (h *Handlers) LiquidityRemove(c echo.Context) error {
	pool, err := h.poolParam(c)
	if err != nil {
		return h.invalidKey(c, "pool")
	}
	var req RemoveLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	userA, err := parseOptionalKey(req.UserTokenA)
	if err != nil {
		return h.invalidKey(c, "user_token_a")
	}
	userB, err := parseOptionalKey(req.UserTokenB)
	if err != nil {
		return h.invalidKey(c, "user_token_b")
	}

	receipt, err := h.Program.RemoveLiquidity(callerFrom(c), pool, amm.RemoveLiquidityParams{
		Liquidity:  req.Liquidity,
		Amount0Min: req.Amount0Min,
		Amount1Min: req.Amount1Min,
		UserTokenA: userA,
		UserTokenB: userB,
	})
	if err != nil {
		return h.fail(c, "remove_liquidity", err)
	}

	h.publish(c, "liquidity", func(ctx context.Context, p *indexer.Publisher) error {
		return p.ProcessLiquidity(ctx, receipt)
	})
	return c.JSON(http.StatusOK, receipt)
}

// Swap executes an exact-input or exact-output trade for the caller
func (h *Handlers) Swap(c echo.Context) error {
	pool, err := h.poolParam(c)
	if err != nil {
		return h.invalidKey(c, "pool")
	}
	var req SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	tokenIn, err := parseKey(req.TokenIn)
	if err != nil {
		return h.invalidKey(c, "token_in")
	}
	userIn, err := parseOptionalKey(req.UserTokenIn)
	if err != nil {
		return h.invalidKey(c, "user_token_in")
	}
	userOut, err := parseOptionalKey(req.UserTokenOut)
	if err != nil {
		return h.invalidKey(c, "user_token_out")
	}

	var receipt amm.SwapReceipt
	caller := callerFrom(c)
	switch req.Mode {
	case "", ModeExactIn:
		receipt, err = h.Program.SwapExactInput(caller, pool, amm.SwapExactInputParams{
			TokenIn:      tokenIn,
			AmountIn:     req.Amount,
			AmountOutMin: req.Limit,
			UserTokenIn:  userIn,
			UserTokenOut: userOut,
		})
	case ModeExactOut:
		receipt, err = h.Program.SwapExactOutput(caller, pool, amm.SwapExactOutputParams{
			TokenIn:      tokenIn,
			AmountOut:    req.Amount,
			AmountInMax:  req.Limit,
			UserTokenIn:  userIn,
			UserTokenOut: userOut,
		})
	default:
		return h.err(c, http.StatusBadRequest, "invalid mode", map[string]any{"mode": "exact_in or exact_out"})
	}
	if err != nil {
		return h.fail(c, "swap", err)
	}

	h.publish(c, "swap", func(ctx context.Context, p *indexer.Publisher) error {
		return p.ProcessSwap(ctx, receipt)
	})
	return c.JSON(http.StatusOK, receipt)
}
