package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/flags"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/indexer"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/models"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/storage"
)

// FlagStore is the subset of flags.Store the handlers use.
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool, reason string) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	Enabled(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Program   *amm.Program       // In-process AMM program
	Publisher *indexer.Publisher // Event fan-out (optional)
	Cache     storage.EventCache // Redis-backed recent swaps (optional)
	Flags     FlagStore          // Redis-backed operator flags (optional)
	DevMode   bool               // Enable detailed error responses in development
	Logger    *logrus.Logger     // Structured logger
	Timeout   time.Duration      // Budget for downstream writes after a committed operation
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func parseKey(raw string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(strings.TrimSpace(raw))
}

// parseOptionalKey is parseKey for fields that may be left empty.
func parseOptionalKey(raw string) (solana.PublicKey, error) {
	if strings.TrimSpace(raw) == "" {
		return solana.PublicKey{}, nil
	}
	return parseKey(raw)
}

func (h *Handlers) invalidKey(c echo.Context, field string) error {
	return h.err(c, http.StatusBadRequest, "invalid "+field, map[string]any{field: "must be a base58 address"})
}

// Health reports liveness and a short summary of program state
func (h *Handlers) Health(c echo.Context) error {
	_, err := h.Program.Config()
	return c.JSON(http.StatusOK, HealthResponse{
		OK:          true,
		ProgramID:   h.Program.ProgramID().String(),
		Initialized: err == nil,
		Pools:       len(h.Program.Pools()),
	})
}

// ConfigGet returns the protocol config
func (h *Handlers) ConfigGet(c echo.Context) error {
	cfg, err := h.Program.Config()
	if err != nil {
		return h.fail(c, "config", err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// ConfigInit initializes the protocol config with the caller as owner
func (h *Handlers) ConfigInit(c echo.Context) error {
	var req ConfigInitRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	cfg, err := h.Program.Initialize(callerFrom(c), req.Fee)
	if err != nil {
		return h.fail(c, "initialize", err)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (h *Handlers) ConfigSetFee(c echo.Context) error {
	var req SetFeeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	cfg, err := h.Program.SetFee(callerFrom(c), req.Fee)
	if err != nil {
		return h.fail(c, "set_fee", err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handlers) ConfigSetFeeTo(c echo.Context) error {
	var req SetFeeToRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	feeTo, err := parseKey(req.FeeTo)
	if err != nil {
		return h.invalidKey(c, "fee_to")
	}
	cfg, err := h.Program.SetFeeTo(callerFrom(c), feeTo)
	if err != nil {
		return h.fail(c, "set_fee_to", err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// AccountOpen opens the caller's associated token account for a mint
func (h *Handlers) AccountOpen(c echo.Context) error {
	var req OpenAccountRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	mint, err := parseKey(req.Mint)
	if err != nil {
		return h.invalidKey(c, "mint")
	}
	acct, err := h.Program.OpenAccount(callerFrom(c), mint)
	if err != nil {
		return h.fail(c, "open_account", err)
	}
	return c.JSON(http.StatusCreated, acct)
}

// AccountGet returns a token account by address
func (h *Handlers) AccountGet(c echo.Context) error {
	addr, err := parseKey(c.Param("address"))
	if err != nil {
		return h.invalidKey(c, "address")
	}
	acct, err := h.Program.Account(addr)
	if err != nil {
		return h.fail(c, "account", err)
	}
	return c.JSON(http.StatusOK, acct)
}

// AccountsByOwner lists the token accounts held by an owner
func (h *Handlers) AccountsByOwner(c echo.Context) error {
	owner, err := parseKey(c.Param("owner"))
	if err != nil {
		return h.invalidKey(c, "owner")
	}
	return c.JSON(http.StatusOK, AccountsResponse{Items: h.Program.AccountsByOwner(owner)})
}

// AccountCredit funds a user account from outside the program. Only
// registered in dev mode.
func (h *Handlers) AccountCredit(c echo.Context) error {
	addr, err := parseKey(c.Param("address"))
	if err != nil {
		return h.invalidKey(c, "address")
	}
	var req CreditRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	acct, err := h.Program.Credit(addr, req.Amount)
	if err != nil {
		return h.fail(c, "credit", err)
	}
	return c.JSON(http.StatusOK, acct)
}

// RecentSwaps returns the most recent swap events for a pool
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}
	pool, err := parseKey(c.Param("pool"))
	if err != nil {
		return h.invalidKey(c, "pool")
	}

	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, pool.String(), int64(limit))
	if err != nil {
		h.Logger.WithError(err).Error("failed to read recent swaps")
		return h.err(c, http.StatusInternalServerError, "failed to get recent swaps", nil)
	}
	if items == nil {
		items = []*models.SwapEvent{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsUpsert creates or updates an operator flag with the given key and value
// Validates key format before storing
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value, req.Reason)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.Logger.WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing operator flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value, req.Reason)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.Logger.WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves an operator flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all operator flags
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes an operator flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
