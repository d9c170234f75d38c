package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
)

// HeaderCaller carries the base58 address of the signer of a mutating request.
const HeaderCaller = "X-Caller"

const callerKey = "amm.caller"

// RequireCaller rejects requests without a valid X-Caller header and stores
// the parsed address on the context.
func (h *Handlers) RequireCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := strings.TrimSpace(c.Request().Header.Get(HeaderCaller))
		if raw == "" {
			return h.err(c, http.StatusUnauthorized, "missing caller", map[string]any{"header": HeaderCaller})
		}
		caller, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return h.err(c, http.StatusUnauthorized, "invalid caller", map[string]any{"header": HeaderCaller})
		}
		c.Set(callerKey, caller)
		return next(c)
	}
}

func callerFrom(c echo.Context) solana.PublicKey {
	caller, _ := c.Get(callerKey).(solana.PublicKey)
	return caller
}

// HaltOn returns 503 while the named operator flag is enabled. A flag store
// that cannot be read also halts the route.
func (h *Handlers) HaltOn(flag string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.Flags == nil {
				return next(c)
			}
			ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()

			halted, err := h.Flags.Enabled(ctx, flag)
			if err != nil {
				h.Logger.WithError(err).WithField("flag", flag).Warn("failed to read halt flag")
				return h.err(c, http.StatusServiceUnavailable, "flag store unavailable", nil)
			}
			if halted {
				return h.err(c, http.StatusServiceUnavailable, "halted", map[string]any{"flag": flag})
			}
			return next(c)
		}
	}
}
