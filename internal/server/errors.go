package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps a core error to the HTTP status returned to the client.
func statusFor(err error) int {
	if errors.Is(err, amm.ErrPoolAlreadyExists) || errors.Is(err, amm.ErrAlreadyInitialized) {
		return http.StatusConflict
	}
	switch amm.KindOf(err) {
	case amm.KindAuthorization:
		return http.StatusForbidden
	case amm.KindValidation:
		return http.StatusBadRequest
	case amm.KindNotFound:
		return http.StatusNotFound
	case amm.KindSlippage:
		return http.StatusConflict
	case amm.KindArithmetic, amm.KindInsufficiency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail reports a core error for operation op.
func (h *Handlers) fail(c echo.Context, op string, err error) error {
	code := statusFor(err)
	kind := amm.KindOf(err)
	if h.Publisher != nil {
		h.Publisher.RecordError(op, err)
	}

	log := h.Logger.WithError(err).WithField("op", op)
	if code == http.StatusInternalServerError {
		log.Error("operation failed")
		return h.err(c, code, "internal server error", map[string]any{"err": err.Error()})
	}
	log.Debug("operation rejected")

	return c.JSON(code, ErrorResponse{Error: err.Error(), Code: code, Kind: kind.String()})
}
