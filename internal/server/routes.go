package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetNoCacheHeaders) // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v1/health"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := e.Group("/v1", SetJSONContentType)
	v1.GET("/health", h.Health) // Health check endpoint

	configGroup := v1.Group("/config")
	configGroup.GET("", h.ConfigGet)
	configGroup.POST("", h.ConfigInit, h.RequireCaller)
	configGroup.PUT("/fee", h.ConfigSetFee, h.RequireCaller)
	configGroup.PUT("/fee-to", h.ConfigSetFeeTo, h.RequireCaller)

	// Trading endpoints share one rate limiter
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(20), // 20 requests per second per client
		Burst:     40,
		ExpiresIn: 2 * time.Minute,
	}))
	haltSwaps := h.HaltOn(constants.FlagHaltSwaps)
	haltLiquidity := h.HaltOn(constants.FlagHaltLiquidity)

	pools := v1.Group("/pools")
	pools.GET("", h.PoolsList)
	pools.POST("", h.PoolCreate, h.RequireCaller)
	pools.GET("/pair", h.PoolByPair)
	pools.GET("/:pool", h.PoolGet)
	pools.GET("/:pool/quote", h.PoolQuote)
	pools.GET("/:pool/swaps/recent", h.RecentSwaps)
	pools.POST("/:pool/liquidity", h.LiquidityAdd, limiter, h.RequireCaller, haltLiquidity)
	pools.POST("/:pool/liquidity/remove", h.LiquidityRemove, limiter, h.RequireCaller, haltLiquidity)
	pools.POST("/:pool/swap", h.Swap, limiter, h.RequireCaller, haltSwaps)

	accounts := v1.Group("/accounts")
	accounts.POST("", h.AccountOpen, h.RequireCaller)
	accounts.GET("/:address", h.AccountGet)
	accounts.GET("/owner/:owner", h.AccountsByOwner)
	if cfg.DevMode {
		// Stand-in for external token transfers
		accounts.POST("/:address/credit", h.AccountCredit)
	}

	// Operator flags CRUD endpoints
	if h.Flags != nil {
		flagGroup := v1.Group("/flags")
		flagGroup.GET("", h.FlagsList)           // List all flags
		flagGroup.POST("", h.FlagsUpsert)        // Create new flag
		flagGroup.GET("/:key", h.FlagsGet)       // Get specific flag
		flagGroup.PUT("/:key", h.FlagsUpdate)    // Update existing flag
		flagGroup.DELETE("/:key", h.FlagsDelete) // Delete flag
	}

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
