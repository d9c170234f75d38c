package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/amm"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/flags"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/indexer"
	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/metrics"
)

type memFlags struct {
	mu    sync.Mutex
	items map[string]*flags.Flag
}

func newMemFlags() *memFlags {
	return &memFlags{items: map[string]*flags.Flag{}}
}

func (m *memFlags) Upsert(_ context.Context, key string, value bool, reason string) (*flags.Flag, error) {
	if err := flags.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &flags.Flag{Key: key, Value: value, Reason: reason, UpdatedAt: time.Now().UTC()}
	m.items[key] = f
	return f, nil
}

func (m *memFlags) Get(_ context.Context, key string) (*flags.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[key]
	if !ok {
		return nil, flags.ErrNotFound
	}
	return f, nil
}

func (m *memFlags) Enabled(ctx context.Context, key string) (bool, error) {
	f, err := m.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return f.Value, nil
}

func (m *memFlags) List(_ context.Context) ([]*flags.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*flags.Flag, 0, len(m.items))
	for _, f := range m.items {
		out = append(out, f)
	}
	return out, nil
}

func (m *memFlags) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type testEnv struct {
	srv     *Server
	program *amm.Program
	flags   *memFlags
	reg     *prometheus.Registry
}

// setupServer builds a dev-mode server with in-memory flags. configure may
// swap in other sinks before the publisher is built.
func setupServer(t *testing.T, configure ...func(h *Handlers, opts *indexer.Options)) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := prometheus.NewRegistry()
	program := amm.NewProgram(solana.MustPublicKeyFromBase58(constants.DefaultProgramID), logger)
	fl := newMemFlags()
	h := &Handlers{
		Program: program,
		Flags:   fl,
		DevMode: true,
		Logger:  logger,
		Timeout: time.Second,
	}
	opts := indexer.Options{Metrics: metrics.NewAMMMetrics(reg), Logger: logger}
	for _, fn := range configure {
		fn(h, &opts)
	}
	h.Publisher = indexer.NewPublisher(opts)
	srv, err := NewServer(ServerDeps{
		Handlers: h,
		Config:   ServerConfig{Addr: ":0", DevMode: true, Gatherer: reg},
	})
	require.NoError(t, err)

	return &testEnv{srv: srv, program: program, flags: fl, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, caller solana.PublicKey, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if !caller.IsZero() {
		req.Header.Set(HeaderCaller, caller.String())
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedPool initializes the config at 30 bps, creates a pool and deposits
// 50e9 of each token from a funded provider.
func (e *testEnv) seedPool(t *testing.T) (owner solana.PublicKey, st amm.PoolState) {
	t.Helper()

	owner = solana.NewWallet().PublicKey()
	rec := e.do(t, http.MethodPost, "/v1/config", owner, ConfigInitRequest{Fee: 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tokenA, tokenB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	rec = e.do(t, http.MethodPost, "/v1/pools", owner, CreatePoolRequest{TokenA: tokenA.String(), TokenB: tokenB.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st = decode[amm.PoolState](t, rec)

	e.fund(t, owner, st.Token0, 50e9)
	e.fund(t, owner, st.Token1, 50e9)
	rec = e.do(t, http.MethodPost, "/v1/pools/"+st.Pool.String()+"/liquidity", owner, AddLiquidityRequest{
		Amount0Desired: 50e9,
		Amount1Desired: 50e9,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return owner, st
}

func (e *testEnv) fund(t *testing.T, owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/accounts", owner, OpenAccountRequest{Mint: mint.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	acct := decode[amm.TokenAccount](t, rec)

	rec = e.do(t, http.MethodPost, "/v1/accounts/"+acct.Address.String()+"/credit", solana.PublicKey{}, CreditRequest{Amount: amount})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return acct.Address
}

func TestHealth(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/v1/health", solana.PublicKey{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[HealthResponse](t, rec)
	assert.True(t, got.OK)
	assert.False(t, got.Initialized)
	assert.Equal(t, constants.DefaultProgramID, got.ProgramID)
}

func TestConfigEndpoints(t *testing.T) {
	env := setupServer(t)
	owner := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	rec := env.do(t, http.MethodGet, "/v1/config", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/config", solana.PublicKey{}, ConfigInitRequest{Fee: 30})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/config", owner, ConfigInitRequest{Fee: 10000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[ErrorResponse](t, rec).Kind)

	rec = env.do(t, http.MethodPost, "/v1/config", owner, ConfigInitRequest{Fee: 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/config", stranger, ConfigInitRequest{Fee: 30})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/config/fee", stranger, SetFeeRequest{Fee: 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/config/fee", owner, SetFeeRequest{Fee: 25})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/config/fee-to", owner, SetFeeToRequest{FeeTo: "not-base58!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/config/fee-to", owner, SetFeeToRequest{FeeTo: stranger.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := decode[amm.Config](t, env.do(t, http.MethodGet, "/v1/config", solana.PublicKey{}, nil))
	assert.Equal(t, uint64(25), cfg.Fee)
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, stranger, cfg.FeeTo)
}

func TestPoolEndpoints(t *testing.T) {
	env := setupServer(t)
	owner, st := env.seedPool(t)

	rec := env.do(t, http.MethodPost, "/v1/pools", owner, CreatePoolRequest{TokenA: st.Token1.String(), TokenB: st.Token0.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	tokenA, tokenB := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	rec = env.do(t, http.MethodPost, "/v1/pools", solana.NewWallet().PublicKey(), CreatePoolRequest{
		TokenA: tokenA.String(),
		TokenB: tokenB.String(),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a rejected caller opens no vault accounts
	addrs, err := env.program.DerivePoolAddresses(tokenA, tokenB)
	require.NoError(t, err)
	_, err = env.program.Account(addrs.Vault0)
	assert.ErrorIs(t, err, amm.ErrAccountNotFound)
	_, err = env.program.Account(addrs.Vault1)
	assert.ErrorIs(t, err, amm.ErrAccountNotFound)

	list := decode[PoolsResponse](t, env.do(t, http.MethodGet, "/v1/pools", solana.PublicKey{}, nil))
	require.Len(t, list.Items, 1)
	assert.Equal(t, uint64(50e9), list.Items[0].Reserve0)

	rec = env.do(t, http.MethodGet, "/v1/pools/pair?token_a="+st.Token1.String()+"&token_b="+st.Token0.String(), solana.PublicKey{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, st.Pool, decode[amm.PoolState](t, rec).Pool)

	rec = env.do(t, http.MethodGet, "/v1/pools/"+solana.NewWallet().PublicKey().String(), solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/pools/garbage", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	env := setupServer(t)
	_, st := env.seedPool(t)
	base := "/v1/pools/" + st.Pool.String() + "/quote?token_in=" + st.Token0.String()

	rec := env.do(t, http.MethodGet, base+"&amount=10000000000", solana.PublicKey{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[amm.SwapQuote](t, rec)
	assert.Equal(t, uint64(8312489578), q.AmountOut)
	assert.Equal(t, st.Token1, q.TokenOut)

	rec = env.do(t, http.MethodGet, base+"&amount=8312489578&mode=exact_out", solana.PublicKey{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(10e9), decode[amm.SwapQuote](t, rec).AmountIn)

	rec = env.do(t, http.MethodGet, base+"&amount=-1", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, base+"&amount=1&mode=sideways", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, base+"&amount=50000000000&mode=exact_out", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/pools/"+st.Pool.String()+"/quote?amount=1&token_in="+solana.NewWallet().PublicKey().String(), solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwapEndpoint(t *testing.T) {
	env := setupServer(t)
	_, st := env.seedPool(t)
	trader := solana.NewWallet().PublicKey()
	env.fund(t, trader, st.Token0, 20e9)
	path := "/v1/pools/" + st.Pool.String() + "/swap"

	rec := env.do(t, http.MethodPost, path, solana.PublicKey{}, SwapRequest{TokenIn: st.Token0.String(), Amount: 10e9})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, path, trader, SwapRequest{TokenIn: st.Token0.String(), Amount: 10e9, Limit: 9e9})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slippage", decode[ErrorResponse](t, rec).Kind)

	rec = env.do(t, http.MethodPost, path, trader, SwapRequest{Mode: ModeExactIn, TokenIn: st.Token0.String(), Amount: 10e9, Limit: 8e9})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := decode[amm.SwapReceipt](t, rec)
	assert.Equal(t, uint64(8312489578), receipt.AmountOut)
	assert.Equal(t, uint64(60e9), receipt.State.Reserve0)

	out, err := amm.TokenAccountAddress(trader, st.Token1)
	require.NoError(t, err)
	acct := decode[amm.TokenAccount](t, env.do(t, http.MethodGet, "/v1/accounts/"+out.String(), solana.PublicKey{}, nil))
	assert.Equal(t, uint64(8312489578), acct.Amount)

	rec = env.do(t, http.MethodPost, path, trader, SwapRequest{Mode: ModeExactOut, TokenIn: st.Token0.String(), Amount: 1e9, Limit: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, path, trader, SwapRequest{TokenIn: st.Token0.String(), Amount: 30e9})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficiency", decode[ErrorResponse](t, rec).Kind)

	body := env.do(t, http.MethodGet, "/metrics", solana.PublicKey{}, nil).Body.String()
	assert.Contains(t, body, "amm_pool_swaps_total")
	assert.Contains(t, body, "amm_pool_operation_errors_total")
}

func TestLiquidityEndpoints(t *testing.T) {
	env := setupServer(t)
	owner, st := env.seedPool(t)
	path := "/v1/pools/" + st.Pool.String() + "/liquidity"

	rec := env.do(t, http.MethodPost, path+"/remove", owner, RemoveLiquidityRequest{Liquidity: 25e9})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := decode[amm.LiquidityReceipt](t, rec)
	assert.True(t, receipt.Removed)
	assert.Equal(t, uint64(25e9), receipt.Amount0)
	assert.Equal(t, uint64(25e9), receipt.State.LPSupply)

	rec = env.do(t, http.MethodPost, path+"/remove", owner, RemoveLiquidityRequest{Liquidity: 26e9})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, path, owner, AddLiquidityRequest{Amount0Desired: 1, Amount1Desired: 1, UserTokenA: "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, path, solana.NewWallet().PublicKey(), AddLiquidityRequest{Amount0Desired: 10, Amount1Desired: 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHaltFlags(t *testing.T) {
	env := setupServer(t)
	owner, st := env.seedPool(t)

	rec := env.do(t, http.MethodPost, "/v1/flags", solana.PublicKey{}, FlagUpsertRequest{Key: constants.FlagHaltSwaps, Value: true, Reason: "incident"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	swap := "/v1/pools/" + st.Pool.String() + "/swap"
	rec = env.do(t, http.MethodPost, swap, owner, SwapRequest{TokenIn: st.Token0.String(), Amount: 1e9})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Liquidity is halted separately
	rec = env.do(t, http.MethodPost, "/v1/pools/"+st.Pool.String()+"/liquidity/remove", owner, RemoveLiquidityRequest{Liquidity: 1e9})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/v1/flags/"+constants.FlagHaltSwaps, solana.PublicKey{}, FlagUpdateRequest{Value: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, swap, owner, SwapRequest{TokenIn: st.Token0.String(), Amount: 1e9})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestFlagsEndpoints(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/v1/flags", solana.PublicKey{}, FlagUpsertRequest{Key: "Bad Key", Value: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/flags/halt.liquidity", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/flags", solana.PublicKey{}, FlagUpsertRequest{Key: "halt.liquidity", Value: true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/flags", solana.PublicKey{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "halt.liquidity")

	rec = env.do(t, http.MethodDelete, "/v1/flags/halt.liquidity", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecentSwapsWithoutCache(t *testing.T) {
	env := setupServer(t)
	rec := env.do(t, http.MethodGet, "/v1/pools/"+solana.NewWallet().PublicKey().String()+"/swaps/recent", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFoundIsJSON(t *testing.T) {
	env := setupServer(t)
	rec := env.do(t, http.MethodGet, "/nope", solana.PublicKey{}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}

func TestAPIKey(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{
			Program: amm.NewProgram(solana.MustPublicKeyFromBase58(constants.DefaultProgramID), logger),
			Logger:  logger,
		},
		Config: ServerConfig{APIKey: "secret", Gatherer: prometheus.NewRegistry()},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/pools", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code)

	bad := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	bad.Header.Set("X-API-Key", "invalid-key")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
