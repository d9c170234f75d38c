package amm

import (
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// PoolState is one constant-product pool.
type PoolState struct {
	PoolAddresses
	Reserve0 uint64 `json:"reserve0"`
	Reserve1 uint64 `json:"reserve1"`
	// KLast is reserve0*reserve1 after the most recent add or remove.
	KLast    sdkmath.Int `json:"k_last"`
	LPSupply uint64      `json:"lp_supply"`
}

// Empty reports whether the pool is in the bootstrap regime.
func (s PoolState) Empty() bool {
	return s.Reserve0 == 0 && s.Reserve1 == 0
}

// Reserves returns (reserveIn, reserveOut) for a swap selling tokenIn.
func (s PoolState) Reserves(tokenIn solana.PublicKey) (uint64, uint64, error) {
	switch {
	case tokenIn.Equals(s.Token0):
		return s.Reserve0, s.Reserve1, nil
	case tokenIn.Equals(s.Token1):
		return s.Reserve1, s.Reserve0, nil
	default:
		return 0, 0, ErrAccountMismatch.Wrapf("token %s is not traded by pool %s", tokenIn, s.Pool)
	}
}

// poolEntry serializes every operation on one pool.
type poolEntry struct {
	mu    sync.Mutex
	state PoolState
}

func (e *poolEntry) snapshot() PoolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PoolRegistry maps canonical token pairs and pool addresses to pools.
type PoolRegistry struct {
	mu        sync.RWMutex
	byPair    map[pairKey]*poolEntry
	byAddress map[solana.PublicKey]*poolEntry
}

func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{
		byPair:    make(map[pairKey]*poolEntry),
		byAddress: make(map[solana.PublicKey]*poolEntry),
	}
}

// create registers a new empty pool. provision runs under the registry lock
// after the collision check, so a concurrent create of the same pair sees
// either nothing or the finished pool.
func (r *PoolRegistry) create(addrs PoolAddresses, provision func() error) (PoolState, error) {
	key := pairKey{token0: addrs.Token0, token1: addrs.Token1}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPair[key]; ok {
		return PoolState{}, ErrPoolAlreadyExists.Wrapf("pool %s for %s/%s", addrs.Pool, addrs.Token0, addrs.Token1)
	}
	if _, ok := r.byAddress[addrs.Pool]; ok {
		return PoolState{}, ErrPoolAlreadyExists.Wrapf("pool %s", addrs.Pool)
	}
	if err := provision(); err != nil {
		return PoolState{}, err
	}

	entry := &poolEntry{state: PoolState{PoolAddresses: addrs, KLast: sdkmath.ZeroInt()}}
	r.byPair[key] = entry
	r.byAddress[addrs.Pool] = entry
	return entry.state, nil
}

func (r *PoolRegistry) lookup(pool solana.PublicKey) (*poolEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byAddress[pool]
	if !ok {
		return nil, ErrPoolNotFound.Wrapf("pool %s", pool)
	}
	return entry, nil
}

// Get returns a snapshot of the pool at address.
func (r *PoolRegistry) Get(pool solana.PublicKey) (PoolState, error) {
	entry, err := r.lookup(pool)
	if err != nil {
		return PoolState{}, err
	}
	return entry.snapshot(), nil
}

// GetByPair returns the pool trading the unordered pair (a, b).
func (r *PoolRegistry) GetByPair(a, b solana.PublicKey) (PoolState, error) {
	token0, token1, err := SortTokens(a, b)
	if err != nil {
		return PoolState{}, err
	}

	r.mu.RLock()
	entry, ok := r.byPair[pairKey{token0: token0, token1: token1}]
	r.mu.RUnlock()
	if !ok {
		return PoolState{}, ErrPoolNotFound.Wrapf("no pool for %s/%s", token0, token1)
	}
	return entry.snapshot(), nil
}

// List returns snapshots of all pools ordered by pool address.
func (r *PoolRegistry) List() []PoolState {
	r.mu.RLock()
	entries := make([]*poolEntry, 0, len(r.byAddress))
	for _, e := range r.byAddress {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]PoolState, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i].Pool, out[j].Pool) })
	return out
}

func (r *PoolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
