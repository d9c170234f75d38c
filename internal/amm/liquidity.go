package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// AddLiquidityParams are ordered by the pool's canonical tokens.
type AddLiquidityParams struct {
	Amount0Desired uint64 `json:"amount0_desired"`
	Amount1Desired uint64 `json:"amount1_desired"`
	Amount0Min     uint64 `json:"amount0_min"`
	Amount1Min     uint64 `json:"amount1_min"`
	// Source accounts. Zero values select the caller's associated token
	// accounts; the two may be given in either order.
	UserTokenA solana.PublicKey `json:"user_token_a,omitempty"`
	UserTokenB solana.PublicKey `json:"user_token_b,omitempty"`
}

type RemoveLiquidityParams struct {
	Liquidity  uint64           `json:"liquidity"`
	Amount0Min uint64           `json:"amount0_min"`
	Amount1Min uint64           `json:"amount1_min"`
	UserTokenA solana.PublicKey `json:"user_token_a,omitempty"`
	UserTokenB solana.PublicKey `json:"user_token_b,omitempty"`
}

// LiquidityReceipt describes a committed deposit or withdrawal.
type LiquidityReceipt struct {
	Pool      solana.PublicKey `json:"pool"`
	Provider  solana.PublicKey `json:"provider"`
	Amount0   uint64           `json:"amount0"`
	Amount1   uint64           `json:"amount1"`
	Liquidity uint64           `json:"liquidity"`
	Removed   bool             `json:"removed"`
	State     PoolState        `json:"state"`
}

// LiquidityEngine mints and burns LP units against pool reserves.
type LiquidityEngine struct {
	pools  *PoolRegistry
	ledger *Ledger
	logger *logrus.Logger
}

func NewLiquidityEngine(pools *PoolRegistry, ledger *Ledger, logger *logrus.Logger) *LiquidityEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &LiquidityEngine{pools: pools, ledger: ledger, logger: logger}
}

// depositAmounts picks the amounts actually taken from the provider.
func depositAmounts(st PoolState, p AddLiquidityParams) (amount0, amount1 uint64, err error) {
	if st.Empty() {
		return p.Amount0Desired, p.Amount1Desired, nil
	}
	if p.Amount0Desired == 0 || p.Amount1Desired == 0 {
		return 0, 0, ErrInvalidAmount.Wrap("desired amounts must be positive")
	}

	amount1Optimal, err := Quote(p.Amount0Desired, st.Reserve0, st.Reserve1)
	if err != nil {
		return 0, 0, err
	}
	if amount1Optimal <= p.Amount1Desired {
		if amount1Optimal < p.Amount1Min {
			return 0, 0, ErrSlippageExceeded.Wrapf("amount1 %d below minimum %d", amount1Optimal, p.Amount1Min)
		}
		return p.Amount0Desired, amount1Optimal, nil
	}

	amount0Optimal, err := Quote(p.Amount1Desired, st.Reserve1, st.Reserve0)
	if err != nil {
		return 0, 0, err
	}
	if amount0Optimal > p.Amount0Desired {
		return 0, 0, ErrSlippageExceeded.Wrapf("amount0 %d above desired %d", amount0Optimal, p.Amount0Desired)
	}
	if amount0Optimal < p.Amount0Min {
		return 0, 0, ErrSlippageExceeded.Wrapf("amount0 %d below minimum %d", amount0Optimal, p.Amount0Min)
	}
	return amount0Optimal, p.Amount1Desired, nil
}

// AddLiquidity deposits into pool and mints LP units to caller.
func (e *LiquidityEngine) AddLiquidity(caller, pool solana.PublicKey, p AddLiquidityParams) (LiquidityReceipt, error) {
	entry, err := e.pools.lookup(pool)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	st := entry.state

	user0, user1, err := resolveUserAccounts(e.ledger, caller, st, p.UserTokenA, p.UserTokenB)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	amount0, amount1, err := depositAmounts(st, p)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	if amount0 < p.Amount0Min || amount1 < p.Amount1Min {
		return LiquidityReceipt{}, ErrSlippageExceeded.Wrapf(
			"deposit %d/%d below minimum %d/%d", amount0, amount1, p.Amount0Min, p.Amount1Min)
	}

	var minted uint64
	if st.Empty() {
		minted = InitialLiquidity(amount0, amount1)
		if minted == 0 {
			return LiquidityReceipt{}, ErrInsufficientInitialLiquidity.Wrapf("sqrt(%d * %d) is zero", amount0, amount1)
		}
	} else {
		minted, err = MintedLiquidity(amount0, amount1, st.Reserve0, st.Reserve1, st.LPSupply)
		if err != nil {
			return LiquidityReceipt{}, err
		}
		if minted == 0 {
			return LiquidityReceipt{}, ErrInsufficientLiquidityMinted
		}
	}

	next := st
	if next.Reserve0, err = checkedAdd(st.Reserve0, amount0, "reserve0"); err != nil {
		return LiquidityReceipt{}, err
	}
	if next.Reserve1, err = checkedAdd(st.Reserve1, amount1, "reserve1"); err != nil {
		return LiquidityReceipt{}, err
	}
	if next.LPSupply, err = checkedAdd(st.LPSupply, minted, "lp supply"); err != nil {
		return LiquidityReceipt{}, err
	}
	next.KLast = Product(next.Reserve0, next.Reserve1)

	b := &batch{}
	lpAccount, err := b.open(caller, st.LPMint)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	b.debit(user0, amount0).
		debit(user1, amount1).
		credit(st.Vault0, amount0).
		credit(st.Vault1, amount1).
		credit(lpAccount, minted)
	if err := e.ledger.commit(b); err != nil {
		return LiquidityReceipt{}, err
	}
	entry.state = next

	e.logger.WithFields(logrus.Fields{
		"pool":      pool.String(),
		"provider":  caller.String(),
		"amount0":   amount0,
		"amount1":   amount1,
		"liquidity": minted,
	}).Debug("liquidity added")

	return LiquidityReceipt{
		Pool:      pool,
		Provider:  caller,
		Amount0:   amount0,
		Amount1:   amount1,
		Liquidity: minted,
		State:     next,
	}, nil
}

// RemoveLiquidity burns caller's LP units and pays out the pro-rata reserves.
func (e *LiquidityEngine) RemoveLiquidity(caller, pool solana.PublicKey, p RemoveLiquidityParams) (LiquidityReceipt, error) {
	if p.Liquidity == 0 {
		return LiquidityReceipt{}, ErrInvalidAmount.Wrap("liquidity must be positive")
	}

	entry, err := e.pools.lookup(pool)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	st := entry.state

	if p.Liquidity > st.LPSupply {
		return LiquidityReceipt{}, ErrInsufficientLiquidity.Wrapf("liquidity %d exceeds supply %d", p.Liquidity, st.LPSupply)
	}
	lpAccount, err := TokenAccountAddress(caller, st.LPMint)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	held, err := e.ledger.Balance(lpAccount)
	if err != nil {
		held = 0
	}
	if p.Liquidity > held {
		return LiquidityReceipt{}, ErrInsufficientLiquidity.Wrapf("liquidity %d exceeds balance %d", p.Liquidity, held)
	}

	amount0, amount1, err := RemovedAmounts(p.Liquidity, st.LPSupply, st.Reserve0, st.Reserve1)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	if amount0 == 0 || amount1 == 0 {
		return LiquidityReceipt{}, ErrInsufficientLiquidityBurned.Wrapf("outputs %d/%d", amount0, amount1)
	}
	if amount0 < p.Amount0Min || amount1 < p.Amount1Min {
		return LiquidityReceipt{}, ErrSlippageExceeded.Wrapf(
			"withdrawal %d/%d below minimum %d/%d", amount0, amount1, p.Amount0Min, p.Amount1Min)
	}

	b := &batch{}
	user0, user1, err := resolvePayoutAccounts(e.ledger, b, caller, st, p.UserTokenA, p.UserTokenB)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	next := st
	if next.Reserve0, err = checkedSub(st.Reserve0, amount0, "reserve0"); err != nil {
		return LiquidityReceipt{}, err
	}
	if next.Reserve1, err = checkedSub(st.Reserve1, amount1, "reserve1"); err != nil {
		return LiquidityReceipt{}, err
	}
	next.LPSupply = st.LPSupply - p.Liquidity
	next.KLast = Product(next.Reserve0, next.Reserve1)

	b.debit(lpAccount, p.Liquidity).
		debit(st.Vault0, amount0).
		debit(st.Vault1, amount1).
		credit(user0, amount0).
		credit(user1, amount1)
	if err := e.ledger.commit(b); err != nil {
		return LiquidityReceipt{}, err
	}
	entry.state = next

	e.logger.WithFields(logrus.Fields{
		"pool":      pool.String(),
		"provider":  caller.String(),
		"amount0":   amount0,
		"amount1":   amount1,
		"liquidity": p.Liquidity,
	}).Debug("liquidity removed")

	return LiquidityReceipt{
		Pool:      pool,
		Provider:  caller,
		Amount0:   amount0,
		Amount1:   amount1,
		Liquidity: p.Liquidity,
		Removed:   true,
		State:     next,
	}, nil
}
