package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type SwapExactInputParams struct {
	TokenIn      solana.PublicKey `json:"token_in"`
	AmountIn     uint64           `json:"amount_in"`
	AmountOutMin uint64           `json:"amount_out_min"`
	// Zero values select the caller's associated token accounts.
	UserTokenIn  solana.PublicKey `json:"user_token_in,omitempty"`
	UserTokenOut solana.PublicKey `json:"user_token_out,omitempty"`
}

type SwapExactOutputParams struct {
	TokenIn      solana.PublicKey `json:"token_in"`
	AmountOut    uint64           `json:"amount_out"`
	AmountInMax  uint64           `json:"amount_in_max"`
	UserTokenIn  solana.PublicKey `json:"user_token_in,omitempty"`
	UserTokenOut solana.PublicKey `json:"user_token_out,omitempty"`
}

// SwapReceipt describes a committed trade.
type SwapReceipt struct {
	Pool        solana.PublicKey `json:"pool"`
	Trader      solana.PublicKey `json:"trader"`
	TokenIn     solana.PublicKey `json:"token_in"`
	TokenOut    solana.PublicKey `json:"token_out"`
	AmountIn    uint64           `json:"amount_in"`
	AmountOut   uint64           `json:"amount_out"`
	Fee         uint64           `json:"fee_bps"`
	ExactOutput bool             `json:"exact_output"`
	State       PoolState        `json:"state"`
}

// SwapQuote is the result of pricing a trade without executing it.
type SwapQuote struct {
	Pool        solana.PublicKey `json:"pool"`
	TokenIn     solana.PublicKey `json:"token_in"`
	TokenOut    solana.PublicKey `json:"token_out"`
	AmountIn    uint64           `json:"amount_in"`
	AmountOut   uint64           `json:"amount_out"`
	Fee         uint64           `json:"fee_bps"`
	ExactOutput bool             `json:"exact_output"`
}

// SwapEngine trades against pool reserves at the configured fee.
type SwapEngine struct {
	config *ConfigStore
	pools  *PoolRegistry
	ledger *Ledger
	logger *logrus.Logger
}

func NewSwapEngine(config *ConfigStore, pools *PoolRegistry, ledger *Ledger, logger *logrus.Logger) *SwapEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &SwapEngine{config: config, pools: pools, ledger: ledger, logger: logger}
}

func otherToken(st PoolState, tokenIn solana.PublicKey) solana.PublicKey {
	if tokenIn.Equals(st.Token0) {
		return st.Token1
	}
	return st.Token0
}

// priceExactInput also rejects a trade whose output rounds down to zero with
// ErrInvalidAmount, so a dust input never moves reserves for nothing.
func priceExactInput(st PoolState, tokenIn solana.PublicKey, amountIn, fee uint64) (SwapQuote, error) {
	reserveIn, reserveOut, err := st.Reserves(tokenIn)
	if err != nil {
		return SwapQuote{}, err
	}
	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut, fee)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut == 0 {
		return SwapQuote{}, ErrInvalidAmount.Wrapf("amount in %d is too small to buy anything", amountIn)
	}
	return SwapQuote{
		Pool:      st.Pool,
		TokenIn:   tokenIn,
		TokenOut:  otherToken(st, tokenIn),
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
	}, nil
}

func priceExactOutput(st PoolState, tokenIn solana.PublicKey, amountOut, fee uint64) (SwapQuote, error) {
	reserveIn, reserveOut, err := st.Reserves(tokenIn)
	if err != nil {
		return SwapQuote{}, err
	}
	amountIn, err := GetAmountIn(amountOut, reserveIn, reserveOut, fee)
	if err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{
		Pool:        st.Pool,
		TokenIn:     tokenIn,
		TokenOut:    otherToken(st, tokenIn),
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Fee:         fee,
		ExactOutput: true,
	}, nil
}

// QuoteExactInput prices selling amountIn of tokenIn against the current reserves.
func (e *SwapEngine) QuoteExactInput(pool, tokenIn solana.PublicKey, amountIn uint64) (SwapQuote, error) {
	fee, err := e.config.Fee()
	if err != nil {
		return SwapQuote{}, err
	}
	st, err := e.pools.Get(pool)
	if err != nil {
		return SwapQuote{}, err
	}
	return priceExactInput(st, tokenIn, amountIn, fee)
}

// QuoteExactOutput prices buying amountOut of the token opposite tokenIn.
func (e *SwapEngine) QuoteExactOutput(pool, tokenIn solana.PublicKey, amountOut uint64) (SwapQuote, error) {
	fee, err := e.config.Fee()
	if err != nil {
		return SwapQuote{}, err
	}
	st, err := e.pools.Get(pool)
	if err != nil {
		return SwapQuote{}, err
	}
	return priceExactOutput(st, tokenIn, amountOut, fee)
}

func (e *SwapEngine) SwapExactInput(caller, pool solana.PublicKey, p SwapExactInputParams) (SwapReceipt, error) {
	return e.swap(caller, pool, p.UserTokenIn, p.UserTokenOut, func(st PoolState, fee uint64) (SwapQuote, error) {
		q, err := priceExactInput(st, p.TokenIn, p.AmountIn, fee)
		if err != nil {
			return SwapQuote{}, err
		}
		if q.AmountOut < p.AmountOutMin {
			return SwapQuote{}, ErrSlippageExceeded.Wrapf("amount out %d below minimum %d", q.AmountOut, p.AmountOutMin)
		}
		return q, nil
	})
}

func (e *SwapEngine) SwapExactOutput(caller, pool solana.PublicKey, p SwapExactOutputParams) (SwapReceipt, error) {
	return e.swap(caller, pool, p.UserTokenIn, p.UserTokenOut, func(st PoolState, fee uint64) (SwapQuote, error) {
		q, err := priceExactOutput(st, p.TokenIn, p.AmountOut, fee)
		if err != nil {
			return SwapQuote{}, err
		}
		if q.AmountIn > p.AmountInMax {
			return SwapQuote{}, ErrSlippageExceeded.Wrapf("amount in %d above maximum %d", q.AmountIn, p.AmountInMax)
		}
		return q, nil
	})
}

// swap reads the fee once, prices the trade under the pool lock and commits
// the four balance changes together.
func (e *SwapEngine) swap(
	caller, pool, userIn, userOut solana.PublicKey,
	price func(st PoolState, fee uint64) (SwapQuote, error),
) (SwapReceipt, error) {
	fee, err := e.config.Fee()
	if err != nil {
		return SwapReceipt{}, err
	}
	entry, err := e.pools.lookup(pool)
	if err != nil {
		return SwapReceipt{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	st := entry.state

	q, err := price(st, fee)
	if err != nil {
		return SwapReceipt{}, err
	}

	src, ok, err := userAccount(e.ledger, caller, q.TokenIn, userIn)
	if err != nil {
		return SwapReceipt{}, err
	}
	if !ok {
		return SwapReceipt{}, ErrAccountNotFound.Wrapf("%s has no account for %s", caller, q.TokenIn)
	}
	b := &batch{}
	dst, err := payoutAccount(e.ledger, b, caller, q.TokenOut, userOut)
	if err != nil {
		return SwapReceipt{}, err
	}

	vaultIn, vaultOut := st.Vault0, st.Vault1
	next := st
	if q.TokenIn.Equals(st.Token0) {
		if next.Reserve0, err = checkedAdd(st.Reserve0, q.AmountIn, "reserve0"); err != nil {
			return SwapReceipt{}, err
		}
		if next.Reserve1, err = checkedSub(st.Reserve1, q.AmountOut, "reserve1"); err != nil {
			return SwapReceipt{}, err
		}
	} else {
		vaultIn, vaultOut = st.Vault1, st.Vault0
		if next.Reserve1, err = checkedAdd(st.Reserve1, q.AmountIn, "reserve1"); err != nil {
			return SwapReceipt{}, err
		}
		if next.Reserve0, err = checkedSub(st.Reserve0, q.AmountOut, "reserve0"); err != nil {
			return SwapReceipt{}, err
		}
	}

	b.debit(src, q.AmountIn).
		credit(vaultIn, q.AmountIn).
		debit(vaultOut, q.AmountOut).
		credit(dst, q.AmountOut)
	if err := e.ledger.commit(b); err != nil {
		return SwapReceipt{}, err
	}
	entry.state = next

	e.logger.WithFields(logrus.Fields{
		"pool":       pool.String(),
		"trader":     caller.String(),
		"token_in":   q.TokenIn.String(),
		"amount_in":  q.AmountIn,
		"amount_out": q.AmountOut,
		"fee_bps":    fee,
	}).Debug("swap executed")

	return SwapReceipt{
		Pool:        pool,
		Trader:      caller,
		TokenIn:     q.TokenIn,
		TokenOut:    q.TokenOut,
		AmountIn:    q.AmountIn,
		AmountOut:   q.AmountOut,
		Fee:         fee,
		ExactOutput: q.ExactOutput,
		State:       next,
	}, nil
}
