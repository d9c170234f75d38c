package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Program ties the config, pools, custody ledger and engines together and
// is the single entry point used by adapters.
type Program struct {
	programID solana.PublicKey
	config    *ConfigStore
	pools     *PoolRegistry
	ledger    *Ledger
	liquidity *LiquidityEngine
	swaps     *SwapEngine
	logger    *logrus.Logger
}

func NewProgram(programID solana.PublicKey, logger *logrus.Logger) *Program {
	if logger == nil {
		logger = logrus.New()
	}
	config := NewConfigStore()
	pools := NewPoolRegistry()
	ledger := NewLedger()
	return &Program{
		programID: programID,
		config:    config,
		pools:     pools,
		ledger:    ledger,
		liquidity: NewLiquidityEngine(pools, ledger, logger),
		swaps:     NewSwapEngine(config, pools, ledger, logger),
		logger:    logger,
	}
}

func (p *Program) ProgramID() solana.PublicKey {
	return p.programID
}

func (p *Program) Initialize(owner solana.PublicKey, fee uint64) (Config, error) {
	cfg, err := p.config.Initialize(owner, fee)
	if err != nil {
		return Config{}, err
	}
	p.logger.WithFields(logrus.Fields{"owner": owner.String(), "fee_bps": fee}).Info("config initialized")
	return cfg, nil
}

func (p *Program) SetFee(caller solana.PublicKey, fee uint64) (Config, error) {
	cfg, err := p.config.SetFee(caller, fee)
	if err != nil {
		return Config{}, err
	}
	p.logger.WithField("fee_bps", fee).Info("fee updated")
	return cfg, nil
}

func (p *Program) SetFeeTo(caller, feeTo solana.PublicKey) (Config, error) {
	cfg, err := p.config.SetFeeTo(caller, feeTo)
	if err != nil {
		return Config{}, err
	}
	p.logger.WithField("fee_to", feeTo.String()).Info("fee recipient updated")
	return cfg, nil
}

// RequireOwner fails unless the config is initialized and caller is its owner.
func (p *Program) RequireOwner(caller solana.PublicKey) error {
	return p.config.RequireOwner(caller)
}

func (p *Program) Config() (Config, error) {
	return p.config.Get()
}

func (p *Program) DerivePoolAddresses(tokenA, tokenB solana.PublicKey) (PoolAddresses, error) {
	return DerivePoolAddresses(p.programID, tokenA, tokenB)
}

// ProvisionVaults opens the two empty vault accounts a pool for (tokenA,
// tokenB) expects and stops external credits of its LP mint. It is
// idempotent.
func (p *Program) ProvisionVaults(tokenA, tokenB solana.PublicKey) (PoolAddresses, error) {
	addrs, err := p.DerivePoolAddresses(tokenA, tokenB)
	if err != nil {
		return PoolAddresses{}, err
	}
	if _, err := p.ledger.OpenAccount(addrs.Authority, addrs.Token0); err != nil {
		return PoolAddresses{}, err
	}
	if _, err := p.ledger.OpenAccount(addrs.Authority, addrs.Token1); err != nil {
		return PoolAddresses{}, err
	}
	// no external credits of the LP mint from here on
	p.ledger.controlMint(addrs.LPMint)
	return addrs, nil
}

// CreatePool registers the pool for the unordered pair (tokenA, tokenB).
// Only the config owner may create pools, and both vaults must already be
// provisioned, empty and owned by the pool authority.
func (p *Program) CreatePool(caller, tokenA, tokenB solana.PublicKey) (PoolState, error) {
	if err := p.RequireOwner(caller); err != nil {
		return PoolState{}, err
	}
	addrs, err := p.DerivePoolAddresses(tokenA, tokenB)
	if err != nil {
		return PoolState{}, err
	}

	st, err := p.pools.create(addrs, func() error {
		if err := p.ledger.claimVault(addrs.Vault0, addrs.Token0, addrs.Authority); err != nil {
			return err
		}
		if err := p.ledger.claimVault(addrs.Vault1, addrs.Token1, addrs.Authority); err != nil {
			p.ledger.releaseVault(addrs.Vault0)
			return err
		}
		if err := p.ledger.claimMint(addrs.LPMint); err != nil {
			p.ledger.releaseVault(addrs.Vault0)
			p.ledger.releaseVault(addrs.Vault1)
			return err
		}
		return nil
	})
	if err != nil {
		return PoolState{}, err
	}

	p.logger.WithFields(logrus.Fields{
		"pool":   st.Pool.String(),
		"token0": st.Token0.String(),
		"token1": st.Token1.String(),
	}).Info("pool created")
	return st, nil
}

func (p *Program) AddLiquidity(caller, pool solana.PublicKey, params AddLiquidityParams) (LiquidityReceipt, error) {
	return p.liquidity.AddLiquidity(caller, pool, params)
}

func (p *Program) RemoveLiquidity(caller, pool solana.PublicKey, params RemoveLiquidityParams) (LiquidityReceipt, error) {
	return p.liquidity.RemoveLiquidity(caller, pool, params)
}

func (p *Program) SwapExactInput(caller, pool solana.PublicKey, params SwapExactInputParams) (SwapReceipt, error) {
	return p.swaps.SwapExactInput(caller, pool, params)
}

func (p *Program) SwapExactOutput(caller, pool solana.PublicKey, params SwapExactOutputParams) (SwapReceipt, error) {
	return p.swaps.SwapExactOutput(caller, pool, params)
}

func (p *Program) QuoteExactInput(pool, tokenIn solana.PublicKey, amountIn uint64) (SwapQuote, error) {
	return p.swaps.QuoteExactInput(pool, tokenIn, amountIn)
}

func (p *Program) QuoteExactOutput(pool, tokenIn solana.PublicKey, amountOut uint64) (SwapQuote, error) {
	return p.swaps.QuoteExactOutput(pool, tokenIn, amountOut)
}

func (p *Program) Pool(pool solana.PublicKey) (PoolState, error) {
	return p.pools.Get(pool)
}

func (p *Program) PoolByPair(tokenA, tokenB solana.PublicKey) (PoolState, error) {
	return p.pools.GetByPair(tokenA, tokenB)
}

func (p *Program) Pools() []PoolState {
	return p.pools.List()
}

func (p *Program) OpenAccount(owner, mint solana.PublicKey) (TokenAccount, error) {
	return p.ledger.OpenAccount(owner, mint)
}

// Credit funds a user token account from outside the program.
func (p *Program) Credit(account solana.PublicKey, amount uint64) (TokenAccount, error) {
	return p.ledger.Credit(account, amount)
}

func (p *Program) Account(account solana.PublicKey) (TokenAccount, error) {
	return p.ledger.Account(account)
}

func (p *Program) AccountsByOwner(owner solana.PublicKey) []TokenAccount {
	return p.ledger.AccountsByOwner(owner)
}
