package amm

import (
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TokenAccount is a balance of one mint held by one owner.
type TokenAccount struct {
	Address   solana.PublicKey `json:"address"`
	Mint      solana.PublicKey `json:"mint"`
	Owner     solana.PublicKey `json:"owner"`
	Amount    uint64           `json:"amount"`
	Custodial bool             `json:"custodial"`
}

// Ledger is the in-process custody layer. Accounts are keyed by their
// associated token address, and every multi-account change goes through a
// batch that is validated in full before any balance moves.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*TokenAccount
	// mints whose supply is controlled by a pool (LP mints)
	controlled map[solana.PublicKey]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		accounts:   make(map[solana.PublicKey]*TokenAccount),
		controlled: make(map[solana.PublicKey]struct{}),
	}
}

// OpenAccount returns the token account of owner for mint, creating an empty
// one if it does not exist yet.
func (l *Ledger) OpenAccount(owner, mint solana.PublicKey) (TokenAccount, error) {
	addr, err := TokenAccountAddress(owner, mint)
	if err != nil {
		return TokenAccount{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if acct, ok := l.accounts[addr]; ok {
		return *acct, nil
	}
	acct := &TokenAccount{Address: addr, Mint: mint, Owner: owner}
	l.accounts[addr] = acct
	return *acct, nil
}

// Account returns a snapshot of the account at addr.
func (l *Ledger) Account(addr solana.PublicKey) (TokenAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[addr]
	if !ok {
		return TokenAccount{}, ErrAccountNotFound.Wrapf("account %s", addr)
	}
	return *acct, nil
}

// Balance returns the amount held at addr.
func (l *Ledger) Balance(addr solana.PublicKey) (uint64, error) {
	acct, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// AccountsByOwner lists the accounts held by owner ordered by address.
func (l *Ledger) AccountsByOwner(owner solana.PublicKey) []TokenAccount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]TokenAccount, 0)
	for _, acct := range l.accounts {
		if acct.Owner.Equals(owner) {
			out = append(out, *acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i].Address, out[j].Address) })
	return out
}

// Credit funds addr from outside the program. Pool vaults and LP token
// accounts can only be moved by the engines.
func (l *Ledger) Credit(addr solana.PublicKey, amount uint64) (TokenAccount, error) {
	if amount == 0 {
		return TokenAccount{}, ErrInvalidAmount.Wrap("credit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[addr]
	if !ok {
		return TokenAccount{}, ErrAccountNotFound.Wrapf("account %s", addr)
	}
	if acct.Custodial {
		return TokenAccount{}, ErrCustodialAccount.Wrapf("account %s is a pool vault", addr)
	}
	if _, ok := l.controlled[acct.Mint]; ok {
		return TokenAccount{}, ErrCustodialAccount.Wrapf("mint %s is controlled by a pool", acct.Mint)
	}
	next, err := checkedAdd(acct.Amount, amount, "credit")
	if err != nil {
		return TokenAccount{}, err
	}
	acct.Amount = next
	return *acct, nil
}

// claimVault checks that addr is an empty account of mint owned by
// authority and marks it custodial. Check and mark happen under one lock so
// no external credit can land in between.
func (l *Ledger) claimVault(addr, mint, authority solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[addr]
	if !ok {
		return ErrVaultMismatch.Wrapf("vault %s not provisioned", addr)
	}
	switch {
	case !acct.Mint.Equals(mint):
		return ErrVaultMismatch.Wrapf("vault %s holds mint %s, want %s", addr, acct.Mint, mint)
	case !acct.Owner.Equals(authority):
		return ErrVaultMismatch.Wrapf("vault %s owned by %s, want %s", addr, acct.Owner, authority)
	case acct.Custodial:
		return ErrVaultMismatch.Wrapf("vault %s already claimed", addr)
	case acct.Amount != 0:
		return ErrVaultMismatch.Wrapf("vault %s is not empty", addr)
	}
	acct.Custodial = true
	return nil
}

func (l *Ledger) releaseVault(addr solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[addr]; ok {
		acct.Custodial = false
	}
}

func (l *Ledger) controlMint(mint solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.controlled[mint] = struct{}{}
}

// claimMint fails if any account of mint already holds units, then marks
// mint controlled. Units credited before the pool existed would not be
// counted in its LP supply.
func (l *Ledger) claimMint(mint solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, acct := range l.accounts {
		if acct.Mint.Equals(mint) && acct.Amount != 0 {
			return ErrVaultMismatch.Wrapf("lp mint %s has units outstanding in %s", mint, acct.Address)
		}
	}
	l.controlled[mint] = struct{}{}
	return nil
}

type movement struct {
	addr   solana.PublicKey
	amount uint64
	credit bool
}

// batch is an ordered set of balance changes applied all-or-nothing.
type batch struct {
	entries []movement
	// accounts created by the commit if they do not exist yet
	opens []TokenAccount
}

// open schedules owner's account for mint to be created on commit and
// returns its address.
func (b *batch) open(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := TokenAccountAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	b.opens = append(b.opens, TokenAccount{Address: addr, Mint: mint, Owner: owner})
	return addr, nil
}

func (b *batch) debit(addr solana.PublicKey, amount uint64) *batch {
	b.entries = append(b.entries, movement{addr: addr, amount: amount})
	return b
}

func (b *batch) credit(addr solana.PublicKey, amount uint64) *batch {
	b.entries = append(b.entries, movement{addr: addr, amount: amount, credit: true})
	return b
}

// commit stages every entry against a scratch copy of the touched balances
// and only writes them back if all entries succeed.
func (l *Ledger) commit(b *batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := make(map[solana.PublicKey]TokenAccount, len(b.opens))
	for _, o := range b.opens {
		if _, ok := l.accounts[o.Address]; !ok {
			pending[o.Address] = o
		}
	}

	staged := make(map[solana.PublicKey]uint64, len(b.entries))
	for _, e := range b.entries {
		bal, ok := staged[e.addr]
		if !ok {
			if acct, exists := l.accounts[e.addr]; exists {
				bal = acct.Amount
			} else if _, opening := pending[e.addr]; !opening {
				return ErrAccountNotFound.Wrapf("account %s", e.addr)
			}
		}

		var err error
		if e.credit {
			bal, err = checkedAdd(bal, e.amount, "balance")
		} else if e.amount > bal {
			err = ErrInsufficientBalance.Wrapf("account %s holds %d, needs %d", e.addr, bal, e.amount)
		} else {
			bal -= e.amount
		}
		if err != nil {
			return err
		}
		staged[e.addr] = bal
	}

	for addr, o := range pending {
		acct := o
		l.accounts[addr] = &acct
	}
	for addr, bal := range staged {
		l.accounts[addr].Amount = bal
	}
	return nil
}
