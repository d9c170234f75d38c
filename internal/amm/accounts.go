package amm

import (
	"github.com/gagliardetto/solana-go"
)

// userAccount validates addr as caller's token account for mint. A zero addr
// selects caller's associated token account, which may not exist yet. Pool
// vaults are never user accounts, even for the pool authority.
func userAccount(l *Ledger, caller, mint, addr solana.PublicKey) (solana.PublicKey, bool, error) {
	explicit := !addr.IsZero()
	if !explicit {
		ata, err := TokenAccountAddress(caller, mint)
		if err != nil {
			return solana.PublicKey{}, false, err
		}
		addr = ata
	}

	acct, err := l.Account(addr)
	if err != nil {
		if explicit {
			return solana.PublicKey{}, false, err
		}
		return addr, false, nil
	}
	if acct.Custodial {
		return solana.PublicKey{}, false, ErrCustodialAccount.Wrapf("account %s is a pool vault", addr)
	}
	if !acct.Owner.Equals(caller) {
		return solana.PublicKey{}, false, ErrUnauthorized.Wrapf("account %s is not owned by %s", addr, caller)
	}
	if !acct.Mint.Equals(mint) {
		return solana.PublicKey{}, false, ErrAccountMismatch.Wrapf("account %s holds %s, want %s", addr, acct.Mint, mint)
	}
	return addr, true, nil
}

// orderByMint puts a pair of user accounts given in either order into
// (token0, token1) order.
func orderByMint(l *Ledger, st PoolState, a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if !a.IsZero() {
		if acct, err := l.Account(a); err == nil && acct.Mint.Equals(st.Token1) {
			return b, a
		}
	}
	if !b.IsZero() {
		if acct, err := l.Account(b); err == nil && acct.Mint.Equals(st.Token0) {
			return b, a
		}
	}
	return a, b
}

// resolveUserAccounts returns caller's existing source accounts for both pool tokens.
func resolveUserAccounts(l *Ledger, caller solana.PublicKey, st PoolState, a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	a, b = orderByMint(l, st, a, b)

	user0, ok, err := userAccount(l, caller, st.Token0, a)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	if !ok {
		return solana.PublicKey{}, solana.PublicKey{}, ErrAccountNotFound.Wrapf("%s has no account for %s", caller, st.Token0)
	}
	user1, ok, err := userAccount(l, caller, st.Token1, b)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	if !ok {
		return solana.PublicKey{}, solana.PublicKey{}, ErrAccountNotFound.Wrapf("%s has no account for %s", caller, st.Token1)
	}
	return user0, user1, nil
}

// resolvePayoutAccounts returns caller's destination accounts for both pool
// tokens, scheduling missing associated accounts to be opened by b.
func resolvePayoutAccounts(l *Ledger, b *batch, caller solana.PublicKey, st PoolState, a, c solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	a, c = orderByMint(l, st, a, c)

	user0, err := payoutAccount(l, b, caller, st.Token0, a)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	user1, err := payoutAccount(l, b, caller, st.Token1, c)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return user0, user1, nil
}

func payoutAccount(l *Ledger, b *batch, caller, mint, addr solana.PublicKey) (solana.PublicKey, error) {
	resolved, ok, err := userAccount(l, caller, mint, addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !ok {
		return b.open(caller, mint)
	}
	return resolved, nil
}
