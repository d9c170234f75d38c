package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
)

// PoolAddresses are the deterministic identifiers of a pool and its sub-resources.
type PoolAddresses struct {
	Pool      solana.PublicKey `json:"pool"`
	Authority solana.PublicKey `json:"authority"`
	LPMint    solana.PublicKey `json:"lp_mint"`
	Token0    solana.PublicKey `json:"token0"`
	Token1    solana.PublicKey `json:"token1"`
	Vault0    solana.PublicKey `json:"vault0"`
	Vault1    solana.PublicKey `json:"vault1"`
}

// pairKey is the registry key of a canonical token pair.
type pairKey struct {
	token0 solana.PublicKey
	token1 solana.PublicKey
}

// Less reports whether a sorts before b. Token identities are ordered by
// their base58 encoding.
func Less(a, b solana.PublicKey) bool {
	return a.String() < b.String()
}

// SortTokens returns the pair in canonical (token0, token1) order.
func SortTokens(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	if a.Equals(b) {
		return solana.PublicKey{}, solana.PublicKey{}, ErrInvalidMintOrder.Wrapf("identical tokens %s", a)
	}
	if Less(b, a) {
		a, b = b, a
	}
	return a, b, nil
}

// DerivePoolAddresses computes every address of the pool for the unordered pair (a, b).
func DerivePoolAddresses(programID, a, b solana.PublicKey) (PoolAddresses, error) {
	token0, token1, err := SortTokens(a, b)
	if err != nil {
		return PoolAddresses{}, err
	}

	pool, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedPool), token0.Bytes(), token1.Bytes()},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool address: %w", err)
	}
	authority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedAuthority), pool.Bytes()},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool authority: %w", err)
	}
	lpMint, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedLPMint), pool.Bytes()},
		programID,
	)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive lp mint: %w", err)
	}

	vault0, err := TokenAccountAddress(authority, token0)
	if err != nil {
		return PoolAddresses{}, err
	}
	vault1, err := TokenAccountAddress(authority, token1)
	if err != nil {
		return PoolAddresses{}, err
	}

	return PoolAddresses{
		Pool:      pool,
		Authority: authority,
		LPMint:    lpMint,
		Token0:    token0,
		Token1:    token1,
		Vault0:    vault0,
		Vault1:    vault1,
	}, nil
}

// TokenAccountAddress is the associated token account of owner for mint.
func TokenAccountAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account for %s/%s: %w", owner, mint, err)
	}
	return addr, nil
}
