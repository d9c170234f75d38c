package amm

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace namespaces the registered AMM error codes.
const Codespace = "amm"

// AMM sentinel errors. Every failure returned by the core wraps exactly one of these.
var (
	ErrAlreadyInitialized           = errorsmod.Register(Codespace, 2, "config already initialized")
	ErrNotInitialized               = errorsmod.Register(Codespace, 3, "config not initialized")
	ErrInvalidFee                   = errorsmod.Register(Codespace, 4, "invalid fee")
	ErrUnauthorized                 = errorsmod.Register(Codespace, 5, "unauthorized")
	ErrPoolAlreadyExists            = errorsmod.Register(Codespace, 6, "pool already exists")
	ErrPoolNotFound                 = errorsmod.Register(Codespace, 7, "pool not found")
	ErrVaultMismatch                = errorsmod.Register(Codespace, 8, "vault mismatch")
	ErrAccountNotFound              = errorsmod.Register(Codespace, 9, "token account not found")
	ErrAccountMismatch              = errorsmod.Register(Codespace, 10, "token account mismatch")
	ErrInvalidMintOrder             = errorsmod.Register(Codespace, 11, "invalid mint order")
	ErrInvalidAmount                = errorsmod.Register(Codespace, 12, "invalid amount")
	ErrInsufficientInitialLiquidity = errorsmod.Register(Codespace, 13, "insufficient initial liquidity")
	ErrInsufficientLiquidityMinted  = errorsmod.Register(Codespace, 14, "insufficient liquidity minted")
	ErrInsufficientLiquidityBurned  = errorsmod.Register(Codespace, 15, "insufficient liquidity burned")
	ErrInsufficientLiquidity        = errorsmod.Register(Codespace, 16, "insufficient liquidity")
	ErrInsufficientBalance          = errorsmod.Register(Codespace, 17, "insufficient token balance")
	ErrSlippageExceeded             = errorsmod.Register(Codespace, 18, "slippage exceeded")
	ErrArithmetic                   = errorsmod.Register(Codespace, 19, "arithmetic error")
	ErrCustodialAccount             = errorsmod.Register(Codespace, 20, "custodial account")
)

// Kind groups errors by how a caller is expected to react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindValidation
	KindNotFound
	KindArithmetic
	KindSlippage
	KindInsufficiency
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindArithmetic:
		return "arithmetic"
	case KindSlippage:
		return "slippage"
	case KindInsufficiency:
		return "insufficiency"
	default:
		return "unknown"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindAuthorization},
	{ErrPoolNotFound, KindNotFound},
	{ErrAccountNotFound, KindNotFound},
	{ErrAlreadyInitialized, KindValidation},
	{ErrNotInitialized, KindValidation},
	{ErrInvalidFee, KindValidation},
	{ErrPoolAlreadyExists, KindValidation},
	{ErrVaultMismatch, KindValidation},
	{ErrAccountMismatch, KindValidation},
	{ErrInvalidMintOrder, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{ErrCustodialAccount, KindValidation},
	{ErrArithmetic, KindArithmetic},
	{ErrSlippageExceeded, KindSlippage},
	{ErrInsufficientInitialLiquidity, KindInsufficiency},
	{ErrInsufficientLiquidityMinted, KindInsufficiency},
	{ErrInsufficientLiquidityBurned, KindInsufficiency},
	{ErrInsufficientLiquidity, KindInsufficiency},
	{ErrInsufficientBalance, KindInsufficiency},
}

// KindOf classifies err. Errors not produced by this package are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
