package amm

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/internal/constants"
)

// All pool arithmetic is done on 256-bit integers and narrowed back to uint64
// only at the end. A result that does not fit is an ErrArithmetic, never a wrap.

var basisPoints = sdkmath.NewIntFromUint64(constants.BasisPoints)

func newInt(v uint64) sdkmath.Int {
	return sdkmath.NewIntFromUint64(v)
}

func toUint64(v sdkmath.Int, what string) (uint64, error) {
	if v.IsNegative() || !v.IsUint64() {
		return 0, ErrArithmetic.Wrapf("%s overflows uint64: %s", what, v)
	}
	return v.Uint64(), nil
}

// mulDiv returns floor(a * b / c).
func mulDiv(a, b, c uint64, what string) (uint64, error) {
	if c == 0 {
		return 0, ErrArithmetic.Wrapf("%s: division by zero", what)
	}
	return toUint64(newInt(a).Mul(newInt(b)).Quo(newInt(c)), what)
}

func checkedAdd(a, b uint64, what string) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, ErrArithmetic.Wrapf("%s overflows uint64: %d + %d", what, a, b)
	}
	return a + b, nil
}

func checkedSub(a, b uint64, what string) (uint64, error) {
	if b > a {
		return 0, ErrArithmetic.Wrapf("%s underflows: %d - %d", what, a, b)
	}
	return a - b, nil
}

// Product returns reserve0 * reserve1 without narrowing. It is the value kept in kLast.
func Product(reserve0, reserve1 uint64) sdkmath.Int {
	return newInt(reserve0).Mul(newInt(reserve1))
}

// Sqrt returns floor(sqrt(v)).
func Sqrt(v sdkmath.Int) sdkmath.Int {
	if !v.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).Sqrt(v.BigInt()))
}

// InitialLiquidity is the bootstrap mint: floor(sqrt(amount0 * amount1)).
// The square root of a product of two uint64 values always fits in a uint64.
func InitialLiquidity(amount0, amount1 uint64) uint64 {
	return Sqrt(Product(amount0, amount1)).Uint64()
}

// Quote returns the amount of the other asset equivalent to amountA at the
// current price: floor(amountA * reserveB / reserveA).
func Quote(amountA, reserveA, reserveB uint64) (uint64, error) {
	if amountA == 0 {
		return 0, ErrInvalidAmount.Wrap("quote amount must be positive")
	}
	if reserveA == 0 || reserveB == 0 {
		return 0, ErrInsufficientLiquidity.Wrap("quote against empty reserves")
	}
	return mulDiv(amountA, reserveB, reserveA, "quote")
}

// MintedLiquidity returns min(amount0*supply/reserve0, amount1*supply/reserve1).
func MintedLiquidity(amount0, amount1, reserve0, reserve1, supply uint64) (uint64, error) {
	l0, err := mulDiv(amount0, supply, reserve0, "liquidity from amount0")
	if err != nil {
		return 0, err
	}
	l1, err := mulDiv(amount1, supply, reserve1, "liquidity from amount1")
	if err != nil {
		return 0, err
	}
	return min(l0, l1), nil
}

// RemovedAmounts returns the pro-rata share of both reserves for liquidity units.
func RemovedAmounts(liquidity, supply, reserve0, reserve1 uint64) (amount0, amount1 uint64, err error) {
	if amount0, err = mulDiv(liquidity, reserve0, supply, "amount0 out"); err != nil {
		return 0, 0, err
	}
	if amount1, err = mulDiv(liquidity, reserve1, supply, "amount1 out"); err != nil {
		return 0, 0, err
	}
	return amount0, amount1, nil
}

func validFee(fee uint64) error {
	if fee >= constants.BasisPoints {
		return ErrInvalidFee.Wrapf("fee %d bps must be below %d", fee, constants.BasisPoints)
	}
	return nil
}

// GetAmountOut computes the exact-input swap output with fee in basis points:
//
//	amountInWithFee = amountIn * (10000 - fee)
//	amountOut = amountInWithFee * reserveOut / (reserveIn * 10000 + amountInWithFee)
func GetAmountOut(amountIn, reserveIn, reserveOut, fee uint64) (uint64, error) {
	if err := validFee(fee); err != nil {
		return 0, err
	}
	if amountIn == 0 {
		return 0, ErrInvalidAmount.Wrap("amount in must be positive")
	}
	if reserveOut == 0 {
		return 0, ErrInsufficientLiquidity.Wrap("output reserve is empty")
	}

	amountInWithFee := newInt(amountIn).Mul(basisPoints.Sub(newInt(fee)))
	numerator := amountInWithFee.Mul(newInt(reserveOut))
	denominator := newInt(reserveIn).Mul(basisPoints).Add(amountInWithFee)
	if !denominator.IsPositive() {
		return 0, ErrArithmetic.Wrap("amount out: non-positive denominator")
	}
	return toUint64(numerator.Quo(denominator), "amount out")
}

// GetAmountIn computes the exact-output swap input, rounded up so rounding
// never favours the trader:
//
//	amountIn = reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000 - fee)) + 1
func GetAmountIn(amountOut, reserveIn, reserveOut, fee uint64) (uint64, error) {
	if err := validFee(fee); err != nil {
		return 0, err
	}
	if amountOut == 0 {
		return 0, ErrInvalidAmount.Wrap("amount out must be positive")
	}
	if amountOut >= reserveOut {
		return 0, ErrArithmetic.Wrapf("amount out %d must be below reserve %d", amountOut, reserveOut)
	}

	numerator := newInt(reserveIn).Mul(newInt(amountOut)).Mul(basisPoints)
	denominator := newInt(reserveOut - amountOut).Mul(basisPoints.Sub(newInt(fee)))
	return toUint64(numerator.Quo(denominator).AddRaw(1), "amount in")
}
