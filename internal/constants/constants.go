package constants

// Fee math
const (
	// BasisPoints is the fee denominator; a fee is valid iff fee < BasisPoints.
	BasisPoints uint64 = 10000
)

// Derivation seeds for pool sub-resources
const (
	SeedPool      = "pool"
	SeedAuthority = "authority"
	SeedLPMint    = "lp_mint"
)

// DefaultProgramID identifies the program the pool addresses are derived under
const DefaultProgramID = "4tPXqXq5WiLpHPaJSRhpA1we5GhCpQrK3wpdRZFNoFQS"

// Redis keys
const (
	RedisKeyRecentSwapsPrefix = "amm:swaps:recent:"
	RedisKeyPoolPrefix        = "amm:pool:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps         = "amm:swaps:all"
	PubSubChannelPoolSwaps     = "amm:swaps:pool:"
	PubSubChannelPoolLiquidity = "amm:liquidity:pool:"
)

// Limits
const (
	MaxRecentSwaps = 100
)

// Operator flags
const (
	FlagHaltSwaps     = "halt.swaps"
	FlagHaltLiquidity = "halt.liquidity"
)
