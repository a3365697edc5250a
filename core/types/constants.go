package types

// PrecisionFactor is the fixed-point scale used by all dividend math.
// Accumulator values are "scaled per-unit" amounts: raw units multiplied
// by PrecisionFactor.
const PrecisionFactor = 1000000

// Default policy bounds. Deployments override them through the config
// package; the state stores only ever see the resolved policy values.
const (
	// DefaultMaxRegisteredTokens bounds the active registry set.
	DefaultMaxRegisteredTokens = 64

	// DefaultMinDistributionAmount is the smallest raw amount a single
	// distribution may carry.
	DefaultMinDistributionAmount = 100

	// DefaultMinDistributionInterval is the minimum height gap between a
	// distribution's creation and its scheduled height, and between two
	// immediate distributions on the same token.
	DefaultMinDistributionInterval = 10

	// DefaultClaimCooldownPeriod is the minimum height gap between two
	// successful claims by the same holder on the same token.
	DefaultClaimCooldownPeriod = 50

	// DefaultRateLimitWindow and DefaultRateLimitMaxClaims shape the
	// per-holder sliding-window claim limiter.
	DefaultRateLimitWindow    = 1000
	DefaultRateLimitMaxClaims = 5
)

// DefaultMaxDividendRate caps the implied per-height dividend rate,
// amount*PrecisionFactor/height, of a scheduled distribution.
const DefaultMaxDividendRate = 1000000000000
