package config

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/helpers"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Policy carries every tunable bound of the engine. The state stores
// receive resolved values only; they never read configuration
// themselves.
type Policy struct {
	MaxRegisteredTokens     uint32
	MinDistributionAmount   *big.Int
	MinDistributionInterval uint64
	MaxDividendRate         *big.Int
	ClaimCooldownPeriod     uint64
	RateLimitWindow         uint64
	RateLimitMaxClaims      int

	// IntervalRelativeRateCap switches the rate-cap denominator from the
	// absolute scheduled height to the gap since the token's last
	// distribution. The absolute form matches the source policy but
	// loosens as the chain grows.
	IntervalRelativeRateCap bool
}

func DefaultPolicy() *Policy {
	return &Policy{
		MaxRegisteredTokens:     types.DefaultMaxRegisteredTokens,
		MinDistributionAmount:   big.NewInt(types.DefaultMinDistributionAmount),
		MinDistributionInterval: types.DefaultMinDistributionInterval,
		MaxDividendRate:         big.NewInt(types.DefaultMaxDividendRate),
		ClaimCooldownPeriod:     types.DefaultClaimCooldownPeriod,
		RateLimitWindow:         types.DefaultRateLimitWindow,
		RateLimitMaxClaims:      types.DefaultRateLimitMaxClaims,
		IntervalRelativeRateCap: false,
	}
}

const envPrefix = "DIVIDEND"

// ReadPolicy loads policy overrides from a TOML file and the
// environment (DIVIDEND_* variables) on top of the defaults. An empty
// path skips the file and applies environment overrides only.
func ReadPolicy(path string) (*Policy, error) {
	v := viper.New()

	defaults := DefaultPolicy()
	v.SetDefault("max_registered_tokens", defaults.MaxRegisteredTokens)
	v.SetDefault("min_distribution_amount", defaults.MinDistributionAmount.String())
	v.SetDefault("min_distribution_interval", defaults.MinDistributionInterval)
	v.SetDefault("max_dividend_rate", defaults.MaxDividendRate.String())
	v.SetDefault("claim_cooldown_period", defaults.ClaimCooldownPeriod)
	v.SetDefault("rate_limit_window", defaults.RateLimitWindow)
	v.SetDefault("rate_limit_max_claims", defaults.RateLimitMaxClaims)
	v.SetDefault("interval_relative_rate_cap", defaults.IntervalRelativeRateCap)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "can't read policy config")
		}
	}

	minAmount := v.GetString("min_distribution_amount")
	if !helpers.IsValidBigInt(minAmount) {
		return nil, errors.Errorf("min_distribution_amount %q is not a valid amount", minAmount)
	}

	maxRate := v.GetString("max_dividend_rate")
	if !helpers.IsValidBigInt(maxRate) {
		return nil, errors.Errorf("max_dividend_rate %q is not a valid amount", maxRate)
	}

	maxTokens := v.GetUint32("max_registered_tokens")
	if maxTokens == 0 {
		return nil, errors.New("max_registered_tokens must be positive")
	}

	maxClaims := v.GetInt("rate_limit_max_claims")
	if maxClaims <= 0 {
		return nil, errors.Errorf("rate_limit_max_claims %s must be positive", strconv.Itoa(maxClaims))
	}

	return &Policy{
		MaxRegisteredTokens:     maxTokens,
		MinDistributionAmount:   helpers.StringToBigInt(minAmount),
		MinDistributionInterval: v.GetUint64("min_distribution_interval"),
		MaxDividendRate:         helpers.StringToBigInt(maxRate),
		ClaimCooldownPeriod:     v.GetUint64("claim_cooldown_period"),
		RateLimitWindow:         v.GetUint64("rate_limit_window"),
		RateLimitMaxClaims:      maxClaims,
		IntervalRelativeRateCap: v.GetBool("interval_relative_rate_cap"),
	}, nil
}
