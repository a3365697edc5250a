package config

import (
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	assert.EqualValues(t, 64, policy.MaxRegisteredTokens)
	assert.Equal(t, big.NewInt(100), policy.MinDistributionAmount)
	assert.EqualValues(t, 10, policy.MinDistributionInterval)
	assert.EqualValues(t, 50, policy.ClaimCooldownPeriod)
	assert.EqualValues(t, 1000, policy.RateLimitWindow)
	assert.Equal(t, 5, policy.RateLimitMaxClaims)
	assert.False(t, policy.IntervalRelativeRateCap)
}

func TestReadPolicyWithoutFile(t *testing.T) {
	policy, err := ReadPolicy("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPolicy(), policy)
}

func TestReadPolicyFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "policy")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "policy.toml")
	content := `
max_registered_tokens = 8
min_distribution_amount = "250"
claim_cooldown_period = 5
interval_relative_rate_cap = true
`
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	policy, err := ReadPolicy(path)
	require.NoError(t, err)

	assert.EqualValues(t, 8, policy.MaxRegisteredTokens)
	assert.Equal(t, big.NewInt(250), policy.MinDistributionAmount)
	assert.EqualValues(t, 5, policy.ClaimCooldownPeriod)
	assert.True(t, policy.IntervalRelativeRateCap)

	// untouched keys keep defaults
	assert.EqualValues(t, 10, policy.MinDistributionInterval)
}

func TestReadPolicyRejectsBadValues(t *testing.T) {
	dir, err := ioutil.TempDir("", "policy")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "policy.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`min_distribution_amount = "not-a-number"`), 0644))

	_, err = ReadPolicy(path)
	assert.Error(t, err)
}
