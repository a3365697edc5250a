package dividends

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppStateRoundtrip(t *testing.T) {
	engine, tokens, clock, _ := newTestEngine(t)

	token := types.TokenID(1)
	require.NoError(t, engine.RegisterDividendToken(deployer, token))
	tokens.set(token, 1000, holder, 100)

	clock.height = 20
	_, err := engine.DistributeDividends(token, big.NewInt(1000), nil)
	require.NoError(t, err)
	_, err = engine.ClaimDividends(holder, token)
	require.NoError(t, err)

	exported := engine.ExportAppState()

	var buf bytes.Buffer
	require.NoError(t, WriteAppState(&buf, exported))

	decoded, err := ReadAppState(&buf)
	require.NoError(t, err)

	fresh, _, _, _ := newTestEngine(t)
	require.NoError(t, fresh.ImportAppState(*decoded))

	assert.True(t, fresh.IsRegistered(token))
	assert.Equal(t, big.NewInt(1000000), fresh.GetDividendsPerToken(token))

	details, err := fresh.GetTokenDetails(token)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), details.TotalDistributed)
	assert.Equal(t, big.NewInt(100), details.TotalPaid)
}

func TestReadAppStateRejectsBrokenSnapshot(t *testing.T) {
	broken := bytes.NewBufferString(`{"tokens":[{"id":1,"total_distributed":"nope"}]}`)

	_, err := ReadAppState(broken)
	assert.Error(t, err)
}
