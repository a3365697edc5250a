package accumulator

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Model is the cumulative dividends-per-unit counter of one token, in
// scaled units. It only ever grows.
type Model struct {
	CumulativePerUnit *big.Int

	token     types.TokenID
	markDirty func(types.TokenID)
	lock      sync.RWMutex
}

func (m *Model) GetPerUnit() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.CumulativePerUnit == nil {
		return big.NewInt(0)
	}

	return new(big.Int).Set(m.CumulativePerUnit)
}

func (m *Model) addPerUnit(delta *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.CumulativePerUnit == nil {
		m.CumulativePerUnit = big.NewInt(0)
	}
	m.CumulativePerUnit = new(big.Int).Add(m.CumulativePerUnit, delta)
	m.markDirty(m.token)
}
