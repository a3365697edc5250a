package registry

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Model is a single registered dividend token. Soft-removed tokens keep
// their model for audit; only the active set excludes them.
type Model struct {
	RegisteredHeight       uint64
	Frozen                 bool
	Removed                bool
	LastDistributionHeight uint64
	TotalDistributed       *big.Int
	TotalPaid              *big.Int

	id        types.TokenID
	markDirty func(types.TokenID)
	lock      sync.RWMutex
}

func (m *Model) ID() types.TokenID {
	return m.id
}

func (m *Model) IsFrozen() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Frozen
}

func (m *Model) IsRemoved() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Removed
}

func (m *Model) GetRegisteredHeight() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.RegisteredHeight
}

func (m *Model) GetLastDistributionHeight() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.LastDistributionHeight
}

func (m *Model) GetTotalDistributed() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.TotalDistributed == nil {
		return big.NewInt(0)
	}

	return new(big.Int).Set(m.TotalDistributed)
}

func (m *Model) GetTotalPaid() *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.TotalPaid == nil {
		return big.NewInt(0)
	}

	return new(big.Int).Set(m.TotalPaid)
}

func (m *Model) setFrozen(frozen bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Frozen != frozen {
		m.markDirty(m.id)
	}
	m.Frozen = frozen
}

func (m *Model) setRemoved() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Removed = true
	m.markDirty(m.id)
}

func (m *Model) addDistributed(height uint64, amount *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.TotalDistributed == nil {
		m.TotalDistributed = big.NewInt(0)
	}
	m.TotalDistributed = new(big.Int).Add(m.TotalDistributed, amount)
	m.LastDistributionHeight = height
	m.markDirty(m.id)
}

func (m *Model) addPaid(amount *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.TotalPaid == nil {
		m.TotalPaid = big.NewInt(0)
	}
	m.TotalPaid = new(big.Int).Add(m.TotalPaid, amount)
	m.markDirty(m.id)
}
