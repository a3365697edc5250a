package guardian

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Model is the single guardian record. Assigned distinguishes "no
// guardian yet" from a guardian at the zero address.
type Model struct {
	Guardian           types.Address
	Assigned           bool
	EmergencyShutdown  bool
	RequireSignature   bool
	SignatureThreshold *big.Int

	markDirty func()
	lock      sync.RWMutex
}

func (m *Model) getGuardian() (types.Address, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.Guardian, m.Assigned
}

func (m *Model) isShutdown() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.EmergencyShutdown
}

func (m *Model) signatureRequired(amount *big.Int) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if !m.RequireSignature {
		return false
	}
	if m.SignatureThreshold == nil {
		return true
	}

	return amount.Cmp(m.SignatureThreshold) >= 0
}

func (m *Model) setGuardian(guardian types.Address) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Guardian = guardian
	m.Assigned = true
	m.markDirty()
}

func (m *Model) setShutdown(active bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.EmergencyShutdown = active
	m.markDirty()
}

func (m *Model) setSignaturePolicy(require bool, threshold *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RequireSignature = require
	if threshold != nil {
		m.SignatureThreshold = new(big.Int).Set(threshold)
	} else {
		m.SignatureThreshold = nil
	}
	m.markDirty()
}
