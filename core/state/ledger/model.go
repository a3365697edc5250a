package ledger

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Distribution is one ledger entry. Once Processed it is immutable
// except through export; canceled entries stay recorded for audit.
type Distribution struct {
	ID              uint64
	Amount          *big.Int
	CreatedHeight   uint64
	ScheduledHeight uint64
	Type            types.DistributionType
	VestingPeriod   uint64
	Processed       bool
	Canceled        bool
	FoldHeight      uint64
	FoldedDelta     *big.Int
	CumulativeAfter *big.Int
}

func (d *Distribution) isPending() bool {
	return !d.Processed && !d.Canceled
}

// Model is the per-token distribution journal. Entry ids are assigned
// from NextID and never reused.
type Model struct {
	NextID uint64
	List   []*Distribution

	token     types.TokenID
	markDirty func(types.TokenID)
	lock      sync.RWMutex
}

func (m *Model) getDistribution(id uint64) *Distribution {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, d := range m.List {
		if d.ID == id {
			return d
		}
	}

	return nil
}

func (m *Model) addDistribution(d *Distribution) uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	d.ID = m.NextID
	m.NextID++
	m.List = append(m.List, d)
	m.markDirty(m.token)

	return d.ID
}

func (m *Model) setCanceled(id uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, d := range m.List {
		if d.ID == id {
			d.Canceled = true
			break
		}
	}
	m.markDirty(m.token)
}

func (m *Model) setProcessed(id uint64, foldHeight uint64, foldedDelta, cumulativeAfter *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, d := range m.List {
		if d.ID == id {
			d.Processed = true
			d.FoldHeight = foldHeight
			d.FoldedDelta = foldedDelta
			d.CumulativeAfter = cumulativeAfter
			break
		}
	}
	m.markDirty(m.token)
}

// pendingAt reports whether a pending entry already targets the height.
func (m *Model) pendingAt(height uint64) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, d := range m.List {
		if d.isPending() && d.ScheduledHeight == height {
			return true
		}
	}

	return false
}

// lastCreatedHeight is the creation height of the newest non-canceled
// entry, processed or not.
func (m *Model) lastCreatedHeight() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	var last uint64
	for _, d := range m.List {
		if !d.Canceled && d.CreatedHeight > last {
			last = d.CreatedHeight
		}
	}

	return last
}
