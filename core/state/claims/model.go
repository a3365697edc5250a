package claims

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// SpecificClaim records per-unit value a holder already took out of a
// single distribution ahead of a general claim. The record lives only
// while its region sits above the checkpoint; a general claim settles
// the region and drops it.
type SpecificClaim struct {
	DistributionID uint64
	Claimed        *big.Int
}

// Checkpoint is the holder's settled prefix on one token's accumulator
// number line. Everything at or below LastSettled has been paid out.
type Checkpoint struct {
	Token           types.TokenID
	LastSettled     *big.Int
	LastClaimHeight uint64
	Specifics       []*SpecificClaim
}

func (c *Checkpoint) specific(distributionID uint64) *SpecificClaim {
	for _, sc := range c.Specifics {
		if sc.DistributionID == distributionID {
			return sc
		}
	}

	return nil
}

func (c *Checkpoint) specificsTotal() *big.Int {
	total := big.NewInt(0)
	for _, sc := range c.Specifics {
		total.Add(total, sc.Claimed)
	}

	return total
}

// Model is the per-holder claim state across all tokens. RecentClaims
// keeps the claim heights inside the rate-limit window, shared by all
// tokens of the holder.
type Model struct {
	List         []*Checkpoint
	RecentClaims []uint64

	holder    types.Address
	markDirty func(types.Address)
	lock      sync.RWMutex
}

func (m *Model) checkpoint(token types.TokenID) *Checkpoint {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, c := range m.List {
		if c.Token == token {
			return c
		}
	}

	return nil
}

func (m *Model) getOrNewCheckpoint(token types.TokenID) *Checkpoint {
	if c := m.checkpoint(token); c != nil {
		return c
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	c := &Checkpoint{
		Token:       token,
		LastSettled: big.NewInt(0),
	}
	m.List = append(m.List, c)
	m.markDirty(m.holder)

	return c
}

func (m *Model) lastSettled(c *Checkpoint) *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return new(big.Int).Set(c.LastSettled)
}

// settledPlusSpecifics is the per-unit value the holder has already
// been paid: the settled prefix plus specific claims above it.
func (m *Model) settledPlusSpecifics(c *Checkpoint) *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return new(big.Int).Add(c.LastSettled, c.specificsTotal())
}

func (m *Model) specificClaimed(c *Checkpoint, distributionID uint64) *big.Int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if sc := c.specific(distributionID); sc != nil {
		return new(big.Int).Set(sc.Claimed)
	}

	return big.NewInt(0)
}

func (m *Model) lastClaimHeight(token types.TokenID) uint64 {
	c := m.checkpoint(token)
	if c == nil {
		return 0
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	return c.LastClaimHeight
}

// claimsInWindow counts recent claims still inside the window ending at
// the given height.
func (m *Model) claimsInWindow(height, window uint64) int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	count := 0
	for _, h := range m.RecentClaims {
		if h+window > height {
			count++
		}
	}

	return count
}

// recordClaim stamps the claim height on the checkpoint and in the
// rate-limit window, pruning heights that fell out of it.
func (m *Model) recordClaim(c *Checkpoint, height, window uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	c.LastClaimHeight = height

	recent := m.RecentClaims[:0]
	for _, h := range m.RecentClaims {
		if h+window > height {
			recent = append(recent, h)
		}
	}
	m.RecentClaims = append(recent, height)

	m.markDirty(m.holder)
}

func (m *Model) settleTo(c *Checkpoint, settled *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	c.LastSettled = settled
	c.Specifics = nil
	m.markDirty(m.holder)
}

func (m *Model) addSpecific(c *Checkpoint, distributionID uint64, claimed *big.Int) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, sc := range c.Specifics {
		if sc.DistributionID == distributionID {
			sc.Claimed = new(big.Int).Add(sc.Claimed, claimed)
			m.markDirty(m.holder)
			return
		}
	}

	c.Specifics = append(c.Specifics, &SpecificClaim{
		DistributionID: distributionID,
		Claimed:        new(big.Int).Set(claimed),
	})
	m.markDirty(m.holder)
}

func (m *Model) resetRateLimit() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RecentClaims = nil
	m.markDirty(m.holder)
}
