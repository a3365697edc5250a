package checker

import (
	"math/big"
	"sync"

	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/pkg/errors"
)

type delta struct {
	distributed *big.Int
	paid        *big.Int
}

// Checker accumulates per-token distributed and paid deltas within one
// logical tick and verifies conservation against the registry's
// lifetime totals before commit. Payouts may never exceed
// distributions; truncation dust stays unclaimed, so the comparison is
// an inequality.
type Checker struct {
	bus    *bus.Bus
	deltas map[types.TokenID]*delta

	lock sync.RWMutex
}

func NewChecker(stateBus *bus.Bus) *Checker {
	checker := &Checker{
		bus:    stateBus,
		deltas: map[types.TokenID]*delta{},
	}
	stateBus.SetChecker(checker)

	return checker
}

func (c *Checker) AddDistributed(token types.TokenID, value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	d := c.delta(token)
	d.distributed.Add(d.distributed, value)
}

func (c *Checker) AddPaid(token types.TokenID, value *big.Int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	d := c.delta(token)
	d.paid.Add(d.paid, value)
}

func (c *Checker) delta(token types.TokenID) *delta {
	d, ok := c.deltas[token]
	if !ok {
		d = &delta{
			distributed: big.NewInt(0),
			paid:        big.NewInt(0),
		}
		c.deltas[token] = d
	}

	return d
}

// Reset resets checker token data
func (c *Checker) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.deltas = map[types.TokenID]*delta{}
}

// Check verifies that no touched token has paid out more than it
// distributed over its lifetime, and that the registry's lifetime
// totals have absorbed at least this tick's deltas.
func (c *Checker) Check() error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for token, d := range c.deltas {
		distributed, paid := c.bus.Registry().DistributionTotals(token)
		if distributed == nil {
			distributed = big.NewInt(0)
		}
		if paid == nil {
			paid = big.NewInt(0)
		}

		if paid.Cmp(distributed) == 1 {
			return errors.Errorf("invariants error on token %s: paid %s of distributed %s",
				token.String(), paid.String(), distributed.String())
		}
		if distributed.Cmp(d.distributed) == -1 {
			return errors.Errorf("invariants error on token %s: distributed total %s is behind tick delta %s",
				token.String(), distributed.String(), d.distributed.String())
		}
		if paid.Cmp(d.paid) == -1 {
			return errors.Errorf("invariants error on token %s: paid total %s is behind tick delta %s",
				token.String(), paid.String(), d.paid.String())
		}
	}

	return nil
}
