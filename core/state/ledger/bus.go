package ledger

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Bus struct {
	ledger *Ledger
}

func NewBus(ledger *Ledger) *Bus {
	return &Bus{ledger: ledger}
}

func (b *Bus) FoldDue(token types.TokenID, height uint64) error {
	return b.ledger.FoldDue(token, height)
}

func (b *Bus) ProjectedDelta(token types.TokenID, height uint64) (*big.Int, error) {
	return b.ledger.ProjectedDelta(token, height)
}

func (b *Bus) Distribution(token types.TokenID, id uint64) *bus.Distribution {
	d := b.ledger.GetDistribution(token, id)
	if d == nil {
		return nil
	}

	return snapshot(token, d)
}

func (b *Bus) VestedDistributions(token types.TokenID) []*bus.Distribution {
	vested := b.ledger.VestedDistributions(token)

	snapshots := make([]*bus.Distribution, 0, len(vested))
	for _, d := range vested {
		snapshots = append(snapshots, snapshot(token, d))
	}

	return snapshots
}

func snapshot(token types.TokenID, d *Distribution) *bus.Distribution {
	s := &bus.Distribution{
		ID:              d.ID,
		Token:           token,
		Amount:          new(big.Int).Set(d.Amount),
		ScheduledHeight: d.ScheduledHeight,
		Type:            d.Type,
		VestingPeriod:   d.VestingPeriod,
		Processed:       d.Processed,
		FoldHeight:      d.FoldHeight,
	}
	if d.Processed {
		s.FoldedDelta = new(big.Int).Set(d.FoldedDelta)
		s.CumulativeAfter = new(big.Int).Set(d.CumulativeAfter)
	}

	return s
}
