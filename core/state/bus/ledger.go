package bus

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Distribution is the cross-store snapshot of a ledger entry.
type Distribution struct {
	ID              uint64
	Token           types.TokenID
	Amount          *big.Int
	ScheduledHeight uint64
	Type            types.DistributionType
	VestingPeriod   uint64
	Processed       bool
	FoldHeight      uint64
	FoldedDelta     *big.Int
	CumulativeAfter *big.Int
}

type Ledger interface {
	// FoldDue folds every due, unprocessed distribution of the token.
	FoldDue(token types.TokenID, height uint64) error
	// ProjectedDelta is the pure counterpart of FoldDue: the scaled
	// per-unit delta the due distributions would make claimable if
	// folded now. Vested entries contribute nothing at fold time.
	ProjectedDelta(token types.TokenID, height uint64) (*big.Int, error)
	Distribution(token types.TokenID, id uint64) *Distribution
	VestedDistributions(token types.TokenID) []*Distribution
}
