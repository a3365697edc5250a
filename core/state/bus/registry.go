package bus

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Registry interface {
	IsRegistered(types.TokenID) bool
	IsFrozen(types.TokenID) bool
	LastDistributionHeight(types.TokenID) uint64
	ActiveTokens() []types.TokenID
	OnDistributionProcessed(token types.TokenID, height uint64, amount *big.Int)
	OnDividendsPaid(token types.TokenID, amount *big.Int)
	// DistributionTotals reports the lifetime distributed and paid
	// amounts of a token, for invariant checking.
	DistributionTotals(token types.TokenID) (distributed, paid *big.Int)
}
