package bus

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Tokens is the external fungible-token collaborator. Supply and
// balance reads must reflect pre-distribution state at fold time; a
// failed Transfer aborts the enclosing operation.
type Tokens interface {
	TotalSupply(types.TokenID) *big.Int
	BalanceOf(types.TokenID, types.Address) *big.Int
	Transfer(token types.TokenID, to types.Address, amount *big.Int) error
}
