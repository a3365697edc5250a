package bus

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Accumulator interface {
	GetPerUnit(types.TokenID) *big.Int
	AddPerUnit(types.TokenID, *big.Int)
}
