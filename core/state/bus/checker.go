package bus

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Checker interface {
	AddDistributed(types.TokenID, *big.Int)
	AddPaid(types.TokenID, *big.Int)
}
