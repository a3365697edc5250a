package accumulator

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Bus struct {
	accumulator *Accumulator
}

func NewBus(accumulator *Accumulator) *Bus {
	return &Bus{accumulator: accumulator}
}

func (b *Bus) GetPerUnit(token types.TokenID) *big.Int {
	return b.accumulator.GetPerUnit(token)
}

func (b *Bus) AddPerUnit(token types.TokenID, delta *big.Int) {
	b.accumulator.AddPerUnit(token, delta)
}
