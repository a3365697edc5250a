package registry

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type Bus struct {
	registry *Registry
}

func NewBus(registry *Registry) *Bus {
	return &Bus{registry: registry}
}

func (b *Bus) IsRegistered(token types.TokenID) bool {
	return b.registry.IsRegistered(token)
}

func (b *Bus) IsFrozen(token types.TokenID) bool {
	return b.registry.IsFrozen(token)
}

func (b *Bus) LastDistributionHeight(token types.TokenID) uint64 {
	return b.registry.LastDistributionHeight(token)
}

func (b *Bus) ActiveTokens() []types.TokenID {
	return b.registry.ActiveTokens()
}

func (b *Bus) OnDistributionProcessed(token types.TokenID, height uint64, amount *big.Int) {
	b.registry.OnDistributionProcessed(token, height, amount)
}

func (b *Bus) OnDividendsPaid(token types.TokenID, amount *big.Int) {
	b.registry.OnDividendsPaid(token, amount)
}

func (b *Bus) DistributionTotals(token types.TokenID) (*big.Int, *big.Int) {
	return b.registry.DistributionTotals(token)
}
