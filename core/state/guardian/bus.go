package guardian

import (
	"math/big"
)

type Bus struct {
	guardian *Guardian
}

func NewBus(guardian *Guardian) *Bus {
	return &Bus{guardian: guardian}
}

func (b *Bus) IsShutdown() bool {
	return b.guardian.IsShutdown()
}

func (b *Bus) SignatureRequired(amount *big.Int) bool {
	return b.guardian.SignatureRequired(amount)
}
