package bus

import (
	"math/big"
)

type Guardian interface {
	IsShutdown() bool
	SignatureRequired(amount *big.Int) bool
}
