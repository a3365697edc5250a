package helpers

import (
	"fmt"
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/code"
)

const precisionFactor = 1000000

var precision = big.NewInt(precisionFactor)

// MaxDistributionValue bounds any raw amount entering scaled
// arithmetic: 10^15 whole units of an 18-decimal token.
var MaxDistributionValue = new(big.Int).Mul(
	new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil),
	new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
)

// Scale multiplies a raw amount by the precision factor. Amounts above
// MaxDistributionValue are rejected so downstream multiply chains stay
// inside the arithmetic bound.
func Scale(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, code.ErrArithmeticOverflow
	}

	if amount.Cmp(MaxDistributionValue) == 1 {
		return nil, code.ErrArithmeticOverflow
	}

	return new(big.Int).Mul(amount, precision), nil
}

// Unscale divides a scaled value by the precision factor, truncating
// toward zero. Payouts round down; the residue stays as unclaimed dust.
func Unscale(value *big.Int) *big.Int {
	return new(big.Int).Quo(value, precision)
}

// StringToBigInt converts string to BigInt, panics on empty strings and errors
func StringToBigInt(s string) *big.Int {
	if s == "" {
		panic("string is empty")
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		panic(fmt.Sprintf("Cannot decode %s into big.Int", s))
	}

	return b
}

// IsValidBigInt verifies that string is a valid int
func IsValidBigInt(s string) bool {
	if s == "" {
		return false
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		return false
	}

	if b.Cmp(big.NewInt(0)) == -1 {
		return false
	}

	return true
}
