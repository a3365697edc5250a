package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

const (
	AddressLength = 20
	PubKeyLength  = 32
)

/////////// Token

// TokenID identifies a registered dividend token.
type TokenID uint32

func (t TokenID) String() string {
	return strconv.Itoa(int(t))
}

func (t TokenID) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, t.Uint32())
	return b
}

func (t TokenID) Uint32() uint32 {
	return uint32(t)
}

func BytesToTokenID(b []byte) TokenID {
	return TokenID(binary.BigEndian.Uint32(b))
}

// DistributionType tags how a distribution reaches holders.
type DistributionType byte

const (
	DistributionImmediate DistributionType = iota
	DistributionScheduled
	DistributionVested
)

func (d DistributionType) String() string {
	switch d {
	case DistributionImmediate:
		return "immediate"
	case DistributionScheduled:
		return "scheduled"
	case DistributionVested:
		return "vested"
	}

	return "unknown"
}

/////////// Address

type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}
func StringToAddress(s string) Address { return BytesToAddress([]byte(s)) }
func BigToAddress(b *big.Int) Address  { return BytesToAddress(b.Bytes()) }

func HexToAddress(s string) Address {
	s = strings.TrimPrefix(s, "Dx")
	b, _ := hex.DecodeString(s)
	return BytesToAddress(b)
}

// IsHexAddress verifies whether a string can represent a valid
// hex-encoded holder address or not.
func IsHexAddress(s string) bool {
	s = strings.TrimPrefix(s, "Dx")
	if len(s) != 2*AddressLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (a Address) Str() string   { return string(a[:]) }
func (a Address) Bytes() []byte { return a[:] }
func (a Address) Big() *big.Int { return new(big.Int).SetBytes(a[:]) }

func (a Address) Hex() string {
	return "Dx" + hex.EncodeToString(a[:])
}

// String implements the stringer interface and is used also by the logger.
func (a Address) String() string {
	return a.Hex()
}

// Sets the address to the value of b. If b is larger than len(a), b will be cropped from the left.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a *Address) Set(other Address) {
	for i, v := range other {
		a[i] = v
	}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(input []byte) error {
	s := strings.TrimPrefix(string(input), "Dx")
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	a.SetBytes(b)
	return nil
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.String())), nil
}

func (a *Address) UnmarshalJSON(input []byte) error {
	if len(input) < 2 {
		return fmt.Errorf("invalid address %q", input)
	}
	return a.UnmarshalText(input[1 : len(input)-1])
}

func (a *Address) Compare(a2 Address) int {
	return bytes.Compare(a.Bytes(), a2.Bytes())
}

/////////// Pubkey

type Pubkey [PubKeyLength]byte

func HexToPubkey(s string) Pubkey {
	s = strings.TrimPrefix(s, "Dp")
	b, _ := hex.DecodeString(s)
	return BytesToPubkey(b)
}

func BytesToPubkey(b []byte) Pubkey {
	var p Pubkey
	p.SetBytes(b)
	return p
}

func (p *Pubkey) SetBytes(b []byte) {
	if len(b) > len(p) {
		b = b[len(b)-PubKeyLength:]
	}
	copy(p[PubKeyLength-len(b):], b)
}

func (p Pubkey) Bytes() []byte { return p[:] }

func (p Pubkey) String() string {
	return fmt.Sprintf("Dp%x", p[:])
}

func (p Pubkey) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

func (p *Pubkey) UnmarshalJSON(input []byte) error {
	b, err := hex.DecodeString(string(input)[3 : len(input)-1])
	copy(p[:], b)

	return err
}

func (p Pubkey) Equals(p2 Pubkey) bool {
	return p == p2
}
