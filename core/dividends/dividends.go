package dividends

import (
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// TokenSource is the host's fungible-token ledger. The engine never
// moves tokens itself; it only reads supplies and balances and orders
// payout transfers.
type TokenSource interface {
	TotalSupply(types.TokenID) *big.Int
	BalanceOf(types.TokenID, types.Address) *big.Int
	Transfer(token types.TokenID, to types.Address, amount *big.Int) error
}

// Clock is the host's monotonic logical clock. Every policy bound is a
// height delta against it.
type Clock interface {
	CurrentHeight() uint64
}

// SignatureVerifier checks guardian co-signatures on large
// distributions.
type SignatureVerifier interface {
	VerifyCosignature(guardian types.Address, message []byte, signature []byte) bool
}

// TokenQueries is the read-only capability surface.
type TokenQueries interface {
	GetTotalSupply(token types.TokenID) *big.Int
	// GetDividendsPerToken reports the cumulative per-unit counter in
	// scaled units.
	GetDividendsPerToken(token types.TokenID) *big.Int
	GetPendingDividends(holder types.Address, token types.TokenID) (*big.Int, error)
	GetTokenDetails(token types.TokenID) (*TokenDetails, error)
	GetRegisteredTokenCount() uint32
}

// Claimer is the holder-facing capability surface.
type Claimer interface {
	ClaimDividends(holder types.Address, token types.TokenID) (*big.Int, error)
	ClaimSpecificDividend(holder types.Address, token types.TokenID, distributionID uint64) (*big.Int, error)
	// ClaimMultiTokenDividends is best effort: one token's failure does
	// not undo payouts already made for others.
	ClaimMultiTokenDividends(holder types.Address) []ClaimResult
	ValidateClaim(holder types.Address, token types.TokenID) error
}

// Distributor is the capability surface for entering value.
type Distributor interface {
	DistributeDividends(token types.TokenID, amount *big.Int, signature []byte) (uint64, error)
	ScheduleDistribution(token types.TokenID, amount *big.Int, scheduledHeight uint64, signature []byte) (uint64, error)
	DistributeWithVesting(token types.TokenID, amount *big.Int, scheduledHeight, vestingPeriod uint64, signature []byte) (uint64, error)
	CancelDistribution(caller types.Address, token types.TokenID, distributionID uint64) error
	// BatchDistribute stops at the first failure; the host restores
	// atomicity by rolling the state back.
	BatchDistribute(entries []BatchEntry) ([]uint64, error)
	GetDistributionInfo(token types.TokenID, distributionID uint64) (*DistributionInfo, error)
}

// Registrar is the administrative capability surface.
type Registrar interface {
	RegisterDividendToken(caller types.Address, token types.TokenID) error
	RemoveDividendToken(caller types.Address, token types.TokenID) error
	FreezeToken(caller types.Address, token types.TokenID) error
	UnfreezeToken(caller types.Address, token types.TokenID) error
	IsRegistered(token types.TokenID) bool
}

type TokenDetails struct {
	ID                     types.TokenID
	RegisteredHeight       uint64
	Frozen                 bool
	Removed                bool
	LastDistributionHeight uint64
	TotalDistributed       *big.Int
	TotalPaid              *big.Int
	DividendsPerUnit       *big.Int
}

type DistributionInfo struct {
	ID              uint64
	Token           types.TokenID
	Amount          *big.Int
	CreatedHeight   uint64
	ScheduledHeight uint64
	Type            types.DistributionType
	VestingPeriod   uint64
	Processed       bool
	Canceled        bool
	FoldHeight      uint64
	FoldedDelta     *big.Int
	CumulativeAfter *big.Int
}

type BatchEntry struct {
	Token     types.TokenID
	Amount    *big.Int
	Signature []byte
}

type ClaimResult struct {
	Token  types.TokenID
	Amount *big.Int
	Err    error
}
