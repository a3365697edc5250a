package code

import (
	"github.com/pkg/errors"
)

// Codes for engine operation results
const (
	// general
	OK           uint32 = 0
	Unauthorized uint32 = 101

	// registry
	InvalidToken      uint32 = 201
	NotRegistered     uint32 = 202
	AlreadyRegistered uint32 = 203
	RegistryFull      uint32 = 204
	TokenFrozen       uint32 = 205

	// distribution lifecycle
	InvalidAmount                uint32 = 301
	InvalidHeight                uint32 = 302
	BelowMinimumAmount           uint32 = 303
	DistributionTooFrequent      uint32 = 304
	ExceedsMaxRate               uint32 = 305
	DistributionExists           uint32 = 306
	DistributionNotFound         uint32 = 307
	DistributionAlreadyProcessed uint32 = 308

	// settlement
	NoPendingDividends uint32 = 401

	// security policy
	CooldownActive    uint32 = 501
	RateLimitExceeded uint32 = 502
	EmergencyShutdown uint32 = 503
	InvalidSignature  uint32 = 504

	// arithmetic
	ArithmeticError uint32 = 601

	// internal
	SystemFailure  uint32 = 901
	NotImplemented uint32 = 902
)

// Sentinel errors, one per code. State stores and the engine facade
// return these (wrapped with context where useful); hosts match with
// errors.Is and translate to wire codes through Of.
var (
	ErrUnauthorized = errors.New("caller lacks required role")

	ErrInvalidToken      = errors.New("invalid token")
	ErrNotRegistered     = errors.New("token is not registered")
	ErrAlreadyRegistered = errors.New("token is already registered")
	ErrRegistryFull      = errors.New("token registry is full")
	ErrTokenFrozen       = errors.New("token is frozen")

	ErrInvalidAmount                = errors.New("invalid amount")
	ErrInvalidHeight                = errors.New("invalid height")
	ErrBelowMinimumAmount           = errors.New("amount is below the minimum distribution amount")
	ErrDistributionTooFrequent      = errors.New("distribution interval is too short")
	ErrExceedsMaxRate               = errors.New("distribution exceeds the maximum dividend rate")
	ErrDistributionExists           = errors.New("a pending distribution already targets this height")
	ErrDistributionNotFound         = errors.New("distribution not found")
	ErrDistributionAlreadyProcessed = errors.New("distribution is already processed")

	ErrNoPendingDividends = errors.New("no pending dividends")

	ErrCooldownActive    = errors.New("claim cooldown is active")
	ErrRateLimitExceeded = errors.New("claim rate limit exceeded")
	ErrEmergencyShutdown = errors.New("emergency shutdown is active")
	ErrInvalidSignature  = errors.New("guardian co-signature is missing or invalid")

	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	ErrSystemFailure  = errors.New("internal invariant breach")
	ErrNotImplemented = errors.New("not implemented")
)

var byError = map[error]uint32{
	ErrUnauthorized: Unauthorized,

	ErrInvalidToken:      InvalidToken,
	ErrNotRegistered:     NotRegistered,
	ErrAlreadyRegistered: AlreadyRegistered,
	ErrRegistryFull:      RegistryFull,
	ErrTokenFrozen:       TokenFrozen,

	ErrInvalidAmount:                InvalidAmount,
	ErrInvalidHeight:                InvalidHeight,
	ErrBelowMinimumAmount:           BelowMinimumAmount,
	ErrDistributionTooFrequent:      DistributionTooFrequent,
	ErrExceedsMaxRate:               ExceedsMaxRate,
	ErrDistributionExists:           DistributionExists,
	ErrDistributionNotFound:         DistributionNotFound,
	ErrDistributionAlreadyProcessed: DistributionAlreadyProcessed,

	ErrNoPendingDividends: NoPendingDividends,

	ErrCooldownActive:    CooldownActive,
	ErrRateLimitExceeded: RateLimitExceeded,
	ErrEmergencyShutdown: EmergencyShutdown,
	ErrInvalidSignature:  InvalidSignature,

	ErrArithmeticOverflow: ArithmeticError,

	ErrSystemFailure:  SystemFailure,
	ErrNotImplemented: NotImplemented,
}

// Of maps an error chain to its wire code. Unknown errors map to
// SystemFailure: the engine never surfaces untagged failures in correct
// operation.
func Of(err error) uint32 {
	if err == nil {
		return OK
	}

	for sentinel, c := range byError {
		if errors.Is(err, sentinel) {
			return c
		}
	}

	return SystemFailure
}
