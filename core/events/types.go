package events

import (
	"github.com/DividendTeam/dividend-go-engine/core/types"
)

// Event type names
const (
	TypeTokenRegisteredEvent       = "dividends/TokenRegisteredEvent"
	TypeTokenRemovedEvent          = "dividends/TokenRemovedEvent"
	TypeTokenFrozenEvent           = "dividends/TokenFrozenEvent"
	TypeDividendDistributedEvent   = "dividends/DividendDistributedEvent"
	TypeDistributionScheduledEvent = "dividends/DistributionScheduledEvent"
	TypeDistributionCanceledEvent  = "dividends/DistributionCanceledEvent"
	TypeDividendClaimEvent         = "dividends/DividendClaimEvent"
	TypeGuardianChangedEvent       = "dividends/GuardianChangedEvent"
	TypeEmergencyShutdownEvent     = "dividends/EmergencyShutdownEvent"
)

type Event interface {
	Type() string
}

type Events []Event

type TokenRegisteredEvent struct {
	Token  uint64 `json:"token"`
	Height uint64 `json:"height"`
}

func (e *TokenRegisteredEvent) Type() string { return TypeTokenRegisteredEvent }

type TokenRemovedEvent struct {
	Token uint64 `json:"token"`
}

func (e *TokenRemovedEvent) Type() string { return TypeTokenRemovedEvent }

type TokenFrozenEvent struct {
	Token  uint64 `json:"token"`
	Frozen bool   `json:"frozen"`
}

func (e *TokenFrozenEvent) Type() string { return TypeTokenFrozenEvent }

type DistributionScheduledEvent struct {
	Token           uint64 `json:"token"`
	DistributionID  uint64 `json:"distribution_id"`
	Amount          string `json:"amount"`
	ScheduledHeight uint64 `json:"scheduled_height"`
	VestingPeriod   uint64 `json:"vesting_period,omitempty"`
}

func (e *DistributionScheduledEvent) Type() string { return TypeDistributionScheduledEvent }

type DividendDistributedEvent struct {
	Token          uint64 `json:"token"`
	DistributionID uint64 `json:"distribution_id"`
	Amount         string `json:"amount"`
	PerUnitDelta   string `json:"per_unit_delta"`
	FoldHeight     uint64 `json:"fold_height"`
}

func (e *DividendDistributedEvent) Type() string { return TypeDividendDistributedEvent }

type DistributionCanceledEvent struct {
	Token          uint64 `json:"token"`
	DistributionID uint64 `json:"distribution_id"`
}

func (e *DistributionCanceledEvent) Type() string { return TypeDistributionCanceledEvent }

type DividendClaimEvent struct {
	Holder types.Address `json:"holder"`
	Token  uint64        `json:"token"`
	Amount string        `json:"amount"`
	Height uint64        `json:"height"`
}

func (e *DividendClaimEvent) Type() string { return TypeDividendClaimEvent }

type GuardianChangedEvent struct {
	Guardian types.Address `json:"guardian"`
}

func (e *GuardianChangedEvent) Type() string { return TypeGuardianChangedEvent }

type EmergencyShutdownEvent struct {
	Active bool `json:"active"`
}

func (e *EmergencyShutdownEvent) Type() string { return TypeEmergencyShutdownEvent }
