package types

import (
	"fmt"

	"github.com/DividendTeam/dividend-go-engine/helpers"
)

// AppState is the genesis/export representation of the whole engine
// state. Amounts are decimal strings so the JSON form is stable across
// hosts.
type AppState struct {
	Note          string         `json:"note"`
	Tokens        []Token        `json:"tokens,omitempty"`
	Distributions []Distribution `json:"distributions,omitempty"`
	Accumulators  []Accumulator  `json:"accumulators,omitempty"`
	Checkpoints   []Checkpoint   `json:"checkpoints,omitempty"`
	Guardian      *Guardian      `json:"guardian,omitempty"`
}

type Token struct {
	ID                     uint64 `json:"id"`
	RegisteredHeight       uint64 `json:"registered_height"`
	Frozen                 bool   `json:"frozen,omitempty"`
	Removed                bool   `json:"removed,omitempty"`
	LastDistributionHeight uint64 `json:"last_distribution_height"`
	TotalDistributed       string `json:"total_distributed"`
	TotalPaid              string `json:"total_paid"`
}

type Distribution struct {
	Token           uint64 `json:"token"`
	ID              uint64 `json:"id"`
	Amount          string `json:"amount"`
	CreatedHeight   uint64 `json:"created_height"`
	ScheduledHeight uint64 `json:"scheduled_height"`
	Type            byte   `json:"type"`
	VestingPeriod   uint64 `json:"vesting_period,omitempty"`
	Processed       bool   `json:"processed,omitempty"`
	Canceled        bool   `json:"canceled,omitempty"`
	FoldHeight      uint64 `json:"fold_height,omitempty"`
	FoldedDelta     string `json:"folded_delta,omitempty"`
	CumulativeAfter string `json:"cumulative_after,omitempty"`
}

type Accumulator struct {
	Token             uint64 `json:"token"`
	CumulativePerUnit string `json:"cumulative_per_unit"`
}

type Checkpoint struct {
	Holder          Address         `json:"holder"`
	Token           uint64          `json:"token"`
	LastSettled     string          `json:"last_settled"`
	LastClaimHeight uint64          `json:"last_claim_height"`
	Specifics       []SpecificClaim `json:"specifics,omitempty"`
}

type SpecificClaim struct {
	DistributionID uint64 `json:"distribution_id"`
	Claimed        string `json:"claimed"`
}

type Guardian struct {
	Guardian           Address `json:"guardian"`
	Assigned           bool    `json:"assigned"`
	EmergencyShutdown  bool    `json:"emergency_shutdown,omitempty"`
	RequireSignature   bool    `json:"require_signature,omitempty"`
	SignatureThreshold string  `json:"signature_threshold,omitempty"`
}

func (s *AppState) Verify() error {
	tokens := map[uint64]struct{}{}
	for _, t := range s.Tokens {
		if _, exists := tokens[t.ID]; exists {
			return fmt.Errorf("duplicated token %d", t.ID)
		}
		tokens[t.ID] = struct{}{}

		if !helpers.IsValidBigInt(t.TotalDistributed) {
			return fmt.Errorf("total distributed of token %d is not valid BigInt", t.ID)
		}

		if !helpers.IsValidBigInt(t.TotalPaid) {
			return fmt.Errorf("total paid of token %d is not valid BigInt", t.ID)
		}
	}

	for _, d := range s.Distributions {
		if _, exists := tokens[d.Token]; !exists {
			return fmt.Errorf("distribution %d targets unknown token %d", d.ID, d.Token)
		}

		if !helpers.IsValidBigInt(d.Amount) {
			return fmt.Errorf("amount of distribution %d is not valid BigInt", d.ID)
		}

		if d.Processed && !helpers.IsValidBigInt(d.FoldedDelta) {
			return fmt.Errorf("folded delta of distribution %d is not valid BigInt", d.ID)
		}
	}

	for _, a := range s.Accumulators {
		if _, exists := tokens[a.Token]; !exists {
			return fmt.Errorf("accumulator targets unknown token %d", a.Token)
		}

		if !helpers.IsValidBigInt(a.CumulativePerUnit) {
			return fmt.Errorf("accumulator of token %d is not valid BigInt", a.Token)
		}
	}

	for _, c := range s.Checkpoints {
		if _, exists := tokens[c.Token]; !exists {
			return fmt.Errorf("checkpoint of %s targets unknown token %d", c.Holder.String(), c.Token)
		}

		if !helpers.IsValidBigInt(c.LastSettled) {
			return fmt.Errorf("checkpoint of %s is not valid BigInt", c.Holder.String())
		}

		for _, sc := range c.Specifics {
			if !helpers.IsValidBigInt(sc.Claimed) {
				return fmt.Errorf("specific claim %d of %s is not valid BigInt", sc.DistributionID, c.Holder.String())
			}
		}
	}

	if s.Guardian != nil && s.Guardian.RequireSignature {
		if !helpers.IsValidBigInt(s.Guardian.SignatureThreshold) {
			return fmt.Errorf("guardian signature threshold is not valid BigInt")
		}
	}

	return nil
}
