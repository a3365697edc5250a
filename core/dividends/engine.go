package dividends

import (
	"encoding/binary"
	"math/big"

	"github.com/DividendTeam/dividend-go-engine/config"
	"github.com/DividendTeam/dividend-go-engine/core/code"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state"
	"github.com/DividendTeam/dividend-go-engine/core/statistics"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/log"
	tmlog "github.com/tendermint/tendermint/libs/log"
	db "github.com/tendermint/tm-db"
)

const (
	defaultCacheSize  = 1024
	defaultKeepStates = 120
)

var (
	_ TokenQueries = (*Engine)(nil)
	_ Claimer      = (*Engine)(nil)
	_ Distributor  = (*Engine)(nil)
	_ Registrar    = (*Engine)(nil)
)

// Engine is the single facade over the dividend state. It implements
// the TokenQueries, Claimer, Distributor and Registrar capability
// surfaces; hosts hand out whichever narrow interface a caller needs.
//
// Mutations run against in-memory store models. The host closes a
// logical tick with Commit, or discards it with Rollback after a
// failure it does not want to keep.
type Engine struct {
	state    *state.State
	events   eventsdb.IEventsDB
	tokens   TokenSource
	clock    Clock
	verifier SignatureVerifier
	deployer types.Address

	stats  *statistics.Statistics
	logger tmlog.Logger
}

func NewEngine(
	height uint64,
	stateDB db.DB,
	events eventsdb.IEventsDB,
	tokens TokenSource,
	policy *config.Policy,
	clock Clock,
	verifier SignatureVerifier,
	deployer types.Address,
	logger tmlog.Logger,
	stats *statistics.Statistics,
) (*Engine, error) {
	engineState, err := state.NewState(height, stateDB, events, tokens, policy, defaultCacheSize, defaultKeepStates, 0)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.With("module", "dividends")
	}

	return &Engine{
		state:    engineState,
		events:   events,
		tokens:   tokens,
		clock:    clock,
		verifier: verifier,
		deployer: deployer,
		stats:    stats,
		logger:   logger,
	}, nil
}

func (e *Engine) State() *state.State {
	return e.state
}

func (e *Engine) CheckState() *state.CheckState {
	return state.NewCheckState(e.state)
}

// Commit closes the current logical tick: flushes buffered events,
// verifies invariants and saves a state version.
func (e *Engine) Commit() ([]byte, error) {
	height := e.clock.CurrentHeight()

	hash, err := e.state.Commit()
	if err != nil {
		return nil, err
	}

	if e.events != nil {
		if err := e.events.CommitEvents(height); err != nil {
			return hash, err
		}
	}

	e.logger.Info("committed state", "height", height)

	return hash, nil
}

// Rollback discards every mutation since the last Commit.
func (e *Engine) Rollback() {
	e.state.Rollback()
}

// --- TokenQueries ---

func (e *Engine) GetTotalSupply(token types.TokenID) *big.Int {
	return e.tokens.TotalSupply(token)
}

func (e *Engine) GetDividendsPerToken(token types.TokenID) *big.Int {
	return e.state.Accumulator.GetPerUnit(token)
}

func (e *Engine) GetPendingDividends(holder types.Address, token types.TokenID) (*big.Int, error) {
	return e.state.Claims.Pending(holder, token, e.clock.CurrentHeight())
}

// GetTokenDetails works for removed tokens too; removal keeps history
// queryable.
func (e *Engine) GetTokenDetails(token types.TokenID) (*TokenDetails, error) {
	model := e.state.Registry.GetToken(token)
	if model == nil {
		return nil, code.ErrNotRegistered
	}

	return &TokenDetails{
		ID:                     token,
		RegisteredHeight:       model.GetRegisteredHeight(),
		Frozen:                 model.IsFrozen(),
		Removed:                model.IsRemoved(),
		LastDistributionHeight: model.GetLastDistributionHeight(),
		TotalDistributed:       model.GetTotalDistributed(),
		TotalPaid:              model.GetTotalPaid(),
		DividendsPerUnit:       e.state.Accumulator.GetPerUnit(token),
	}, nil
}

func (e *Engine) GetRegisteredTokenCount() uint32 {
	return e.state.Registry.Count()
}

// --- Claimer ---

func (e *Engine) ClaimDividends(holder types.Address, token types.TokenID) (*big.Int, error) {
	if err := e.claimGuards(token); err != nil {
		return nil, err
	}

	height := e.clock.CurrentHeight()
	amount, err := e.state.Claims.Claim(holder, token, height)
	if err != nil {
		return nil, err
	}

	e.stats.RecordClaim(token, amount)
	e.logger.Info("claimed dividends", "holder", holder.String(), "token", token.String(), "amount", amount.String(), "height", height)

	return amount, nil
}

func (e *Engine) ClaimSpecificDividend(holder types.Address, token types.TokenID, distributionID uint64) (*big.Int, error) {
	if err := e.claimGuards(token); err != nil {
		return nil, err
	}

	height := e.clock.CurrentHeight()
	amount, err := e.state.Claims.ClaimSpecific(holder, token, distributionID, height)
	if err != nil {
		return nil, err
	}

	e.stats.RecordClaim(token, amount)
	e.logger.Info("claimed specific dividend", "holder", holder.String(), "token", token.String(), "distribution", distributionID, "amount", amount.String())

	return amount, nil
}

func (e *Engine) ClaimMultiTokenDividends(holder types.Address) []ClaimResult {
	var results []ClaimResult

	for _, token := range e.state.Registry.ActiveTokens() {
		if e.state.Registry.IsFrozen(token) {
			continue
		}

		amount, err := e.ClaimDividends(holder, token)
		if err != nil {
			results = append(results, ClaimResult{Token: token, Err: err})
			continue
		}

		results = append(results, ClaimResult{Token: token, Amount: amount})
	}

	return results
}

func (e *Engine) ValidateClaim(holder types.Address, token types.TokenID) error {
	if err := e.claimGuards(token); err != nil {
		return err
	}

	return e.state.Claims.ValidateClaim(holder, token, e.clock.CurrentHeight())
}

// --- Distributor ---

func (e *Engine) DistributeDividends(token types.TokenID, amount *big.Int, signature []byte) (uint64, error) {
	if e.state.Guardian.IsShutdown() {
		return 0, code.ErrEmergencyShutdown
	}

	height := e.clock.CurrentHeight()
	if err := e.checkCosignature(token, amount, height, signature); err != nil {
		return 0, err
	}

	id, err := e.state.Ledger.TriggerImmediate(token, amount, height)
	if err != nil {
		return 0, err
	}

	e.stats.RecordDistribution(token, types.DistributionImmediate, amount)
	e.stats.RecordFold()
	e.logger.Info("distributed dividends", "token", token.String(), "distribution", id, "amount", amount.String(), "height", height)

	return id, nil
}

func (e *Engine) ScheduleDistribution(token types.TokenID, amount *big.Int, scheduledHeight uint64, signature []byte) (uint64, error) {
	return e.schedule(token, amount, scheduledHeight, types.DistributionScheduled, 0, signature)
}

func (e *Engine) DistributeWithVesting(token types.TokenID, amount *big.Int, scheduledHeight, vestingPeriod uint64, signature []byte) (uint64, error) {
	return e.schedule(token, amount, scheduledHeight, types.DistributionVested, vestingPeriod, signature)
}

func (e *Engine) schedule(token types.TokenID, amount *big.Int, scheduledHeight uint64, distributionType types.DistributionType, vestingPeriod uint64, signature []byte) (uint64, error) {
	if e.state.Guardian.IsShutdown() {
		return 0, code.ErrEmergencyShutdown
	}

	height := e.clock.CurrentHeight()
	if err := e.checkCosignature(token, amount, height, signature); err != nil {
		return 0, err
	}

	id, err := e.state.Ledger.Schedule(token, amount, height, scheduledHeight, distributionType, vestingPeriod)
	if err != nil {
		return 0, err
	}

	e.stats.RecordDistribution(token, distributionType, amount)
	e.logger.Info("scheduled distribution", "token", token.String(), "distribution", id, "amount", amount.String(), "target", scheduledHeight, "type", distributionType.String())

	return id, nil
}

func (e *Engine) CancelDistribution(caller types.Address, token types.TokenID, distributionID uint64) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	return e.state.Ledger.Cancel(token, distributionID, e.clock.CurrentHeight())
}

func (e *Engine) BatchDistribute(entries []BatchEntry) ([]uint64, error) {
	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		id, err := e.DistributeDividends(entry.Token, entry.Amount, entry.Signature)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (e *Engine) GetDistributionInfo(token types.TokenID, distributionID uint64) (*DistributionInfo, error) {
	d := e.state.Ledger.GetDistribution(token, distributionID)
	if d == nil {
		return nil, code.ErrDistributionNotFound
	}

	info := &DistributionInfo{
		ID:              d.ID,
		Token:           token,
		Amount:          new(big.Int).Set(d.Amount),
		CreatedHeight:   d.CreatedHeight,
		ScheduledHeight: d.ScheduledHeight,
		Type:            d.Type,
		VestingPeriod:   d.VestingPeriod,
		Processed:       d.Processed,
		Canceled:        d.Canceled,
		FoldHeight:      d.FoldHeight,
	}
	if d.Processed {
		info.FoldedDelta = new(big.Int).Set(d.FoldedDelta)
		info.CumulativeAfter = new(big.Int).Set(d.CumulativeAfter)
	}

	return info, nil
}

// --- Registrar ---

func (e *Engine) RegisterDividendToken(caller types.Address, token types.TokenID) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	if err := e.state.Registry.Register(token, e.clock.CurrentHeight()); err != nil {
		return err
	}

	e.logger.Info("registered token", "token", token.String())

	return nil
}

func (e *Engine) RemoveDividendToken(caller types.Address, token types.TokenID) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	if err := e.state.Registry.Remove(token, e.clock.CurrentHeight()); err != nil {
		return err
	}

	e.logger.Info("removed token", "token", token.String())

	return nil
}

func (e *Engine) FreezeToken(caller types.Address, token types.TokenID) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	return e.state.Registry.SetFrozen(token, true, e.clock.CurrentHeight())
}

func (e *Engine) UnfreezeToken(caller types.Address, token types.TokenID) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	return e.state.Registry.SetFrozen(token, false, e.clock.CurrentHeight())
}

func (e *Engine) IsRegistered(token types.TokenID) bool {
	return e.state.Registry.IsRegistered(token)
}

// --- Guardian control ---

// SetGuardian hands guardianship over. The first assignment is reserved
// for the deployer; afterwards only the current guardian may reassign.
func (e *Engine) SetGuardian(caller, principal types.Address) error {
	if _, assigned := e.state.Guardian.GetGuardian(); !assigned && e.deployer.Compare(caller) != 0 {
		return code.ErrUnauthorized
	}

	return e.state.Guardian.SetGuardian(caller, principal, e.clock.CurrentHeight())
}

func (e *Engine) SetEmergencyShutdown(caller types.Address, active bool) error {
	if err := e.state.Guardian.SetShutdown(caller, active, e.clock.CurrentHeight()); err != nil {
		return err
	}

	e.logger.Error("emergency shutdown switched", "active", active)

	return nil
}

func (e *Engine) SetRequireSignature(caller types.Address, require bool, threshold *big.Int) error {
	return e.state.Guardian.SetSignaturePolicy(caller, require, threshold)
}

func (e *Engine) ResetRateLimit(caller types.Address, holder types.Address) error {
	if err := e.checkAdmin(caller); err != nil {
		return err
	}

	e.state.Claims.ResetRateLimit(holder)

	return nil
}

// --- guards ---

func (e *Engine) claimGuards(token types.TokenID) error {
	if e.state.Guardian.IsShutdown() {
		return code.ErrEmergencyShutdown
	}
	if e.state.Registry.IsFrozen(token) {
		return code.ErrTokenFrozen
	}

	return nil
}

// checkAdmin passes for the guardian, or for the deployer while no
// guardian is assigned.
func (e *Engine) checkAdmin(caller types.Address) error {
	guardian, assigned := e.state.Guardian.GetGuardian()
	if assigned {
		if guardian.Compare(caller) != 0 {
			return code.ErrUnauthorized
		}
		return nil
	}

	if e.deployer.Compare(caller) != 0 {
		return code.ErrUnauthorized
	}

	return nil
}

func (e *Engine) checkCosignature(token types.TokenID, amount *big.Int, height uint64, signature []byte) error {
	if amount == nil || !e.state.Guardian.SignatureRequired(amount) {
		return nil
	}

	guardian, assigned := e.state.Guardian.GetGuardian()
	if !assigned {
		return nil
	}

	if e.verifier == nil || !e.verifier.VerifyCosignature(guardian, cosignMessage(token, amount, height), signature) {
		return code.ErrInvalidSignature
	}

	return nil
}

func cosignMessage(token types.TokenID, amount *big.Int, height uint64) []byte {
	msg := append([]byte("dividends/distribute/"), token.Bytes()...)
	msg = append(msg, amount.Bytes()...)

	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)

	return append(msg, h[:]...)
}
