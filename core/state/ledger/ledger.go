package ledger

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DividendTeam/dividend-go-engine/config"
	"github.com/DividendTeam/dividend-go-engine/core/code"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/helpers"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

const mainPrefix = byte('d')

type RLedger interface {
	// Export appends ledger entries for every token already present in
	// state.Tokens, so the registry must export first.
	Export(state *types.AppState)
	GetDistribution(token types.TokenID, id uint64) *Distribution
	Distributions(token types.TokenID) []*Distribution
	DueDistributions(token types.TokenID, height uint64) []*Distribution
	ProjectedDelta(token types.TokenID, height uint64) (*big.Int, error)
}

// Ledger is the per-token distribution journal. Scheduling validates
// policy bounds; folding moves due entries into the accumulator exactly
// once.
type Ledger struct {
	list  map[types.TokenID]*Model
	dirty map[types.TokenID]struct{}

	policy *config.Policy

	bus *bus.Bus
	db  atomic.Value

	lock sync.RWMutex
}

func NewLedger(stateBus *bus.Bus, db *iavl.ImmutableTree, policy *config.Policy) *Ledger {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	ledger := &Ledger{
		bus:    stateBus,
		db:     immutableTree,
		policy: policy,
		list:   map[types.TokenID]*Model{},
		dirty:  map[types.TokenID]struct{}{},
	}
	ledger.bus.SetLedger(NewBus(ledger))

	return ledger
}

func (l *Ledger) immutableTree() *iavl.ImmutableTree {
	db := l.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (l *Ledger) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	l.db.Store(immutableTree)
}

func (l *Ledger) Commit(db *iavl.MutableTree) error {
	dirty := l.getOrderedDirty()
	for _, id := range dirty {
		model := l.getFromMap(id)
		path := getPath(id)

		l.lock.Lock()
		delete(l.dirty, id)
		l.lock.Unlock()

		model.lock.RLock()
		data, err := rlp.EncodeToBytes(model)
		model.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode ledger of token %d: %v", id, err)
		}

		db.Set(path, data)
	}

	return nil
}

// Schedule records a future distribution. Immediate distributions go
// through TriggerImmediate instead.
func (l *Ledger) Schedule(token types.TokenID, amount *big.Int, currentHeight, scheduledHeight uint64, distributionType types.DistributionType, vestingPeriod uint64) (uint64, error) {
	if distributionType == types.DistributionImmediate {
		return 0, errors.Wrap(code.ErrInvalidHeight, "immediate distributions have no scheduled height")
	}

	if err := l.validateAmount(token, amount); err != nil {
		return 0, err
	}

	if scheduledHeight <= currentHeight {
		return 0, errors.Wrapf(code.ErrInvalidHeight, "scheduled height %d is not above current height %d", scheduledHeight, currentHeight)
	}

	if distributionType == types.DistributionVested && vestingPeriod == 0 {
		return 0, errors.Wrap(code.ErrInvalidHeight, "vesting period must be positive")
	}

	// the scheduled height must clear the creation height by more than
	// the minimum interval
	if scheduledHeight-currentHeight <= l.policy.MinDistributionInterval {
		return 0, errors.Wrapf(code.ErrDistributionTooFrequent, "scheduled height %d is within %d of creation height %d", scheduledHeight, l.policy.MinDistributionInterval, currentHeight)
	}

	model := l.getOrNew(token)

	if last := model.lastCreatedHeight(); last != 0 && currentHeight-last < l.policy.MinDistributionInterval {
		return 0, errors.Wrapf(code.ErrDistributionTooFrequent, "last distribution was created at height %d", last)
	}

	if err := l.validateRate(token, amount, scheduledHeight); err != nil {
		return 0, err
	}

	if model.pendingAt(scheduledHeight) {
		return 0, errors.Wrapf(code.ErrDistributionExists, "a pending distribution already targets height %d", scheduledHeight)
	}

	id := model.addDistribution(&Distribution{
		Amount:          new(big.Int).Set(amount),
		CreatedHeight:   currentHeight,
		ScheduledHeight: scheduledHeight,
		Type:            distributionType,
		VestingPeriod:   vestingPeriod,
	})

	l.bus.Events().AddEvent(currentHeight, &eventsdb.DistributionScheduledEvent{
		Token:           uint64(token),
		DistributionID:  id,
		Amount:          amount.String(),
		ScheduledHeight: scheduledHeight,
		VestingPeriod:   vestingPeriod,
	})

	return id, nil
}

// TriggerImmediate records and folds a distribution in one step. The
// frequency bound runs against the token's last processed distribution,
// not the last created one.
func (l *Ledger) TriggerImmediate(token types.TokenID, amount *big.Int, height uint64) (uint64, error) {
	if err := l.validateAmount(token, amount); err != nil {
		return 0, err
	}

	if last := l.bus.Registry().LastDistributionHeight(token); last != 0 && height-last < l.policy.MinDistributionInterval {
		return 0, errors.Wrapf(code.ErrDistributionTooFrequent, "last distribution was processed at height %d", last)
	}

	if err := l.validateRate(token, amount, height); err != nil {
		return 0, err
	}

	supply := l.bus.Tokens().TotalSupply(token)
	if supply == nil || supply.Sign() <= 0 {
		return 0, errors.Wrap(code.ErrNoPendingDividends, "token has no supply")
	}

	model := l.getOrNew(token)
	id := model.addDistribution(&Distribution{
		Amount:          new(big.Int).Set(amount),
		CreatedHeight:   height,
		ScheduledHeight: height,
		Type:            types.DistributionImmediate,
	})

	if err := l.foldOne(model, token, id, height, supply); err != nil {
		return 0, err
	}

	return id, nil
}

// Cancel drops a pending distribution. The entry stays in the journal,
// marked canceled.
func (l *Ledger) Cancel(token types.TokenID, id uint64, height uint64) error {
	model := l.get(token)
	if model == nil {
		return code.ErrDistributionNotFound
	}

	d := model.getDistribution(id)
	if d == nil || d.Canceled {
		return code.ErrDistributionNotFound
	}
	if d.Processed {
		return code.ErrDistributionAlreadyProcessed
	}

	model.setCanceled(id)

	l.bus.Events().AddEvent(height, &eventsdb.DistributionCanceledEvent{
		Token:          uint64(token),
		DistributionID: id,
	})

	return nil
}

// DueDistributions lists pending entries whose scheduled height has
// passed, in fold order.
func (l *Ledger) DueDistributions(token types.TokenID, height uint64) []*Distribution {
	model := l.get(token)
	if model == nil {
		return nil
	}

	model.lock.RLock()
	var due []*Distribution
	for _, d := range model.List {
		if d.isPending() && d.ScheduledHeight <= height {
			due = append(due, d)
		}
	}
	model.lock.RUnlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].ScheduledHeight != due[j].ScheduledHeight {
			return due[i].ScheduledHeight < due[j].ScheduledHeight
		}
		return due[i].ID < due[j].ID
	})

	return due
}

// FoldDue processes every due entry of the token. Folding a frozen
// token is deferred, not an error, so settled dividends stay claimable.
func (l *Ledger) FoldDue(token types.TokenID, height uint64) error {
	if l.bus.Registry().IsFrozen(token) {
		return nil
	}

	due := l.DueDistributions(token, height)
	if len(due) == 0 {
		return nil
	}

	supply := l.bus.Tokens().TotalSupply(token)
	if supply == nil || supply.Sign() <= 0 {
		return errors.Wrap(code.ErrNoPendingDividends, "token has no supply")
	}

	model := l.get(token)
	for _, d := range due {
		if err := l.foldOne(model, token, d.ID, height, supply); err != nil {
			return err
		}
	}

	return nil
}

// ProjectedDelta is the immediately claimable per-unit delta FoldDue
// would add at the given height, without mutating anything. Vested
// entries contribute nothing: at fold time their vesting has not
// started.
func (l *Ledger) ProjectedDelta(token types.TokenID, height uint64) (*big.Int, error) {
	if l.bus.Registry().IsFrozen(token) {
		return big.NewInt(0), nil
	}

	due := l.DueDistributions(token, height)

	total := big.NewInt(0)
	var supply *big.Int
	for _, d := range due {
		if d.Type == types.DistributionVested {
			continue
		}

		if supply == nil {
			supply = l.bus.Tokens().TotalSupply(token)
			if supply == nil || supply.Sign() <= 0 {
				return nil, errors.Wrap(code.ErrNoPendingDividends, "token has no supply")
			}
		}

		scaled, err := helpers.Scale(d.Amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, new(big.Int).Quo(scaled, supply))
	}

	return total, nil
}

func (l *Ledger) GetDistribution(token types.TokenID, id uint64) *Distribution {
	model := l.get(token)
	if model == nil {
		return nil
	}

	return model.getDistribution(id)
}

func (l *Ledger) Distributions(token types.TokenID) []*Distribution {
	model := l.get(token)
	if model == nil {
		return nil
	}

	model.lock.RLock()
	defer model.lock.RUnlock()

	return append(make([]*Distribution, 0, len(model.List)), model.List...)
}

// VestedDistributions lists processed vesting entries in fold order,
// for settlement math.
func (l *Ledger) VestedDistributions(token types.TokenID) []*Distribution {
	model := l.get(token)
	if model == nil {
		return nil
	}

	model.lock.RLock()
	var vested []*Distribution
	for _, d := range model.List {
		if d.Processed && d.Type == types.DistributionVested {
			vested = append(vested, d)
		}
	}
	model.lock.RUnlock()

	sort.SliceStable(vested, func(i, j int) bool {
		if vested[i].FoldHeight != vested[j].FoldHeight {
			return vested[i].FoldHeight < vested[j].FoldHeight
		}
		return vested[i].ID < vested[j].ID
	})

	return vested
}

func (l *Ledger) Export(state *types.AppState) {
	for _, t := range state.Tokens {
		token := types.TokenID(t.ID)
		model := l.get(token)
		if model == nil {
			continue
		}

		model.lock.RLock()
		for _, d := range model.List {
			entry := types.Distribution{
				Token:           uint64(token),
				ID:              d.ID,
				Amount:          d.Amount.String(),
				CreatedHeight:   d.CreatedHeight,
				ScheduledHeight: d.ScheduledHeight,
				Type:            byte(d.Type),
				VestingPeriod:   d.VestingPeriod,
				Processed:       d.Processed,
				Canceled:        d.Canceled,
				FoldHeight:      d.FoldHeight,
			}
			if d.Processed {
				entry.FoldedDelta = d.FoldedDelta.String()
				entry.CumulativeAfter = d.CumulativeAfter.String()
			}
			state.Distributions = append(state.Distributions, entry)
		}
		model.lock.RUnlock()
	}

	sort.SliceStable(state.Distributions, func(i, j int) bool {
		if state.Distributions[i].Token != state.Distributions[j].Token {
			return state.Distributions[i].Token < state.Distributions[j].Token
		}
		return state.Distributions[i].ID < state.Distributions[j].ID
	})
}

func (l *Ledger) Import(state *types.AppState) {
	for _, entry := range state.Distributions {
		token := types.TokenID(entry.Token)
		model := l.getOrNew(token)

		d := &Distribution{
			ID:              entry.ID,
			Amount:          helpers.StringToBigInt(entry.Amount),
			CreatedHeight:   entry.CreatedHeight,
			ScheduledHeight: entry.ScheduledHeight,
			Type:            types.DistributionType(entry.Type),
			VestingPeriod:   entry.VestingPeriod,
			Processed:       entry.Processed,
			Canceled:        entry.Canceled,
			FoldHeight:      entry.FoldHeight,
		}
		if entry.Processed {
			d.FoldedDelta = helpers.StringToBigInt(entry.FoldedDelta)
			d.CumulativeAfter = helpers.StringToBigInt(entry.CumulativeAfter)
		}

		model.lock.Lock()
		model.List = append(model.List, d)
		if entry.ID >= model.NextID {
			model.NextID = entry.ID + 1
		}
		model.lock.Unlock()
		l.markDirty(token)
	}
}

func (l *Ledger) validateAmount(token types.TokenID, amount *big.Int) error {
	if !l.bus.Registry().IsRegistered(token) {
		return code.ErrNotRegistered
	}
	if l.bus.Registry().IsFrozen(token) {
		return code.ErrTokenFrozen
	}
	if amount == nil || amount.Sign() <= 0 {
		return code.ErrInvalidAmount
	}
	if amount.Cmp(l.policy.MinDistributionAmount) == -1 {
		return errors.Wrapf(code.ErrBelowMinimumAmount, "minimum is %s", l.policy.MinDistributionAmount.String())
	}

	return nil
}

// validateRate bounds the scaled per-height emission rate. The
// denominator is the absolute scheduled height, or the gap since the
// last processed distribution when IntervalRelativeRateCap is set.
func (l *Ledger) validateRate(token types.TokenID, amount *big.Int, scheduledHeight uint64) error {
	scaled, err := helpers.Scale(amount)
	if err != nil {
		return err
	}

	denominator := scheduledHeight
	if l.policy.IntervalRelativeRateCap {
		denominator = scheduledHeight - l.bus.Registry().LastDistributionHeight(token)
	}
	if denominator == 0 {
		denominator = 1
	}

	rate := new(big.Int).Quo(scaled, new(big.Int).SetUint64(denominator))
	if rate.Cmp(l.policy.MaxDividendRate) == 1 {
		return errors.Wrapf(code.ErrExceedsMaxRate, "rate %s exceeds %s", rate.String(), l.policy.MaxDividendRate.String())
	}

	return nil
}

func (l *Ledger) foldOne(model *Model, token types.TokenID, id uint64, height uint64, supply *big.Int) error {
	d := model.getDistribution(id)

	scaled, err := helpers.Scale(d.Amount)
	if err != nil {
		return err
	}

	delta := new(big.Int).Quo(scaled, supply)
	cumulativeAfter := new(big.Int).Add(l.bus.Accumulator().GetPerUnit(token), delta)

	l.bus.Accumulator().AddPerUnit(token, delta)
	model.setProcessed(id, height, delta, cumulativeAfter)

	l.bus.Registry().OnDistributionProcessed(token, height, d.Amount)
	l.bus.Checker().AddDistributed(token, d.Amount)

	l.bus.Events().AddEvent(height, &eventsdb.DividendDistributedEvent{
		Token:          uint64(token),
		DistributionID: id,
		Amount:         d.Amount.String(),
		PerUnitDelta:   delta.String(),
		FoldHeight:     height,
	})

	return nil
}

func (l *Ledger) get(token types.TokenID) *Model {
	if model := l.getFromMap(token); model != nil {
		return model
	}

	_, enc := l.immutableTree().Get(getPath(token))
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode ledger of token %d: %s", token, err))
	}

	model.token = token
	model.markDirty = l.markDirty

	l.setToMap(token, model)

	return model
}

func (l *Ledger) getOrNew(token types.TokenID) *Model {
	model := l.get(token)
	if model == nil {
		model = &Model{
			NextID:    1,
			token:     token,
			markDirty: l.markDirty,
		}
		l.setToMap(token, model)
	}

	return model
}

func (l *Ledger) markDirty(token types.TokenID) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.dirty[token] = struct{}{}
}

func (l *Ledger) getOrderedDirty() []types.TokenID {
	l.lock.Lock()
	keys := make([]types.TokenID, 0, len(l.dirty))
	for k := range l.dirty {
		keys = append(keys, k)
	}
	l.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

func (l *Ledger) getFromMap(token types.TokenID) *Model {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.list[token]
}

func (l *Ledger) setToMap(token types.TokenID, model *Model) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.list[token] = model
}

func getPath(token types.TokenID) []byte {
	return append([]byte{mainPrefix}, token.Bytes()...)
}
