package claims

import (
	"bytes"
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

const mainPrefix = byte('c')
const indexPrefix = byte('x')

type RClaims interface {
	Export(state *types.AppState)
	GetCheckpoint(holder types.Address, token types.TokenID) *Checkpoint
	Pending(holder types.Address, token types.TokenID, height uint64) (*big.Int, error)
	ValidateClaim(holder types.Address, token types.TokenID, height uint64) error
}

// Claims is the settlement engine. Each holder carries one checkpoint
// per token, a scaled position on the token's accumulator number line;
// claiming pays out the gap between the line's head and the checkpoint,
// net of unvested remainders, and advances the checkpoint.
type Claims struct {
	list  map[types.Address]*Model
	dirty map[types.Address]struct{}

	index      *indexModel
	indexDirty bool

	policy *config.Policy

	bus *bus.Bus
	db  atomic.Value

	lock sync.RWMutex
}

type indexModel struct {
	List []types.Address
}

func NewClaims(stateBus *bus.Bus, db *iavl.ImmutableTree, policy *config.Policy) *Claims {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Claims{
		bus:    stateBus,
		db:     immutableTree,
		policy: policy,
		list:   map[types.Address]*Model{},
		dirty:  map[types.Address]struct{}{},
	}
}

func (c *Claims) immutableTree() *iavl.ImmutableTree {
	db := c.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (c *Claims) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	c.db.Store(immutableTree)
}

func (c *Claims) Commit(db *iavl.MutableTree) error {
	dirty := c.getOrderedDirty()
	for _, holder := range dirty {
		model := c.getFromMap(holder)
		path := getPath(holder)

		c.lock.Lock()
		delete(c.dirty, holder)
		c.lock.Unlock()

		model.lock.RLock()
		data, err := rlp.EncodeToBytes(model)
		model.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode claims of %s: %v", holder.String(), err)
		}

		db.Set(path, data)
	}

	c.lock.Lock()
	if c.indexDirty {
		c.indexDirty = false
		data, err := rlp.EncodeToBytes(c.index)
		if err != nil {
			c.lock.Unlock()
			return fmt.Errorf("can't encode holder index: %v", err)
		}
		db.Set([]byte{indexPrefix}, data)
	}
	c.lock.Unlock()

	return nil
}

// Claim settles every claimable dividend of the holder on one token.
// Due distributions fold lazily first; the transfer runs before any
// checkpoint mutation, so a failed transfer leaves no trace.
func (c *Claims) Claim(holder types.Address, token types.TokenID, height uint64) (*big.Int, error) {
	if !c.bus.Registry().IsRegistered(token) {
		return nil, code.ErrNotRegistered
	}

	model := c.getOrNew(holder)
	if err := c.checkPolicy(model, token, height); err != nil {
		return nil, err
	}

	if err := c.bus.Ledger().FoldDue(token, height); err != nil {
		return nil, err
	}

	target := c.settleTarget(token, height)
	checkpoint := model.getOrNewCheckpoint(token)

	owedPerUnit := new(big.Int).Sub(target, model.settledPlusSpecifics(checkpoint))
	if owedPerUnit.Sign() <= 0 {
		return nil, code.ErrNoPendingDividends
	}

	amount, err := c.payout(holder, token, owedPerUnit)
	if err != nil {
		return nil, err
	}

	model.settleTo(checkpoint, target)
	c.finishClaim(model, checkpoint, holder, token, amount, height)

	return amount, nil
}

// ClaimSpecific settles the holder's share of a single processed
// distribution, limited to its vested portion. The claim is recorded so
// a later general claim cannot pay the same region twice.
func (c *Claims) ClaimSpecific(holder types.Address, token types.TokenID, distributionID uint64, height uint64) (*big.Int, error) {
	if !c.bus.Registry().IsRegistered(token) {
		return nil, code.ErrNotRegistered
	}

	model := c.getOrNew(holder)
	if err := c.checkPolicy(model, token, height); err != nil {
		return nil, err
	}

	if err := c.bus.Ledger().FoldDue(token, height); err != nil {
		return nil, err
	}

	distribution := c.bus.Ledger().Distribution(token, distributionID)
	if distribution == nil {
		return nil, code.ErrDistributionNotFound
	}
	if !distribution.Processed {
		return nil, errors.Wrap(code.ErrNoPendingDividends, "distribution is not processed")
	}

	checkpoint := model.getOrNewCheckpoint(token)

	segmentLow := new(big.Int).Sub(distribution.CumulativeAfter, distribution.FoldedDelta)
	vested := new(big.Int).Sub(distribution.FoldedDelta, unvestedOf(distribution, height))
	vestedHigh := new(big.Int).Add(segmentLow, vested)

	low := model.lastSettled(checkpoint)
	if segmentLow.Cmp(low) == 1 {
		low = segmentLow
	}

	availablePerUnit := new(big.Int).Sub(vestedHigh, low)
	availablePerUnit.Sub(availablePerUnit, model.specificClaimed(checkpoint, distributionID))
	if availablePerUnit.Sign() <= 0 {
		return nil, code.ErrNoPendingDividends
	}

	amount, err := c.payout(holder, token, availablePerUnit)
	if err != nil {
		return nil, err
	}

	model.addSpecific(checkpoint, distributionID, availablePerUnit)
	c.finishClaim(model, checkpoint, holder, token, amount, height)

	return amount, nil
}

// Pending is the amount a claim would pay right now, projection of
// unfolded due distributions included. It never mutates state.
func (c *Claims) Pending(holder types.Address, token types.TokenID, height uint64) (*big.Int, error) {
	balance := c.bus.Tokens().BalanceOf(token, holder)
	if balance == nil || balance.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	owedPerUnit := new(big.Int).Set(c.settleTarget(token, height))

	model := c.get(holder)
	if model != nil {
		if checkpoint := model.checkpoint(token); checkpoint != nil {
			owedPerUnit.Sub(owedPerUnit, model.settledPlusSpecifics(checkpoint))
		}
	}

	projected, err := c.bus.Ledger().ProjectedDelta(token, height)
	if err != nil {
		return nil, err
	}
	owedPerUnit.Add(owedPerUnit, projected)

	if owedPerUnit.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	return helpers.Unscale(new(big.Int).Mul(owedPerUnit, balance)), nil
}

// ValidateClaim reports whether a general claim would succeed, without
// executing it.
func (c *Claims) ValidateClaim(holder types.Address, token types.TokenID, height uint64) error {
	if !c.bus.Registry().IsRegistered(token) {
		return code.ErrNotRegistered
	}

	if model := c.get(holder); model != nil {
		if err := c.checkPolicy(model, token, height); err != nil {
			return err
		}
	}

	pending, err := c.Pending(holder, token, height)
	if err != nil {
		return err
	}
	if pending.Sign() <= 0 {
		return code.ErrNoPendingDividends
	}

	return nil
}

// ResetRateLimit clears the holder's rate-limit window. Cooldowns stay.
func (c *Claims) ResetRateLimit(holder types.Address) {
	model := c.get(holder)
	if model == nil {
		return
	}

	model.resetRateLimit()
}

func (c *Claims) GetCheckpoint(holder types.Address, token types.TokenID) *Checkpoint {
	model := c.get(holder)
	if model == nil {
		return nil
	}

	return model.checkpoint(token)
}

func (c *Claims) Export(state *types.AppState) {
	for _, holder := range c.holders() {
		model := c.get(holder)
		if model == nil {
			continue
		}

		model.lock.RLock()
		for _, checkpoint := range model.List {
			entry := types.Checkpoint{
				Holder:          holder,
				Token:           uint64(checkpoint.Token),
				LastSettled:     checkpoint.LastSettled.String(),
				LastClaimHeight: checkpoint.LastClaimHeight,
			}
			for _, sc := range checkpoint.Specifics {
				entry.Specifics = append(entry.Specifics, types.SpecificClaim{
					DistributionID: sc.DistributionID,
					Claimed:        sc.Claimed.String(),
				})
			}
			state.Checkpoints = append(state.Checkpoints, entry)
		}
		model.lock.RUnlock()
	}

	sort.SliceStable(state.Checkpoints, func(i, j int) bool {
		cmp := bytes.Compare(state.Checkpoints[i].Holder.Bytes(), state.Checkpoints[j].Holder.Bytes())
		if cmp != 0 {
			return cmp == -1
		}
		return state.Checkpoints[i].Token < state.Checkpoints[j].Token
	})
}

func (c *Claims) Import(state *types.AppState) {
	for _, entry := range state.Checkpoints {
		model := c.getOrNew(entry.Holder)

		checkpoint := &Checkpoint{
			Token:           types.TokenID(entry.Token),
			LastSettled:     helpers.StringToBigInt(entry.LastSettled),
			LastClaimHeight: entry.LastClaimHeight,
		}
		for _, sc := range entry.Specifics {
			checkpoint.Specifics = append(checkpoint.Specifics, &SpecificClaim{
				DistributionID: sc.DistributionID,
				Claimed:        helpers.StringToBigInt(sc.Claimed),
			})
		}

		model.lock.Lock()
		model.List = append(model.List, checkpoint)
		model.lock.Unlock()
		c.markDirty(entry.Holder)
		c.addToIndex(entry.Holder)
	}
}

// settleTarget is the per-unit prefix a general claim may advance to:
// the accumulator head minus every unvested remainder.
func (c *Claims) settleTarget(token types.TokenID, height uint64) *big.Int {
	target := c.bus.Accumulator().GetPerUnit(token)

	for _, d := range c.bus.Ledger().VestedDistributions(token) {
		target.Sub(target, unvestedOf(d, height))
	}

	return target
}

// unvestedOf is the scaled per-unit remainder of a processed
// distribution that has not vested yet. Vesting runs linearly from the
// fold height; the vested part truncates, so the remainder absorbs the
// rounding.
func unvestedOf(d *bus.Distribution, height uint64) *big.Int {
	if d.Type != types.DistributionVested || d.VestingPeriod == 0 {
		return big.NewInt(0)
	}
	if height >= d.FoldHeight+d.VestingPeriod {
		return big.NewInt(0)
	}

	elapsed := new(big.Int).SetUint64(height - d.FoldHeight)
	vested := new(big.Int).Mul(d.FoldedDelta, elapsed)
	vested.Quo(vested, new(big.Int).SetUint64(d.VestingPeriod))

	return new(big.Int).Sub(d.FoldedDelta, vested)
}

func (c *Claims) checkPolicy(model *Model, token types.TokenID, height uint64) error {
	if last := model.lastClaimHeight(token); last != 0 && height-last < c.policy.ClaimCooldownPeriod {
		return errors.Wrapf(code.ErrCooldownActive, "last claim was at height %d", last)
	}

	if model.claimsInWindow(height, c.policy.RateLimitWindow) >= c.policy.RateLimitMaxClaims {
		return errors.Wrapf(code.ErrRateLimitExceeded, "limit is %d claims per %d blocks", c.policy.RateLimitMaxClaims, c.policy.RateLimitWindow)
	}

	return nil
}

// payout converts a per-unit entitlement into raw units and transfers
// them. The truncated residue stays on the accumulator as dust.
func (c *Claims) payout(holder types.Address, token types.TokenID, perUnit *big.Int) (*big.Int, error) {
	balance := c.bus.Tokens().BalanceOf(token, holder)
	if balance == nil || balance.Sign() <= 0 {
		return nil, code.ErrNoPendingDividends
	}

	amount := helpers.Unscale(new(big.Int).Mul(perUnit, balance))
	if amount.Sign() <= 0 {
		return nil, code.ErrNoPendingDividends
	}

	if err := c.bus.Tokens().Transfer(token, holder, amount); err != nil {
		return nil, errors.Wrapf(code.ErrSystemFailure, "dividend transfer failed: %v", err)
	}

	return amount, nil
}

func (c *Claims) finishClaim(model *Model, checkpoint *Checkpoint, holder types.Address, token types.TokenID, amount *big.Int, height uint64) {
	model.recordClaim(checkpoint, height, c.policy.RateLimitWindow)
	c.addToIndex(holder)

	c.bus.Registry().OnDividendsPaid(token, amount)
	c.bus.Checker().AddPaid(token, amount)

	c.bus.Events().AddEvent(height, &eventsdb.DividendClaimEvent{
		Holder: holder,
		Token:  uint64(token),
		Amount: amount.String(),
		Height: height,
	})
}

func (c *Claims) get(holder types.Address) *Model {
	if model := c.getFromMap(holder); model != nil {
		return model
	}

	_, enc := c.immutableTree().Get(getPath(holder))
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode claims of %s: %s", holder.String(), err))
	}

	model.holder = holder
	model.markDirty = c.markDirty

	c.setToMap(holder, model)

	return model
}

func (c *Claims) getOrNew(holder types.Address) *Model {
	model := c.get(holder)
	if model == nil {
		model = &Model{
			holder:    holder,
			markDirty: c.markDirty,
		}
		c.setToMap(holder, model)
	}

	return model
}

func (c *Claims) holders() []types.Address {
	index := c.getIndex()

	c.lock.RLock()
	holders := append(make([]types.Address, 0, len(index.List)), index.List...)
	c.lock.RUnlock()

	sort.SliceStable(holders, func(i, j int) bool {
		return bytes.Compare(holders[i].Bytes(), holders[j].Bytes()) == -1
	})

	return holders
}

func (c *Claims) getIndex() *indexModel {
	c.lock.RLock()
	index := c.index
	c.lock.RUnlock()

	if index != nil {
		return index
	}

	index = &indexModel{}
	_, enc := c.immutableTree().Get([]byte{indexPrefix})
	if len(enc) != 0 {
		if err := rlp.DecodeBytes(enc, index); err != nil {
			panic(fmt.Sprintf("failed to decode holder index: %s", err))
		}
	}

	c.lock.Lock()
	c.index = index
	c.lock.Unlock()

	return index
}

func (c *Claims) addToIndex(holder types.Address) {
	index := c.getIndex()

	c.lock.Lock()
	defer c.lock.Unlock()

	for _, known := range index.List {
		if known == holder {
			return
		}
	}

	index.List = append(index.List, holder)
	c.indexDirty = true
}

func (c *Claims) markDirty(holder types.Address) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.dirty[holder] = struct{}{}
}

func (c *Claims) getOrderedDirty() []types.Address {
	c.lock.Lock()
	keys := make([]types.Address, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	c.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) == -1
	})

	return keys
}

func (c *Claims) getFromMap(holder types.Address) *Model {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.list[holder]
}

func (c *Claims) setToMap(holder types.Address, model *Model) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.list[holder] = model
}

func getPath(holder types.Address) []byte {
	return append([]byte{mainPrefix}, holder.Bytes()...)
}
