package accumulator

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/helpers"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"
)

const mainPrefix = byte('u')

type RAccumulator interface {
	Export(state *types.AppState)
	GetPerUnit(token types.TokenID) *big.Int
}

// Accumulator keeps one monotonically growing dividends-per-unit
// counter per token. Folding a distribution adds its scaled delta;
// nothing ever subtracts.
type Accumulator struct {
	list  map[types.TokenID]*Model
	dirty map[types.TokenID]struct{}

	bus *bus.Bus
	db  atomic.Value

	lock sync.RWMutex
}

func NewAccumulator(stateBus *bus.Bus, db *iavl.ImmutableTree) *Accumulator {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	accumulator := &Accumulator{
		bus:   stateBus,
		db:    immutableTree,
		list:  map[types.TokenID]*Model{},
		dirty: map[types.TokenID]struct{}{},
	}
	accumulator.bus.SetAccumulator(NewBus(accumulator))

	return accumulator
}

func (a *Accumulator) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *Accumulator) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *Accumulator) Commit(db *iavl.MutableTree) error {
	dirty := a.getOrderedDirty()
	for _, id := range dirty {
		model := a.getFromMap(id)
		path := getPath(id)

		a.lock.Lock()
		delete(a.dirty, id)
		a.lock.Unlock()

		model.lock.RLock()
		data, err := rlp.EncodeToBytes(model)
		model.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode accumulator of token %d: %v", id, err)
		}

		db.Set(path, data)
	}

	return nil
}

func (a *Accumulator) GetPerUnit(token types.TokenID) *big.Int {
	model := a.get(token)
	if model == nil {
		return big.NewInt(0)
	}

	return model.GetPerUnit()
}

func (a *Accumulator) AddPerUnit(token types.TokenID, delta *big.Int) {
	if delta.Sign() < 0 {
		panic(fmt.Sprintf("negative per-unit delta %s for token %d", delta.String(), token))
	}

	model := a.getOrNew(token)
	model.addPerUnit(delta)
}

func (a *Accumulator) Export(state *types.AppState) {
	a.lock.RLock()
	ids := make([]types.TokenID, 0, len(a.list))
	for id := range a.list {
		ids = append(ids, id)
	}
	a.lock.RUnlock()

	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		model := a.get(id)
		if model == nil {
			continue
		}

		state.Accumulators = append(state.Accumulators, types.Accumulator{
			Token:             uint64(id),
			CumulativePerUnit: model.GetPerUnit().String(),
		})
	}
}

func (a *Accumulator) Import(state *types.AppState) {
	for _, acc := range state.Accumulators {
		token := types.TokenID(acc.Token)
		model := &Model{
			CumulativePerUnit: helpers.StringToBigInt(acc.CumulativePerUnit),
			token:             token,
			markDirty:         a.markDirty,
		}
		a.setToMap(token, model)
		a.markDirty(token)
	}
}

func (a *Accumulator) get(token types.TokenID) *Model {
	if model := a.getFromMap(token); model != nil {
		return model
	}

	_, enc := a.immutableTree().Get(getPath(token))
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode accumulator of token %d: %s", token, err))
	}

	model.token = token
	model.markDirty = a.markDirty

	a.setToMap(token, model)

	return model
}

func (a *Accumulator) getOrNew(token types.TokenID) *Model {
	model := a.get(token)
	if model == nil {
		model = &Model{
			CumulativePerUnit: big.NewInt(0),
			token:             token,
			markDirty:         a.markDirty,
		}
		a.setToMap(token, model)
		a.markDirty(token)
	}

	return model
}

func (a *Accumulator) markDirty(token types.TokenID) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.dirty[token] = struct{}{}
}

func (a *Accumulator) getOrderedDirty() []types.TokenID {
	a.lock.Lock()
	keys := make([]types.TokenID, 0, len(a.dirty))
	for k := range a.dirty {
		keys = append(keys, k)
	}
	a.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

func (a *Accumulator) getFromMap(token types.TokenID) *Model {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.list[token]
}

func (a *Accumulator) setToMap(token types.TokenID, model *Model) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.list[token] = model
}

func getPath(token types.TokenID) []byte {
	return append([]byte{mainPrefix}, token.Bytes()...)
}
