package registry

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DividendTeam/dividend-go-engine/core/code"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/helpers"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/rlp"
)

const mainPrefix = byte('r')
const indexPrefix = byte('i')

type RRegistry interface {
	Export(state *types.AppState)
	GetToken(token types.TokenID) *Model
	IsRegistered(token types.TokenID) bool
	IsFrozen(token types.TokenID) bool
	Count() uint32
	IsFull() bool
	ActiveTokens() []types.TokenID
}

type Registry struct {
	list  map[types.TokenID]*Model
	dirty map[types.TokenID]struct{}

	index      *indexModel
	indexDirty bool

	maxTokens uint32

	bus *bus.Bus
	db  atomic.Value

	lock sync.RWMutex
}

type indexModel struct {
	List []uint32
}

func NewRegistry(stateBus *bus.Bus, db *iavl.ImmutableTree, maxTokens uint32) *Registry {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	registry := &Registry{
		bus:       stateBus,
		db:        immutableTree,
		maxTokens: maxTokens,
		list:      map[types.TokenID]*Model{},
		dirty:     map[types.TokenID]struct{}{},
	}
	registry.bus.SetRegistry(NewBus(registry))

	return registry
}

func (r *Registry) immutableTree() *iavl.ImmutableTree {
	db := r.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (r *Registry) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	r.db.Store(immutableTree)
}

func (r *Registry) Commit(db *iavl.MutableTree) error {
	dirty := r.getOrderedDirty()
	for _, id := range dirty {
		token := r.getFromMap(id)
		path := getPath(id)

		r.lock.Lock()
		delete(r.dirty, id)
		r.lock.Unlock()

		token.lock.RLock()
		data, err := rlp.EncodeToBytes(token)
		token.lock.RUnlock()
		if err != nil {
			return fmt.Errorf("can't encode token %d: %v", id, err)
		}

		db.Set(path, data)
	}

	r.lock.Lock()
	if r.indexDirty {
		r.indexDirty = false
		data, err := rlp.EncodeToBytes(r.index)
		if err != nil {
			r.lock.Unlock()
			return fmt.Errorf("can't encode token index: %v", err)
		}
		db.Set([]byte{indexPrefix}, data)
	}
	r.lock.Unlock()

	return nil
}

// Register inserts a new token. Soft-removed ids stay occupied for
// audit and cannot be reused.
func (r *Registry) Register(token types.TokenID, height uint64) error {
	if model := r.get(token); model != nil {
		return code.ErrAlreadyRegistered
	}

	if r.IsFull() {
		return code.ErrRegistryFull
	}

	model := &Model{
		RegisteredHeight: height,
		TotalDistributed: big.NewInt(0),
		TotalPaid:        big.NewInt(0),
		id:               token,
		markDirty:        r.markDirty,
	}
	r.setToMap(token, model)
	r.markDirty(token)
	r.addToIndex(token)

	r.bus.Events().AddEvent(height, &eventsdb.TokenRegisteredEvent{
		Token:  uint64(token),
		Height: height,
	})

	return nil
}

// Remove soft-removes a token: it leaves the active set but its model
// and distribution history remain queryable.
func (r *Registry) Remove(token types.TokenID, height uint64) error {
	model := r.get(token)
	if model == nil || model.IsRemoved() {
		return code.ErrNotRegistered
	}

	model.setRemoved()

	r.bus.Events().AddEvent(height, &eventsdb.TokenRemovedEvent{
		Token: uint64(token),
	})

	return nil
}

func (r *Registry) SetFrozen(token types.TokenID, frozen bool, height uint64) error {
	model := r.get(token)
	if model == nil || model.IsRemoved() {
		return code.ErrNotRegistered
	}

	model.setFrozen(frozen)

	r.bus.Events().AddEvent(height, &eventsdb.TokenFrozenEvent{
		Token:  uint64(token),
		Frozen: frozen,
	})

	return nil
}

func (r *Registry) GetToken(token types.TokenID) *Model {
	return r.get(token)
}

func (r *Registry) IsRegistered(token types.TokenID) bool {
	model := r.get(token)
	return model != nil && !model.IsRemoved()
}

func (r *Registry) IsFrozen(token types.TokenID) bool {
	model := r.get(token)
	return model != nil && !model.IsRemoved() && model.IsFrozen()
}

func (r *Registry) Count() uint32 {
	var count uint32
	for _, id := range r.knownTokens() {
		if model := r.get(id); model != nil && !model.IsRemoved() {
			count++
		}
	}

	return count
}

func (r *Registry) IsFull() bool {
	return r.Count() >= r.maxTokens
}

// ActiveTokens returns registered, non-removed token ids in ascending
// order.
func (r *Registry) ActiveTokens() []types.TokenID {
	var active []types.TokenID
	for _, id := range r.knownTokens() {
		if model := r.get(id); model != nil && !model.IsRemoved() {
			active = append(active, id)
		}
	}

	return active
}

func (r *Registry) LastDistributionHeight(token types.TokenID) uint64 {
	model := r.get(token)
	if model == nil {
		return 0
	}

	return model.GetLastDistributionHeight()
}

func (r *Registry) OnDistributionProcessed(token types.TokenID, height uint64, amount *big.Int) {
	model := r.get(token)
	if model == nil {
		panic(fmt.Sprintf("distribution processed for unknown token %d", token))
	}

	model.addDistributed(height, amount)
}

func (r *Registry) OnDividendsPaid(token types.TokenID, amount *big.Int) {
	model := r.get(token)
	if model == nil {
		panic(fmt.Sprintf("dividends paid for unknown token %d", token))
	}

	model.addPaid(amount)
}

func (r *Registry) DistributionTotals(token types.TokenID) (*big.Int, *big.Int) {
	model := r.get(token)
	if model == nil {
		return big.NewInt(0), big.NewInt(0)
	}

	return model.GetTotalDistributed(), model.GetTotalPaid()
}

func (r *Registry) Export(state *types.AppState) {
	for _, id := range r.knownTokens() {
		model := r.get(id)
		if model == nil {
			continue
		}

		state.Tokens = append(state.Tokens, types.Token{
			ID:                     uint64(id),
			RegisteredHeight:       model.GetRegisteredHeight(),
			Frozen:                 model.IsFrozen(),
			Removed:                model.IsRemoved(),
			LastDistributionHeight: model.GetLastDistributionHeight(),
			TotalDistributed:       model.GetTotalDistributed().String(),
			TotalPaid:              model.GetTotalPaid().String(),
		})
	}

	sort.SliceStable(state.Tokens, func(i, j int) bool {
		return state.Tokens[i].ID < state.Tokens[j].ID
	})
}

func (r *Registry) Import(state *types.AppState) {
	for _, t := range state.Tokens {
		token := types.TokenID(t.ID)
		model := &Model{
			RegisteredHeight:       t.RegisteredHeight,
			Frozen:                 t.Frozen,
			Removed:                t.Removed,
			LastDistributionHeight: t.LastDistributionHeight,
			TotalDistributed:       helpers.StringToBigInt(t.TotalDistributed),
			TotalPaid:              helpers.StringToBigInt(t.TotalPaid),
			id:                     token,
			markDirty:              r.markDirty,
		}
		r.setToMap(token, model)
		r.markDirty(token)
		r.addToIndex(token)
	}
}

func (r *Registry) get(token types.TokenID) *Model {
	if model := r.getFromMap(token); model != nil {
		return model
	}

	_, enc := r.immutableTree().Get(getPath(token))
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode token %d: %s", token, err))
	}

	model.id = token
	model.markDirty = r.markDirty

	r.setToMap(token, model)

	return model
}

// knownTokens is every id the registry has ever seen, removed included.
func (r *Registry) knownTokens() []types.TokenID {
	index := r.getIndex()

	ids := make([]types.TokenID, 0, len(index.List))
	for _, id := range index.List {
		ids = append(ids, types.TokenID(id))
	}

	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return ids
}

func (r *Registry) getIndex() *indexModel {
	r.lock.RLock()
	index := r.index
	r.lock.RUnlock()

	if index != nil {
		return index
	}

	index = &indexModel{}
	_, enc := r.immutableTree().Get([]byte{indexPrefix})
	if len(enc) != 0 {
		if err := rlp.DecodeBytes(enc, index); err != nil {
			panic(fmt.Sprintf("failed to decode token index: %s", err))
		}
	}

	r.lock.Lock()
	r.index = index
	r.lock.Unlock()

	return index
}

func (r *Registry) addToIndex(token types.TokenID) {
	index := r.getIndex()

	r.lock.Lock()
	defer r.lock.Unlock()

	for _, id := range index.List {
		if id == uint32(token) {
			return
		}
	}

	index.List = append(index.List, uint32(token))
	r.indexDirty = true
}

func (r *Registry) markDirty(token types.TokenID) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.dirty[token] = struct{}{}
}

func (r *Registry) getOrderedDirty() []types.TokenID {
	r.lock.Lock()
	keys := make([]types.TokenID, 0, len(r.dirty))
	for k := range r.dirty {
		keys = append(keys, k)
	}
	r.lock.Unlock()

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}

func (r *Registry) getFromMap(token types.TokenID) *Model {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.list[token]
}

func (r *Registry) setToMap(token types.TokenID, model *Model) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.list[token] = model
}

func getPath(token types.TokenID) []byte {
	return append([]byte{mainPrefix}, token.Bytes()...)
}
