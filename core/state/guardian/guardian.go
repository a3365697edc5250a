package guardian

import (
	"fmt"
	"math/big"
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

const mainPrefix = byte('g')

type RGuardian interface {
	Export(state *types.AppState)
	GetGuardian() (types.Address, bool)
	IsShutdown() bool
	SignatureRequired(amount *big.Int) bool
}

// Guardian is the emergency-control store. Until a guardian is
// assigned, authority checks pass for the deployer only; that gate
// lives in the engine facade.
type Guardian struct {
	model   *Model
	isDirty bool

	bus *bus.Bus
	db  atomic.Value

	lock sync.RWMutex
}

func NewGuardian(stateBus *bus.Bus, db *iavl.ImmutableTree) *Guardian {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	guardian := &Guardian{
		bus: stateBus,
		db:  immutableTree,
	}
	guardian.bus.SetGuardian(NewBus(guardian))

	return guardian
}

func (g *Guardian) immutableTree() *iavl.ImmutableTree {
	db := g.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (g *Guardian) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	g.db.Store(immutableTree)
}

func (g *Guardian) Commit(db *iavl.MutableTree) error {
	g.lock.Lock()
	dirty := g.isDirty
	g.isDirty = false
	model := g.model
	g.lock.Unlock()

	if !dirty {
		return nil
	}

	model.lock.RLock()
	data, err := rlp.EncodeToBytes(model)
	model.lock.RUnlock()
	if err != nil {
		return fmt.Errorf("can't encode guardian: %v", err)
	}

	db.Set([]byte{mainPrefix}, data)

	return nil
}

// SetGuardian transfers guardianship. Only the current guardian may
// hand it over; the first assignment is authorized by the engine.
func (g *Guardian) SetGuardian(caller, guardian types.Address, height uint64) error {
	model := g.getOrNew()

	if current, assigned := model.getGuardian(); assigned && current.Compare(caller) != 0 {
		return code.ErrUnauthorized
	}

	model.setGuardian(guardian)

	g.bus.Events().AddEvent(height, &eventsdb.GuardianChangedEvent{
		Guardian: guardian,
	})

	return nil
}

func (g *Guardian) SetShutdown(caller types.Address, active bool, height uint64) error {
	model := g.getOrNew()

	current, assigned := model.getGuardian()
	if !assigned || current.Compare(caller) != 0 {
		return code.ErrUnauthorized
	}

	model.setShutdown(active)

	g.bus.Events().AddEvent(height, &eventsdb.EmergencyShutdownEvent{
		Active: active,
	})

	return nil
}

func (g *Guardian) SetSignaturePolicy(caller types.Address, require bool, threshold *big.Int) error {
	model := g.getOrNew()

	current, assigned := model.getGuardian()
	if !assigned || current.Compare(caller) != 0 {
		return code.ErrUnauthorized
	}

	model.setSignaturePolicy(require, threshold)

	return nil
}

func (g *Guardian) GetGuardian() (types.Address, bool) {
	model := g.get()
	if model == nil {
		return types.Address{}, false
	}

	return model.getGuardian()
}

func (g *Guardian) IsShutdown() bool {
	model := g.get()
	if model == nil {
		return false
	}

	return model.isShutdown()
}

func (g *Guardian) SignatureRequired(amount *big.Int) bool {
	model := g.get()
	if model == nil {
		return false
	}

	return model.signatureRequired(amount)
}

func (g *Guardian) Export(state *types.AppState) {
	model := g.get()
	if model == nil {
		return
	}

	guardian, assigned := model.getGuardian()

	model.lock.RLock()
	exported := &types.Guardian{
		Guardian:          guardian,
		Assigned:          assigned,
		EmergencyShutdown: model.EmergencyShutdown,
		RequireSignature:  model.RequireSignature,
	}
	if model.SignatureThreshold != nil {
		exported.SignatureThreshold = model.SignatureThreshold.String()
	}
	model.lock.RUnlock()

	state.Guardian = exported
}

func (g *Guardian) Import(state *types.AppState) {
	if state.Guardian == nil {
		return
	}

	model := g.getOrNew()

	model.lock.Lock()
	model.Guardian = state.Guardian.Guardian
	model.Assigned = state.Guardian.Assigned
	model.EmergencyShutdown = state.Guardian.EmergencyShutdown
	model.RequireSignature = state.Guardian.RequireSignature
	if state.Guardian.SignatureThreshold != "" {
		model.SignatureThreshold = helpers.StringToBigInt(state.Guardian.SignatureThreshold)
	}
	model.lock.Unlock()

	g.markDirty()
}

func (g *Guardian) get() *Model {
	g.lock.RLock()
	model := g.model
	g.lock.RUnlock()

	if model != nil {
		return model
	}

	_, enc := g.immutableTree().Get([]byte{mainPrefix})
	if len(enc) == 0 {
		return nil
	}

	model = &Model{}
	if err := rlp.DecodeBytes(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode guardian: %s", err))
	}

	model.markDirty = g.markDirty

	g.lock.Lock()
	g.model = model
	g.lock.Unlock()

	return model
}

func (g *Guardian) getOrNew() *Model {
	model := g.get()
	if model == nil {
		model = &Model{
			markDirty: g.markDirty,
		}

		g.lock.Lock()
		g.model = model
		g.lock.Unlock()
	}

	return model
}

func (g *Guardian) markDirty() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.isDirty = true
}
