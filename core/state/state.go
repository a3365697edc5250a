package state

import (
	"github.com/DividendTeam/dividend-go-engine/config"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state/accumulator"
	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/state/checker"
	"github.com/DividendTeam/dividend-go-engine/core/state/claims"
	"github.com/DividendTeam/dividend-go-engine/core/state/guardian"
	"github.com/DividendTeam/dividend-go-engine/core/state/ledger"
	"github.com/DividendTeam/dividend-go-engine/core/state/registry"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/DividendTeam/dividend-go-engine/tree"
	"github.com/cosmos/iavl"
	db "github.com/tendermint/tm-db"
)

// CheckState is the read-only capability surface over a State. It hands
// out the R* interfaces only, so hosts can serve queries without any
// chance of mutation.
type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) Registry() registry.RRegistry {
	return cs.state.Registry
}

func (cs *CheckState) Ledger() ledger.RLedger {
	return cs.state.Ledger
}

func (cs *CheckState) Accumulator() accumulator.RAccumulator {
	return cs.state.Accumulator
}

func (cs *CheckState) Claims() claims.RClaims {
	return cs.state.Claims
}

func (cs *CheckState) Guardian() guardian.RGuardian {
	return cs.state.Guardian
}

func (cs *CheckState) Export() types.AppState {
	return cs.state.Export()
}

// State aggregates every sub-store over one IAVL tree. All stores share
// a bus for cross-store calls and flush into the same versioned commit.
type State struct {
	Registry    *registry.Registry
	Ledger      *ledger.Ledger
	Accumulator *accumulator.Accumulator
	Claims      *claims.Claims
	Guardian    *guardian.Guardian
	Checker     *checker.Checker

	db             db.DB
	events         eventsdb.IEventsDB
	tree           tree.MTree
	keepLastStates int64
	policy         *config.Policy

	bus *bus.Bus
}

func NewState(height uint64, db db.DB, events eventsdb.IEventsDB, tokens bus.Tokens, policy *config.Policy, cacheSize int, keepLastStates int64, initialVersion uint64) (*State, error) {
	iavlTree, err := tree.NewMutableTree(height, db, cacheSize, initialVersion)
	if err != nil {
		return nil, err
	}

	state := newStateForTree(iavlTree.GetLastImmutable(), events, tokens, policy)
	state.tree = iavlTree
	state.db = db
	state.keepLastStates = keepLastStates

	state.Checker.Reset()

	return state, nil
}

// NewCheckStateAtHeight opens a saved version for read-only use.
func NewCheckStateAtHeight(height uint64, db db.DB) (*CheckState, error) {
	immutable, err := tree.NewImmutableTree(height, db)
	if err != nil {
		return nil, err
	}

	state := newStateForTree(immutable, nil, nil, nil)
	state.db = db

	return NewCheckState(state), nil
}

func newStateForTree(immutable *iavl.ImmutableTree, events eventsdb.IEventsDB, tokens bus.Tokens, policy *config.Policy) *State {
	if policy == nil {
		policy = config.DefaultPolicy()
	}

	stateBus := bus.NewBus()
	stateBus.SetEvents(events)
	stateBus.SetTokens(tokens)

	return &State{
		Registry:    registry.NewRegistry(stateBus, immutable, policy.MaxRegisteredTokens),
		Ledger:      ledger.NewLedger(stateBus, immutable, policy),
		Accumulator: accumulator.NewAccumulator(stateBus, immutable),
		Claims:      claims.NewClaims(stateBus, immutable, policy),
		Guardian:    guardian.NewGuardian(stateBus, immutable),
		Checker:     checker.NewChecker(stateBus),

		events: events,
		policy: policy,
		bus:    stateBus,
	}
}

// Rollback discards every uncommitted mutation by rebuilding the
// sub-stores from the last committed version. The tree itself is
// untouched; dirty models only live in the stores.
func (s *State) Rollback() {
	fresh := newStateForTree(s.tree.GetLastImmutable(), s.events, s.bus.Tokens(), s.policy)

	s.Registry = fresh.Registry
	s.Ledger = fresh.Ledger
	s.Accumulator = fresh.Accumulator
	s.Claims = fresh.Claims
	s.Guardian = fresh.Guardian
	s.Checker = fresh.Checker
	s.bus = fresh.bus
}

func (s *State) Bus() *bus.Bus {
	return s.bus
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Height() uint64 {
	return uint64(s.tree.Version())
}

// Check verifies the conservation invariant over every token touched
// since the last commit.
func (s *State) Check() error {
	return s.Checker.Check()
}

// Commit verifies invariants, flushes every store into a new tree
// version and prunes versions beyond the retention window.
func (s *State) Commit() ([]byte, error) {
	if err := s.Checker.Check(); err != nil {
		return nil, err
	}
	s.Checker.Reset()

	hash, version, err := s.tree.Commit(
		s.Registry,
		s.Ledger,
		s.Accumulator,
		s.Claims,
		s.Guardian,
	)
	if err != nil {
		return hash, err
	}

	if s.keepLastStates > 0 && version-s.keepLastStates > 0 {
		if err := s.tree.DeleteVersionIfExists(version - s.keepLastStates); err != nil {
			return hash, err
		}
	}

	return hash, nil
}

func (s *State) Import(appState types.AppState) error {
	if err := appState.Verify(); err != nil {
		return err
	}

	s.Registry.Import(&appState)
	s.Ledger.Import(&appState)
	s.Accumulator.Import(&appState)
	s.Claims.Import(&appState)
	s.Guardian.Import(&appState)

	return nil
}

// Export snapshots the full engine state. The registry exports first
// because the ledger walks the exported token list.
func (s *State) Export() types.AppState {
	appState := types.AppState{}

	s.Registry.Export(&appState)
	s.Ledger.Export(&appState)
	s.Accumulator.Export(&appState)
	s.Claims.Export(&appState)
	s.Guardian.Export(&appState)

	return appState
}
