package guardian

import (
	"math/big"
	"testing"

	"github.com/DividendTeam/dividend-go-engine/core/code"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/cosmos/iavl"
	"github.com/pkg/errors"
	db "github.com/tendermint/tm-db"
)

type mockEvents struct {
	events []eventsdb.Event
}

func (m *mockEvents) AddEvent(height uint64, event eventsdb.Event) {
	m.events = append(m.events, event)
}

func newTestGuardian(t *testing.T) (*Guardian, *iavl.MutableTree) {
	t.Helper()

	mutable, err := iavl.NewMutableTree(db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	stateBus := bus.NewBus()
	stateBus.SetEvents(&mockEvents{})

	return NewGuardian(stateBus, mutable.ImmutableTree), mutable
}

func TestSetGuardian(t *testing.T) {
	guardian, _ := newTestGuardian(t)

	alice := types.Address{0x0a}
	bob := types.Address{0x0b}

	if _, assigned := guardian.GetGuardian(); assigned {
		t.Fatal("fresh store must have no guardian")
	}

	if err := guardian.SetGuardian(alice, alice, 1); err != nil {
		t.Fatal(err)
	}
	if current, assigned := guardian.GetGuardian(); !assigned || current != alice {
		t.Fatal("alice must be guardian")
	}

	// only the current guardian may hand over
	if err := guardian.SetGuardian(bob, bob, 2); !errors.Is(err, code.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
	if err := guardian.SetGuardian(alice, bob, 3); err != nil {
		t.Fatal(err)
	}
	if current, _ := guardian.GetGuardian(); current != bob {
		t.Fatal("bob must be guardian after handover")
	}
}

func TestShutdown(t *testing.T) {
	guardian, _ := newTestGuardian(t)

	alice := types.Address{0x0a}
	mallory := types.Address{0x0e}

	if err := guardian.SetShutdown(mallory, true, 1); !errors.Is(err, code.ErrUnauthorized) {
		t.Fatalf("unassigned guardian must reject shutdown, got %v", err)
	}

	if err := guardian.SetGuardian(alice, alice, 1); err != nil {
		t.Fatal(err)
	}
	if err := guardian.SetShutdown(mallory, true, 2); !errors.Is(err, code.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}

	if err := guardian.SetShutdown(alice, true, 2); err != nil {
		t.Fatal(err)
	}
	if !guardian.IsShutdown() {
		t.Fatal("shutdown must be active")
	}

	if err := guardian.SetShutdown(alice, false, 3); err != nil {
		t.Fatal(err)
	}
	if guardian.IsShutdown() {
		t.Fatal("shutdown must be cleared")
	}
}

func TestSignaturePolicy(t *testing.T) {
	guardian, _ := newTestGuardian(t)

	alice := types.Address{0x0a}
	if err := guardian.SetGuardian(alice, alice, 1); err != nil {
		t.Fatal(err)
	}

	if guardian.SignatureRequired(big.NewInt(1000000)) {
		t.Fatal("no policy, no signature requirement")
	}

	if err := guardian.SetSignaturePolicy(alice, true, big.NewInt(10000)); err != nil {
		t.Fatal(err)
	}

	if guardian.SignatureRequired(big.NewInt(9999)) {
		t.Fatal("below threshold must not require signature")
	}
	if !guardian.SignatureRequired(big.NewInt(10000)) {
		t.Fatal("at threshold must require signature")
	}
}

func TestCommitAndReload(t *testing.T) {
	guardian, mutable := newTestGuardian(t)

	alice := types.Address{0x0a}
	if err := guardian.SetGuardian(alice, alice, 1); err != nil {
		t.Fatal(err)
	}
	if err := guardian.SetShutdown(alice, true, 2); err != nil {
		t.Fatal(err)
	}

	if err := guardian.Commit(mutable); err != nil {
		t.Fatal(err)
	}
	_, version, err := mutable.SaveVersion()
	if err != nil {
		t.Fatal(err)
	}
	immutable, err := mutable.GetImmutable(version)
	if err != nil {
		t.Fatal(err)
	}

	stateBus := bus.NewBus()
	stateBus.SetEvents(&mockEvents{})
	reloaded := NewGuardian(stateBus, immutable)

	if current, assigned := reloaded.GetGuardian(); !assigned || current != alice {
		t.Fatal("guardian must survive reload")
	}
	if !reloaded.IsShutdown() {
		t.Fatal("shutdown flag must survive reload")
	}
}
