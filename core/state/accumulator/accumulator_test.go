package accumulator

import (
	"math/big"
	"testing"

	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
	"github.com/cosmos/iavl"
	db "github.com/tendermint/tm-db"
)

func newTestAccumulator(t *testing.T) (*Accumulator, *iavl.MutableTree) {
	t.Helper()

	mutable, err := iavl.NewMutableTree(db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	return NewAccumulator(bus.NewBus(), mutable.ImmutableTree), mutable
}

func TestAddPerUnit(t *testing.T) {
	accumulator, _ := newTestAccumulator(t)

	token := types.TokenID(1)
	if accumulator.GetPerUnit(token).Sign() != 0 {
		t.Fatal("fresh token must start at zero")
	}

	accumulator.AddPerUnit(token, big.NewInt(1000000))
	accumulator.AddPerUnit(token, big.NewInt(500000))

	if got := accumulator.GetPerUnit(token); got.Cmp(big.NewInt(1500000)) != 0 {
		t.Fatalf("want 1500000, got %s", got.String())
	}
}

func TestAddPerUnitNegativePanics(t *testing.T) {
	accumulator, _ := newTestAccumulator(t)

	defer func() {
		if recover() == nil {
			t.Fatal("negative delta must panic")
		}
	}()

	accumulator.AddPerUnit(types.TokenID(1), big.NewInt(-1))
}

func TestCommitAndReload(t *testing.T) {
	accumulator, mutable := newTestAccumulator(t)

	accumulator.AddPerUnit(types.TokenID(3), big.NewInt(777))

	if err := accumulator.Commit(mutable); err != nil {
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

	reloaded := NewAccumulator(bus.NewBus(), immutable)
	if got := reloaded.GetPerUnit(types.TokenID(3)); got.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("want 777 after reload, got %s", got.String())
	}
}
