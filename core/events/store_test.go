package events

import (
	"testing"

	"github.com/DividendTeam/dividend-go-engine/core/types"
	db "github.com/tendermint/tm-db"
)

func TestEventsStoreRoundtrip(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	holder := types.Address{0x01}
	store.AddEvent(12, &DividendDistributedEvent{
		Token:          1,
		DistributionID: 7,
		Amount:         "1000",
		PerUnitDelta:   "1000000",
		FoldHeight:     12,
	})
	store.AddEvent(12, &DividendClaimEvent{
		Holder: holder,
		Token:  1,
		Amount: "100",
		Height: 12,
	})

	if err := store.CommitEvents(12); err != nil {
		t.Fatal(err)
	}

	loaded := store.LoadEvents(12)
	if len(loaded) != 2 {
		t.Fatalf("want 2 events, got %d", len(loaded))
	}

	distributed, ok := loaded[0].(*DividendDistributedEvent)
	if !ok {
		t.Fatalf("unexpected first event %T", loaded[0])
	}
	if distributed.DistributionID != 7 || distributed.PerUnitDelta != "1000000" {
		t.Fatalf("distributed event mangled: %+v", distributed)
	}

	claim, ok := loaded[1].(*DividendClaimEvent)
	if !ok {
		t.Fatalf("unexpected second event %T", loaded[1])
	}
	if claim.Holder != holder || claim.Amount != "100" {
		t.Fatalf("claim event mangled: %+v", claim)
	}
}

func TestEventsStoreEmptyHeight(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	if events := store.LoadEvents(99); len(events) != 0 {
		t.Fatalf("want no events, got %d", len(events))
	}
}

func TestEventsStoreCacheResetOnCommit(t *testing.T) {
	store := NewEventsStore(db.NewMemDB())

	store.AddEvent(1, &EmergencyShutdownEvent{Active: true})
	if err := store.CommitEvents(1); err != nil {
		t.Fatal(err)
	}

	store.AddEvent(2, &EmergencyShutdownEvent{Active: false})
	if err := store.CommitEvents(2); err != nil {
		t.Fatal(err)
	}

	if len(store.LoadEvents(1)) != 1 || len(store.LoadEvents(2)) != 1 {
		t.Fatal("each height must keep its own events")
	}
}
