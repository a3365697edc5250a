package checker

import (
	"math/big"
	"strings"
	"testing"

	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/types"
)

type mockRegistry struct {
	distributed map[types.TokenID]*big.Int
	paid        map[types.TokenID]*big.Int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		distributed: map[types.TokenID]*big.Int{},
		paid:        map[types.TokenID]*big.Int{},
	}
}

func (m *mockRegistry) IsRegistered(types.TokenID) bool             { return true }
func (m *mockRegistry) IsFrozen(types.TokenID) bool                 { return false }
func (m *mockRegistry) LastDistributionHeight(types.TokenID) uint64 { return 0 }
func (m *mockRegistry) ActiveTokens() []types.TokenID               { return nil }

func (m *mockRegistry) OnDistributionProcessed(token types.TokenID, height uint64, amount *big.Int) {
	m.distributed[token] = new(big.Int).Add(m.total(m.distributed, token), amount)
}

func (m *mockRegistry) OnDividendsPaid(token types.TokenID, amount *big.Int) {
	m.paid[token] = new(big.Int).Add(m.total(m.paid, token), amount)
}

func (m *mockRegistry) DistributionTotals(token types.TokenID) (*big.Int, *big.Int) {
	return m.total(m.distributed, token), m.total(m.paid, token)
}

func (m *mockRegistry) total(totals map[types.TokenID]*big.Int, token types.TokenID) *big.Int {
	if v, ok := totals[token]; ok {
		return v
	}
	return big.NewInt(0)
}

func newTestChecker() (*Checker, *mockRegistry) {
	stateBus := bus.NewBus()
	registry := newMockRegistry()
	stateBus.SetRegistry(registry)

	return NewChecker(stateBus), registry
}

func TestCheckBalanced(t *testing.T) {
	checker, registry := newTestChecker()
	token := types.TokenID(1)

	registry.OnDistributionProcessed(token, 5, big.NewInt(1000))
	checker.AddDistributed(token, big.NewInt(1000))
	registry.OnDividendsPaid(token, big.NewInt(400))
	checker.AddPaid(token, big.NewInt(400))

	if err := checker.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestCheckOverpaid(t *testing.T) {
	checker, registry := newTestChecker()
	token := types.TokenID(1)

	registry.OnDistributionProcessed(token, 5, big.NewInt(1000))
	checker.AddDistributed(token, big.NewInt(1000))
	registry.OnDividendsPaid(token, big.NewInt(1500))
	checker.AddPaid(token, big.NewInt(1500))

	if err := checker.Check(); err == nil {
		t.Fatal("paid above distributed must fail")
	}
}

func TestCheckDeltasAccumulate(t *testing.T) {
	checker, registry := newTestChecker()
	token := types.TokenID(1)

	// the registry saw one payout, the checker saw two: the totals are
	// behind the tick deltas
	registry.OnDistributionProcessed(token, 5, big.NewInt(1000))
	checker.AddDistributed(token, big.NewInt(1000))
	registry.OnDividendsPaid(token, big.NewInt(100))
	checker.AddPaid(token, big.NewInt(100))
	checker.AddPaid(token, big.NewInt(100))

	err := checker.Check()
	if err == nil {
		t.Fatal("registry totals behind tick deltas must fail")
	}
	if !strings.Contains(err.Error(), "behind tick delta") {
		t.Fatalf("want delta mismatch, got %v", err)
	}
}

func TestCheckMissedDistribution(t *testing.T) {
	checker, _ := newTestChecker()
	token := types.TokenID(1)

	checker.AddDistributed(token, big.NewInt(1000))

	if err := checker.Check(); err == nil {
		t.Fatal("distribution delta without registry total must fail")
	}
}

func TestReset(t *testing.T) {
	checker, _ := newTestChecker()
	token := types.TokenID(1)

	checker.AddPaid(token, big.NewInt(100))
	checker.Reset()

	if err := checker.Check(); err != nil {
		t.Fatalf("reset must clear deltas, got %v", err)
	}
}
