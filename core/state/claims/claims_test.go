package claims

import (
	"math/big"
	"testing"

	"github.com/DividendTeam/dividend-go-engine/config"
	"github.com/DividendTeam/dividend-go-engine/core/code"
	eventsdb "github.com/DividendTeam/dividend-go-engine/core/events"
	"github.com/DividendTeam/dividend-go-engine/core/state/accumulator"
	"github.com/DividendTeam/dividend-go-engine/core/state/bus"
	"github.com/DividendTeam/dividend-go-engine/core/state/checker"
	"github.com/DividendTeam/dividend-go-engine/core/state/ledger"
	"github.com/DividendTeam/dividend-go-engine/core/state/registry"
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

type mockTokens struct {
	supply       map[types.TokenID]*big.Int
	balances     map[types.TokenID]map[types.Address]*big.Int
	failTransfer bool
	transferred  map[types.Address]*big.Int
}

func newMockTokens() *mockTokens {
	return &mockTokens{
		supply:      map[types.TokenID]*big.Int{},
		balances:    map[types.TokenID]map[types.Address]*big.Int{},
		transferred: map[types.Address]*big.Int{},
	}
}

func (m *mockTokens) TotalSupply(token types.TokenID) *big.Int {
	if supply, ok := m.supply[token]; ok {
		return new(big.Int).Set(supply)
	}
	return big.NewInt(0)
}

func (m *mockTokens) BalanceOf(token types.TokenID, holder types.Address) *big.Int {
	if balance, ok := m.balances[token][holder]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func (m *mockTokens) Transfer(token types.TokenID, to types.Address, amount *big.Int) error {
	if m.failTransfer {
		return errors.New("transfer refused")
	}

	total, ok := m.transferred[to]
	if !ok {
		total = big.NewInt(0)
	}
	m.transferred[to] = new(big.Int).Add(total, amount)

	return nil
}

func (m *mockTokens) setBalance(token types.TokenID, holder types.Address, balance int64) {
	if m.balances[token] == nil {
		m.balances[token] = map[types.Address]*big.Int{}
	}
	m.balances[token][holder] = big.NewInt(balance)
}

type testEnv struct {
	claims      *Claims
	ledger      *ledger.Ledger
	registry    *registry.Registry
	accumulator *accumulator.Accumulator
	checker     *checker.Checker
	tokens      *mockTokens
	tree        *iavl.MutableTree
}

func newTestEnv(t *testing.T, policy *config.Policy) *testEnv {
	t.Helper()

	mutable, err := iavl.NewMutableTree(db.NewMemDB(), 1024)
	if err != nil {
		t.Fatal(err)
	}
	if policy == nil {
		policy = config.DefaultPolicy()
	}

	stateBus := bus.NewBus()
	tokens := newMockTokens()
	stateBus.SetEvents(&mockEvents{})
	stateBus.SetTokens(tokens)

	env := &testEnv{
		registry:    registry.NewRegistry(stateBus, mutable.ImmutableTree, policy.MaxRegisteredTokens),
		accumulator: accumulator.NewAccumulator(stateBus, mutable.ImmutableTree),
		checker:     checker.NewChecker(stateBus),
		tokens:      tokens,
		tree:        mutable,
	}
	env.ledger = ledger.NewLedger(stateBus, mutable.ImmutableTree, policy)
	env.claims = NewClaims(stateBus, mutable.ImmutableTree, policy)

	return env
}

func (env *testEnv) register(t *testing.T, token types.TokenID, supply int64) {
	t.Helper()

	if err := env.registry.Register(token, 1); err != nil {
		t.Fatal(err)
	}
	env.tokens.supply[token] = big.NewInt(supply)
}

func TestClaimProRataShare(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}

	amount, err := env.claims.Claim(holder, token, 20)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("want 100, got %s", amount.String())
	}
	if env.tokens.transferred[holder].Cmp(big.NewInt(100)) != 0 {
		t.Fatal("payout must go through the token source")
	}

	if err := env.checker.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestClaimNoDoublePay(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}

	if _, err := env.claims.Claim(holder, token, 20); err != nil {
		t.Fatal(err)
	}

	// cooldown has elapsed, but there is nothing left
	if _, err := env.claims.Claim(holder, token, 90); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("want no pending dividends, got %v", err)
	}
}

func TestClaimCooldown(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}
	if _, err := env.claims.Claim(holder, token, 20); err != nil {
		t.Fatal(err)
	}

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 40); err != nil {
		t.Fatal(err)
	}

	if _, err := env.claims.Claim(holder, token, 60); !errors.Is(err, code.ErrCooldownActive) {
		t.Fatalf("want cooldown active, got %v", err)
	}

	if _, err := env.claims.Claim(holder, token, 70); err != nil {
		t.Fatalf("cooldown elapsed, want success, got %v", err)
	}
}

func TestClaimRateLimit(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.ClaimCooldownPeriod = 1
	policy.RateLimitWindow = 100
	policy.RateLimitMaxClaims = 2

	env := newTestEnv(t, policy)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 5); err != nil {
		t.Fatal(err)
	}
	if _, err := env.claims.Claim(holder, token, 10); err != nil {
		t.Fatal(err)
	}

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 15); err != nil {
		t.Fatal(err)
	}
	if _, err := env.claims.Claim(holder, token, 20); err != nil {
		t.Fatal(err)
	}

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 25); err != nil {
		t.Fatal(err)
	}
	if _, err := env.claims.Claim(holder, token, 30); !errors.Is(err, code.ErrRateLimitExceeded) {
		t.Fatalf("want rate limit exceeded, got %v", err)
	}

	env.claims.ResetRateLimit(holder)
	if _, err := env.claims.Claim(holder, token, 31); err != nil {
		t.Fatalf("window reset, want success, got %v", err)
	}
}

func TestClaimLazyFold(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	id, err := env.ledger.Schedule(token, big.NewInt(1000), 2, 20, types.DistributionScheduled, 0)
	if err != nil {
		t.Fatal(err)
	}

	// the claim folds the due distribution itself
	amount, err := env.claims.Claim(holder, token, 25)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("want 100, got %s", amount.String())
	}
	if !env.ledger.GetDistribution(token, id).Processed {
		t.Fatal("claim must fold due distributions")
	}
}

func TestClaimVestingReleasesLinearly(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.Schedule(token, big.NewInt(3000), 2, 20, types.DistributionVested, 100); err != nil {
		t.Fatal(err)
	}
	if err := env.ledger.FoldDue(token, 20); err != nil {
		t.Fatal(err)
	}

	// nothing is vested at the fold height
	if _, err := env.claims.Claim(holder, token, 20); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("want no pending dividends at fold height, got %v", err)
	}

	// halfway through the period: half the share
	amount, err := env.claims.Claim(holder, token, 70)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("want 150, got %s", amount.String())
	}

	// after the period: the rest, no second fold needed
	amount, err = env.claims.Claim(holder, token, 125)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("want remaining 150, got %s", amount.String())
	}

	if _, err := env.claims.Claim(holder, token, 200); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("vesting exhausted, want no pending, got %v", err)
	}
}

func TestSpecificClaimThenGeneral(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	immediateID, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20)
	if err != nil {
		t.Fatal(err)
	}
	vestedID, err := env.ledger.Schedule(token, big.NewInt(3000), 30, 40, types.DistributionVested, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.ledger.FoldDue(token, 40); err != nil {
		t.Fatal(err)
	}

	// halfway through vesting, claim only the vested distribution
	amount, err := env.claims.ClaimSpecific(holder, token, vestedID, 90)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("want 150 from the vested segment, got %s", amount.String())
	}

	// repeating the specific claim at the same height pays nothing
	if _, err := env.claims.ClaimSpecific(holder, token, vestedID, 90); !errors.Is(err, code.ErrCooldownActive) {
		t.Fatalf("want cooldown between claims, got %v", err)
	}

	// the general claim after full vesting covers everything not yet paid:
	// 100 from the immediate entry plus the remaining 150
	amount, err = env.claims.Claim(holder, token, 141)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("want 250, got %s", amount.String())
	}

	// specific records are settled and cleared; nothing is left
	if _, err := env.claims.ClaimSpecific(holder, token, immediateID, 200); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("want no pending, got %v", err)
	}
}

func TestClaimTransferFailureMutatesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}

	env.tokens.failTransfer = true
	if _, err := env.claims.Claim(holder, token, 20); code.Of(err) != code.SystemFailure {
		t.Fatalf("want system failure, got %v", err)
	}

	if checkpoint := env.claims.GetCheckpoint(holder, token); checkpoint != nil && checkpoint.LastClaimHeight != 0 {
		t.Fatal("failed transfer must not stamp a claim")
	}

	// the full amount is still claimable
	env.tokens.failTransfer = false
	amount, err := env.claims.Claim(holder, token, 21)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("want 100, got %s", amount.String())
	}
}

func TestPendingIncludesProjection(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	id, err := env.ledger.Schedule(token, big.NewInt(1000), 2, 20, types.DistributionScheduled, 0)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := env.claims.Pending(holder, token, 25)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("want 100 projected, got %s", pending.String())
	}
	if env.ledger.GetDistribution(token, id).Processed {
		t.Fatal("pending must not fold")
	}

	// before the scheduled height nothing is projected
	pending, err = env.claims.Pending(holder, token, 10)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("want 0 before schedule, got %s", pending.String())
	}
}

func TestValidateClaim(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if err := env.claims.ValidateClaim(holder, types.TokenID(9), 10); !errors.Is(err, code.ErrNotRegistered) {
		t.Fatalf("want not registered, got %v", err)
	}

	if err := env.claims.ValidateClaim(holder, token, 10); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("want no pending, got %v", err)
	}

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}
	if err := env.claims.ValidateClaim(holder, token, 20); err != nil {
		t.Fatalf("want claimable, got %v", err)
	}

	if _, err := env.claims.Claim(holder, token, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 40); err != nil {
		t.Fatal(err)
	}
	if err := env.claims.ValidateClaim(holder, token, 45); !errors.Is(err, code.ErrCooldownActive) {
		t.Fatalf("want cooldown, got %v", err)
	}
}

func TestZeroBalanceHolder(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}

	if _, err := env.claims.Claim(holder, token, 20); !errors.Is(err, code.ErrNoPendingDividends) {
		t.Fatalf("zero balance must have nothing to claim, got %v", err)
	}

	pending, err := env.claims.Pending(holder, token, 20)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("want 0 pending, got %s", pending.String())
	}
}

func TestCommitAndReload(t *testing.T) {
	env := newTestEnv(t, nil)
	token := types.TokenID(1)
	holder := types.Address{0x01}

	env.register(t, token, 1000)
	env.tokens.setBalance(token, holder, 100)

	if _, err := env.ledger.TriggerImmediate(token, big.NewInt(1000), 20); err != nil {
		t.Fatal(err)
	}
	if _, err := env.claims.Claim(holder, token, 20); err != nil {
		t.Fatal(err)
	}

	if err := env.claims.Commit(env.tree); err != nil {
		t.Fatal(err)
	}
	_, version, err := env.tree.SaveVersion()
	if err != nil {
		t.Fatal(err)
	}
	immutable, err := env.tree.GetImmutable(version)
	if err != nil {
		t.Fatal(err)
	}

	stateBus := bus.NewBus()
	stateBus.SetEvents(&mockEvents{})
	stateBus.SetTokens(env.tokens)
	registry.NewRegistry(stateBus, immutable, 64)
	accumulator.NewAccumulator(stateBus, immutable)
	checker.NewChecker(stateBus)
	ledger.NewLedger(stateBus, immutable, config.DefaultPolicy())
	reloaded := NewClaims(stateBus, immutable, config.DefaultPolicy())

	checkpoint := reloaded.GetCheckpoint(holder, token)
	if checkpoint == nil {
		t.Fatal("checkpoint must survive reload")
	}
	if checkpoint.LastSettled.Cmp(big.NewInt(1000000)) != 0 {
		t.Fatalf("want settled 1000000, got %s", checkpoint.LastSettled.String())
	}
	if checkpoint.LastClaimHeight != 20 {
		t.Fatalf("want last claim 20, got %d", checkpoint.LastClaimHeight)
	}
}
