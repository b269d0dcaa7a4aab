package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingfloor/internal/accounts"
	"tradingfloor/internal/agents"
	"tradingfloor/internal/database"
	"tradingfloor/internal/market"
)

type stubSnapshots struct {
	prices map[string]decimal.Decimal
	err    error
	calls  [][]string
}

func (s *stubSnapshots) Snapshot(ctx context.Context, symbols []string) (*market.Snapshot, error) {
	s.calls = append(s.calls, symbols)
	if s.err != nil {
		return nil, s.err
	}
	snapshot := &market.Snapshot{
		Quotes:     make(map[string]market.Quote),
		MarketOpen: true,
		TakenAt:    time.Now().UTC(),
	}
	for symbol, price := range s.prices {
		snapshot.Quotes[symbol] = market.Quote{Symbol: symbol, Price: price}
	}
	return snapshot, nil
}

type stubDecider struct {
	decision *agents.Decision
	err      error
}

func (d *stubDecider) Decide(ctx context.Context, strategy, accountReport, marketReport string) (*agents.Decision, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.decision, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAccounts(t *testing.T) *accounts.Service {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return accounts.NewService(accounts.NewRepository(db), zerolog.Nop())
}

func testTrader(t *testing.T, svc *accounts.Service, snapshots SnapshotProvider, decider DecisionMaker) *Trader {
	t.Helper()
	persona := Persona{Name: "Warren", Lastname: "Patience", Strategy: "value"}
	_, err := svc.Open(context.Background(), "Warren", persona.Strategy, "gpt-4.1-mini", dec("10000"))
	require.NoError(t, err)
	return New(persona, svc, snapshots, decider, []string{"AAPL", "MSFT"}, zerolog.Nop())
}

func TestRunCycleExecutesIntents(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200"), "MSFT": dec("400")}}
	decider := &stubDecider{decision: &agents.Decision{
		Reasoning: "deploying some cash",
		Intents: []agents.Intent{
			{Action: agents.ActionBuy, Symbol: "AAPL", Quantity: 10, Rationale: "entry"},
			{Action: agents.ActionHold},
		},
	}}

	tr := testTrader(t, svc, snapshots, decider)
	result, err := tr.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Executed, "hold intents do not count as executions")
	assert.Equal(t, 0, result.Rejected)

	account, err := svc.Get("Warren")
	require.NoError(t, err)
	assert.Equal(t, int64(10), account.Holdings["AAPL"])
	assert.True(t, account.CashBalance.Equal(dec("8000")))
	// 8000 cash + 2000 AAPL at the snapshot price.
	assert.Equal(t, "10000.00", result.Value)
}

func TestRunCycleRejectedIntentDoesNotAbort(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200"), "MSFT": dec("400")}}
	decider := &stubDecider{decision: &agents.Decision{
		Intents: []agents.Intent{
			{Action: agents.ActionSell, Symbol: "MSFT", Quantity: 5, Rationale: "not held"},
			{Action: agents.ActionBuy, Symbol: "AAPL", Quantity: 1, Rationale: "entry"},
		},
	}}

	tr := testTrader(t, svc, snapshots, decider)
	result, err := tr.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 1, result.Executed, "the buy after the rejected sell still runs")
}

func TestRunCycleUnpricedSymbolRejected(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200")}}
	decider := &stubDecider{decision: &agents.Decision{
		Intents: []agents.Intent{
			{Action: agents.ActionBuy, Symbol: "FAKE", Quantity: 1, Rationale: "hallucinated"},
		},
	}}

	tr := testTrader(t, svc, snapshots, decider)
	result, err := tr.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rejected)
	account, err := svc.Get("Warren")
	require.NoError(t, err)
	assert.True(t, account.CashBalance.Equal(dec("10000")))
}

func TestRunCycleIncludesHeldSymbolsInSnapshot(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200"), "MSFT": dec("400"), "NVDA": dec("120")}}
	decider := &stubDecider{decision: &agents.Decision{}}

	tr := testTrader(t, svc, snapshots, decider)
	_, err := svc.Buy(context.Background(), "Warren", "NVDA", 2, dec("100"), "pre-existing position")
	require.NoError(t, err)

	_, err = tr.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshots.calls, 1)
	assert.Contains(t, snapshots.calls[0], "NVDA", "held symbols ride along with the watchlist")
}

func TestRunCycleSnapshotFailure(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{err: market.ErrSnapshotUnavailable}
	tr := testTrader(t, svc, snapshots, &stubDecider{decision: &agents.Decision{}})

	_, err := tr.RunCycle(context.Background())
	assert.ErrorIs(t, err, market.ErrSnapshotUnavailable)

	history, err := svc.PortfolioHistory(context.Background(), "Warren", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "a skipped cycle records no portfolio value")
}

func TestRunCycleDecisionFailure(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200")}}
	tr := testTrader(t, svc, snapshots, &stubDecider{err: errors.New("model timeout")})

	_, err := tr.RunCycle(context.Background())
	require.Error(t, err)

	account, err := svc.Get("Warren")
	require.NoError(t, err)
	assert.True(t, account.CashBalance.Equal(dec("10000")), "a failed decision leaves the account untouched")
}

func TestRunCycleRecordsPortfolioValue(t *testing.T) {
	svc := testAccounts(t)
	snapshots := &stubSnapshots{prices: map[string]decimal.Decimal{"AAPL": dec("200"), "MSFT": dec("400")}}
	tr := testTrader(t, svc, snapshots, &stubDecider{decision: &agents.Decision{}})

	_, err := tr.RunCycle(context.Background())
	require.NoError(t, err)

	history, err := svc.PortfolioHistory(context.Background(), "Warren", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Value.Equal(dec("10000")))
}

func TestPersonas(t *testing.T) {
	many := Personas(true)
	require.Len(t, many, 4)

	providers := make(map[agents.Provider]bool)
	for _, p := range many {
		providers[p.Binding.Provider] = true
		assert.NotEmpty(t, p.Strategy)
		assert.NotEmpty(t, p.Lastname)
	}
	assert.Len(t, providers, 4, "each persona gets its own provider")

	single := Personas(false)
	for _, p := range single {
		assert.Equal(t, agents.ProviderOpenAI, p.Binding.Provider)
		assert.Equal(t, "gpt-4.1-mini", p.Binding.Model)
	}
	assert.Equal(t, "Warren Patience", single[0].FullName())
}
