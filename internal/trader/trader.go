package trader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradingfloor/internal/accounts"
	"tradingfloor/internal/agents"
	"tradingfloor/internal/market"
)

// SnapshotProvider prices a set of symbols.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbols []string) (*market.Snapshot, error)
}

// DecisionMaker turns account and market reports into trade intents.
type DecisionMaker interface {
	Decide(ctx context.Context, strategy, accountReport, marketReport string) (*agents.Decision, error)
}

// Trader runs one persona's trading cycle against its own account.
type Trader struct {
	persona   Persona
	accounts  *accounts.Service
	snapshots SnapshotProvider
	decider   DecisionMaker
	watchlist []string
	logger    zerolog.Logger
}

func New(persona Persona, accountsSvc *accounts.Service, snapshots SnapshotProvider, decider DecisionMaker, watchlist []string, logger zerolog.Logger) *Trader {
	return &Trader{
		persona:   persona,
		accounts:  accountsSvc,
		snapshots: snapshots,
		decider:   decider,
		watchlist: watchlist,
		logger:    logger.With().Str("component", "trader").Str("trader", persona.Name).Logger(),
	}
}

// Name returns the trader's account name.
func (t *Trader) Name() string {
	return t.persona.Name
}

// CycleResult summarizes one completed trading cycle.
type CycleResult struct {
	Executed int
	Rejected int
	Value    string
}

// RunCycle executes one full cycle: snapshot the watchlist plus any held
// symbols, ask the model for a decision, apply each intent in order, then
// record the portfolio value. Individual rejected intents do not abort the
// cycle.
func (t *Trader) RunCycle(ctx context.Context) (*CycleResult, error) {
	account, err := t.accounts.Get(t.persona.Name)
	if err != nil {
		return nil, err
	}

	symbols := append([]string{}, t.watchlist...)
	symbols = append(symbols, account.HeldSymbols()...)

	snapshot, err := t.snapshots.Snapshot(ctx, symbols)
	if err != nil {
		t.accounts.Log(ctx, t.persona.Name, accounts.LogTypeError, fmt.Sprintf("Cycle skipped: %v", err))
		return nil, fmt.Errorf("snapshot for %s: %w", t.persona.Name, err)
	}

	decision, err := t.decider.Decide(ctx, t.persona.Strategy, account.Report(), snapshot.Report())
	if err != nil {
		t.accounts.Log(ctx, t.persona.Name, accounts.LogTypeError, fmt.Sprintf("Decision failed: %v", err))
		return nil, fmt.Errorf("decision for %s: %w", t.persona.Name, err)
	}
	if decision.Reasoning != "" {
		t.accounts.Log(ctx, t.persona.Name, accounts.LogTypeAgent, decision.Reasoning)
	}

	result := &CycleResult{}
	prices := snapshot.Prices()
	for _, intent := range decision.Intents {
		if intent.Action == agents.ActionHold {
			continue
		}
		if err := t.apply(ctx, intent, prices); err != nil {
			result.Rejected++
			t.logger.Warn().Err(err).
				Str("action", string(intent.Action)).
				Str("symbol", intent.Symbol).
				Int64("quantity", intent.Quantity).
				Msg("Intent rejected")
			t.accounts.Log(ctx, t.persona.Name, accounts.LogTypeError,
				fmt.Sprintf("Rejected %s %d %s: %v", intent.Action, intent.Quantity, intent.Symbol, err))
			continue
		}
		result.Executed++
	}

	valuation, err := t.accounts.RecordValuation(ctx, t.persona.Name, prices)
	if err != nil {
		return nil, fmt.Errorf("valuation for %s: %w", t.persona.Name, err)
	}
	result.Value = valuation.Value.StringFixed(2)

	t.logger.Info().
		Int("executed", result.Executed).
		Int("rejected", result.Rejected).
		Str("portfolio_value", result.Value).
		Time("snapshot_at", snapshot.TakenAt).
		Msg("Cycle complete")
	return result, nil
}

func (t *Trader) apply(ctx context.Context, intent agents.Intent, prices map[string]decimal.Decimal) error {
	price, ok := prices[intent.Symbol]
	if !ok {
		return fmt.Errorf("no price for %s in this snapshot", intent.Symbol)
	}

	switch intent.Action {
	case agents.ActionBuy:
		_, err := t.accounts.Buy(ctx, t.persona.Name, intent.Symbol, intent.Quantity, price, intent.Rationale)
		return err
	case agents.ActionSell:
		_, err := t.accounts.Sell(ctx, t.persona.Name, intent.Symbol, intent.Quantity, price, intent.Rationale)
		return err
	default:
		return fmt.Errorf("unexpected action %q", intent.Action)
	}
}
