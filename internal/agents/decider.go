package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// ErrMalformedDecision is returned when the model output cannot be parsed
// into a decision. The caller treats it like any other failed cycle.
var ErrMalformedDecision = errors.New("malformed model decision")

const systemPromptTemplate = `You are %s, an autonomous stock trader.

Your investment strategy:
%s

You manage a simulated account. Respond ONLY with a JSON object of this shape:
{
  "reasoning": "one paragraph explaining your thinking",
  "orders": [
    {"action": "buy", "symbol": "AAPL", "quantity": 5, "rationale": "why"},
    {"action": "sell", "symbol": "MSFT", "quantity": 2, "rationale": "why"},
    {"action": "hold", "symbol": "", "quantity": 0, "rationale": "why"}
  ]
}

Rules:
- Only whole share quantities.
- Never spend more cash than the account holds.
- Never sell shares the account does not hold.
- An empty orders list or a single hold order means no trades this round.`

// Decider turns a market snapshot plus account state into trade intents by
// calling a bound chat model.
type Decider struct {
	trader  string
	model   ChatModel
	timeout time.Duration
	logger  zerolog.Logger
}

func NewDecider(trader string, model ChatModel, timeout time.Duration, logger zerolog.Logger) *Decider {
	return &Decider{
		trader:  trader,
		model:   model,
		timeout: timeout,
		logger:  logger.With().Str("component", "decider").Str("trader", trader).Logger(),
	}
}

// Decide runs one model call and parses its reply. The call is bounded by
// the decider's timeout in addition to whatever deadline ctx carries.
func (d *Decider) Decide(ctx context.Context, strategy, accountReport, marketReport string) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(systemPromptTemplate, d.trader, strategy)),
		schema.UserMessage(fmt.Sprintf("Current account state:\n%s\n\nMarket snapshot:\n%s\n\nDecide your trades for this round.", accountReport, marketReport)),
	}

	started := time.Now()
	reply, err := d.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("model call for %s failed: %w", d.trader, err)
	}
	d.logger.Debug().
		Dur("elapsed", time.Since(started)).
		Int("reply_len", len(reply.Content)).
		Msg("Model replied")

	decision, err := parseDecision(reply.Content)
	if err != nil {
		d.logger.Warn().Err(err).Str("reply", truncate(reply.Content, 500)).Msg("Unparseable model reply")
		return nil, err
	}
	return decision, nil
}

// parseDecision extracts the decision JSON from a model reply. Models often
// wrap JSON in markdown fences or surround it with prose, so the parser
// falls back to the outermost brace pair.
func parseDecision(content string) (*Decision, error) {
	raw := strings.TrimSpace(content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in reply: %w", ErrMalformedDecision)
		}
		raw = raw[start : end+1]
	}

	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("invalid decision JSON: %v: %w", err, ErrMalformedDecision)
	}

	for i := range decision.Intents {
		decision.Intents[i].Action = Action(strings.ToLower(string(decision.Intents[i].Action)))
		decision.Intents[i].Symbol = strings.ToUpper(strings.TrimSpace(decision.Intents[i].Symbol))
		if err := decision.Intents[i].Validate(); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrMalformedDecision)
		}
	}
	return &decision, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
