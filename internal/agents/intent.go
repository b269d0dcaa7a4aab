package agents

import (
	"fmt"
	"strings"
)

// Action is what a trader wants to do with one symbol.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Intent is a single proposed order parsed from a model decision.
type Intent struct {
	Action    Action `json:"action"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Rationale string `json:"rationale"`
}

// Decision is the full parsed output of one model call.
type Decision struct {
	Intents   []Intent `json:"orders"`
	Reasoning string   `json:"reasoning"`
}

// Validate rejects intents a well-formed decision cannot contain. Hold
// intents carry no quantity; buys and sells need a symbol and a positive
// quantity.
func (i *Intent) Validate() error {
	switch i.Action {
	case ActionHold:
		return nil
	case ActionBuy, ActionSell:
		if strings.TrimSpace(i.Symbol) == "" {
			return fmt.Errorf("%s intent has no symbol", i.Action)
		}
		if i.Quantity <= 0 {
			return fmt.Errorf("%s %s has non-positive quantity %d", i.Action, i.Symbol, i.Quantity)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", i.Action)
	}
}
