package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors for single-intent validation failures. These are recoverable:
// a rejected intent is skipped and the cycle continues.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// TradeSide represents the trade direction (BUY or SELL)
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid checks if the trade side is valid
func (ts TradeSide) IsValid() bool {
	return ts == TradeSideBuy || ts == TradeSideSell
}

// TradeSideFromString creates TradeSide from string (case-insensitive)
func TradeSideFromString(value string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q", value)
	}
}

// Transaction is one immutable ledger entry. Once appended it is never
// modified or reordered; CashAfter records the balance that resulted from
// applying this transaction so the ledger reconciles on its own.
type Transaction struct {
	ID         string          `json:"id"`
	Account    string          `json:"account"`
	Symbol     string          `json:"symbol"`
	Side       TradeSide       `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	CashAfter  decimal.Decimal `json:"cash_after"`
	Rationale  string          `json:"rationale"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Total returns the cash value of the transaction (quantity x price).
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// PortfolioValue is one point of an account's valuation time series.
type PortfolioValue struct {
	Account    string          `json:"account"`
	Value      decimal.Decimal `json:"value"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// LogEntry is one run-log line for the dashboard's log pane.
type LogEntry struct {
	Account   string    `json:"account"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Log entry types written by the trading loop.
const (
	LogTypeAccount = "account"
	LogTypeTrade   = "trade"
	LogTypeAgent   = "agent"
	LogTypeError   = "error"
)

// Valuation is the result of pricing an account against current quotes.
// Symbols without a usable price end up in Missing instead of aborting
// the whole calculation.
type Valuation struct {
	Value   decimal.Decimal `json:"value"`
	Missing []string        `json:"missing,omitempty"`
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
