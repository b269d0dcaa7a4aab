package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSnapshotUnavailable is returned when no symbol in a snapshot request
// could be priced.
var ErrSnapshotUnavailable = errors.New("market snapshot unavailable")

// Quote is the per-symbol slice of a snapshot.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	PrevClose   decimal.Decimal `json:"prev_close"`
	ChangePct   float64         `json:"change_pct"`
	RSI14       *float64        `json:"rsi_14,omitempty"`
	Headlines   []Headline      `json:"headlines,omitempty"`
	RetrievedAt time.Time       `json:"retrieved_at"`
}

// Headline is one news item attached to a quote.
type Headline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Snapshot is a consistent view of the watched symbols at one point in time.
// Symbols that could not be priced appear in Missing instead of Quotes.
type Snapshot struct {
	Quotes     map[string]Quote `json:"quotes"`
	Missing    []string         `json:"missing,omitempty"`
	MarketOpen bool             `json:"market_open"`
	TakenAt    time.Time        `json:"taken_at"`
}

// Prices extracts the symbol-to-price map used for account valuation.
func (s *Snapshot) Prices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(s.Quotes))
	for symbol, quote := range s.Quotes {
		prices[symbol] = quote.Price
	}
	return prices
}

// Report renders the snapshot as plain text suitable for a model prompt.
func (s *Snapshot) Report() string {
	var b strings.Builder
	if s.MarketOpen {
		b.WriteString("Market status: OPEN\n")
	} else {
		b.WriteString("Market status: CLOSED\n")
	}

	symbols := make([]string, 0, len(s.Quotes))
	for symbol := range s.Quotes {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		quote := s.Quotes[symbol]
		fmt.Fprintf(&b, "%s: %s (%+.2f%%)", symbol, quote.Price.StringFixed(2), quote.ChangePct)
		if quote.RSI14 != nil {
			fmt.Fprintf(&b, " RSI14=%.1f", *quote.RSI14)
		}
		b.WriteString("\n")
		for _, headline := range quote.Headlines {
			fmt.Fprintf(&b, "  news: %s (%s)\n", headline.Title, headline.Source)
		}
	}

	if len(s.Missing) > 0 {
		fmt.Fprintf(&b, "No data for: %s\n", strings.Join(s.Missing, ", "))
	}
	return b.String()
}
