package accounts

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds one trader's simulated cash balance, stock holdings and
// transaction ledger. Accounts are not safe for concurrent use; Service
// serializes mutation and hands out copies.
type Account struct {
	Name         string
	Strategy     string
	ModelName    string
	CashBalance  decimal.Decimal
	StartingCash decimal.Decimal
	Holdings     map[string]int64
	Ledger       []Transaction
	CreatedAt    time.Time
}

// NewAccount creates an account with a fixed starting cash balance.
func NewAccount(name, strategy, modelName string, startingCash decimal.Decimal) *Account {
	return &Account{
		Name:         name,
		Strategy:     strategy,
		ModelName:    modelName,
		CashBalance:  startingCash,
		StartingCash: startingCash,
		Holdings:     make(map[string]int64),
		CreatedAt:    time.Now().UTC(),
	}
}

// Clone returns a deep copy of the account, detached from the original's
// holdings map and ledger.
func (a *Account) Clone() *Account {
	clone := *a
	clone.Holdings = make(map[string]int64, len(a.Holdings))
	for symbol, quantity := range a.Holdings {
		clone.Holdings[symbol] = quantity
	}
	clone.Ledger = append([]Transaction(nil), a.Ledger...)
	return &clone
}

// Buy purchases quantity shares of symbol at price. The buy is rejected with
// ErrInsufficientFunds when the total cost exceeds the cash balance; state
// and ledger are left untouched on rejection.
func (a *Account) Buy(symbol string, quantity int64, price decimal.Decimal, rationale string) (*Transaction, error) {
	symbol = normalizeSymbol(symbol)
	if err := validateOrder(symbol, quantity, price); err != nil {
		return nil, err
	}

	cost := price.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(a.CashBalance) {
		return nil, fmt.Errorf("buy %d %s at %s costs %s with %s available: %w",
			quantity, symbol, price, cost, a.CashBalance, ErrInsufficientFunds)
	}

	a.CashBalance = a.CashBalance.Sub(cost)
	a.Holdings[symbol] += quantity

	return a.appendTransaction(symbol, TradeSideBuy, quantity, price, rationale), nil
}

// Sell disposes of quantity shares of symbol at price. The sell is rejected
// with ErrInsufficientShares when the account holds fewer shares than asked
// for; a symbol that reaches zero shares is removed from holdings.
func (a *Account) Sell(symbol string, quantity int64, price decimal.Decimal, rationale string) (*Transaction, error) {
	symbol = normalizeSymbol(symbol)
	if err := validateOrder(symbol, quantity, price); err != nil {
		return nil, err
	}

	held := a.Holdings[symbol]
	if held < quantity {
		return nil, fmt.Errorf("sell %d %s with %d held: %w",
			quantity, symbol, held, ErrInsufficientShares)
	}

	proceeds := price.Mul(decimal.NewFromInt(quantity))
	a.CashBalance = a.CashBalance.Add(proceeds)

	if held == quantity {
		delete(a.Holdings, symbol)
	} else {
		a.Holdings[symbol] = held - quantity
	}

	return a.appendTransaction(symbol, TradeSideSell, quantity, price, rationale), nil
}

// Valuation returns cash plus the sum of holdings priced at current quotes.
// A held symbol without a price is reported in Missing and excluded from the
// total rather than failing the valuation.
func (a *Account) Valuation(prices map[string]decimal.Decimal) Valuation {
	total := a.CashBalance

	var missing []string
	for symbol, quantity := range a.Holdings {
		price, ok := prices[symbol]
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			missing = append(missing, symbol)
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(quantity)))
	}
	sort.Strings(missing)

	return Valuation{Value: total, Missing: missing}
}

// ProfitAndLoss returns the valuation minus the starting cash balance.
func (a *Account) ProfitAndLoss(prices map[string]decimal.Decimal) decimal.Decimal {
	return a.Valuation(prices).Value.Sub(a.StartingCash)
}

// HeldSymbols returns the symbols with a non-zero position, sorted.
func (a *Account) HeldSymbols() []string {
	symbols := make([]string, 0, len(a.Holdings))
	for symbol := range a.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Report renders a compact plain-text account summary, used as model input.
func (a *Account) Report() string {
	report := fmt.Sprintf("Account: %s\nCash balance: %s\nHoldings:", a.Name, a.CashBalance.StringFixed(2))
	held := a.HeldSymbols()
	if len(held) == 0 {
		report += " none"
	}
	for _, symbol := range held {
		report += fmt.Sprintf("\n  %s: %d shares", symbol, a.Holdings[symbol])
	}
	return report
}

func (a *Account) appendTransaction(symbol string, side TradeSide, quantity int64, price decimal.Decimal, rationale string) *Transaction {
	txn := Transaction{
		ID:         uuid.NewString(),
		Account:    a.Name,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		CashAfter:  a.CashBalance,
		Rationale:  rationale,
		ExecutedAt: time.Now().UTC(),
	}
	a.Ledger = append(a.Ledger, txn)
	return &a.Ledger[len(a.Ledger)-1]
}

func validateOrder(symbol string, quantity int64, price decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("price must be positive, got %s", price)
	}
	return nil
}
