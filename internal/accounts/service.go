package accounts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service owns the in-memory accounts and mirrors every mutation to the
// repository. The in-memory state is authoritative; a persistence failure is
// logged and the run continues. All account access is serialized on one
// RWMutex and reads get copies, so the HTTP handlers and the trading round
// can use the service from separate goroutines.
type Service struct {
	repo   *Repository
	logger zerolog.Logger

	mu       sync.RWMutex
	accounts map[string]*Account
}

func NewService(repo *Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: make(map[string]*Account),
		logger:   logger.With().Str("component", "accounts").Logger(),
	}
}

// Open returns the account by name, restoring it from the repository when it
// exists and creating it fresh otherwise.
func (s *Service) Open(ctx context.Context, name, strategy, modelName string, startingCash decimal.Decimal) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account, ok := s.accounts[name]; ok {
		return account.Clone(), nil
	}

	account, err := s.repo.Get(ctx, name)
	if err == nil {
		// Strategy and model binding can change between runs; the
		// persisted balance and holdings carry over.
		account.Strategy = strategy
		account.ModelName = modelName
		s.accounts[name] = account
		s.logger.Info().
			Str("account", name).
			Str("cash", account.CashBalance.StringFixed(2)).
			Int("holdings", len(account.Holdings)).
			Msg("Restored account")
		return account.Clone(), nil
	}

	account = NewAccount(name, strategy, modelName, startingCash)
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to open account %s: %w", name, err)
	}
	s.accounts[name] = account
	s.log(ctx, name, LogTypeAccount, fmt.Sprintf("Account opened with %s cash", startingCash.StringFixed(2)))
	return account.Clone(), nil
}

// Get returns a point-in-time copy of an already opened account.
func (s *Service) Get(name string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, err := s.account(name)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// account returns the live account. The caller must hold mu.
func (s *Service) account(name string) (*Account, error) {
	account, ok := s.accounts[name]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", name, ErrAccountNotFound)
	}
	return account, nil
}

// Names returns the names of all opened accounts, sorted.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Buy executes a purchase and persists the resulting state and transaction.
func (s *Service) Buy(ctx context.Context, name, symbol string, quantity int64, price decimal.Decimal, rationale string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.account(name)
	if err != nil {
		return nil, err
	}
	txn, err := account.Buy(symbol, quantity, price, rationale)
	if err != nil {
		return nil, err
	}
	s.persistTrade(ctx, account, txn)
	return txn, nil
}

// Sell executes a disposal and persists the resulting state and transaction.
func (s *Service) Sell(ctx context.Context, name, symbol string, quantity int64, price decimal.Decimal, rationale string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.account(name)
	if err != nil {
		return nil, err
	}
	txn, err := account.Sell(symbol, quantity, price, rationale)
	if err != nil {
		return nil, err
	}
	s.persistTrade(ctx, account, txn)
	return txn, nil
}

// RecordValuation appends the account's current portfolio value to its time
// series.
func (s *Service) RecordValuation(ctx context.Context, name string, prices map[string]decimal.Decimal) (Valuation, error) {
	s.mu.RLock()
	account, err := s.account(name)
	if err != nil {
		s.mu.RUnlock()
		return Valuation{}, err
	}
	valuation := account.Valuation(prices)
	s.mu.RUnlock()
	pv := &PortfolioValue{
		Account:    name,
		Value:      valuation.Value,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.repo.RecordPortfolioValue(ctx, pv); err != nil {
		s.logger.Error().Err(err).Str("account", name).Msg("Failed to persist portfolio value")
	}
	return valuation, nil
}

// Log writes an activity log entry for an account.
func (s *Service) Log(ctx context.Context, name, logType, message string) {
	s.log(ctx, name, logType, message)
}

// Transactions returns an account's persisted transaction ledger.
func (s *Service) Transactions(ctx context.Context, name string, limit int) ([]Transaction, error) {
	return s.repo.GetTransactions(ctx, name, limit)
}

// PortfolioHistory returns an account's persisted portfolio value series.
func (s *Service) PortfolioHistory(ctx context.Context, name string, limit int) ([]PortfolioValue, error) {
	return s.repo.GetPortfolioValues(ctx, name, limit)
}

// Logs returns an account's recent activity log entries.
func (s *Service) Logs(ctx context.Context, name string, limit int) ([]LogEntry, error) {
	return s.repo.ReadLogs(ctx, name, limit)
}

func (s *Service) persistTrade(ctx context.Context, account *Account, txn *Transaction) {
	if err := s.repo.SaveState(ctx, account); err != nil {
		s.logger.Error().Err(err).Str("account", account.Name).Msg("Failed to persist account state")
	}
	if err := s.repo.AppendTransaction(ctx, txn); err != nil {
		s.logger.Error().Err(err).Str("account", account.Name).Msg("Failed to persist transaction")
	}
	s.log(ctx, account.Name, LogTypeTrade, fmt.Sprintf("%s %d %s at %s, cash now %s",
		txn.Side, txn.Quantity, txn.Symbol, txn.Price.StringFixed(2), txn.CashAfter.StringFixed(2)))
}

func (s *Service) log(ctx context.Context, name, logType, message string) {
	entry := &LogEntry{
		Account:   name,
		Type:      logType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.WriteLog(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("account", name).Msg("Failed to write activity log")
	}
}
