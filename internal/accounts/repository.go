package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradingfloor/internal/database"
)

// ErrAccountNotFound is returned when no persisted account exists by name.
var ErrAccountNotFound = errors.New("account not found")

// Repository persists account state, transactions, portfolio values and
// activity logs to SQLite.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a fresh account row with no holdings.
func (r *Repository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (name, cash_balance, starting_cash, strategy, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Conn().ExecContext(ctx, query,
		account.Name,
		account.CashBalance.String(),
		account.StartingCash.String(),
		account.Strategy,
		account.ModelName,
		account.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Name, err)
	}
	return nil
}

// Get loads an account with its holdings and full transaction ledger.
func (r *Repository) Get(ctx context.Context, name string) (*Account, error) {
	query := `
		SELECT name, cash_balance, starting_cash, strategy, model_name, created_at
		FROM accounts
		WHERE name = ?
	`
	var account Account
	var cash, starting, createdAt string
	err := r.db.Conn().QueryRowContext(ctx, query, name).Scan(
		&account.Name, &cash, &starting, &account.Strategy, &account.ModelName, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", name, ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", name, err)
	}

	if account.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("invalid cash balance for %s: %w", name, err)
	}
	if account.StartingCash, err = decimal.NewFromString(starting); err != nil {
		return nil, fmt.Errorf("invalid starting cash for %s: %w", name, err)
	}
	if account.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for %s: %w", name, err)
	}

	if account.Holdings, err = r.loadHoldings(ctx, name); err != nil {
		return nil, err
	}
	if account.Ledger, err = r.GetTransactions(ctx, name, 0); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccountNames returns the names of all persisted accounts, sorted.
func (r *Repository) ListAccountNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `SELECT name FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan account name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveState writes the account's cash balance and holdings in one
// transaction. Holdings are replaced wholesale so removed positions do not
// linger.
func (r *Repository) SaveState(ctx context.Context, account *Account) error {
	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save for %s: %w", account.Name, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET cash_balance = ? WHERE name = ?`,
		account.CashBalance.String(), account.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash for %s: %w", account.Name, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM holdings WHERE account_name = ?`, account.Name); err != nil {
		return fmt.Errorf("failed to clear holdings for %s: %w", account.Name, err)
	}
	for symbol, quantity := range account.Holdings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO holdings (account_name, symbol, quantity) VALUES (?, ?, ?)`,
			account.Name, symbol, quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to save holding %s for %s: %w", symbol, account.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save for %s: %w", account.Name, err)
	}
	return nil
}

// AppendTransaction records one executed trade in the ledger table.
func (r *Repository) AppendTransaction(ctx context.Context, txn *Transaction) error {
	query := `
		INSERT INTO transactions (id, account_name, symbol, side, quantity, price, cash_after, rationale, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Conn().ExecContext(ctx, query,
		txn.ID, txn.Account, txn.Symbol, string(txn.Side), txn.Quantity,
		txn.Price.String(), txn.CashAfter.String(), txn.Rationale,
		txn.ExecutedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetTransactions returns an account's ledger in execution order. A limit of
// zero returns the full ledger.
func (r *Repository) GetTransactions(ctx context.Context, account string, limit int) ([]Transaction, error) {
	query := `
		SELECT id, account_name, symbol, side, quantity, price, cash_after, rationale, executed_at
		FROM transactions
		WHERE account_name = ?
		ORDER BY executed_at ASC, rowid ASC
	`
	args := []any{account}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", account, err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		var side, price, cashAfter, executedAt string
		err := rows.Scan(&txn.ID, &txn.Account, &txn.Symbol, &side, &txn.Quantity,
			&price, &cashAfter, &txn.Rationale, &executedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction for %s: %w", account, err)
		}
		txn.Side = TradeSide(side)
		if txn.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price in transaction %s: %w", txn.ID, err)
		}
		if txn.CashAfter, err = decimal.NewFromString(cashAfter); err != nil {
			return nil, fmt.Errorf("invalid cash_after in transaction %s: %w", txn.ID, err)
		}
		if txn.ExecutedAt, err = time.Parse(time.RFC3339, executedAt); err != nil {
			return nil, fmt.Errorf("invalid executed_at in transaction %s: %w", txn.ID, err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// RecordPortfolioValue appends one point to the portfolio value series.
func (r *Repository) RecordPortfolioValue(ctx context.Context, pv *PortfolioValue) error {
	_, err := r.db.Conn().ExecContext(ctx,
		`INSERT INTO portfolio_values (account_name, value, recorded_at) VALUES (?, ?, ?)`,
		pv.Account, pv.Value.String(), pv.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record portfolio value for %s: %w", pv.Account, err)
	}
	return nil
}

// GetPortfolioValues returns the portfolio value series oldest first. A
// positive limit keeps the newest points of the series.
func (r *Repository) GetPortfolioValues(ctx context.Context, account string, limit int) ([]PortfolioValue, error) {
	query := `
		SELECT account_name, value, recorded_at
		FROM portfolio_values
		WHERE account_name = ?
		ORDER BY recorded_at ASC, rowid ASC
	`
	args := []any{account}
	if limit > 0 {
		query = `
			SELECT account_name, value, recorded_at
			FROM portfolio_values
			WHERE account_name = ?
			ORDER BY recorded_at DESC, rowid DESC
			LIMIT ?
		`
		args = append(args, limit)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio values for %s: %w", account, err)
	}
	defer rows.Close()

	var series []PortfolioValue
	for rows.Next() {
		var pv PortfolioValue
		var value, recordedAt string
		if err := rows.Scan(&pv.Account, &value, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio value for %s: %w", account, err)
		}
		if pv.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("invalid portfolio value for %s: %w", account, err)
		}
		if pv.RecordedAt, err = time.Parse(time.RFC3339, recordedAt); err != nil {
			return nil, fmt.Errorf("invalid recorded_at for %s: %w", account, err)
		}
		series = append(series, pv)
	}
	if limit > 0 {
		// The limited query walks newest first; put the window back in
		// chronological order.
		for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
			series[i], series[j] = series[j], series[i]
		}
	}
	return series, rows.Err()
}

// WriteLog appends one activity log entry for an account.
func (r *Repository) WriteLog(ctx context.Context, entry *LogEntry) error {
	_, err := r.db.Conn().ExecContext(ctx,
		`INSERT INTO logs (account_name, log_type, message, created_at) VALUES (?, ?, ?, ?)`,
		entry.Account, entry.Type, entry.Message, entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write log for %s: %w", entry.Account, err)
	}
	return nil
}

// ReadLogs returns the most recent log entries for an account, newest first.
func (r *Repository) ReadLogs(ctx context.Context, account string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT account_name, log_type, message, created_at
		FROM logs
		WHERE account_name = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := r.db.Conn().QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for %s: %w", account, err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var createdAt string
		if err := rows.Scan(&entry.Account, &entry.Type, &entry.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan log for %s: %w", account, err)
		}
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid log timestamp for %s: %w", account, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *Repository) loadHoldings(ctx context.Context, account string) (map[string]int64, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT symbol, quantity FROM holdings WHERE account_name = ?`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for %s: %w", account, err)
	}
	defer rows.Close()

	holdings := make(map[string]int64)
	for rows.Next() {
		var symbol string
		var quantity int64
		if err := rows.Scan(&symbol, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding for %s: %w", account, err)
		}
		holdings[symbol] = quantity
	}
	return holdings, rows.Err()
}
