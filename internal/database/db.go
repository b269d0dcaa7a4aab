package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// Ensure directory exists for file-backed databases
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL mode for better concurrency between the trading loop and
		// the dashboard API reads
		dsn += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
	}

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Migrate creates the schema if it does not exist yet.
// Statements are idempotent; this runs on every startup.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			name          TEXT PRIMARY KEY,
			cash_balance  TEXT NOT NULL,
			starting_cash TEXT NOT NULL,
			strategy      TEXT NOT NULL DEFAULT '',
			model_name    TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			account_name TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			quantity     INTEGER NOT NULL,
			PRIMARY KEY (account_name, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id           TEXT PRIMARY KEY,
			account_name TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			side         TEXT NOT NULL,
			quantity     INTEGER NOT NULL,
			price        TEXT NOT NULL,
			cash_after   TEXT NOT NULL,
			rationale    TEXT NOT NULL DEFAULT '',
			executed_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account
			ON transactions(account_name, executed_at)`,
		`CREATE TABLE IF NOT EXISTS portfolio_values (
			account_name TEXT NOT NULL,
			value        TEXT NOT NULL,
			recorded_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolio_values_account
			ON portfolio_values(account_name, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS logs (
			account_name TEXT NOT NULL,
			log_type     TEXT NOT NULL,
			message      TEXT NOT NULL,
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_account
			ON logs(account_name, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
