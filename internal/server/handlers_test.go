package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingfloor/internal/accounts"
	"tradingfloor/internal/database"
	"tradingfloor/internal/scheduler"
)

func testServer(t *testing.T, marketOpen MarketChecker) (*Server, *accounts.Service) {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	svc := accounts.NewService(accounts.NewRepository(db), zerolog.Nop())
	if marketOpen == nil {
		marketOpen = func(ctx context.Context) (bool, error) { return true, nil }
	}

	srv := New(Config{
		Port:            0,
		Log:             zerolog.Nop(),
		Accounts:        svc,
		MarketHours:     scheduler.NewMarketHoursService(zerolog.Nop()),
		MarketOpen:      marketOpen,
		Rounds:          stubRounds{last: time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC), ok: true},
		IntervalMinutes: 30,
		DevMode:         true,
	})
	return srv, svc
}

type stubRounds struct {
	last time.Time
	ok   bool
}

func (s stubRounds) LastRound() (time.Time, bool) { return s.last, s.ok }

func seedTrader(t *testing.T, svc *accounts.Service, name string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Open(ctx, name, "value investing", "gpt-4.1-mini", decimal.NewFromInt(10000))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, name, "AAPL", 10, decimal.NewFromInt(200), "entry")
	require.NoError(t, err)
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, nil)
	rec := get(t, srv, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListTraders(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	rec := get(t, srv, "/api/traders/")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Warren", summaries[0]["name"])
	assert.Equal(t, "8000.00", summaries[0]["cash_balance"])
	assert.Equal(t, float64(1), summaries[0]["holdings"])
	assert.NotContains(t, summaries[0], "portfolio_value", "no round has valued the account yet")

	prices := map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(210)}
	_, err := svc.RecordValuation(context.Background(), "Warren", prices)
	require.NoError(t, err)

	rec = get(t, srv, "/api/traders/")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	assert.Equal(t, "10100.00", summaries[0]["portfolio_value"])
	assert.Equal(t, "100.00", summaries[0]["pnl"])
}

func TestGetTrader(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	rec := get(t, srv, "/api/traders/Warren/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10000.00", body["starting_cash"])
	holdings := body["holdings"].(map[string]interface{})
	assert.Equal(t, float64(10), holdings["AAPL"])

	prices := map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(190)}
	_, err := svc.RecordValuation(context.Background(), "Warren", prices)
	require.NoError(t, err)

	rec = get(t, srv, "/api/traders/Warren/")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "9900.00", body["portfolio_value"])
	assert.Equal(t, "-100.00", body["pnl"])
}

func TestGetTraderNotFound(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := get(t, srv, "/api/traders/Nobody/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTransactions(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	rec := get(t, srv, "/api/traders/Warren/transactions")
	require.Equal(t, http.StatusOK, rec.Code)

	var txns []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 1)
	assert.Equal(t, "AAPL", txns[0]["symbol"])
}

func TestGetTransactionsNewestFirst(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	_, err := svc.Buy(context.Background(), "Warren", "MSFT", 5, decimal.NewFromInt(400), "entry")
	require.NoError(t, err)

	rec := get(t, srv, "/api/traders/Warren/transactions")
	require.Equal(t, http.StatusOK, rec.Code)

	var txns []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 2)
	assert.Equal(t, "MSFT", txns[0]["symbol"])
	assert.Equal(t, "AAPL", txns[1]["symbol"])

	// A limit keeps the newest entries, not the oldest.
	rec = get(t, srv, "/api/traders/Warren/transactions?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 1)
	assert.Equal(t, "MSFT", txns[0]["symbol"])
}

func TestGetPortfolioHistory(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	prices := map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(210)}
	for i := 0; i < 3; i++ {
		_, err := svc.RecordValuation(context.Background(), "Warren", prices)
		require.NoError(t, err)
	}

	rec := get(t, srv, "/api/traders/Warren/portfolio-history")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	series := body["series"].([]interface{})
	assert.Len(t, series, 3)
	// A flat series has zero volatility, so no Sharpe ratio is reported.
	assert.NotContains(t, body, "sharpe_ratio")
	assert.Contains(t, body, "max_drawdown")
}

func TestGetLogs(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	rec := get(t, srv, "/api/traders/Warren/logs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries, "opening and trading both write log entries")
}

func TestMarketStatusLive(t *testing.T) {
	srv, _ := testServer(t, func(ctx context.Context) (bool, error) { return true, nil })

	rec := get(t, srv, "/api/market/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["market_open"])
	assert.Equal(t, "live", body["source"])
}

func TestMarketStatusCalendarFallback(t *testing.T) {
	srv, _ := testServer(t, func(ctx context.Context) (bool, error) {
		return false, errors.New("quote feed down")
	})

	rec := get(t, srv, "/api/market/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "calendar", body["source"])
	assert.Contains(t, body, "exchanges")
}

func TestSystemStatus(t *testing.T) {
	srv, svc := testServer(t, nil)
	seedTrader(t, svc, "Warren")

	rec := get(t, srv, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(1), body["traders"])

	sched := body["scheduler"].(map[string]interface{})
	assert.Equal(t, true, sched["running"])
	assert.Equal(t, float64(30), sched["interval_minutes"])
	assert.Equal(t, false, sched["run_when_market_closed"])
	assert.Contains(t, sched, "last_round")
}
