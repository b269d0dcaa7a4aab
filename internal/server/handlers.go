package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tradingfloor/internal/accounts"
	"tradingfloor/pkg/formulas"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "trading-floor",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListTraders returns a summary card for every trader.
func (s *Server) handleListTraders(w http.ResponseWriter, r *http.Request) {
	type traderSummary struct {
		Name           string  `json:"name"`
		Model          string  `json:"model"`
		CashBalance    string  `json:"cash_balance"`
		Holdings       int     `json:"holdings"`
		Transactions   int     `json:"transactions"`
		PortfolioValue *string `json:"portfolio_value,omitempty"`
		ProfitAndLoss  *string `json:"pnl,omitempty"`
	}

	summaries := make([]traderSummary, 0)
	for _, name := range s.accounts.Names() {
		account, err := s.accounts.Get(name)
		if err != nil {
			continue
		}
		summary := traderSummary{
			Name:         account.Name,
			Model:        account.ModelName,
			CashBalance:  account.CashBalance.StringFixed(2),
			Holdings:     len(account.Holdings),
			Transactions: len(account.Ledger),
		}
		if latest := s.latestValue(r.Context(), account.Name); latest != nil {
			value := latest.Value.StringFixed(2)
			pnl := latest.Value.Sub(account.StartingCash).StringFixed(2)
			summary.PortfolioValue = &value
			summary.ProfitAndLoss = &pnl
		}
		summaries = append(summaries, summary)
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

// handleGetTrader returns the full state of one trader's account.
func (s *Server) handleGetTrader(w http.ResponseWriter, r *http.Request) {
	account, ok := s.traderAccount(w, r)
	if !ok {
		return
	}

	response := map[string]interface{}{
		"name":          account.Name,
		"model":         account.ModelName,
		"strategy":      account.Strategy,
		"cash_balance":  account.CashBalance.StringFixed(2),
		"starting_cash": account.StartingCash.StringFixed(2),
		"holdings":      account.Holdings,
		"created_at":    account.CreatedAt,
	}
	if latest := s.latestValue(r.Context(), account.Name); latest != nil {
		response["portfolio_value"] = latest.Value.StringFixed(2)
		response["pnl"] = latest.Value.Sub(account.StartingCash).StringFixed(2)
		response["valued_at"] = latest.RecordedAt
	}

	s.writeJSON(w, http.StatusOK, response)
}

// latestValue returns the most recently recorded portfolio value for a
// trader, or nil when no round has valued the account yet.
func (s *Server) latestValue(ctx context.Context, name string) *accounts.PortfolioValue {
	series, err := s.accounts.PortfolioHistory(ctx, name, 0)
	if err != nil {
		s.log.Error().Err(err).Str("trader", name).Msg("Failed to load portfolio history")
		return nil
	}
	if len(series) == 0 {
		return nil
	}
	return &series[len(series)-1]
}

// handleGetTransactions returns a trader's ledger, newest first.
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := s.traderAccount(w, r)
	if !ok {
		return
	}

	txns, err := s.accounts.Transactions(r.Context(), account.Name, 0)
	if err != nil {
		s.log.Error().Err(err).Str("trader", account.Name).Msg("Failed to load transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	if txns == nil {
		txns = []accounts.Transaction{}
	}
	// The repository hands back execution order; the dashboard wants the
	// latest activity on top.
	if limit := queryLimit(r); limit > 0 && len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}
	for i, j := 0, len(txns)-1; i < j; i, j = i+1, j-1 {
		txns[i], txns[j] = txns[j], txns[i]
	}

	s.writeJSON(w, http.StatusOK, txns)
}

// handleGetPortfolioHistory returns the value series with summary metrics.
func (s *Server) handleGetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := s.traderAccount(w, r)
	if !ok {
		return
	}

	series, err := s.accounts.PortfolioHistory(r.Context(), account.Name, queryLimit(r))
	if err != nil {
		s.log.Error().Err(err).Str("trader", account.Name).Msg("Failed to load portfolio history")
		s.writeError(w, http.StatusInternalServerError, "failed to load portfolio history")
		return
	}

	type point struct {
		Value      string    `json:"value"`
		RecordedAt time.Time `json:"recorded_at"`
	}
	points := make([]point, len(series))
	values := make([]float64, len(series))
	for i, pv := range series {
		points[i] = point{Value: pv.Value.StringFixed(2), RecordedAt: pv.RecordedAt}
		values[i], _ = pv.Value.Float64()
	}

	response := map[string]interface{}{
		"series": points,
	}
	if sharpe := formulas.SharpeFromValues(values, 0.0); sharpe != nil {
		response["sharpe_ratio"] = *sharpe
	}
	if drawdown := formulas.MaxDrawdown(values); drawdown != nil {
		response["max_drawdown"] = *drawdown
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetLogs returns a trader's recent activity log, newest first.
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	account, ok := s.traderAccount(w, r)
	if !ok {
		return
	}

	entries, err := s.accounts.Logs(r.Context(), account.Name, queryLimit(r))
	if err != nil {
		s.log.Error().Err(err).Str("trader", account.Name).Msg("Failed to load logs")
		s.writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	if entries == nil {
		entries = []accounts.LogEntry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}

// handleMarketStatus reports the live market state, falling back to the
// exchange calendar when the quote feed is unreachable.
func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	source := "live"
	open, err := s.marketOpen(r.Context())
	if err != nil {
		source = "calendar"
		open = s.marketHours.IsMarketOpen("NYSE")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"market_open": open,
		"source":      source,
		"next_open":   s.marketHours.NextOpen("NYSE"),
		"exchanges":   s.marketHours.GetAllMarketStatuses(),
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	schedulerStatus := map[string]interface{}{
		"running":                s.rounds != nil,
		"interval_minutes":       s.intervalMinutes,
		"run_when_market_closed": s.runWhenClosed,
	}
	if s.rounds != nil {
		if last, ok := s.rounds.LastRound(); ok {
			schedulerStatus["last_round"] = last
		}
	}

	response := map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"traders":        len(s.accounts.Names()),
		"scheduler":      schedulerStatus,
		"memory": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) traderAccount(w http.ResponseWriter, r *http.Request) (*accounts.Account, bool) {
	name := chi.URLParam(r, "name")
	account, err := s.accounts.Get(name)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown trader")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load trader")
		return nil, false
	}
	return account, true
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
