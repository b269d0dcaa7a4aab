package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradingfloor/pkg/formulas"
)

const rsiPeriod = 14

// historyDays covers the RSI lookback with margin for weekends and holidays.
const historyDays = 45

type quoteFunc func(symbol string) (*finance.Quote, error)
type historyFunc func(symbol string, start, end time.Time) ([]float64, error)

// Service builds market snapshots from Yahoo Finance quotes, daily history
// and optional company news.
type Service struct {
	getQuote   quoteFunc
	getHistory historyFunc
	news       *NewsClient
	logger     zerolog.Logger
}

func NewService(news *NewsClient, logger zerolog.Logger) *Service {
	return &Service{
		getQuote:   quote.Get,
		getHistory: fetchDailyCloses,
		news:       news,
		logger:     logger.With().Str("component", "market").Logger(),
	}
}

// Snapshot prices every requested symbol. Symbols that fail to price are
// collected in Missing; ErrSnapshotUnavailable is returned only when no
// symbol could be priced at all.
func (s *Service) Snapshot(ctx context.Context, symbols []string) (*Snapshot, error) {
	snapshot := &Snapshot{
		Quotes:  make(map[string]Quote, len(symbols)),
		TakenAt: time.Now().UTC(),
	}

	seen := make(map[string]bool, len(symbols))
	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q, open, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
			snapshot.Missing = append(snapshot.Missing, symbol)
			continue
		}
		snapshot.Quotes[symbol] = *q
		if open {
			snapshot.MarketOpen = true
		}
	}
	sort.Strings(snapshot.Missing)

	if len(snapshot.Quotes) == 0 {
		return nil, fmt.Errorf("no quotes for %d symbols: %w", len(seen), ErrSnapshotUnavailable)
	}
	return snapshot, nil
}

// IsMarketOpen reports whether the US equity market is in its regular
// session, using SPY as the reference instrument.
func (s *Service) IsMarketOpen(ctx context.Context) (bool, error) {
	q, err := s.getQuote("SPY")
	if err != nil {
		return false, fmt.Errorf("failed to check market state: %w", err)
	}
	return q.MarketState == finance.MarketStateRegular, nil
}

func (s *Service) fetchQuote(ctx context.Context, symbol string) (*Quote, bool, error) {
	fq, err := s.getQuote(symbol)
	if err != nil {
		return nil, false, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if fq.RegularMarketPrice <= 0 {
		return nil, false, fmt.Errorf("quote %s: no regular market price", symbol)
	}

	result := &Quote{
		Symbol:      symbol,
		Price:       decimal.NewFromFloat(fq.RegularMarketPrice),
		PrevClose:   decimal.NewFromFloat(fq.RegularMarketPreviousClose),
		ChangePct:   fq.RegularMarketChangePercent,
		RetrievedAt: time.Now().UTC(),
	}

	// RSI and news are enrichment; losing them degrades the snapshot but
	// does not drop the symbol.
	end := time.Now()
	closes, err := s.getHistory(symbol, end.AddDate(0, 0, -historyDays), end)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("No price history for RSI")
	} else {
		result.RSI14 = formulas.RSI(closes, rsiPeriod)
	}

	if s.news != nil {
		headlines, err := s.news.CompanyNews(ctx, symbol, 3)
		if err != nil {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("No company news")
		} else {
			result.Headlines = headlines
		}
	}

	return result, fq.MarketState == finance.MarketStateRegular, nil
}

func fetchDailyCloses(symbol string, start, end time.Time) ([]float64, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var closes []float64
	for iter.Next() {
		bar := iter.Bar()
		closePrice, _ := bar.Close.Float64()
		closes = append(closes, closePrice)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	return closes, nil
}
