package scheduler

import (
	"time"

	"github.com/rs/zerolog"
)

// TradingWindow represents a single trading period within a day
type TradingWindow struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// ExchangeCalendar defines trading hours and holidays for an exchange
type ExchangeCalendar struct {
	Code           string
	Name           string
	TimezoneStr    string
	Timezone       *time.Location
	TradingWindows []TradingWindow
	Holidays       []time.Time
}

// MarketHoursService answers whether the US equity session is open based on
// the exchange calendar. It is the offline fallback for the live quote-based
// market state check.
type MarketHoursService struct {
	calendars map[string]*ExchangeCalendar
	now       func() time.Time
	log       zerolog.Logger
}

// NewMarketHoursService creates a new market hours service
func NewMarketHoursService(log zerolog.Logger) *MarketHoursService {
	service := &MarketHoursService{
		calendars: make(map[string]*ExchangeCalendar),
		now:       time.Now,
		log:       log.With().Str("component", "market_hours").Logger(),
	}

	service.initializeCalendars()
	return service
}

// initializeCalendars sets up trading hours and holidays for US exchanges
func (s *MarketHoursService) initializeCalendars() {
	nyLoc, _ := time.LoadLocation("America/New_York")
	usHolidays := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, nyLoc),   // New Year's Day
		time.Date(2026, 1, 19, 0, 0, 0, 0, nyLoc),  // MLK Day
		time.Date(2026, 2, 16, 0, 0, 0, 0, nyLoc),  // Presidents Day
		time.Date(2026, 4, 3, 0, 0, 0, 0, nyLoc),   // Good Friday
		time.Date(2026, 5, 25, 0, 0, 0, 0, nyLoc),  // Memorial Day
		time.Date(2026, 6, 19, 0, 0, 0, 0, nyLoc),  // Juneteenth
		time.Date(2026, 7, 3, 0, 0, 0, 0, nyLoc),   // Independence Day (observed)
		time.Date(2026, 9, 7, 0, 0, 0, 0, nyLoc),   // Labor Day
		time.Date(2026, 11, 26, 0, 0, 0, 0, nyLoc), // Thanksgiving
		time.Date(2026, 12, 25, 0, 0, 0, 0, nyLoc), // Christmas
	}

	s.calendars["NYSE"] = &ExchangeCalendar{
		Code:        "XNYS",
		Name:        "NYSE",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		Holidays: usHolidays,
	}

	s.calendars["NASDAQ"] = &ExchangeCalendar{
		Code:        "XNAS",
		Name:        "NASDAQ",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		TradingWindows: []TradingWindow{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		Holidays: usHolidays,
	}
}

// GetCalendar returns the calendar for an exchange, defaulting to NYSE
func (s *MarketHoursService) GetCalendar(exchangeName string) *ExchangeCalendar {
	if cal, ok := s.calendars[exchangeName]; ok {
		return cal
	}

	s.log.Warn().Str("exchange", exchangeName).Msg("Unknown exchange, defaulting to NYSE")
	return s.calendars["NYSE"]
}

// IsMarketOpen checks if a market is currently open for trading
func (s *MarketHoursService) IsMarketOpen(exchangeName string) bool {
	cal := s.GetCalendar(exchangeName)
	now := s.now().In(cal.Timezone)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cal.Timezone)
	if !isTradingDay(cal, today) {
		return false
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	for _, window := range cal.TradingWindows {
		openMinutes := window.OpenHour*60 + window.OpenMinute
		closeMinutes := window.CloseHour*60 + window.CloseMinute

		if currentMinutes >= openMinutes && currentMinutes < closeMinutes {
			return true
		}
	}

	return false
}

func isTradingDay(cal *ExchangeCalendar, date time.Time) bool {
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return false
	}
	for _, holiday := range cal.Holidays {
		if holiday.Equal(date) {
			return false
		}
	}
	return true
}

// NextOpen returns the start of the next trading session after now. During an
// open session it reports the following session's open.
func (s *MarketHoursService) NextOpen(exchangeName string) time.Time {
	cal := s.GetCalendar(exchangeName)
	now := s.now().In(cal.Timezone)

	for offset := 0; offset < 14; offset++ {
		day := now.AddDate(0, 0, offset)
		date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, cal.Timezone)
		if !isTradingDay(cal, date) {
			continue
		}
		window := cal.TradingWindows[0]
		open := date.Add(time.Duration(window.OpenHour)*time.Hour + time.Duration(window.OpenMinute)*time.Minute)
		if open.After(now) {
			return open
		}
	}
	return time.Time{}
}

// MarketStatus represents the status of a market
type MarketStatus struct {
	Exchange string    `json:"exchange"`
	IsOpen   bool      `json:"is_open"`
	Timezone string    `json:"timezone"`
	NextOpen time.Time `json:"next_open"`
}

// GetAllMarketStatuses returns status for all configured markets
func (s *MarketHoursService) GetAllMarketStatuses() []MarketStatus {
	statuses := make([]MarketStatus, 0, len(s.calendars))
	seen := make(map[string]bool)

	for name, cal := range s.calendars {
		if seen[cal.Code] {
			continue
		}
		seen[cal.Code] = true

		statuses = append(statuses, MarketStatus{
			Exchange: name,
			IsOpen:   s.IsMarketOpen(name),
			Timezone: cal.TimezoneStr,
			NextOpen: s.NextOpen(name),
		})
	}

	return statuses
}
