package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradingfloor/internal/accounts"
	"tradingfloor/internal/agents"
	"tradingfloor/internal/config"
	"tradingfloor/internal/database"
	"tradingfloor/internal/market"
	"tradingfloor/internal/scheduler"
	"tradingfloor/internal/server"
	"tradingfloor/internal/trader"
	"tradingfloor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Int("interval_minutes", cfg.RunEveryNMinutes).
		Bool("run_when_market_closed", cfg.RunWhenMarketClosed).
		Bool("use_many_models", cfg.UseManyModels).
		Strs("watchlist", cfg.Watchlist).
		Msg("Starting trading floor")

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Market data
	newsClient := market.NewNewsClient(cfg.NewsAPIKey)
	marketSvc := market.NewService(newsClient, log)

	// Accounts and traders
	accountsSvc := accounts.NewService(accounts.NewRepository(db), log)
	traders, err := buildTraders(cfg, accountsSvc, marketSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build traders")
	}

	// Scheduler
	marketHours := scheduler.NewMarketHoursService(log)
	floorJob := scheduler.NewTradingFloorJob(
		traders,
		marketSvc.IsMarketOpen,
		marketHours,
		cfg.RunWhenMarketClosed,
		time.Duration(cfg.DecisionTimeoutSeconds)*time.Second*2,
		log,
	)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	schedule := fmt.Sprintf("@every %dm", cfg.RunEveryNMinutes)
	if err := sched.AddJob(schedule, floorJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register trading floor job")
	}
	if err := sched.AddJob("@every 6h", scheduler.NewHealthCheckJob(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check job")
	}

	// First round right away rather than waiting a full interval.
	go func() {
		if err := sched.RunNow(floorJob); err != nil {
			log.Error().Err(err).Msg("Initial trading round failed")
		}
	}()

	// HTTP server
	srv := server.New(server.Config{
		Port:            cfg.Port,
		Log:             log,
		Accounts:        accountsSvc,
		MarketHours:     marketHours,
		MarketOpen:      marketSvc.IsMarketOpen,
		Rounds:          floorJob,
		IntervalMinutes: cfg.RunEveryNMinutes,
		RunWhenClosed:   cfg.RunWhenMarketClosed,
		DevMode:         cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

// buildTraders opens one account per persona and binds each to its model.
func buildTraders(cfg *config.Config, accountsSvc *accounts.Service, marketSvc *market.Service, log zerolog.Logger) ([]scheduler.CycleRunner, error) {
	ctx := context.Background()
	creds := agents.Credentials{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		DeepSeekAPIKey: cfg.DeepSeekAPIKey,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GrokAPIKey:     cfg.GrokAPIKey,
	}
	startingCash := decimal.NewFromFloat(cfg.InitialBalance)
	timeout := time.Duration(cfg.DecisionTimeoutSeconds) * time.Second

	var traders []scheduler.CycleRunner
	for _, persona := range trader.Personas(cfg.UseManyModels) {
		if _, err := accountsSvc.Open(ctx, persona.Name, persona.Strategy, persona.Binding.Model, startingCash); err != nil {
			return nil, fmt.Errorf("failed to open account for %s: %w", persona.Name, err)
		}

		model, err := agents.NewChatModel(ctx, persona.Binding, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to bind model for %s: %w", persona.Name, err)
		}
		decider := agents.NewDecider(persona.Name, model, timeout, log)

		traders = append(traders, trader.New(persona, accountsSvc, marketSvc, decider, cfg.Watchlist, log))
		log.Info().
			Str("trader", persona.FullName()).
			Str("provider", string(persona.Binding.Provider)).
			Str("model", persona.Binding.Model).
			Msg("Trader ready")
	}
	return traders, nil
}
