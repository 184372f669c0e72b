package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliotrack/foliotrack/internal/clients/coingecko"
	"github.com/foliotrack/foliotrack/internal/clients/finnhub"
	"github.com/foliotrack/foliotrack/internal/clients/yahoo"
	"github.com/foliotrack/foliotrack/internal/config"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/analytics"
	"github.com/foliotrack/foliotrack/internal/modules/equity"
	"github.com/foliotrack/foliotrack/internal/modules/ledger"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/modules/report"
	"github.com/foliotrack/foliotrack/internal/scheduler"
	"github.com/foliotrack/foliotrack/internal/server"
	"github.com/foliotrack/foliotrack/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting foliotrack")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := ledger.InitSchema(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Ledger: rebuild in-memory state from the transaction log
	lotLedger := ledger.NewLotLedger(log)
	ledgerRepo := ledger.NewRepository(db.Conn(), log)
	ledgerService := ledger.NewService(lotLedger, ledgerRepo, log)
	if err := ledgerService.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load transaction log")
	}

	// Price plumbing
	prevCloseTZ, err := time.LoadLocation(cfg.CryptoPrevTZ)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid crypto previous-close timezone")
	}

	priceStore := prices.NewStore(cfg.HistoryDir, log)
	priceService := prices.NewService(
		priceStore,
		yahoo.NewClient(log),
		finnhub.NewClient(cfg.FinnhubAPIKey, log),
		coingecko.NewClient(cfg.CoinGeckoURL, log),
		lotLedger,
		cfg.HistoryPeriod,
		cfg.QuoteCacheTTL,
		prevCloseTZ,
		log,
	)

	equityService := equity.NewService(lotLedger, priceService, log)
	analyticsService := analytics.NewService(priceService, cfg.RiskFreeRate, log)
	assembler := report.NewAssembler(lotLedger, priceService, log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	syncJob := prices.NewSeriesSyncJob(priceService, log)
	if err := sched.AddJob(cfg.SeriesSyncSpec, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register series sync job")
	}
	sched.Start()
	defer sched.Stop()

	// Warm the price snapshot in the background so startup is not gated on
	// external APIs
	go func() {
		if err := sched.RunNow(syncJob); err != nil {
			log.Error().Err(err).Msg("Initial series sync failed")
		}
	}()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Config:  cfg,
		DevMode: cfg.DevMode,
		Handlers: server.Handlers{
			Ledger:    ledger.NewHandler(ledgerService, log),
			Equity:    equity.NewHandler(equityService, log),
			Prices:    prices.NewHandler(priceService, log),
			Report:    report.NewHandler(assembler, log),
			Analytics: analytics.NewHandler(analyticsService, log),
		},
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
