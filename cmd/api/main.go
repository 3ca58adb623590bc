package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dsilveira/finledger/internal/api/handlers"
	"github.com/dsilveira/finledger/internal/api/middleware"
	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/config"
	"github.com/dsilveira/finledger/internal/creditlimit"
	"github.com/dsilveira/finledger/internal/forecast"
	"github.com/dsilveira/finledger/internal/ledger"
	"github.com/dsilveira/finledger/internal/logger"
	"github.com/dsilveira/finledger/internal/paystatus"
	"github.com/dsilveira/finledger/internal/store"
	"github.com/dsilveira/finledger/internal/store/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to the TOML config file")
		migrateUp  = flag.Bool("migrate", true, "Apply pending database migrations on startup")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if *migrateUp {
		if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	ctx := context.Background()

	st, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer st.Close()

	sessionCache := cache.New(cfg.Cache.TTL.Duration)
	clk := clock.System{}

	engine := ledger.New(st, sessionCache, clk, log).WithTimeout(cfg.Ledger.StoreTimeout.Duration)
	limitSvc := creditlimit.NewService(st, sessionCache, clk, log)
	forecastSvc := forecast.New(st, sessionCache, clk, log)
	statusSvc := paystatus.New(st, clk, log)

	// Drop a user's cached views as soon as any of their rows change.
	// Without the listener the cache still converges via TTL expiry.
	listenCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	go func() {
		notifier := postgres.NewNotifier(st, log)
		err := notifier.Subscribe(listenCtx, func(userID string, _ store.Table) {
			sessionCache.InvalidateUser(userID)
		})
		if err != nil {
			log.Error().Err(err).Msg("Change listener stopped")
		}
	}()

	balancesHandler := handlers.NewBalancesHandler(engine, log)
	cardsHandler := handlers.NewCardsHandler(limitSvc, log)
	forecastHandler := handlers.NewForecastHandler(forecastSvc, log)
	commitmentsHandler := handlers.NewCommitmentsHandler(statusSvc, log)

	mux := http.NewServeMux()

	// User-scoped endpoints
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) < 2 || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		userID := parts[0]

		switch {
		case len(parts) == 2 && parts[1] == "balance" && r.Method == http.MethodGet:
			balancesHandler.GetBalance(w, r, userID)
		case len(parts) == 3 && parts[1] == "balance" && parts[2] == "opening" && r.Method == http.MethodPut:
			balancesHandler.SetOpeningBalance(w, r, userID)
		case len(parts) == 2 && parts[1] == "recalculate" && r.Method == http.MethodPost:
			balancesHandler.Recalculate(w, r, userID)
		case len(parts) == 2 && parts[1] == "continuity" && r.Method == http.MethodPost:
			balancesHandler.CheckContinuity(w, r, userID)
		case len(parts) == 2 && parts[1] == "cards" && r.Method == http.MethodGet:
			cardsHandler.ListLimits(w, r, userID)
		case len(parts) == 3 && parts[1] == "cards" && r.Method == http.MethodGet:
			cardsHandler.GetLimit(w, r, userID, parts[2])
		case len(parts) == 2 && parts[1] == "forecast" && r.Method == http.MethodGet:
			forecastHandler.GetForecast(w, r, userID)
		case len(parts) == 3 && parts[1] == "commitments" && parts[2] == "totals" && r.Method == http.MethodGet:
			commitmentsHandler.GetTotals(w, r, userID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Commitment status endpoints
	mux.HandleFunc("/api/commitments/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/commitments/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		commitmentID := parts[0]

		switch r.Method {
		case http.MethodGet:
			commitmentsHandler.GetStatus(w, r, commitmentID)
		case http.MethodPut:
			commitmentsHandler.SetStatus(w, r, commitmentID)
		case http.MethodDelete:
			commitmentsHandler.ClearStatus(w, r, commitmentID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopListener()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
