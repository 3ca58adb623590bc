package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/cache"
	"github.com/dsilveira/finledger/internal/clock"
	"github.com/dsilveira/finledger/internal/config"
	"github.com/dsilveira/finledger/internal/forecast"
	"github.com/dsilveira/finledger/internal/ledger"
	"github.com/dsilveira/finledger/internal/logger"
	"github.com/dsilveira/finledger/internal/store/postgres"
)

func main() {
	log := logger.New(logger.Options{Pretty: true})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "balance":
		runBalance(log)
	case "cascade":
		runCascade(log)
	case "continuity":
		runContinuity(log)
	case "set-opening":
		runSetOpening(log)
	case "forecast":
		runForecast(log)
	case "migrate":
		runMigrate(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finledger reconciliation CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  reconcile <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  balance      Reconcile one month and print the result")
	fmt.Println("  cascade      Recalculate balances forward from a month")
	fmt.Println("  continuity   Verify and repair month-to-month continuity")
	fmt.Println("  set-opening  Manually set a month's opening balance")
	fmt.Println("  forecast     Print the 12-month projection and alerts")
	fmt.Println("  migrate      Apply pending database migrations")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'reconcile <command> -h' for more information on a command.")
}

// openEngine connects to the database and builds the engine plus its
// collaborators. The returned cleanup closes the pool.
func openEngine(log zerolog.Logger) (*ledger.Engine, *forecast.Service, func(), error) {
	cfg, err := config.Load(os.Getenv("FINLEDGER_CONFIG"))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, err
	}

	sessionCache := cache.New(cfg.Cache.TTL.Duration)
	clk := clock.System{}
	engine := ledger.New(st, sessionCache, clk, log).WithTimeout(cfg.Ledger.StoreTimeout.Duration)
	forecastSvc := forecast.New(st, sessionCache, clk, log)

	return engine, forecastSvc, st.Close, nil
}

func periodFlags(fs *flag.FlagSet) (user *string, month, year *int) {
	user = fs.String("user", "", "User ID (required)")
	now := time.Now()
	month = fs.Int("month", int(now.Month()), "Month (1-12)")
	year = fs.Int("year", now.Year(), "Year")
	return user, month, year
}

func runBalance(log zerolog.Logger) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	user, month, year := periodFlags(fs)
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	engine, _, closeFn, err := openEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer closeFn()

	result := engine.ReconcileMonth(context.Background(), *user, *month, *year)
	if result.Unknown {
		log.Fatal().Msg("Balance unavailable")
	}

	fmt.Printf("%04d-%02d  opening %10.2f  income %10.2f  expenses %10.2f  closing %10.2f\n",
		*year, *month, result.Opening, result.Income, result.Expenses, result.Closing)
}

func runCascade(log zerolog.Logger) {
	fs := flag.NewFlagSet("cascade", flag.ExitOnError)
	user, month, year := periodFlags(fs)
	force := fs.Bool("force", false, "Overwrite manually edited months")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	engine, _, closeFn, err := openEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer closeFn()

	if err := engine.CascadeFrom(context.Background(), *user, *month, *year, *force); err != nil {
		log.Fatal().Err(err).Msg("Cascade failed")
	}
	log.Info().Msg("Cascade completed")
}

func runContinuity(log zerolog.Logger) {
	fs := flag.NewFlagSet("continuity", flag.ExitOnError)
	user, month, year := periodFlags(fs)
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	engine, _, closeFn, err := openEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer closeFn()

	if err := engine.EnsureContinuity(context.Background(), *user, *month, *year); err != nil {
		log.Fatal().Err(err).Msg("Continuity check failed")
	}
	log.Info().Msg("Continuity verified")
}

func runSetOpening(log zerolog.Logger) {
	fs := flag.NewFlagSet("set-opening", flag.ExitOnError)
	user, month, year := periodFlags(fs)
	value := fs.Float64("value", 0, "Opening balance value")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	engine, _, closeFn, err := openEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer closeFn()

	if err := engine.SetOpeningBalance(context.Background(), *user, *month, *year, *value); err != nil {
		log.Fatal().Err(err).Msg("Failed to set opening balance")
	}
	log.Info().Float64("value", *value).Msg("Opening balance set")
}

func runForecast(log zerolog.Logger) {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	_, forecastSvc, closeFn, err := openEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer closeFn()

	months, err := forecastSvc.Project12Months(context.Background(), *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Forecast failed")
	}

	for _, m := range months {
		fmt.Printf("%04d-%02d  income %10.2f  commitments %10.2f  projected %10.2f  %s\n",
			m.Year, m.Month, m.Income, m.FixedCommitments, m.ProjectedBalance, m.Status)
	}
	for _, a := range forecast.GenerateAlerts(months) {
		fmt.Printf("[%s] %s: %s\n", a.Priority, a.Title, a.Description)
	}
}

func runMigrate(log zerolog.Logger) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := fs.String("migrations", "db/migrations", "Path to migrations directory")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(os.Getenv("FINLEDGER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := postgres.RunMigrations(cfg.Database.URL, *dir); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Msg("Migrations applied")
}
