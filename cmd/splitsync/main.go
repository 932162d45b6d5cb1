// splitsync imports Splitwise expenses into a Buckets budget file.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/acanadell/splitsync/internal/config"
	"github.com/acanadell/splitsync/internal/engine"
	"github.com/acanadell/splitsync/internal/ledger"
	"github.com/acanadell/splitsync/internal/ledger/repository"
	"github.com/acanadell/splitsync/internal/splitwise"
)

func main() {
	var (
		configFlag     = flag.String("config", "", "config file path (default $SPLITSYNC_CONFIG, then ~/.config/splitsync)")
		sinceFlag      = flag.String("since", "", "override the fetch window lower bound (YYYY-MM-DD)")
		initFlag       = flag.Bool("init", false, "create a fresh ledger file with a Buckets-compatible schema and exit")
		migrationsFlag = flag.String("migrations", "internal/ledger/migrations", "schema migrations directory, used with -init")
		categoriesFlag = flag.Bool("categories", false, "dump the Splitwise category tree for the [categories] config section and exit")
		debugFlag      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debugFlag {
		log = log.Level(zerolog.DebugLevel)
	}

	ctx := context.Background()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if *categoriesFlag {
		client := splitwise.NewClient(ctx, cfg.Splitwise)
		if err := splitwise.PrintCategories(ctx, client, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("fetch categories")
		}
		return
	}

	if cfg.Ledger.Path == "" {
		log.Fatal().Msg("ledger.path is not configured")
	}

	if *initFlag {
		if err := ledger.RunMigrations(cfg.Ledger.Path, *migrationsFlag); err != nil {
			log.Fatal().Err(err).Msg("init ledger")
		}
		log.Info().Str("path", cfg.Ledger.Path).Msg("ledger ready")
		return
	}

	if _, err := os.Stat(cfg.Ledger.Path); err != nil {
		log.Fatal().Err(err).Msg("ledger file not found, pass -init to create one")
	}

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open ledger")
	}
	defer db.Close()

	// Resolve the configured account names up front: a typo here would fail
	// every single reconciliation, so it fails the run instead.
	acctRepo := repository.NewAccountRepo(db)
	var accounts engine.Accounts
	if accounts.Cash, err = acctRepo.ResolveID(ctx, cfg.Accounts.Cash); err != nil {
		log.Fatal().Err(err).Msg("resolve cash account")
	}
	if accounts.Payment, err = acctRepo.ResolveID(ctx, cfg.Accounts.Payment); err != nil {
		log.Fatal().Err(err).Msg("resolve payment account")
	}
	if accounts.Holding, err = acctRepo.ResolveID(ctx, cfg.Accounts.Splitwise); err != nil {
		log.Fatal().Err(err).Msg("resolve splitwise holding account")
	}

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		log.Warn().Err(err).Msg("using local timezone due to load failure")
		loc = time.Local
	}

	client := splitwise.NewClient(ctx, cfg.Splitwise)
	source, err := splitwise.NewSource(ctx, client, cfg.Splitwise, loc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to splitwise")
	}

	since, err := resolveSince(*sinceFlag, cfg.Splitwise)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve window")
	}

	eng := engine.New(repository.NewLegRepo(db), repository.NewBucketRepo(db), source, accounts, cfg.Categories, log)

	rep, err := eng.Run(ctx, since)
	if errors.Is(err, engine.ErrNoExpenses) {
		log.Info().Time("since", since).Msg("no expenses in the window, nothing to do")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	rep.Render(os.Stdout)

	s := rep.Summary()
	log.Info().
		Str("run_id", rep.RunID).
		Int("processed", s.Processed).
		Int("legs_written", s.LegsWritten).
		Int("failures", s.Failures).
		Msg("run finished")
	if s.Failures > 0 {
		os.Exit(1)
	}
}

func resolveSince(override string, cfg config.SplitwiseConfig) (time.Time, error) {
	if override != "" {
		return time.Parse("2006-01-02", override)
	}
	return cfg.Since(time.Now())
}
