// Command cgtengine runs one UK Capital Gains Tax calculation: it wires a
// Postgres-or-CSV ingestion adapter, a static-or-Redis-cached FX oracle,
// the calculation engine, and the report assembler into a single run
// (SPEC_FULL.md §4.18).
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cgtengine/internal/engine"
	"cgtengine/internal/fx"
	"cgtengine/internal/ingest"
	"cgtengine/internal/obslog"
	"cgtengine/internal/report"
)

var (
	flagTaxYear  int
	flagInput    string
	flagFromDB   bool
	flagBroker   string
	flagFxSource string
	flagOut      string
	flagEnv      string
)

func main() {
	root := &cobra.Command{
		Use:   "cgtengine",
		Short: "Compute a UK Capital Gains Tax report from broker transactions",
		RunE:  run,
	}

	root.Flags().IntVar(&flagTaxYear, "tax-year", 0, "tax year to compute, e.g. 2023 for 2023/24 (required)")
	root.Flags().StringVar(&flagInput, "input", "", "CSV broker export to ingest")
	root.Flags().BoolVar(&flagFromDB, "from-db", false, "ingest previously-persisted rows from Postgres instead of --input")
	root.Flags().StringVar(&flagBroker, "broker", "unknown", "broker label recorded against ingested CSV rows")
	root.Flags().StringVar(&flagFxSource, "fx-source", "static", "fx rate source: static or redis")
	root.Flags().StringVar(&flagOut, "out", "", "CSV output path (default: stdout)")
	root.Flags().StringVar(&flagEnv, "env", "production", "logging environment: production or development")
	_ = root.MarkFlagRequired("tax-year")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := obslog.New(flagEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cgtengine: logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.New().String()))

	ctx := context.Background()

	oracle, cleanup, err := buildOracle(flagFxSource)
	if err != nil {
		fail(logger, err, nil)
	}
	if cleanup != nil {
		defer cleanup()
	}

	adapter, cleanupAdapter, err := buildAdapter(ctx)
	if err != nil {
		fail(logger, err, nil)
	}
	if cleanupAdapter != nil {
		defer cleanupAdapter()
	}

	eng := engine.New(oracle, logger)

	rowErrors, err := ingest.Drive(ctx, adapter, eng)
	for _, rowErr := range rowErrors {
		logger.Warn("skipped malformed row", zap.Error(rowErr))
	}
	if err != nil {
		fail(logger, err, nil)
	}

	rep, err := eng.Calculate(ctx, flagTaxYear)
	if err != nil {
		fail(logger, err, nil)
	}

	csvBytes, err := report.RenderCSV(rep)
	if err != nil {
		fail(logger, err, nil)
	}

	if err := writeOutput(csvBytes); err != nil {
		fail(logger, err, nil)
	}

	allowanceResult := report.ApplyAllowance(rep, report.DefaultTable())
	fmt.Fprintf(os.Stderr, "capital_gain=%s capital_loss=%s taxable_gain=%s warnings=%d\n",
		rep.CapitalGain, rep.CapitalLoss, allowanceResult.TaxableGain, len(rep.Warnings))

	return nil
}

// fail prints err (and the originating row, if the error names one) to
// stderr and exits non-zero, per SPEC_FULL.md §4.18.
func fail(logger *zap.Logger, err error, row *ingest.Row) {
	logger.Error("calculation failed", zap.Error(err))
	fmt.Fprintln(os.Stderr, "cgtengine:", err)
	os.Exit(1)
}

func writeOutput(data []byte) error {
	if flagOut == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(flagOut, data, 0o644)
}

func buildOracle(source string) (fx.Oracle, func(), error) {
	switch source {
	case "static":
		return fx.NewStaticTable(fx.Daily), nil, nil
	case "redis":
		redisHost := getEnv("REDIS_HOST", "localhost")
		redisPort := getEnv("REDIS_PORT", "6379")
		client := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
			DialTimeout:  15 * time.Second,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		})
		upstream := fx.NewStaticTable(fx.Daily)
		cache := fx.NewRedisCache(client, upstream, fx.Daily, 24*time.Hour)
		cleanup := func() { client.Close() }
		return cache, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("cgtengine: unknown --fx-source %q", source)
	}
}

func buildAdapter(ctx context.Context) (ingest.Adapter, func(), error) {
	if flagFromDB {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "")
		dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s", dbUser, url.QueryEscape(dbPassword), dbHost, dbPort)

		pool, err := pgxpool.Connect(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("cgtengine: connect postgres: %w", err)
		}
		cleanup := func() { pool.Close() }
		return ingest.NewPostgresAdapter(pool), cleanup, nil
	}

	if flagInput == "" {
		return nil, nil, fmt.Errorf("cgtengine: one of --input or --from-db is required")
	}
	f, err := os.Open(flagInput)
	if err != nil {
		return nil, nil, fmt.Errorf("cgtengine: open --input: %w", err)
	}
	cleanup := func() { f.Close() }
	return ingest.NewCSVAdapter(f, flagBroker), cleanup, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
