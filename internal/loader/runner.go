package loader

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	"github.com/deshmukhh/crease/pkg/logger"
)

// Default run constants.
const (
	DefaultBatchSize = 5000
	DefaultMatches   = 50
)

// Run executes one complete load: read or generate deliveries, insert
// them in batches, and verify the loaded log.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	logger.Get().Info(ctx, "starting delivery load",
		logger.String("db", config.DBPath),
		logger.String("input", config.InputFile),
		logger.Int("batchSize", config.BatchSize))

	deliveries, err := collect(ctx, config, stats)
	if err != nil {
		return err
	}

	store, err := rowstore.New(config.DBPath)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := insertBatches(ctx, store, deliveries, config.BatchSize, stats); err != nil {
		return err
	}

	if err := verify(ctx, store, stats); err != nil {
		return err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report(ctx, stats)
	return nil
}

// collect reads the input CSV, or generates synthetic matches when no
// input file was given.
func collect(ctx context.Context, config *Config, stats *Stats) ([]rowstore.Delivery, error) {
	if config.InputFile == "" {
		matches := config.Matches
		if matches <= 0 {
			matches = DefaultMatches
		}
		logger.Get().Info(ctx, "no input file; generating synthetic matches",
			logger.Int("matches", matches))
		ds := Generate(matches)
		stats.RowsRead = len(ds)
		return ds, nil
	}

	f, err := os.Open(config.InputFile)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := parseCSV(f, stats)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", config.InputFile, err)
	}
	logger.Get().Info(ctx, "parsed deliveries",
		logger.Int("rows", stats.RowsRead),
		logger.Int("skipped", stats.RowsSkipped))
	return ds, nil
}

func insertBatches(ctx context.Context, store *rowstore.SQLiteStore, ds []rowstore.Delivery, batchSize int, stats *Stats) error {
	for start := 0; start < len(ds); start += batchSize {
		select {
		case <-ctx.Done():
			return fmt.Errorf("load cancelled: %w", ctx.Err())
		default:
		}

		end := start + batchSize
		if end > len(ds) {
			end = len(ds)
		}
		if err := store.Insert(ctx, ds[start:end]); err != nil {
			return fmt.Errorf("inserting batch at %d: %w", start, err)
		}
		stats.RowsInserted += end - start
	}
	return nil
}

// verify checks the loaded log is queryable and remembers its span.
func verify(ctx context.Context, store *rowstore.SQLiteStore, stats *Stats) error {
	sum, err := store.Summary(ctx)
	if err != nil {
		return fmt.Errorf("verifying load: %w", err)
	}
	if sum.Deliveries < int64(stats.RowsInserted) {
		return fmt.Errorf("loaded %d rows but the log reports %d", stats.RowsInserted, sum.Deliveries)
	}
	stats.MatchesLoaded = sum.Matches
	return nil
}

func report(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "load complete",
		logger.Int("rowsRead", stats.RowsRead),
		logger.Int("rowsSkipped", stats.RowsSkipped),
		logger.Int("rowsInserted", stats.RowsInserted),
		logger.Any("matches", stats.MatchesLoaded),
		logger.String("duration", stats.Duration.String()))
}
