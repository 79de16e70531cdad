package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/deshmukhh/crease/internal/loader"
)

// Default configuration constants.
const (
	defaultLoadTimeout = 10 * time.Minute
)

func main() {
	var (
		dbPath    = flag.String("db", "crease.db", "SQLite event log path")
		inputFile = flag.String("input", "", "Ball-by-ball CSV file to load (default: generate synthetic matches)")
		matches   = flag.Int("matches", loader.DefaultMatches, "Number of synthetic matches to generate when no input file")
		batchSize = flag.Int("batch", loader.DefaultBatchSize, "Deliveries per insert transaction")
		logFile   = flag.String("log", "", "Log file for load output (default: load_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loader.ShowHelp()
		return
	}

	// Setup logging
	if err := loader.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultLoadTimeout)
	defer cancel()

	// Create load configuration
	config := &loader.Config{
		DBPath:    *dbPath,
		InputFile: *inputFile,
		Matches:   *matches,
		BatchSize: *batchSize,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	// Run the load
	if err := loader.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load failed: " + err.Error() + "\n")
		return
	}
}
