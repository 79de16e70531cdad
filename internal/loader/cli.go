package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/deshmukhh/crease/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "load_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the delivery load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Crease Delivery Load Tool
=========================

Loads a ball-by-ball CSV into the event log, or seeds it with synthetic
matches when no input file is given.

Usage:
  go run cmd/load-deliveries/main.go [options]

Options:
  -db string
        SQLite event log path (default "crease.db")
  -input string
        Ball-by-ball CSV file to load (default: generate synthetic matches)
  -matches int
        Number of synthetic matches to generate when no input file (default 50)
  -batch int
        Deliveries per insert transaction (default 5000)
  -log string
        Log file for load output (default: load_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed a fresh log with synthetic matches
  go run cmd/load-deliveries/main.go -db crease.db -matches 100

  # Load a real ball-by-ball CSV
  go run cmd/load-deliveries/main.go -db crease.db -input deliveries.csv

  # Load with a custom batch size and log file
  go run cmd/load-deliveries/main.go -input deliveries.csv -batch 10000 -log my_load.log
`)
}
