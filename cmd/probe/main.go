package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/deshmukhh/crease/internal/probe"
	"github.com/deshmukhh/crease/pkg/logger"
)

// Default configuration constants.
const (
	defaultProbeTimeout   = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the running server")
		questions = flag.String("questions", "", "File with one question per line (default: built-in set)")
		workers   = flag.Int("workers", probe.DefaultWorkers, "Concurrent replay workers")
		timeout   = flag.Duration("timeout", defaultRequestTimeout, "Per-request timeout")
		validate  = flag.Bool("validate", false, "Use /ask/validate instead of /ask (no execution)")
		verbose   = flag.Bool("verbose", false, "Log every outcome, not just the summary")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	config := probe.Config{
		BaseURL:       *baseURL,
		QuestionsFile: *questions,
		Workers:       *workers,
		Timeout:       *timeout,
		ValidateOnly:  *validate,
		Verbose:       *verbose,
	}

	stats, err := probe.Run(ctx, config)
	if err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
