package loader

import "time"

// Config holds configuration for one load run.
type Config struct {
	DBPath    string // SQLite event log to load into
	InputFile string // Ball-by-ball CSV; empty means generate synthetic matches
	Matches   int    // Number of synthetic matches when generating
	BatchSize int    // Deliveries per insert transaction
	LogFile   string // Log file for load output
	Verbose   bool   // Enable verbose logging
}

// Stats holds load statistics.
type Stats struct {
	RowsRead      int
	RowsSkipped   int
	RowsInserted  int
	MatchesLoaded int64
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
