package rowstore

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaDDL is the deliveries table: one row per delivery, flattened so
// every predicate is a plain column comparison.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS deliveries (
	match_id              TEXT    NOT NULL,
	season                INTEGER NOT NULL,
	venue                 TEXT    NOT NULL,
	over_number           INTEGER NOT NULL,
	ball_valid            INTEGER NOT NULL,
	batter_name           TEXT    NOT NULL,
	bowler_name           TEXT    NOT NULL,
	batting_team          TEXT    NOT NULL,
	bowling_team          TEXT    NOT NULL,
	runs_off_bat          INTEGER NOT NULL,
	runs_total            INTEGER NOT NULL,
	is_four               INTEGER NOT NULL DEFAULT 0,
	is_six                INTEGER NOT NULL DEFAULT 0,
	is_wicket             INTEGER NOT NULL DEFAULT 0,
	player_dismissed      TEXT,
	bowling_delivery_type TEXT,
	batting_hand          TEXT,
	winner                TEXT
);

CREATE INDEX IF NOT EXISTS idx_deliveries_batter ON deliveries(batter_name);
CREATE INDEX IF NOT EXISTS idx_deliveries_bowler ON deliveries(bowler_name);
CREATE INDEX IF NOT EXISTS idx_deliveries_season ON deliveries(season);
CREATE INDEX IF NOT EXISTS idx_deliveries_teams  ON deliveries(batting_team, bowling_team);
`

// Delivery is one event-log row in insertion form. Used by the loader
// tool and the tests; the query path never writes.
type Delivery struct {
	MatchID     string
	Season      int
	Venue       string
	Over        int
	Valid       bool
	Batter      string
	Bowler      string
	BattingTeam string
	BowlingTeam string
	RunsOffBat  int
	RunsTotal   int
	IsFour      bool
	IsSix       bool
	IsWicket    bool
	Dismissed   string
	BowlingType string
	BattingHand string
	Winner      string
}

// EnsureSchema creates the deliveries table and its indexes.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Insert appends deliveries in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, ds []Delivery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO deliveries (
		match_id, season, venue, over_number, ball_valid,
		batter_name, bowler_name, batting_team, bowling_team,
		runs_off_bat, runs_total, is_four, is_six, is_wicket,
		player_dismissed, bowling_delivery_type, batting_hand, winner
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range ds {
		_, err := stmt.ExecContext(ctx,
			d.MatchID, d.Season, d.Venue, d.Over, boolInt(d.Valid),
			d.Batter, d.Bowler, d.BattingTeam, d.BowlingTeam,
			d.RunsOffBat, d.RunsTotal, boolInt(d.IsFour), boolInt(d.IsSix), boolInt(d.IsWicket),
			nullable(d.Dismissed), nullable(d.BowlingType), nullable(d.BattingHand), nullable(d.Winner),
		)
		if err != nil {
			return fmt.Errorf("inserting delivery: %w", err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
