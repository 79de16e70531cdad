package rowstore_test

import (
	"context"
	"testing"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init()
}

// seedStore builds an in-process log with two matches: Kohli facing
// Bumrah and Malinga in 2016, Dhoni facing the same attack in 2018.
func seedStore(t *testing.T) *rowstore.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	s, err := rowstore.New(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	m1 := func(over int, bowler string, runs int) rowstore.Delivery {
		return rowstore.Delivery{
			MatchID: "m1", Season: 2016, Venue: "Wankhede Stadium",
			Over: over, Valid: true,
			Batter: "V Kohli", Bowler: bowler,
			BattingTeam: "Royal Challengers Bangalore", BowlingTeam: "Mumbai Indians",
			RunsOffBat: runs, RunsTotal: runs,
			IsFour: runs == 4, IsSix: runs == 6,
			BattingHand: "right", BowlingType: "pace",
		}
	}
	m2 := func(over int, bowler string, runs int) rowstore.Delivery {
		return rowstore.Delivery{
			MatchID: "m2", Season: 2018, Venue: "MA Chidambaram Stadium",
			Over: over, Valid: true,
			Batter: "MS Dhoni", Bowler: bowler,
			BattingTeam: "Chennai Super Kings", BowlingTeam: "Mumbai Indians",
			RunsOffBat: runs, RunsTotal: runs,
			IsFour: runs == 4, IsSix: runs == 6,
			BattingHand: "right", BowlingType: "pace",
		}
	}

	wide := m1(2, "JJ Bumrah", 0)
	wide.Valid = false
	wide.RunsTotal = 1

	out := m1(18, "SL Malinga", 0)
	out.IsWicket = true
	out.Dismissed = "V Kohli"

	deliveries := []rowstore.Delivery{
		m1(2, "JJ Bumrah", 1),
		m1(2, "JJ Bumrah", 4),
		m1(2, "JJ Bumrah", 6),
		m1(2, "JJ Bumrah", 0),
		m1(2, "JJ Bumrah", 2),
		m1(2, "JJ Bumrah", 1),
		wide,
		m1(18, "SL Malinga", 2),
		m1(18, "SL Malinga", 0),
		out,
		m2(5, "JJ Bumrah", 6),
		m2(5, "JJ Bumrah", 1),
		m2(16, "SL Malinga", 0),
		m2(16, "SL Malinga", 2),
	}
	if err := s.Insert(ctx, deliveries); err != nil {
		t.Fatalf("seeding deliveries: %v", err)
	}
	return s
}

func metricSelect(m model.Metric) model.SelectExpr {
	return model.SelectExpr{Kind: model.SelectMetric, Metric: m, Alias: string(m)}
}

func TestSQLiteStore(t *testing.T) {
	convey.Convey("Given a seeded event log", t, func() {
		ctx := context.Background()
		s := seedStore(t)

		convey.Convey("When aggregating one batter's strike rate", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "player"},
					metricSelect(model.MetricStrikeRate),
					metricSelect(model.MetricTotalRuns),
					metricSelect(model.MetricBallsFaced),
				},
				Where: []model.Filter{
					{Column: model.ColBatterName, Op: model.OpEq, Value: "V Kohli"},
				},
				GroupBy: []string{model.ColBatterName},
				Limit:   1,
			})

			convey.Convey("Then invalid balls should not count", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 1)
				convey.So(res.Rows[0]["player"], convey.ShouldEqual, "V Kohli")
				convey.So(res.Rows[0]["total_runs"], convey.ShouldEqual, 16)
				convey.So(res.Rows[0]["balls_faced"], convey.ShouldEqual, 9)
				convey.So(res.Rows[0]["strike_rate"], convey.ShouldAlmostEqual, 177.78, 0.01)
			})

			convey.Convey("Then the rendered query should be parameterized", func() {
				convey.So(res.QueryText, convey.ShouldContainSubstring, "batter_name = ?")
				convey.So(res.QueryText, convey.ShouldNotContainSubstring, "V Kohli")
				convey.So(res.Params, convey.ShouldContain, "V Kohli")
			})
		})

		convey.Convey("When narrowing to one matchup", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "subject"},
					{Kind: model.SelectColumn, Column: model.ColBowlerName, Alias: "opponent"},
					metricSelect(model.MetricStrikeRate),
				},
				Where: []model.Filter{
					{Column: model.ColBatterName, Op: model.OpEq, Value: "V Kohli"},
					{Column: model.ColBowlerName, Op: model.OpEq, Value: "JJ Bumrah"},
				},
				GroupBy: []string{model.ColBatterName, model.ColBowlerName},
				Limit:   1,
			})

			convey.Convey("Then only their deliveries should aggregate", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 1)
				convey.So(res.Rows[0]["strike_rate"], convey.ShouldAlmostEqual, 233.33, 0.01)
			})
		})

		convey.Convey("When ranking batters by runs", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "player"},
					metricSelect(model.MetricTotalRuns),
				},
				GroupBy: []string{model.ColBatterName},
				OrderBy: []model.OrderTerm{{Alias: "total_runs", Desc: true}},
				Limit:   10,
			})

			convey.Convey("Then the order should follow the metric", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 2)
				convey.So(res.Rows[0]["player"], convey.ShouldEqual, "V Kohli")
				convey.So(res.Rows[1]["player"], convey.ShouldEqual, "MS Dhoni")
			})
		})

		convey.Convey("When a qualification bar filters the groups", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "player"},
					metricSelect(model.MetricTotalRuns),
				},
				GroupBy: []string{model.ColBatterName},
				Having: []model.HavingPred{
					{Metric: model.MetricTotalRuns, Op: model.OpGte, Value: 10},
				},
				Limit: 10,
			})

			convey.Convey("Then only qualifying groups should survive", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 1)
				convey.So(res.Rows[0]["player"], convey.ShouldEqual, "V Kohli")
			})
		})

		convey.Convey("When breaking a batter down by phase", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectPhase, Alias: "phase"},
					metricSelect(model.MetricStrikeRate),
				},
				Where: []model.Filter{
					{Column: model.ColBatterName, Op: model.OpEq, Value: "V Kohli"},
				},
				GroupBy: []string{"phase"},
				OrderBy: []model.OrderTerm{{Alias: "phase"}},
				Limit:   3,
			})

			convey.Convey("Then phases should come back in innings order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 2)
				convey.So(res.Rows[0]["phase"], convey.ShouldEqual, "Powerplay")
				convey.So(res.Rows[0]["strike_rate"], convey.ShouldAlmostEqual, 233.33, 0.01)
				convey.So(res.Rows[1]["phase"], convey.ShouldEqual, "Death")
				convey.So(res.Rows[1]["strike_rate"], convey.ShouldAlmostEqual, 66.67, 0.01)
			})
		})

		convey.Convey("When the average has no dismissals", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "player"},
					metricSelect(model.MetricBattingAverage),
				},
				Where: []model.Filter{
					{Column: model.ColBatterName, Op: model.OpEq, Value: "MS Dhoni"},
				},
				GroupBy: []string{model.ColBatterName},
				Limit:   1,
			})

			convey.Convey("Then the value should be NULL, not a division error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows[0]["batting_average"], convey.ShouldBeNil)
			})
		})

		convey.Convey("When aggregating a bowler's economy", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBowlerName, Alias: "player"},
					metricSelect(model.MetricEconomyRate),
					metricSelect(model.MetricTotalWickets),
				},
				Where: []model.Filter{
					{Column: model.ColBowlerName, Op: model.OpEq, Value: "JJ Bumrah"},
				},
				GroupBy: []string{model.ColBowlerName},
				Limit:   1,
			})

			convey.Convey("Then extras should count against the bowler", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows[0]["economy_rate"], convey.ShouldAlmostEqual, 16.5, 0.01)
				convey.So(res.Rows[0]["total_wickets"], convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a filter references an unknown column", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table: model.DeliveriesTable,
				Selects: []model.SelectExpr{
					{Kind: model.SelectColumn, Column: model.ColBatterName, Alias: "player"},
				},
				Where: []model.Filter{
					{Column: "secret_column", Op: model.OpEq, Value: "x"},
				},
				GroupBy: []string{model.ColBatterName},
			})

			convey.Convey("Then it should refuse to render", func() {
				convey.So(res, convey.ShouldBeNil)
				convey.So(qerror.CodeOf(err), convey.ShouldEqual, qerror.CodeRowStoreError)
			})
		})

		convey.Convey("When loading the registry feeds", func() {
			players, err := s.DistinctPlayers(ctx)
			convey.So(err, convey.ShouldBeNil)
			teams, err := s.DistinctTeams(ctx)
			convey.So(err, convey.ShouldBeNil)
			venues, err := s.DistinctVenues(ctx)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then batters and bowlers should both be players", func() {
				convey.So(players, convey.ShouldContain, "V Kohli")
				convey.So(players, convey.ShouldContain, "JJ Bumrah")
				convey.So(players, convey.ShouldContain, "SL Malinga")
				convey.So(teams, convey.ShouldHaveLength, 2)
				convey.So(venues, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When summarizing the log", func() {
			st, err := s.Summary(ctx)

			convey.Convey("Then the span should match the seed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.Deliveries, convey.ShouldEqual, 14)
				convey.So(st.Matches, convey.ShouldEqual, 2)
				convey.So(st.FirstSeason, convey.ShouldEqual, 2016)
				convey.So(st.LastSeason, convey.ShouldEqual, 2018)
			})
		})
	})
}

func TestTeamHeadToHead(t *testing.T) {
	convey.Convey("Given two teams with a head-to-head history", t, func() {
		ctx := context.Background()

		s, err := rowstore.New(":memory:")
		convey.So(err, convey.ShouldBeNil)
		t.Cleanup(func() { _ = s.Close() })
		convey.So(s.EnsureSchema(ctx), convey.ShouldBeNil)

		ball := func(match string, season int, batting, bowling, winner string, runs int) rowstore.Delivery {
			return rowstore.Delivery{
				MatchID: match, Season: season, Venue: "MA Chidambaram Stadium",
				Over: 5, Valid: true,
				Batter: batting + " opener", Bowler: bowling + " quick",
				BattingTeam: batting, BowlingTeam: bowling,
				RunsOffBat: runs, RunsTotal: runs,
				Winner: winner,
			}
		}
		csk, mi := "Chennai Super Kings", "Mumbai Indians"
		deliveries := []rowstore.Delivery{
			ball("h1", 2018, csk, mi, csk, 4),
			ball("h1", 2018, csk, mi, csk, 6),
			ball("h1", 2018, mi, csk, csk, 2),
			ball("h1", 2018, mi, csk, csk, 3),
			ball("h2", 2019, csk, mi, mi, 4),
			ball("h2", 2019, csk, mi, mi, 4),
			ball("h2", 2019, mi, csk, mi, 6),
			ball("h2", 2019, mi, csk, mi, 6),
		}
		convey.So(s.Insert(ctx, deliveries), convey.ShouldBeNil)

		convey.Convey("When executing the head-to-head description", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table:   model.DeliveriesTable,
				Matchup: &model.TeamMatchup{TeamA: csk, TeamB: mi},
				Limit:   2,
			})

			convey.Convey("Then each side should report matches, wins and average score", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 2)
				convey.So(res.Rows[0]["team"], convey.ShouldEqual, csk)
				convey.So(res.Rows[0]["matches"], convey.ShouldEqual, 2)
				convey.So(res.Rows[0]["wins"], convey.ShouldEqual, 1)
				convey.So(res.Rows[0]["average_score"], convey.ShouldAlmostEqual, 9.0, 0.01)
				convey.So(res.Rows[1]["team"], convey.ShouldEqual, mi)
				convey.So(res.Rows[1]["wins"], convey.ShouldEqual, 1)
				convey.So(res.Rows[1]["average_score"], convey.ShouldAlmostEqual, 8.5, 0.01)
			})

			convey.Convey("Then the rendered query should stage match totals first", func() {
				convey.So(res.QueryText, convey.ShouldContainSubstring, "WITH match_totals")
				convey.So(res.QueryText, convey.ShouldNotContainSubstring, "Chennai")
				convey.So(res.Params, convey.ShouldContain, csk)
				convey.So(res.Params, convey.ShouldContain, mi)
			})
		})

		convey.Convey("When a season filter narrows the head-to-head", func() {
			res, err := s.Execute(ctx, &model.QueryDescription{
				Table:   model.DeliveriesTable,
				Matchup: &model.TeamMatchup{TeamA: csk, TeamB: mi},
				Where: []model.Filter{
					{Column: model.ColSeason, Op: model.OpEq, Value: 2019, Source: "in 2019"},
				},
				Limit: 2,
			})

			convey.Convey("Then only that season's matches should count", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Rows, convey.ShouldHaveLength, 2)
				convey.So(res.Rows[0]["team"], convey.ShouldEqual, mi)
				convey.So(res.Rows[0]["matches"], convey.ShouldEqual, 1)
				convey.So(res.Rows[0]["wins"], convey.ShouldEqual, 1)
				convey.So(res.Rows[1]["team"], convey.ShouldEqual, csk)
				convey.So(res.Rows[1]["wins"], convey.ShouldEqual, 0)
			})
		})
	})
}
