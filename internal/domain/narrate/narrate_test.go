package narrate_test

import (
	"testing"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/narrate"
	"github.com/smartystreets/goconvey/convey"
)

func kohliIntent(shape model.Shape, primary model.Metric) *model.Intent {
	return &model.Intent{
		Shape: shape,
		Entities: []model.Entity{
			{Name: "V Kohli", Kind: model.KindPlayer, Role: model.RoleSubject},
		},
		Metrics: []model.Metric{primary},
		SortKey: primary,
	}
}

func TestRender(t *testing.T) {
	convey.Convey("Given the narrative renderer", t, func() {
		convey.Convey("When a single-entity rate comes back", func() {
			in := kohliIntent(model.ShapeSingleEntity, model.MetricStrikeRate)
			res := &model.Result{Rows: []model.Row{{
				"player": "V Kohli", "strike_rate": 131.5, "total_runs": float64(4008), "balls_faced": float64(3048),
			}}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then it should state the rate and its sample", func() {
				convey.So(text, convey.ShouldEqual,
					"V Kohli has a strike rate of 131.50 (4008 runs off 3048 balls).")
			})
		})

		convey.Convey("When the batting average is undefined", func() {
			in := kohliIntent(model.ShapeSingleEntity, model.MetricBattingAverage)
			res := &model.Result{Rows: []model.Row{{
				"player": "V Kohli", "batting_average": nil, "total_runs": float64(58), "dismissals": float64(0),
			}}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then it should say so instead of printing a number", func() {
				convey.So(text, convey.ShouldContainSubstring, "never dismissed")
				convey.So(text, convey.ShouldContainSubstring, "undefined")
			})
		})

		convey.Convey("When no deliveries match", func() {
			in := kohliIntent(model.ShapeSingleEntity, model.MetricTotalRuns)
			res := &model.Result{}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then the empty span should be named", func() {
				convey.So(text, convey.ShouldEqual, "No deliveries match this question for V Kohli.")
			})
		})

		convey.Convey("When a matchup comes back", func() {
			in := &model.Intent{
				Shape: model.ShapeMatchup,
				Entities: []model.Entity{
					{Name: "V Kohli", Kind: model.KindPlayer, Role: model.RoleSubject},
					{Name: "JJ Bumrah", Kind: model.KindPlayer, Role: model.RoleOpponent},
				},
				Metrics: []model.Metric{model.MetricStrikeRate},
				SortKey: model.MetricStrikeRate,
			}
			res := &model.Result{Rows: []model.Row{{
				"subject": "V Kohli", "opponent": "JJ Bumrah",
				"strike_rate": 103.25, "total_runs": float64(127), "balls_faced": float64(123),
			}}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then both names should appear with the rate", func() {
				convey.So(text, convey.ShouldEqual,
					"V Kohli vs JJ Bumrah: strike rate 103.25 (127 runs off 123 balls).")
			})
		})

		convey.Convey("When a team head-to-head comes back", func() {
			in := &model.Intent{
				Shape: model.ShapeMatchup,
				Entities: []model.Entity{
					{Name: "Chennai Super Kings", Kind: model.KindTeam, Role: model.RoleSubject},
					{Name: "Mumbai Indians", Kind: model.KindTeam, Role: model.RoleOpponent},
				},
			}
			res := &model.Result{Rows: []model.Row{
				{"team": "Mumbai Indians", "matches": float64(20), "wins": float64(12), "average_score": 168.4},
				{"team": "Chennai Super Kings", "matches": float64(20), "wins": float64(8), "average_score": 161.0},
			}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then each side's record should be spelled out", func() {
				convey.So(text, convey.ShouldStartWith, "Chennai Super Kings vs Mumbai Indians.")
				convey.So(text, convey.ShouldContainSubstring, "Mumbai Indians won 12 of 20 matches, averaging 168.40 per innings")
				convey.So(text, convey.ShouldContainSubstring, "Chennai Super Kings won 8 of 20 matches, averaging 161 per innings")
			})
		})

		convey.Convey("When a leaderboard comes back", func() {
			in := &model.Intent{
				Shape:    model.ShapeLeaderboard,
				Metrics:  []model.Metric{model.MetricTotalRuns},
				SortKey:  model.MetricTotalRuns,
				SortDesc: true,
			}
			res := &model.Result{Rows: []model.Row{
				{"player": "V Kohli", "total_runs": float64(7263)},
				{"player": "S Dhawan", "total_runs": float64(6617)},
				{"player": "RG Sharma", "total_runs": float64(6211)},
				{"player": "DA Warner", "total_runs": float64(5881)},
			}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then the first three should be called out", func() {
				convey.So(text, convey.ShouldStartWith, "Top 4 by runs:")
				convey.So(text, convey.ShouldContainSubstring, "1. V Kohli (7263)")
				convey.So(text, convey.ShouldContainSubstring, "3. RG Sharma (6211)")
				convey.So(text, convey.ShouldNotContainSubstring, "Warner")
			})
		})

		convey.Convey("When a phase breakdown comes back", func() {
			in := kohliIntent(model.ShapePhaseBreakdown, model.MetricStrikeRate)
			res := &model.Result{Rows: []model.Row{
				{"phase": "Powerplay", "strike_rate": 118.4},
				{"phase": "Middle", "strike_rate": 124.9},
				{"phase": "Death", "strike_rate": 176.2},
			}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then each phase should appear in order", func() {
				convey.So(text, convey.ShouldEqual,
					"V Kohli by phase, strike rate: Powerplay 118.40; Middle 124.90; Death 176.20.")
			})
		})

		convey.Convey("When a comparison comes back", func() {
			in := &model.Intent{
				Shape: model.ShapeComparison,
				Entities: []model.Entity{
					{Name: "V Kohli", Kind: model.KindPlayer, Role: model.RoleSubject},
					{Name: "MS Dhoni", Kind: model.KindPlayer, Role: model.RoleSubject},
				},
				Metrics:  []model.Metric{model.MetricStrikeRate},
				SortKey:  model.MetricStrikeRate,
				SortDesc: true,
			}
			res := &model.Result{Rows: []model.Row{
				{"player": "MS Dhoni", "strike_rate": 135.2},
				{"player": "V Kohli", "strike_rate": 131.5},
			}}

			text := narrate.Render(in, res, nil)

			convey.Convey("Then the leader should be named first", func() {
				convey.So(text, convey.ShouldEqual,
					"MS Dhoni leads V Kohli on strike rate: 135.20 to 131.50.")
			})
		})

		convey.Convey("When warnings ride along", func() {
			in := kohliIntent(model.ShapeSingleEntity, model.MetricTotalRuns)
			res := &model.Result{Rows: []model.Row{{"player": "V Kohli", "total_runs": float64(7263)}}}

			text := narrate.Render(in, res, []string{"no qualification stated; requiring at least 200 balls"})

			convey.Convey("Then they should be folded into the sentence", func() {
				convey.So(text, convey.ShouldContainSubstring,
					"Note: no qualification stated; requiring at least 200 balls.")
			})
		})
	})
}
