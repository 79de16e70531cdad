package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	service "github.com/deshmukhh/crease/internal/app"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// newTestService opens an in-memory store, seeds it, and starts a
// service over it.
func newTestService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()

	store, err := rowstore.New(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	if err := store.Insert(context.Background(), testDeliveries()); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	svc := service.New(append([]service.Option{
		service.WithStore(store),
		service.WithThresholds(map[string]int{
			"strike_rate":     2,
			"batting_average": 2,
			"economy_rate":    2,
			"bowling_average": 2,
			"total_runs":      2,
			"total_wickets":   2,
		}),
		service.WithPhaseThreshold(2),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func testDeliveries() []rowstore.Delivery {
	base := rowstore.Delivery{
		MatchID:     "m1",
		Season:      2016,
		Venue:       "Wankhede Stadium",
		Valid:       true,
		BattingTeam: "Royal Challengers Bangalore",
		BowlingTeam: "Mumbai Indians",
	}

	var ds []rowstore.Delivery
	kohli := func(over, runs int) rowstore.Delivery {
		d := base
		d.Over = over
		d.Batter = "V Kohli"
		d.Bowler = "JJ Bumrah"
		d.RunsOffBat = runs
		d.RunsTotal = runs
		return d
	}
	for _, r := range []int{1, 4, 6, 0, 2, 1} {
		ds = append(ds, kohli(2, r))
	}
	for _, r := range []int{2, 0} {
		ds = append(ds, kohli(18, r))
	}
	wkt := kohli(18, 0)
	wkt.IsWicket = true
	wkt.Dismissed = "V Kohli"
	ds = append(ds, wkt)

	dhoni := func(runs int) rowstore.Delivery {
		return rowstore.Delivery{
			MatchID:     "m2",
			Season:      2018,
			Venue:       "MA Chidambaram Stadium",
			Over:        10,
			Valid:       true,
			Batter:      "MS Dhoni",
			Bowler:      "JJ Bumrah",
			BattingTeam: "Chennai Super Kings",
			BowlingTeam: "Mumbai Indians",
			RunsOffBat:  runs,
			RunsTotal:   runs,
		}
	}
	for _, r := range []int{6, 1, 0, 2} {
		ds = append(ds, dhoni(r))
	}

	// m3 is the one match with both sides on the wrong end of each
	// other, so head-to-head questions have something to count.
	m3 := func(batter, batting, bowling string, over, runs int) rowstore.Delivery {
		return rowstore.Delivery{
			MatchID:     "m3",
			Season:      2019,
			Venue:       "M Chinnaswamy Stadium",
			Over:        over,
			Valid:       true,
			Batter:      batter,
			Bowler:      "JJ Bumrah",
			BattingTeam: batting,
			BowlingTeam: bowling,
			RunsOffBat:  runs,
			RunsTotal:   runs,
			Winner:      "Chennai Super Kings",
		}
	}
	for _, r := range []int{1, 2, 0, 1} {
		ds = append(ds, m3("MS Dhoni", "Chennai Super Kings", "Royal Challengers Bangalore", 8, r))
	}
	for _, r := range []int{0, 1, 1, 0} {
		ds = append(ds, m3("V Kohli", "Royal Challengers Bangalore", "Chennai Super Kings", 3, r))
	}
	return ds
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithQueryTimeout(2*time.Second),
			service.WithDefaultLimit(5),
			service.WithMaxLimit(50),
			service.WithCacheSize(16),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Ask(t *testing.T) {
	Convey("Given a started service over a seeded event log", t, func() {
		svc := newTestService(t)

		Convey("When asking for a player's strike rate", func() {
			ans, err := svc.Ask(context.Background(), "What is Kohli's strike rate?")

			Convey("Then the answer carries rows, narrative, and the query", func() {
				So(err, ShouldBeNil)
				So(ans.RequestID, ShouldNotBeEmpty)
				So(ans.Shape, ShouldEqual, model.ShapeSingleEntity)
				So(ans.ResolvedEntities, ShouldResemble, []string{"V Kohli"})
				So(len(ans.Rows), ShouldEqual, 1)
				So(ans.Narrative, ShouldContainSubstring, "V Kohli")
				So(ans.GeneratedQuery, ShouldContainSubstring, "batter_name = ?")
				So(ans.Parameters, ShouldContain, "V Kohli")
			})
		})

		Convey("When asking the same question twice", func() {
			first, err1 := svc.Ask(context.Background(), "What is Kohli's strike rate?")
			second, err2 := svc.Ask(context.Background(), "what is KOHLI'S strike   rate?")

			Convey("Then the second answer comes from cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.RequestID, ShouldEqual, first.RequestID)
			})
		})

		Convey("When asking a matchup question", func() {
			ans, err := svc.Ask(context.Background(), "How does Kohli bat against Bumrah?")

			Convey("Then the shape is a matchup with both names resolved", func() {
				So(err, ShouldBeNil)
				So(ans.Shape, ShouldEqual, model.ShapeMatchup)
				So(ans.ResolvedEntities, ShouldContain, "V Kohli")
				So(ans.ResolvedEntities, ShouldContain, "JJ Bumrah")
			})
		})

		Convey("When asking for a leaderboard", func() {
			ans, err := svc.Ask(context.Background(), "Who scored the most runs?")

			Convey("Then batters are ranked by runs", func() {
				So(err, ShouldBeNil)
				So(ans.Shape, ShouldEqual, model.ShapeLeaderboard)
				So(len(ans.Rows), ShouldEqual, 2)
				So(ans.Rows[0]["player"], ShouldEqual, "V Kohli")
			})

			Convey("Then the injected qualification bar is disclosed", func() {
				So(err, ShouldBeNil)
				found := false
				for _, w := range ans.Warnings {
					if strings.Contains(w, "no qualification stated") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When asking two teams head to head", func() {
			ans, err := svc.Ask(context.Background(), "Chennai Super Kings vs Royal Challengers Bangalore head to head")

			Convey("Then each side reports matches, wins and average score", func() {
				So(err, ShouldBeNil)
				So(ans.GeneratedQuery, ShouldContainSubstring, "WITH match_totals")
				So(len(ans.Rows), ShouldEqual, 2)
				So(ans.Rows[0]["team"], ShouldEqual, "Chennai Super Kings")
				So(ans.Rows[0]["matches"], ShouldEqual, 1)
				So(ans.Rows[0]["wins"], ShouldEqual, 1)
				So(ans.Rows[1]["wins"], ShouldEqual, 0)
				So(ans.Narrative, ShouldContainSubstring, "won 1 of 1 matches")
			})
		})

		Convey("When a ranking question carries a name outside the log", func() {
			ans, err := svc.Ask(context.Background(), "Who scored the most runs in the Big Bash?")

			Convey("Then the ranking still answers and the stray name is flagged", func() {
				So(err, ShouldBeNil)
				So(ans.Shape, ShouldEqual, model.ShapeLeaderboard)
				So(len(ans.Rows), ShouldEqual, 2)
				found := false
				for _, w := range ans.Warnings {
					if strings.Contains(w, "\"Big\"") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When the question names nobody in the log", func() {
			_, err := svc.Ask(context.Background(), "What is Tendulkar's strike rate?")

			Convey("Then it fails with no entity found", func() {
				So(qerror.CodeOf(err), ShouldEqual, qerror.CodeNoEntityFound)
			})
		})

		Convey("When the question makes no sense as a stats query", func() {
			_, err := svc.Ask(context.Background(), "hello there")

			Convey("Then it fails as unresolvable without a fallback", func() {
				So(qerror.CodeOf(err), ShouldEqual, qerror.CodeUnresolvableIntent)
			})
		})
	})
}

func TestService_Validate(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newTestService(t)

		Convey("When validating a good question", func() {
			v, err := svc.Validate(context.Background(), "What is Kohli's strike rate?")

			Convey("Then it reports the plan without executing", func() {
				So(err, ShouldBeNil)
				So(v.Valid, ShouldBeTrue)
				So(v.Shape, ShouldEqual, model.ShapeSingleEntity)
				So(v.GeneratedQuery, ShouldContainSubstring, "SELECT")
				So(v.Parameters, ShouldContain, "V Kohli")
			})
		})

		Convey("When validating a question naming nobody in the log", func() {
			v, err := svc.Validate(context.Background(), "What is Tendulkar's strike rate?")

			Convey("Then it reports the error code instead of failing", func() {
				So(err, ShouldBeNil)
				So(v.Valid, ShouldBeFalse)
				So(v.ErrorCode, ShouldEqual, qerror.CodeNoEntityFound)
				So(v.ErrorMessage, ShouldNotBeEmpty)
			})
		})
	})
}

func TestService_Registry(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newTestService(t)

		Convey("When searching players", func() {
			names := svc.Players(context.Background(), "koh", 5)

			Convey("Then matches come back canonical", func() {
				So(names, ShouldContain, "V Kohli")
			})
		})

		Convey("When listing teams", func() {
			teams := svc.Entities(context.Background(), model.KindTeam)

			Convey("Then every batting side is present", func() {
				So(teams, ShouldContain, "Chennai Super Kings")
				So(teams, ShouldContain, "Royal Challengers Bangalore")
			})
		})

		Convey("When summarizing the event log", func() {
			sum, err := svc.Summary(context.Background())

			Convey("Then the span matches the seed", func() {
				So(err, ShouldBeNil)
				So(sum.Deliveries, ShouldEqual, int64(21))
				So(sum.Matches, ShouldEqual, int64(3))
				So(sum.FirstSeason, ShouldEqual, 2016)
				So(sum.LastSeason, ShouldEqual, 2019)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a started service", t, func() {
		svc := newTestService(t)

		Convey("When fetching stats", func() {
			stats := svc.GetStats()

			Convey("Then registry counts and flags are populated", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["players"], ShouldEqual, 3)
				So(stats["fallbackEnabled"], ShouldEqual, false)
			})
		})
	})
}
