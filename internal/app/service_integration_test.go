package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	service "github.com/deshmukhh/crease/internal/app"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	. "github.com/smartystreets/goconvey/convey"
)

// stubSuggester returns a canned intent, recording whether it was asked.
type stubSuggester struct {
	mu     sync.Mutex
	called bool
	intent *model.Intent
	err    error
}

func (s *stubSuggester) SuggestIntent(ctx context.Context, question string, known []model.Entity) (*model.Intent, error) {
	s.mu.Lock()
	s.called = true
	s.mu.Unlock()
	return s.intent, s.err
}

func (s *stubSuggester) wasCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.called
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over a seeded event log", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		Convey("When asking a phase breakdown question", func() {
			ans, err := svc.Ask(ctx, "Show Kohli's strike rate by phase")

			Convey("Then the rows come back in innings order", func() {
				So(err, ShouldBeNil)
				So(ans.Shape, ShouldEqual, model.ShapePhaseBreakdown)
				So(len(ans.Rows), ShouldEqual, 2)
				So(ans.Rows[0]["phase"], ShouldEqual, "Powerplay")
				So(ans.Rows[1]["phase"], ShouldEqual, "Death")
			})
		})

		Convey("When comparing two batters", func() {
			ans, err := svc.Ask(ctx, "Compare Kohli and Dhoni on total runs")

			Convey("Then both appear as comparison rows", func() {
				So(err, ShouldBeNil)
				So(ans.Shape, ShouldEqual, model.ShapeComparison)
				So(len(ans.Rows), ShouldEqual, 2)
			})
		})

		Convey("When asking a matchup with a venue", func() {
			ans, err := svc.Ask(ctx, "Kohli vs Bumrah at Wankhede Stadium")

			Convey("Then the venue constrains the query", func() {
				So(err, ShouldBeNil)
				So(ans.GeneratedQuery, ShouldContainSubstring, "venue = ?")
				So(ans.Parameters, ShouldContain, "Wankhede Stadium")
			})
		})

		Convey("When many questions arrive concurrently", func() {
			questions := []string{
				"What is Kohli's strike rate?",
				"How does Dhoni bat against Bumrah?",
				"Who scored the most runs?",
				"Compare Kohli and Dhoni on total runs",
			}

			var wg sync.WaitGroup
			errs := make([]error, 16)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.Ask(ctx, questions[i%len(questions)])
				}(i)
			}
			wg.Wait()

			Convey("Then every question gets an answer", func() {
				for i, err := range errs {
					So(errs[i], ShouldBeNil)
					_ = err
				}
			})
		})
	})
}

func TestServiceFallback(t *testing.T) {
	Convey("Given a service with a fallback suggester", t, func() {
		ctx := context.Background()

		Convey("When the rules cannot classify and the suggestion is sound", func() {
			stub := &stubSuggester{
				intent: &model.Intent{
					Shape:   model.ShapeSingleEntity,
					Metrics: []model.Metric{model.MetricTotalRuns},
					Entities: []model.Entity{{
						Name:       "V Kohli",
						Kind:       model.KindPlayer,
						Role:       model.RoleSubject,
						Confidence: 0.5,
					}},
					Limit: 1,
				},
			}
			svc := newTestService(t, service.WithSuggester(stub))

			ans, err := svc.Ask(ctx, "runs tally for the chase master")

			Convey("Then the suggested intent runs through the normal pipeline", func() {
				So(err, ShouldBeNil)
				So(stub.wasCalled(), ShouldBeTrue)
				So(ans.Shape, ShouldEqual, model.ShapeSingleEntity)
				So(ans.Warnings, ShouldContain, "intent classified by the fallback model")
			})
		})

		Convey("When the suggestion names an entity outside the log", func() {
			stub := &stubSuggester{
				intent: &model.Intent{
					Shape:   model.ShapeSingleEntity,
					Metrics: []model.Metric{model.MetricTotalRuns},
					Entities: []model.Entity{{
						Name: "SR Tendulkar",
						Kind: model.KindPlayer,
						Role: model.RoleSubject,
					}},
					Limit: 1,
				},
			}
			svc := newTestService(t, service.WithSuggester(stub))

			_, err := svc.Ask(ctx, "runs tally for the little master")

			Convey("Then the suggestion is rejected", func() {
				So(stub.wasCalled(), ShouldBeTrue)
				So(qerror.CodeOf(err), ShouldEqual, qerror.CodeNoEntityFound)
			})
		})

		Convey("When the suggester itself fails", func() {
			stub := &stubSuggester{err: fmt.Errorf("model unavailable")}
			svc := newTestService(t, service.WithSuggester(stub))

			_, err := svc.Ask(ctx, "mumble mumble cricket")

			Convey("Then the original classification error surfaces", func() {
				So(stub.wasCalled(), ShouldBeTrue)
				So(qerror.CodeOf(err), ShouldEqual, qerror.CodeUnresolvableIntent)
			})
		})
	})
}
