package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/rai/internal/app"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/internal/domain/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func samplePlay(id string) model.Play {
	samples := func(xs ...float64) []model.Sample {
		out := make([]model.Sample, len(xs))
		for i, x := range xs {
			out[i] = model.Sample{Frame: i + 1, X: x}
		}
		return out
	}
	return model.Play{
		PlayID: id,
		Context: model.PlayContext{
			TargetX: 20,
			Agents: map[string]model.AgentContext{
				"wr1": {Assignment: "route", Team: "home"},
				"cb7": {Assignment: "coverage", Team: "away", OpponentID: "wr1"},
			},
		},
		Trajectories: []model.Trajectory{
			{AgentID: "wr1", Interval: 0.1, Samples: samples(0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0)},
			{AgentID: "cb7", Interval: 0.1, Samples: samples(10, 10, 10, 9.95, 9.80, 9.50, 9.05)},
		},
	}
}

// awaitResults polls until the play's results land or the deadline passes.
func awaitResults(ctx context.Context, t *testing.T, s *app.Service, playID string) []model.Result {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if results, err := s.Results(ctx, playID); err == nil {
			return results
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for results of %s", playID)
	return nil
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := app.New(
			app.WithWorkerCount(2),
			app.WithQueueSize(64),
			app.WithEngine(pipeline.New()),
		)
		So(s.Start(ctx), ShouldBeNil)
		defer s.Stop()

		Convey("When a play is submitted", func() {
			So(s.Submit(ctx, samplePlay("play-1")), ShouldBeNil)
			results := awaitResults(ctx, t, s, "play-1")

			Convey("Then both agents are scored", func() {
				So(len(results), ShouldEqual, 2)
			})

			Convey("Then the ranking surfaces both agents", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)

				e, err := s.Rank(ctx, top[0].AgentID)
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
			})

			Convey("Then agent queries resolve", func() {
				rows, err := s.AgentResults(ctx, "wr1")
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
			})

			Convey("Then resubmitting the same play id is a duplicate", func() {
				So(s.Submit(ctx, samplePlay("play-1")), ShouldEqual, app.ErrDuplicatePlay)
			})
		})

		Convey("When a malformed play is submitted", func() {
			bad := samplePlay("play-bad")
			bad.Trajectories = nil
			So(s.Submit(ctx, bad), ShouldBeNil) // structure is checked by the engine

			Convey("Then it lands in the omission log", func() {
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) && len(s.Omissions(ctx)) == 0 {
					time.Sleep(10 * time.Millisecond)
				}
				oms := s.Omissions(ctx)
				So(len(oms), ShouldEqual, 1)
				So(oms[0].PlayID, ShouldEqual, "play-bad")
			})
		})

		Convey("When a play with no id is submitted", func() {
			So(s.Submit(ctx, model.Play{}), ShouldEqual, model.ErrMissingPlayID)
		})

		Convey("When stats are requested", func() {
			stats := s.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
		})

		Convey("When Start is called twice", func() {
			So(s.Start(ctx), ShouldBeNil)
		})
	})

	Convey("Given an unstarted service", t, func() {
		s := app.New()

		Convey("Then submissions are rejected", func() {
			So(s.Submit(context.Background(), samplePlay("p")), ShouldEqual, app.ErrNotStarted)
		})
	})
}

func TestServiceThroughput(t *testing.T) {
	Convey("Given a service under a burst of plays", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := app.New(app.WithWorkerCount(4), app.WithQueueSize(256))
		So(s.Start(ctx), ShouldBeNil)
		defer s.Stop()

		const n = 30
		for i := 0; i < n; i++ {
			So(s.Submit(ctx, samplePlay(fmt.Sprintf("play-%d", i))), ShouldBeNil)
		}

		Convey("Then every play is eventually scored", func() {
			for i := 0; i < n; i++ {
				results := awaitResults(ctx, t, s, fmt.Sprintf("play-%d", i))
				So(len(results), ShouldEqual, 2)
			}
		})
	})
}
