package pipeline_test

import (
	"testing"

	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/internal/domain/pipeline"
	"github.com/okian/rai/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func traj(agentID string, xs []float64) model.Trajectory {
	samples := make([]model.Sample, len(xs))
	for i, x := range xs {
		samples[i] = model.Sample{Frame: i + 1, X: x, Y: 0}
	}
	return model.Trajectory{AgentID: agentID, Interval: 0.1, Samples: samples}
}

// passPlay is the canonical end-to-end fixture: a route runner moving at a
// constant 5 units/s along +x, and a coverage defender that idles for three
// frames and then bursts toward the runner. The defender's velocity steps
// produce a sustained jerk of roughly 50 units/s^3 starting at frame
// index 3, well above the coverage threshold.
func passPlay() model.Play {
	return model.Play{
		PlayID: "play-001",
		Context: model.PlayContext{
			TargetX: 0,
			TargetY: 0,
			Agents: map[string]model.AgentContext{
				"wr1": {Assignment: "route", Team: "home"},
				"cb7": {Assignment: "coverage", Team: "away", OpponentID: "wr1"},
			},
		},
		Trajectories: []model.Trajectory{
			traj("wr1", []float64{0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0}),
			traj("cb7", []float64{10, 10, 10, 9.95, 9.80, 9.50, 9.05}),
		},
	}
}

// narrowEngine uses a near-delta smoothing kernel so the fixture's hand
// computed derivatives survive derivation almost exactly.
func narrowEngine() *pipeline.Engine {
	return pipeline.New(
		pipeline.WithDeriver(kinematics.NewDeriver(kinematics.WithSmoothingSigma(0.3))),
	)
}

func TestProcessPassPlay(t *testing.T) {
	Convey("Given a runner and a reacting defender", t, func() {
		e := narrowEngine()
		results, omission := e.Process(passPlay())

		Convey("Then the play is computed, not omitted", func() {
			So(omission, ShouldBeNil)
			So(len(results), ShouldEqual, 2)
		})

		runner, defender := results[0], results[1]

		Convey("Then results come back in input order with classified roles", func() {
			So(runner.AgentID, ShouldEqual, "wr1")
			So(runner.Role, ShouldEqual, model.RoleAgencyDriven)
			So(defender.AgentID, ShouldEqual, "cb7")
			So(defender.Role, ShouldEqual, model.RoleConstrainedReactive)
		})

		Convey("Then the steady runner never registers a reaction", func() {
			// Constant velocity derives zero jerk at every frame, so the
			// delay saturates to the window length.
			So(runner.Raw.ReactionDelay, ShouldAlmostEqual, 7.0, 1e-9)
			So(runner.Raw.PathEfficiency, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Then the defender reacts at frame index 3", func() {
			So(defender.Raw.ReactionDelay, ShouldAlmostEqual, 3.0, 1e-9)
		})

		Convey("Then role gating pins unexpressed components to neutral", func() {
			// No heading change anywhere, so the runner's break search
			// comes up empty and degrades to the documented default.
			So(runner.Raw.BreakQuality, ShouldAlmostEqual, 0.5, 1e-9)
			So(runner.Raw.TrackingCorrelation, ShouldEqual, 0.5)
			So(defender.Raw.BreakQuality, ShouldEqual, 0.5)
		})

		Convey("Then the defender's headings track the target bearing", func() {
			// Two idle frames point away from the target, five point at it:
			// 1 - (2/7 * 180)/180 = 5/7.
			So(defender.Raw.TrackingCorrelation, ShouldAlmostEqual, 5.0/7.0, 1e-6)
		})

		Convey("Then both agents see the same converging separation", func() {
			// Separation runs 10 down to 6.05. The defender names the
			// runner explicitly; the runner falls back to the nearest
			// opposing agent, which is the defender.
			So(defender.Raw.RelationalDelta, ShouldAlmostEqual, -3.95, 1e-9)
			So(runner.Raw.RelationalDelta, ShouldAlmostEqual, -3.95, 1e-9)
		})

		Convey("Then no warnings are raised on a clean play", func() {
			So(runner.Warnings, ShouldBeEmpty)
			So(defender.Warnings, ShouldBeEmpty)
		})

		Convey("Then composites agree with scoring the raw bundle directly", func() {
			s := scoring.NewScorer()
			So(runner.Composite, ShouldAlmostEqual,
				s.Score(runner.Raw, runner.Role).Composite, 1e-12)
			So(defender.Composite, ShouldAlmostEqual,
				s.Score(defender.Raw, defender.Role).Composite, 1e-12)
		})

		Convey("Then reprocessing the same play is bit-identical", func() {
			again, _ := e.Process(passPlay())
			So(again, ShouldResemble, results)
		})
	})
}

func TestProcessOmissions(t *testing.T) {
	Convey("Given structurally malformed plays", t, func() {
		e := pipeline.New()

		Convey("When the play id is empty", func() {
			results, omission := e.Process(model.Play{
				Trajectories: []model.Trajectory{traj("a", []float64{0, 1})},
			})
			So(results, ShouldBeNil)
			So(omission.Reason, ShouldEqual, model.ErrMissingPlayID.Error())
		})

		Convey("When the play has no trajectories", func() {
			results, omission := e.Process(model.Play{PlayID: "p1"})
			So(results, ShouldBeNil)
			So(omission.PlayID, ShouldEqual, "p1")
			So(omission.Reason, ShouldEqual, model.ErrNoTrajectories.Error())
		})

		Convey("When a trajectory's time index goes backwards", func() {
			bad := model.Play{
				PlayID: "p2",
				Trajectories: []model.Trajectory{{
					AgentID:  "a",
					Interval: 0.1,
					Samples: []model.Sample{
						{Frame: 3, X: 0}, {Frame: 2, X: 1}, {Frame: 1, X: 2},
					},
				}},
			}
			results, omission := e.Process(bad)

			Convey("Then the whole play is omitted, valid agents included", func() {
				So(results, ShouldBeNil)
				So(omission.Reason, ShouldEqual, model.ErrNonMonotonicTime.Error())
			})
		})
	})
}

func TestProcessDegradedInputs(t *testing.T) {
	Convey("Given a play with a single-sample trajectory", t, func() {
		e := pipeline.New()
		play := model.Play{
			PlayID: "p3",
			Trajectories: []model.Trajectory{{
				AgentID:  "a",
				Interval: 0.1,
				Samples:  []model.Sample{{Frame: 1, X: 5, Y: 5}},
			}},
		}
		results, omission := e.Process(play)

		Convey("Then the agent is scored on defaults and flagged", func() {
			So(omission, ShouldBeNil)
			So(len(results), ShouldEqual, 1)
			r := results[0]
			So(r.HasWarning(model.WarnInsufficientSamples), ShouldBeTrue)
			So(r.Raw.ReactionDelay, ShouldEqual, 1.0)
			So(r.Raw.PathEfficiency, ShouldEqual, 1.0)
			So(r.Raw.BreakQuality, ShouldEqual, 0.5)
			So(r.Raw.TrackingCorrelation, ShouldEqual, 0.5)
			So(r.Raw.RelationalDelta, ShouldEqual, 0.0)
		})
	})

	Convey("Given a play where no relational partner exists", t, func() {
		e := pipeline.New()
		play := model.Play{
			PlayID: "p4",
			Context: model.PlayContext{
				Agents: map[string]model.AgentContext{
					"a": {Assignment: "route", Team: "home"},
					"b": {Assignment: "route", Team: "home"},
				},
			},
			Trajectories: []model.Trajectory{
				traj("a", []float64{0, 1, 2, 3}),
				traj("b", []float64{5, 6, 7, 8}),
			},
		}
		results, omission := e.Process(play)

		Convey("Then both agents warn and take the neutral delta", func() {
			So(omission, ShouldBeNil)
			for _, r := range results {
				So(r.HasWarning(model.WarnMissingRelationalPartner), ShouldBeTrue)
				So(r.Raw.RelationalDelta, ShouldEqual, 0.0)
			}
		})
	})

	Convey("Given an opponent hint naming an absent agent", t, func() {
		e := pipeline.New()
		play := model.Play{
			PlayID: "p5",
			Context: model.PlayContext{
				Agents: map[string]model.AgentContext{
					"a": {Assignment: "coverage", Team: "away", OpponentID: "ghost"},
				},
			},
			Trajectories: []model.Trajectory{
				traj("a", []float64{0, 1, 2, 3}),
			},
		}
		results, _ := e.Process(play)

		Convey("Then the hint does not silently fall back", func() {
			So(results[0].HasWarning(model.WarnMissingRelationalPartner), ShouldBeTrue)
			So(results[0].Raw.RelationalDelta, ShouldEqual, 0.0)
		})
	})
}
