package model_test

import (
	"testing"

	"github.com/okian/rai/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTrajectoryValidate(t *testing.T) {
	Convey("Given a trajectory with evenly stepped frames", t, func() {
		traj := model.Trajectory{
			AgentID:  "a1",
			Interval: 0.1,
			Samples: []model.Sample{
				{Frame: 1, X: 0, Y: 0},
				{Frame: 2, X: 1, Y: 0},
				{Frame: 3, X: 2, Y: 0},
			},
		}

		Convey("Then it validates cleanly", func() {
			So(traj.Validate(), ShouldBeNil)
		})

		Convey("When frames go backwards", func() {
			traj.Samples[2].Frame = 1
			So(traj.Validate(), ShouldEqual, model.ErrNonMonotonicTime)
		})

		Convey("When frames repeat", func() {
			traj.Samples[2].Frame = 2
			So(traj.Validate(), ShouldEqual, model.ErrNonMonotonicTime)
		})

		Convey("When the frame step changes mid-series", func() {
			traj.Samples[2].Frame = 5
			So(traj.Validate(), ShouldEqual, model.ErrIrregularInterval)
		})

		Convey("When the sampling interval is not positive", func() {
			traj.Interval = 0
			So(traj.Validate(), ShouldEqual, model.ErrInvalidInterval)
		})
	})

	Convey("Given a trajectory with fewer than two samples", t, func() {
		traj := model.Trajectory{
			AgentID:  "a2",
			Interval: 0.1,
			Samples:  []model.Sample{{Frame: 1, X: 5, Y: 5}},
		}

		Convey("Then it validates; shortness is flagged downstream, not fatal", func() {
			So(traj.Validate(), ShouldBeNil)
		})
	})
}

func TestPlayTrajectoryLookup(t *testing.T) {
	Convey("Given a play with two trajectories", t, func() {
		play := model.Play{
			PlayID: "p1",
			Trajectories: []model.Trajectory{
				{AgentID: "a1", Interval: 0.1},
				{AgentID: "a2", Interval: 0.1},
			},
		}

		Convey("Then lookup by agent id finds the right trajectory", func() {
			traj, ok := play.Trajectory("a2")
			So(ok, ShouldBeTrue)
			So(traj.AgentID, ShouldEqual, "a2")
		})

		Convey("And lookup of an unknown agent reports absence", func() {
			_, ok := play.Trajectory("a9")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestResultWarnings(t *testing.T) {
	Convey("Given a result with one warning", t, func() {
		res := model.Result{
			Warnings: []model.Warning{model.WarnInsufficientSamples},
		}

		So(res.HasWarning(model.WarnInsufficientSamples), ShouldBeTrue)
		So(res.HasWarning(model.WarnNonFiniteComponent), ShouldBeFalse)
	})
}
