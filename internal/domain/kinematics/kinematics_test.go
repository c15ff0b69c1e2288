package kinematics_test

import (
	"testing"

	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const dt = 0.1

func lineTrajectory(n int, speedX float64) model.Trajectory {
	samples := make([]model.Sample, n)
	for i := range samples {
		samples[i] = model.Sample{Frame: i + 1, X: float64(i) * speedX * dt, Y: 0}
	}
	return model.Trajectory{AgentID: "a1", Interval: dt, Samples: samples}
}

func TestDeriveStationary(t *testing.T) {
	Convey("Given a trajectory with all-identical positions", t, func() {
		samples := make([]model.Sample, 10)
		for i := range samples {
			samples[i] = model.Sample{Frame: i + 1, X: 12.5, Y: -3.0}
		}
		traj := model.Trajectory{AgentID: "a1", Interval: dt, Samples: samples}

		d := kinematics.NewDeriver().Derive(traj)

		Convey("Then every derivative is zero at every frame", func() {
			So(d.Insufficient, ShouldBeFalse)
			for _, f := range d.Frames {
				So(f.Speed, ShouldEqual, 0)
				So(f.AccelMag, ShouldEqual, 0)
				So(f.JerkMag, ShouldEqual, 0)
			}
		})

		Convey("And path efficiency uses the no-motion convention", func() {
			So(d.PathEfficiency(), ShouldEqual, 1.0)
		})
	})
}

func TestDeriveConstantVelocity(t *testing.T) {
	Convey("Given a constant-velocity straight-line trajectory", t, func() {
		d := kinematics.NewDeriver().Derive(lineTrajectory(20, 5.0))

		Convey("Then speed is constant at every frame", func() {
			for _, f := range d.Frames {
				So(f.Speed, ShouldAlmostEqual, 5.0, 1e-9)
			}
		})

		Convey("Then jerk is zero everywhere", func() {
			for _, f := range d.Frames {
				So(f.JerkMag, ShouldAlmostEqual, 0, 1e-9)
			}
		})

		Convey("And heading points along +x", func() {
			for _, f := range d.Frames {
				So(f.Heading, ShouldAlmostEqual, 0, 1e-9)
			}
		})

		Convey("And path efficiency is 1.0", func() {
			So(d.PathEfficiency(), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestDeriveCurvedPath(t *testing.T) {
	Convey("Given an L-shaped path", t, func() {
		samples := []model.Sample{
			{Frame: 1, X: 0, Y: 0},
			{Frame: 2, X: 1, Y: 0},
			{Frame: 3, X: 2, Y: 0},
			{Frame: 4, X: 2, Y: 1},
			{Frame: 5, X: 2, Y: 2},
		}
		traj := model.Trajectory{AgentID: "a1", Interval: dt, Samples: samples}

		d := kinematics.NewDeriver().Derive(traj)

		Convey("Then efficiency drops below a straight line's", func() {
			So(d.PathEfficiency(), ShouldBeLessThan, 0.95)
			So(d.PathEfficiency(), ShouldBeGreaterThan, 0)
		})

		Convey("And the final frame accumulates the full path length", func() {
			last := d.Frames[len(d.Frames)-1]
			So(last.PathLength, ShouldAlmostEqual, 4.0, 1e-9)
			So(last.StraightDist, ShouldAlmostEqual, 2.8284271, 1e-6)
		})
	})
}

func TestEfficiencyTimeReparameterization(t *testing.T) {
	Convey("Given the same geometric path sampled at two rates", t, func() {
		fine := kinematics.NewDeriver().Derive(lineTrajectory(21, 5.0))

		// Half the samples, double the interval, same geometry.
		coarseSamples := make([]model.Sample, 11)
		for i := range coarseSamples {
			coarseSamples[i] = model.Sample{Frame: i + 1, X: float64(i) * 5.0 * 2 * dt, Y: 0}
		}
		coarse := kinematics.NewDeriver().Derive(model.Trajectory{
			AgentID:  "a1",
			Interval: 2 * dt,
			Samples:  coarseSamples,
		})

		Convey("Then path efficiency is identical", func() {
			So(fine.PathEfficiency(), ShouldAlmostEqual, coarse.PathEfficiency(), 1e-9)
		})
	})
}

func TestDeriveInsufficientSamples(t *testing.T) {
	Convey("Given a single-sample trajectory", t, func() {
		traj := model.Trajectory{
			AgentID:  "a1",
			Interval: dt,
			Samples:  []model.Sample{{Frame: 1, X: 3, Y: 4}},
		}

		d := kinematics.NewDeriver().Derive(traj)

		Convey("Then it is flagged insufficient with zero kinematics", func() {
			So(d.Insufficient, ShouldBeTrue)
			So(len(d.Frames), ShouldEqual, 1)
			So(d.Frames[0].Speed, ShouldEqual, 0)
			So(d.PathEfficiency(), ShouldEqual, 1.0)
		})
	})

	Convey("Given an empty trajectory", t, func() {
		d := kinematics.NewDeriver().Derive(model.Trajectory{AgentID: "a1", Interval: dt})
		So(d.Insufficient, ShouldBeTrue)
		So(len(d.Frames), ShouldEqual, 0)
		So(d.PathEfficiency(), ShouldEqual, 1.0)
	})
}

func TestSmoothingSigmaConsistency(t *testing.T) {
	Convey("Given two derivers with different sigmas", t, func() {
		// A jittery path: smoothing should damp acceleration magnitude.
		samples := make([]model.Sample, 16)
		for i := range samples {
			y := 0.0
			if i%2 == 1 {
				y = 0.2
			}
			samples[i] = model.Sample{Frame: i + 1, X: float64(i) * 0.5, Y: y}
		}
		traj := model.Trajectory{AgentID: "a1", Interval: dt, Samples: samples}

		narrow := kinematics.NewDeriver(kinematics.WithSmoothingSigma(0.3)).Derive(traj)
		wide := kinematics.NewDeriver(kinematics.WithSmoothingSigma(2.0)).Derive(traj)

		Convey("Then the wider kernel yields smaller peak jerk", func() {
			So(peakJerk(wide), ShouldBeLessThan, peakJerk(narrow))
		})
	})
}

func peakJerk(d kinematics.Derivation) float64 {
	var peak float64
	for _, f := range d.Frames {
		if f.JerkMag > peak {
			peak = f.JerkMag
		}
	}
	return peak
}

func TestAngleDiff(t *testing.T) {
	Convey("Given the wrapped angle difference helper", t, func() {
		So(kinematics.AngleDiff(10, 350), ShouldAlmostEqual, 20, 1e-9)
		So(kinematics.AngleDiff(350, 10), ShouldAlmostEqual, -20, 1e-9)
		So(kinematics.AngleDiff(90, -90), ShouldAlmostEqual, 180, 1e-9)
		So(kinematics.AngleDiff(-45, 45), ShouldAlmostEqual, -90, 1e-9)
		So(kinematics.AngleDiff(30, 30), ShouldEqual, 0)
	})
}
