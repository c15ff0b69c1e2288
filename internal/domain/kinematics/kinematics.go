// Package kinematics derives velocity, acceleration, jerk and path-shape
// metrics from raw position samples.
//
// All derivatives are backward differences, so frame i depends only on
// samples at i and earlier, with two documented exceptions: frame 0 repeats
// frame 1's derivative (it has no backward difference of its own), and the
// symmetric gaussian smoothing applied to velocity and acceleration
// components is two-sided. The same kernel parameter must be used for every
// agent whose magnitudes are compared against shared thresholds.
package kinematics

import (
	"math"

	"github.com/okian/rai/internal/domain/model"
)

// Default derivation constants.
const (
	defaultSigma = 1.0 // gaussian smoothing sigma, in samples
	minSmoothLen = 4   // below this, smoothing is a no-op
	// minPathLength guards the efficiency ratio against a near-zero
	// denominator; an agent that moved less than this did not move
	// materially and scores efficiency 1.0.
	minPathLength = 0.1

	degPerRad  = 180.0 / math.Pi
	fullCircle = 360.0
	halfCircle = 180.0
	kernelSpan = 3.0 // truncate the gaussian at 3 sigma
)

// Frame is the derived kinematic record for one trajectory sample.
type Frame struct {
	Sample model.Sample

	VX, VY float64
	Speed  float64

	AX, AY   float64
	AccelMag float64

	JX, JY  float64
	JerkMag float64

	// Heading of the smoothed velocity in degrees, (-180, 180].
	Heading float64

	// Path-shape metrics, cumulative from the first sample.
	PathLength   float64
	StraightDist float64
	Efficiency   float64
}

// Derivation is the full derived view of one trajectory.
type Derivation struct {
	Frames []Frame

	// Insufficient marks a trajectory shorter than two samples. All
	// kinematics are zero and efficiency is 1.0; callers must check this
	// flag before trusting component values.
	Insufficient bool
}

// PathEfficiency returns the trajectory's final path efficiency.
func (d Derivation) PathEfficiency() float64 {
	if len(d.Frames) == 0 {
		return 1.0
	}
	return d.Frames[len(d.Frames)-1].Efficiency
}

// Deriver turns trajectories into kinematic frames.
type Deriver struct {
	sigma float64
}

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithSmoothingSigma sets the gaussian smoothing sigma in samples.
func WithSmoothingSigma(sigma float64) Option {
	return func(d *Deriver) {
		if sigma > 0 {
			d.sigma = sigma
		}
	}
}

// NewDeriver creates a Deriver with configuration options.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{
		sigma: defaultSigma,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive produces one kinematic frame per trajectory sample.
func (d *Deriver) Derive(traj model.Trajectory) Derivation {
	n := traj.Len()
	frames := make([]Frame, n)
	for i := range frames {
		frames[i].Sample = traj.Samples[i]
		frames[i].Efficiency = 1.0
	}
	if n < 2 {
		return Derivation{Frames: frames, Insufficient: true}
	}

	dt := traj.Interval

	// Velocity: backward difference. The first frame has no difference of
	// its own and repeats frame 1, so a constant-velocity series derives
	// constant velocity and exactly zero acceleration and jerk everywhere.
	vx := make([]float64, n)
	vy := make([]float64, n)
	for i := 1; i < n; i++ {
		vx[i] = (traj.Samples[i].X - traj.Samples[i-1].X) / dt
		vy[i] = (traj.Samples[i].Y - traj.Samples[i-1].Y) / dt
	}
	vx[0], vy[0] = vx[1], vy[1]
	vx = d.smooth(vx)
	vy = d.smooth(vy)

	// Acceleration from smoothed velocity.
	ax := make([]float64, n)
	ay := make([]float64, n)
	for i := 1; i < n; i++ {
		ax[i] = (vx[i] - vx[i-1]) / dt
		ay[i] = (vy[i] - vy[i-1]) / dt
	}
	ax[0], ay[0] = ax[1], ay[1]
	ax = d.smooth(ax)
	ay = d.smooth(ay)

	// Jerk from smoothed acceleration; left unsmoothed so sustained
	// spikes stay visible to the reaction detector.
	jx := make([]float64, n)
	jy := make([]float64, n)
	for i := 1; i < n; i++ {
		jx[i] = (ax[i] - ax[i-1]) / dt
		jy[i] = (ay[i] - ay[i-1]) / dt
	}
	jx[0], jy[0] = jx[1], jy[1]

	var pathLen float64
	startX, startY := traj.Samples[0].X, traj.Samples[0].Y

	for i := 0; i < n; i++ {
		f := &frames[i]
		f.VX, f.VY = vx[i], vy[i]
		f.Speed = math.Hypot(vx[i], vy[i])
		f.AX, f.AY = ax[i], ay[i]
		f.AccelMag = math.Hypot(ax[i], ay[i])
		f.JX, f.JY = jx[i], jy[i]
		f.JerkMag = math.Hypot(jx[i], jy[i])
		f.Heading = heading(vx[i], vy[i])

		if i > 0 {
			dx := traj.Samples[i].X - traj.Samples[i-1].X
			dy := traj.Samples[i].Y - traj.Samples[i-1].Y
			pathLen += math.Hypot(dx, dy)
		}
		f.PathLength = pathLen
		f.StraightDist = math.Hypot(traj.Samples[i].X-startX, traj.Samples[i].Y-startY)
		if pathLen > minPathLength {
			f.Efficiency = math.Min(f.StraightDist/pathLen, 1.0)
		} else {
			f.Efficiency = 1.0
		}
	}

	return Derivation{Frames: frames}
}

// smooth applies a symmetric gaussian kernel, truncated at 3 sigma, with
// boundary renormalization so edge values are not pulled toward zero.
func (d *Deriver) smooth(vals []float64) []float64 {
	n := len(vals)
	if n < minSmoothLen {
		return vals
	}
	radius := int(math.Ceil(kernelSpan * d.sigma))
	if radius < 1 {
		return vals
	}
	weights := make([]float64, radius+1)
	for k := 0; k <= radius; k++ {
		weights[k] = math.Exp(-float64(k*k) / (2 * d.sigma * d.sigma))
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum, wsum float64
		for k := -radius; k <= radius; k++ {
			j := i + k
			if j < 0 || j >= n {
				continue
			}
			w := weights[abs(k)]
			sum += w * vals[j]
			wsum += w
		}
		out[i] = sum / wsum
	}
	return out
}

// heading converts a velocity vector to degrees in (-180, 180].
// A zero vector reports heading 0.
func heading(vx, vy float64) float64 {
	if vx == 0 && vy == 0 {
		return 0
	}
	return math.Atan2(vy, vx) * degPerRad
}

// AngleDiff returns the wrapped difference a-b in degrees, in (-180, 180].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, fullCircle)
	if d > halfCircle {
		d -= fullCircle
	}
	if d <= -halfCircle {
		d += fullCircle
	}
	return d
}

func abs(k int) int {
	if k < 0 {
		return -k
	}
	return k
}
