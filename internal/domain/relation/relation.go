// Package relation computes pairwise metrics between agents sharing a time
// window: separation, closing rate and directional correlation.
package relation

import (
	"math"

	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
)

// Documented neutral defaults for undefined relational metrics. Callers
// substitute these instead of propagating an undefined value into the
// composite.
const (
	NeutralCorrelation = 0.5
	NeutralDelta       = 0.0

	// minCorrelationLen is the minimum series length for a meaningful
	// directional correlation.
	minCorrelationLen = 3

	halfCircle = 180.0
)

// Separation returns the Euclidean distance between two agents at each
// shared frame index. Frames present in only one trajectory are skipped.
// An empty result means the trajectories share no samples.
func Separation(a, b model.Trajectory) []float64 {
	if len(a.Samples) == 0 || len(b.Samples) == 0 {
		return nil
	}
	byFrame := make(map[int]model.Sample, len(b.Samples))
	for _, s := range b.Samples {
		byFrame[s.Frame] = s
	}
	var out []float64
	for _, s := range a.Samples {
		o, ok := byFrame[s.Frame]
		if !ok {
			continue
		}
		out = append(out, math.Hypot(s.X-o.X, s.Y-o.Y))
	}
	return out
}

// Delta returns final minus initial separation. Positive means the agents
// diverged. Fewer than two shared samples yields the neutral default.
func Delta(separation []float64) float64 {
	if len(separation) < 2 {
		return NeutralDelta
	}
	return separation[len(separation)-1] - separation[0]
}

// ClosingRate returns the negative time-derivative of the separation
// series; positive values mean the agents are converging. The first entry
// repeats the second, mirroring the kinematic backfill convention.
func ClosingRate(separation []float64, dt float64) []float64 {
	if len(separation) < 2 || dt <= 0 {
		return nil
	}
	out := make([]float64, len(separation))
	for i := 1; i < len(separation); i++ {
		out[i] = -(separation[i] - separation[i-1]) / dt
	}
	out[0] = out[1]
	return out
}

// CorrelationToTarget scores how well an agent's headings track the
// bearing to a fixed target point: 1 means every frame pointed straight at
// the target, 0 means directly away. Series shorter than three frames
// yield the neutral default.
func CorrelationToTarget(frames []kinematics.Frame, targetX, targetY float64) float64 {
	if len(frames) < minCorrelationLen {
		return NeutralCorrelation
	}
	var sum float64
	for _, f := range frames {
		bearing := math.Atan2(targetY-f.Sample.Y, targetX-f.Sample.X) * halfCircle / math.Pi
		sum += math.Abs(kinematics.AngleDiff(f.Heading, bearing))
	}
	mean := sum / float64(len(frames))
	return clamp01(1.0 - mean/halfCircle)
}

// HeadingCorrelation scores the agreement of two heading series over their
// shared prefix: 1 − mean absolute wrapped difference / 180°, clamped to
// [0,1]. It depends only on the relative angle, so negating both series
// leaves it unchanged. Series with no shared samples yield the neutral
// default.
func HeadingCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return NeutralCorrelation
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(kinematics.AngleDiff(a[i], b[i]))
	}
	return clamp01(1.0 - sum/float64(n)/halfCircle)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
