// Package detect finds discrete motion events in derived kinematics: the
// first sustained jerk discontinuity (a reaction) and the sharpest sustained
// heading change (a break point).
package detect

import (
	"math"

	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
)

// Default detection constants.
const (
	// DefaultMinRun is the minimum number of consecutive frames the jerk
	// magnitude must stay above threshold to count as a reaction.
	DefaultMinRun = 2

	// DefaultBreakWindow is the number of frames on each side of a
	// candidate break point used to compare headings and speeds.
	DefaultBreakWindow = 3

	// DefaultMinBreakAngle is the minimum heading change, in degrees,
	// for a break point to exist at all.
	DefaultMinBreakAngle = 20.0

	// NeutralBreakQuality is the documented default when no break point
	// is detected.
	NeutralBreakQuality = 0.5

	// breakAngleReference normalizes the sharpness factor: a 90 degree
	// cut scores 1.0.
	breakAngleReference = 90.0

	// minPreBreakSpeed guards the speed-maintenance ratio against a
	// near-stationary pre-break window.
	minPreBreakSpeed = 0.1
)

// Detection is the explicit outcome of a scan: either an index was found or
// it was not. It replaces numeric sentinels that are ambiguous with
// legitimate extreme values.
type Detection struct {
	Found bool
	Index int
}

// NotDetected is the zero Detection.
var NotDetected = Detection{}

// Thresholds maps roles to jerk magnitudes that count as a reaction.
// Lookups fall back to the unclassified entry.
type Thresholds map[model.Role]float64

// DefaultThresholds returns the per-role jerk thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		model.RoleConstrainedReactive:   8.0,
		model.RoleAgencyDriven:          5.0,
		model.RolePhysicallyConstrained: 12.0,
		model.RoleUnclassified:          8.0,
	}
}

// For returns the threshold for role, falling back to unclassified.
func (t Thresholds) For(role model.Role) float64 {
	if v, ok := t[role]; ok {
		return v
	}
	return t[model.RoleUnclassified]
}

// ReactionFrame scans jerk magnitudes from the start of the window and
// returns the first index where minRun consecutive frames exceed threshold.
func ReactionFrame(frames []kinematics.Frame, threshold float64, minRun int) Detection {
	if minRun < 1 {
		minRun = DefaultMinRun
	}
	run := 0
	for i, f := range frames {
		if f.JerkMag > threshold {
			run++
			if run >= minRun {
				return Detection{Found: true, Index: i - minRun + 1}
			}
		} else {
			run = 0
		}
	}
	return NotDetected
}

// ReactionDelay converts a detection into the reaction delay in frames,
// saturating to the window length when no reaction was observed.
func ReactionDelay(det Detection, windowLen int) float64 {
	if !det.Found {
		return float64(windowLen)
	}
	return float64(det.Index)
}

// BreakPoint finds the index with the largest heading change between a
// trailing and a leading window of the given width. Indexes too close to
// either end to fill both windows are not candidates. Changes below
// minAngle degrees do not qualify.
func BreakPoint(frames []kinematics.Frame, window int, minAngle float64) Detection {
	if window < 1 {
		window = DefaultBreakWindow
	}
	if len(frames) < 2*window+1 {
		return NotDetected
	}

	best := NotDetected
	var bestAngle float64
	for i := window; i < len(frames)-window; i++ {
		angle := math.Abs(kinematics.AngleDiff(
			meanHeading(frames[i:i+window]),
			meanHeading(frames[i-window:i]),
		))
		if angle < minAngle {
			continue
		}
		if !best.Found || angle > bestAngle {
			best = Detection{Found: true, Index: i}
			bestAngle = angle
		}
	}
	return best
}

// BreakQuality scores a detected break point as sharpness times speed
// maintenance, both clamped to [0,1]. An undetected break degrades to the
// neutral default.
func BreakQuality(frames []kinematics.Frame, det Detection, window int) float64 {
	if !det.Found {
		return NeutralBreakQuality
	}
	if window < 1 {
		window = DefaultBreakWindow
	}

	angle := math.Abs(kinematics.AngleDiff(
		meanHeading(frames[det.Index:minInt(det.Index+window, len(frames))]),
		meanHeading(frames[maxInt(det.Index-window, 0):det.Index]),
	))
	sharpness := clamp01(angle / breakAngleReference)

	pre := meanSpeed(frames[maxInt(det.Index-window, 0):det.Index])
	post := meanSpeed(frames[det.Index:minInt(det.Index+window, len(frames))])
	var maintenance float64
	if pre < minPreBreakSpeed {
		maintenance = NeutralBreakQuality
	} else {
		maintenance = clamp01(post / pre)
	}

	return sharpness * maintenance
}

func meanHeading(frames []kinematics.Frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	// Average relative to the first heading to avoid wrap artifacts
	// inside the window.
	base := frames[0].Heading
	var sum float64
	for _, f := range frames {
		sum += kinematics.AngleDiff(f.Heading, base)
	}
	return base + sum/float64(len(frames))
}

func meanSpeed(frames []kinematics.Frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		sum += f.Speed
	}
	return sum / float64(len(frames))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
