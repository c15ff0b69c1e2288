package app

import (
	"github.com/okian/rai/internal/config"
	"github.com/okian/rai/internal/domain/detect"
	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/internal/domain/pipeline"
	"github.com/okian/rai/internal/domain/scoring"
)

// EngineFromConfig assembles a computation engine from process
// configuration: smoothing, detection and normalization knobs layered over
// the built-in defaults. Both the server and the batch binary build their
// engine through this one path so tuned constants behave identically in
// either mode.
func EngineFromConfig(cfg *config.Config) *pipeline.Engine {
	deriver := kinematics.NewDeriver(
		kinematics.WithSmoothingSigma(cfg.SmoothingSigma),
	)
	scorer := scoring.NewScorer(
		scoring.WithNorms(normsFromConfig(cfg.Norms)),
	)
	return pipeline.New(
		pipeline.WithDeriver(deriver),
		pipeline.WithScorer(scorer),
		pipeline.WithThresholds(thresholdsFromConfig(cfg.JerkThresholds)),
		pipeline.WithMinRun(cfg.ReactionMinRun),
		pipeline.WithBreakWindow(cfg.BreakWindow),
		pipeline.WithMinBreakAngle(cfg.MinBreakAngle),
	)
}

// thresholdsFromConfig overlays configured per-role jerk thresholds on the
// defaults. Keys that name no known role are dropped rather than creating
// roles the classifier can never emit.
func thresholdsFromConfig(overrides map[string]float64) detect.Thresholds {
	t := detect.DefaultThresholds()
	for name, v := range overrides {
		role := model.Role(name)
		if _, known := t[role]; known && v > 0 {
			t[role] = v
		}
	}
	return t
}

// normsFromConfig converts configured normalization overrides to the
// scorer's table type. Unknown component names are dropped; the scorer
// itself rejects non-positive standard deviations.
func normsFromConfig(overrides map[string]config.Norm) scoring.Norms {
	known := scoring.DefaultNorms()
	norms := make(scoring.Norms, len(overrides))
	for name, n := range overrides {
		c := scoring.Component(name)
		if _, ok := known[c]; ok {
			norms[c] = scoring.Norm{Mean: n.Mean, StdDev: n.StdDev}
		}
	}
	return norms
}
