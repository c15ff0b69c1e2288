// Package pipeline runs the full per-play computation: structural
// validation, kinematic derivation, event detection, relational metrics,
// role classification and composite scoring.
//
// Process is pure and deterministic. Each play is an isolated unit: a
// malformed play yields an omission record and nothing else, and no state
// survives between calls.
package pipeline

import (
	"math"

	"github.com/okian/rai/internal/domain/detect"
	"github.com/okian/rai/internal/domain/kinematics"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/internal/domain/relation"
	"github.com/okian/rai/internal/domain/roles"
	"github.com/okian/rai/internal/domain/scoring"
)

// Engine orchestrates the domain stages for one play at a time. It is safe
// for concurrent use: all state is configuration fixed at construction.
type Engine struct {
	deriver       *kinematics.Deriver
	scorer        *scoring.Scorer
	thresholds    detect.Thresholds
	minRun        int
	breakWindow   int
	minBreakAngle float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDeriver replaces the kinematic deriver.
func WithDeriver(d *kinematics.Deriver) Option {
	return func(e *Engine) {
		if d != nil {
			e.deriver = d
		}
	}
}

// WithScorer replaces the composite scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithThresholds replaces the per-role jerk thresholds.
func WithThresholds(t detect.Thresholds) Option {
	return func(e *Engine) {
		if len(t) > 0 {
			e.thresholds = t
		}
	}
}

// WithMinRun sets the consecutive-frame requirement for reaction detection.
func WithMinRun(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.minRun = n
		}
	}
}

// WithBreakWindow sets the half-window width for break detection.
func WithBreakWindow(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.breakWindow = n
		}
	}
}

// WithMinBreakAngle sets the minimum heading change, in degrees, for a
// break point to register.
func WithMinBreakAngle(deg float64) Option {
	return func(e *Engine) {
		if deg > 0 {
			e.minBreakAngle = deg
		}
	}
}

// New creates an Engine with default stages and options applied.
func New(opts ...Option) *Engine {
	e := &Engine{
		deriver:       kinematics.NewDeriver(),
		scorer:        scoring.NewScorer(),
		thresholds:    detect.DefaultThresholds(),
		minRun:        detect.DefaultMinRun,
		breakWindow:   detect.DefaultBreakWindow,
		minBreakAngle: detect.DefaultMinBreakAngle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process scores every agent in the play. A structurally malformed play
// returns a nil result slice and an omission naming the first violation;
// a well-formed play always returns one result per trajectory, in input
// order, and a nil omission. Degraded inputs inside a well-formed play
// (short trajectories, missing partners, non-finite values) resolve to
// documented defaults plus warnings, never to omission.
func (e *Engine) Process(play model.Play) ([]model.Result, *model.Omission) {
	if err := validate(play); err != nil {
		return nil, &model.Omission{PlayID: play.PlayID, Reason: err.Error()}
	}

	results := make([]model.Result, 0, len(play.Trajectories))
	for _, traj := range play.Trajectories {
		results = append(results, e.scoreAgent(play, traj))
	}
	return results, nil
}

// validate checks the play-level structural invariants. The first failure
// wins; a play is either computed in full or omitted in full.
func validate(play model.Play) error {
	if play.PlayID == "" {
		return model.ErrMissingPlayID
	}
	if len(play.Trajectories) == 0 {
		return model.ErrNoTrajectories
	}
	for _, traj := range play.Trajectories {
		if err := traj.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scoreAgent(play model.Play, traj model.Trajectory) model.Result {
	ctx := play.Context.Agents[traj.AgentID]
	role := roles.Classify(ctx.Assignment)

	res := model.Result{
		PlayID:  play.PlayID,
		AgentID: traj.AgentID,
		Role:    role,
	}

	der := e.deriver.Derive(traj)
	if der.Insufficient {
		// Too short to measure anything: every component takes its
		// documented default and the result is flagged, not dropped.
		res.Raw = model.Components{
			ReactionDelay:       float64(len(der.Frames)),
			PathEfficiency:      1.0,
			BreakQuality:        detect.NeutralBreakQuality,
			TrackingCorrelation: relation.NeutralCorrelation,
			RelationalDelta:     relation.NeutralDelta,
		}
		res.Warnings = append(res.Warnings, model.WarnInsufficientSamples)
	} else {
		raw, warnings := e.measure(play, traj, der, role)
		res.Raw = raw
		res.Warnings = warnings
	}

	out := e.scorer.Score(res.Raw, role)
	res.Normalized = out.Normalized
	res.Composite = out.Composite
	res.Warnings = append(res.Warnings, out.Warnings...)
	return res
}

// measure computes the five raw components for one agent. Components a role
// does not express are pinned to their neutral defaults rather than being
// measured and discounted, so role gating is visible in the raw bundle.
func (e *Engine) measure(play model.Play, traj model.Trajectory, der kinematics.Derivation, role model.Role) (model.Components, []model.Warning) {
	var warnings []model.Warning
	frames := der.Frames

	det := detect.ReactionFrame(frames, e.thresholds.For(role), e.minRun)
	raw := model.Components{
		ReactionDelay:       detect.ReactionDelay(det, len(frames)),
		PathEfficiency:      der.PathEfficiency(),
		BreakQuality:        detect.NeutralBreakQuality,
		TrackingCorrelation: relation.NeutralCorrelation,
		RelationalDelta:     relation.NeutralDelta,
	}

	if role == model.RoleAgencyDriven {
		bp := detect.BreakPoint(frames, e.breakWindow, e.minBreakAngle)
		raw.BreakQuality = detect.BreakQuality(frames, bp, e.breakWindow)
	}

	if role == model.RoleConstrainedReactive {
		raw.TrackingCorrelation = relation.CorrelationToTarget(
			frames, play.Context.TargetX, play.Context.TargetY)
	}

	if partner, ok := e.partner(play, traj); ok {
		sep := relation.Separation(traj, partner)
		if len(sep) >= 2 {
			raw.RelationalDelta = relation.Delta(sep)
		} else {
			warnings = append(warnings, model.WarnMissingRelationalPartner)
		}
	} else {
		warnings = append(warnings, model.WarnMissingRelationalPartner)
	}

	return raw, warnings
}

// partner resolves the relational partner for an agent: the explicit
// opponent hint when present, otherwise the nearest opposing-team agent at
// the first frame both trajectories share. Agents without team context
// cannot oppose anyone and get no partner.
func (e *Engine) partner(play model.Play, traj model.Trajectory) (model.Trajectory, bool) {
	ctx := play.Context.Agents[traj.AgentID]
	if ctx.OpponentID != "" {
		if t, ok := play.Trajectory(ctx.OpponentID); ok {
			return t, true
		}
		return model.Trajectory{}, false
	}
	if ctx.Team == "" {
		return model.Trajectory{}, false
	}

	var best model.Trajectory
	bestDist := math.Inf(1)
	found := false
	for _, other := range play.Trajectories {
		if other.AgentID == traj.AgentID {
			continue
		}
		otherCtx := play.Context.Agents[other.AgentID]
		if otherCtx.Team == "" || otherCtx.Team == ctx.Team {
			continue
		}
		d, ok := firstSharedDistance(traj, other)
		if !ok {
			continue
		}
		if d < bestDist {
			best, bestDist, found = other, d, true
		}
	}
	return best, found
}

// firstSharedDistance returns the distance between two agents at the first
// frame index present in both trajectories.
func firstSharedDistance(a, b model.Trajectory) (float64, bool) {
	byFrame := make(map[int]model.Sample, len(b.Samples))
	for _, s := range b.Samples {
		byFrame[s.Frame] = s
	}
	for _, s := range a.Samples {
		if o, ok := byFrame[s.Frame]; ok {
			return math.Hypot(s.X-o.X, s.Y-o.Y), true
		}
	}
	return 0, false
}
