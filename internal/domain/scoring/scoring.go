// Package scoring reduces the five component measurements to one composite
// reactivity score using fixed normalization statistics and role-specific
// signed weights.
package scoring

import (
	"math"

	"github.com/okian/rai/internal/domain/model"
)

// Component names the five scored measurements.
type Component string

// The five components of the composite.
const (
	ComponentReactionDelay       Component = "reaction_delay"
	ComponentPathEfficiency      Component = "path_efficiency"
	ComponentBreakQuality        Component = "break_quality"
	ComponentTrackingCorrelation Component = "tracking_correlation"
	ComponentRelationalDelta     Component = "relational_delta"
)

// Norm holds the population mean and standard deviation used for z-score
// normalization of one component. Computed offline from a reference
// population; never recomputed per play.
type Norm struct {
	Mean   float64
	StdDev float64
}

// Norms maps components to their population statistics.
type Norms map[Component]Norm

// Weights maps components to signed role-specific weights. The reaction
// delay weight is negative by convention: lower delay is better.
type Weights map[Component]float64

// DefaultNorms returns the reference-population statistics.
func DefaultNorms() Norms {
	return Norms{
		ComponentReactionDelay:       {Mean: 4.0, StdDev: 2.0},
		ComponentPathEfficiency:      {Mean: 0.85, StdDev: 0.10},
		ComponentBreakQuality:        {Mean: 0.60, StdDev: 0.15},
		ComponentTrackingCorrelation: {Mean: 0.50, StdDev: 0.25},
		ComponentRelationalDelta:     {Mean: 0.0, StdDev: 2.0},
	}
}

// DefaultWeights returns the fixed per-role weight tables. These are
// hand-specified constants; there is no weight learning anywhere in the
// engine.
func DefaultWeights() map[model.Role]Weights {
	return map[model.Role]Weights{
		model.RoleConstrainedReactive: {
			ComponentReactionDelay:       -0.25,
			ComponentPathEfficiency:      0.20,
			ComponentBreakQuality:        0.05,
			ComponentTrackingCorrelation: 0.35,
			ComponentRelationalDelta:     -0.15,
		},
		model.RoleAgencyDriven: {
			ComponentReactionDelay:       -0.15,
			ComponentPathEfficiency:      0.20,
			ComponentBreakQuality:        0.35,
			ComponentTrackingCorrelation: 0.05,
			ComponentRelationalDelta:     0.25,
		},
		model.RolePhysicallyConstrained: {
			ComponentReactionDelay:       -0.35,
			ComponentPathEfficiency:      0.35,
			ComponentBreakQuality:        0.05,
			ComponentTrackingCorrelation: 0.10,
			ComponentRelationalDelta:     0.15,
		},
		model.RoleUnclassified: {
			ComponentReactionDelay:       -0.20,
			ComponentPathEfficiency:      0.25,
			ComponentBreakQuality:        0.20,
			ComponentTrackingCorrelation: 0.20,
			ComponentRelationalDelta:     0.15,
		},
	}
}

// Output is the scorer's result: normalized components, the composite, and
// any warnings raised while reducing.
type Output struct {
	Normalized model.Components
	Composite  float64
	Warnings   []model.Warning
}

// Scorer is a pure reduction over component bundles. It never mutates its
// inputs and holds no per-play state.
type Scorer struct {
	norms   Norms
	weights map[model.Role]Weights
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithNorms overrides population statistics per component. Entries with a
// non-positive standard deviation are ignored.
func WithNorms(norms Norms) Option {
	return func(s *Scorer) {
		for c, n := range norms {
			if n.StdDev > 0 {
				s.norms[c] = n
			}
		}
	}
}

// NewScorer creates a Scorer with the default tables and options applied.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		norms:   DefaultNorms(),
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize converts a raw component value to its population z-score.
func (s *Scorer) Normalize(c Component, value float64) float64 {
	n, ok := s.norms[c]
	if !ok || n.StdDev <= 0 {
		return value
	}
	return (value - n.Mean) / n.StdDev
}

// Score normalizes each component and reduces to the weighted composite
// for the given role. A non-finite normalized component contributes zero
// and raises the non-finite-component warning so one bad value cannot
// poison an otherwise valid composite.
func (s *Scorer) Score(raw model.Components, role model.Role) Output {
	weights, ok := s.weights[role]
	if !ok {
		weights = s.weights[model.RoleUnclassified]
	}

	out := Output{}
	out.Normalized = model.Components{
		ReactionDelay:       s.Normalize(ComponentReactionDelay, raw.ReactionDelay),
		PathEfficiency:      s.Normalize(ComponentPathEfficiency, raw.PathEfficiency),
		BreakQuality:        s.Normalize(ComponentBreakQuality, raw.BreakQuality),
		TrackingCorrelation: s.Normalize(ComponentTrackingCorrelation, raw.TrackingCorrelation),
		RelationalDelta:     s.Normalize(ComponentRelationalDelta, raw.RelationalDelta),
	}

	terms := []struct {
		component Component
		value     float64
	}{
		{ComponentReactionDelay, out.Normalized.ReactionDelay},
		{ComponentPathEfficiency, out.Normalized.PathEfficiency},
		{ComponentBreakQuality, out.Normalized.BreakQuality},
		{ComponentTrackingCorrelation, out.Normalized.TrackingCorrelation},
		{ComponentRelationalDelta, out.Normalized.RelationalDelta},
	}

	var composite float64
	warned := false
	for _, term := range terms {
		if math.IsNaN(term.value) || math.IsInf(term.value, 0) {
			if !warned {
				out.Warnings = append(out.Warnings, model.WarnNonFiniteComponent)
				warned = true
			}
			continue
		}
		composite += weights[term.component] * term.value
	}
	out.Composite = composite
	return out
}
