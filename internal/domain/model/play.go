// Package model contains domain models passed between layers.
package model

// Role is the closed behavioral classification for an agent. It selects
// detection thresholds and weight tables downstream.
type Role string

// Closed role set. Unrecognized assignments map to RoleUnclassified.
const (
	RoleConstrainedReactive   Role = "constrained-reactive"
	RoleAgencyDriven          Role = "agency-driven"
	RolePhysicallyConstrained Role = "physically-constrained"
	RoleUnclassified          Role = "unclassified"
)

// Warning is an advisory flag attached to a result. Warnings never fail a
// computation; they mark where a documented default substituted for data.
type Warning string

// Warning flags.
const (
	WarnInsufficientSamples      Warning = "insufficient-samples"
	WarnMissingRelationalPartner Warning = "missing-relational-partner"
	WarnNonFiniteComponent       Warning = "non-finite-component"
)

// Sample is one positional observation of an agent.
type Sample struct {
	Frame int     // time index, strictly increasing within a trajectory
	X     float64 // field position
	Y     float64
}

// Trajectory is the ordered position series for one agent within one play.
// It is immutable once captured from the feed.
type Trajectory struct {
	AgentID string
	Samples []Sample
	// Interval is the fixed sampling interval in seconds.
	Interval float64
}

// Len returns the number of samples.
func (t Trajectory) Len() int { return len(t.Samples) }

// Validate checks the trajectory's structural invariants: a positive
// sampling interval and strictly increasing, evenly stepped frame indexes.
func (t Trajectory) Validate() error {
	if t.Interval <= 0 {
		return ErrInvalidInterval
	}
	if len(t.Samples) < 2 {
		return nil // short trajectories are flagged, not rejected
	}
	step := t.Samples[1].Frame - t.Samples[0].Frame
	if step <= 0 {
		return ErrNonMonotonicTime
	}
	for i := 1; i < len(t.Samples); i++ {
		d := t.Samples[i].Frame - t.Samples[i-1].Frame
		if d <= 0 {
			return ErrNonMonotonicTime
		}
		if d != step {
			return ErrIrregularInterval
		}
	}
	return nil
}

// AgentContext carries the externally supplied hints for one agent.
type AgentContext struct {
	// Assignment is the raw upstream label, e.g. "coverage", "targeted".
	Assignment string
	// Team groups agents for opponent selection.
	Team string
	// OpponentID optionally names the relational partner. Empty means the
	// engine picks the nearest opposing agent.
	OpponentID string
}

// PlayContext is per-play metadata supplied by the feed. Read-only to the
// engine.
type PlayContext struct {
	// TargetX, TargetY is the target landing point (e.g. ball landing).
	TargetX float64
	TargetY float64
	// Agents maps agent id to its context record.
	Agents map[string]AgentContext
}

// Play is one independent scoring unit: trajectories plus shared context.
type Play struct {
	PlayID       string
	Context      PlayContext
	Trajectories []Trajectory
}

// Trajectory returns the trajectory for an agent id, if present.
func (p Play) Trajectory(agentID string) (Trajectory, bool) {
	for _, t := range p.Trajectories {
		if t.AgentID == agentID {
			return t, true
		}
	}
	return Trajectory{}, false
}

// Components holds the five raw component measurements for one agent.
type Components struct {
	ReactionDelay       float64 `json:"reaction_delay"`       // frames; saturates to window length
	PathEfficiency      float64 `json:"path_efficiency"`      // [0,1]
	BreakQuality        float64 `json:"break_quality"`        // [0,1]; neutral 0.5 when undetected
	TrackingCorrelation float64 `json:"tracking_correlation"` // [0,1]; neutral 0.5 without a target role
	RelationalDelta     float64 `json:"relational_delta"`     // signed; 0 without a partner
}

// Result is the terminal artifact of the engine: one composite score per
// (play, agent), with raw and normalized components and advisory warnings.
type Result struct {
	PlayID     string     `json:"play_id"`
	AgentID    string     `json:"agent_id"`
	Role       Role       `json:"role"`
	Raw        Components `json:"raw"`
	Normalized Components `json:"normalized"`
	Composite  float64    `json:"composite"`
	Warnings   []Warning  `json:"warnings,omitempty"`
}

// HasWarning reports whether w was raised on this result.
func (r Result) HasWarning(w Warning) bool {
	for _, have := range r.Warnings {
		if have == w {
			return true
		}
	}
	return false
}

// Omission records a play whose computation was rejected as malformed.
type Omission struct {
	PlayID string `json:"play_id"`
	Reason string `json:"reason"`
}
