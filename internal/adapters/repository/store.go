// Package repository stores computed results and omission records and
// serves ranking queries over agents' best composites.
package repository

import (
	"context"

	"github.com/okian/rai/internal/domain/model"
)

// Entry is one ranking row: an agent's best composite and where it was set.
type Entry struct {
	Rank      int        `json:"rank"`
	AgentID   string     `json:"agent_id"`
	PlayID    string     `json:"play_id"`
	Role      model.Role `json:"role"`
	Composite float64    `json:"composite"`
}

// Store provides read/write access to scored results.
type Store interface {
	// PutResults records the full outcome of one play. Re-storing a
	// (play, agent) pair replaces the earlier row, so replays are
	// idempotent.
	PutResults(ctx context.Context, results []model.Result) error

	// MarkOmitted records a play rejected as malformed.
	MarkOmitted(ctx context.Context, omission model.Omission) error

	// ResultsByPlay returns every agent result for a play, in stored
	// order. Returns ErrNotFound for an unknown play.
	ResultsByPlay(ctx context.Context, playID string) ([]model.Result, error)

	// ResultsByAgent returns every play result for an agent.
	// Returns ErrNotFound for an unknown agent.
	ResultsByAgent(ctx context.Context, agentID string) ([]model.Result, error)

	// Omissions returns all recorded omissions.
	Omissions(ctx context.Context) []model.Omission

	// Rank returns the ranking row for an agent, ordered by best
	// composite descending with agent id as the tie-breaker.
	// Returns ErrNotFound for an unknown agent.
	Rank(ctx context.Context, agentID string) (Entry, error)

	// TopN returns the best n agents. Returns ErrInvalidLimit when n < 1.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of distinct agents scored.
	Count(ctx context.Context) int
}
