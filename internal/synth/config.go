package synth

import "time"

// Config holds configuration for a synthetic play run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumPlays   int           // Number of plays to generate
	TopN       int           // Number of leaderboard entries to fetch
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Frames     int           // Samples per trajectory
	OutputFile string        // Output file for generated plays
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Play is the wire shape for POST /plays.
type Play struct {
	PlayID   string  `json:"play_id"`
	Interval float64 `json:"interval"`
	TargetX  float64 `json:"target_x"`
	TargetY  float64 `json:"target_y"`
	Agents   []Agent `json:"agents"`
}

// Agent is one agent's trajectory plus its context hints.
type Agent struct {
	AgentID    string   `json:"agent_id"`
	Assignment string   `json:"assignment"`
	Team       string   `json:"team"`
	OpponentID string   `json:"opponent_id,omitempty"`
	Samples    []Sample `json:"samples"`
}

// Sample is one positional observation.
type Sample struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Entry is a leaderboard row as returned by GET /leaderboard.
type Entry struct {
	Rank      int     `json:"rank"`
	AgentID   string  `json:"agent_id"`
	PlayID    string  `json:"play_id"`
	Role      string  `json:"role"`
	Composite float64 `json:"composite"`
}

// AckResponse is the response from play submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	PlaysGenerated     int
	PlaysSubmitted     int
	PlaysSuccessful    int
	PlaysDuplicate     int
	PlaysFailed        int
	ResultsRetrieved   int
	AgentsScored       int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
