// Package ingest loads tracking and context CSV files and assembles them
// into plays ready for the computation engine.
//
// Tracking files carry one positional sample per row; context files carry
// one agent-assignment row per (play, agent) plus the play's shared target
// point. Multiple tracking files are parsed in parallel.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/logger"
)

// Default ingest configuration constants.
const (
	defaultInterval = 0.1 // seconds between samples
)

// Tracking file columns. Extra columns are ignored.
const (
	colPlayID  = "event_id"
	colAgentID = "agent_id"
	colFrame   = "frame"
	colX       = "x"
	colY       = "y"

	colAssignment = "assignment"
	colTeam       = "team"
	colOpponentID = "opponent_id"
	colTargetX    = "target_x"
	colTargetY    = "target_y"
)

// Loader reads CSV feeds into plays.
type Loader struct {
	interval float64
	logger   logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithInterval sets the sampling interval stamped on loaded trajectories.
func WithInterval(seconds float64) Option {
	return func(l *Loader) {
		if seconds > 0 {
			l.interval = seconds
		}
	}
}

// NewLoader creates a Loader with configuration options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		interval: defaultInterval,
		logger:   logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// trackRow is one parsed tracking sample.
type trackRow struct {
	playID  string
	agentID string
	sample  model.Sample
}

// contextRow is one parsed (play, agent) context record.
type contextRow struct {
	playID  string
	agentID string
	agent   model.AgentContext
	targetX float64
	targetY float64
}

// LoadPlays parses every tracking file in parallel, merges in the context
// file when given, and assembles complete plays sorted by play id.
func (l *Loader) LoadPlays(ctx context.Context, trackingPaths []string, contextPath string) ([]model.Play, error) {
	var (
		mu   sync.Mutex
		rows []trackRow
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range trackingPaths {
		path := path
		g.Go(func() error {
			parsed, err := l.loadTrackingFile(gctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			rows = append(rows, parsed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ctxRows []contextRow
	if contextPath != "" {
		parsed, err := l.loadContextFile(ctx, contextPath)
		if err != nil {
			return nil, err
		}
		ctxRows = parsed
	}

	plays := l.assemble(rows, ctxRows)
	l.logger.Info(ctx, "loaded plays",
		logger.Int("files", len(trackingPaths)),
		logger.Int("plays", len(plays)),
	)
	return plays, nil
}

// loadTrackingFile parses one tracking CSV.
func (l *Loader) loadTrackingFile(ctx context.Context, path string) ([]trackRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tracking file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols, err := indexColumns(header, colPlayID, colAgentID, colFrame, colX, colY)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []trackRow
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		frame, err := strconv.Atoi(record[cols[colFrame]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %w", path, line, ErrBadRow, err)
		}
		x, err := strconv.ParseFloat(record[cols[colX]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %w", path, line, ErrBadRow, err)
		}
		y, err := strconv.ParseFloat(record[cols[colY]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %w", path, line, ErrBadRow, err)
		}

		rows = append(rows, trackRow{
			playID:  record[cols[colPlayID]],
			agentID: record[cols[colAgentID]],
			sample:  model.Sample{Frame: frame, X: x, Y: y},
		})
	}
	return rows, nil
}

// loadContextFile parses one context CSV.
func (l *Loader) loadContextFile(ctx context.Context, path string) ([]contextRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening context file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols, err := indexColumns(header, colPlayID, colAgentID, colAssignment, colTeam)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Optional columns.
	optional := indexOptional(header, colOpponentID, colTargetX, colTargetY)

	var rows []contextRow
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		row := contextRow{
			playID:  record[cols[colPlayID]],
			agentID: record[cols[colAgentID]],
			agent: model.AgentContext{
				Assignment: record[cols[colAssignment]],
				Team:       record[cols[colTeam]],
			},
		}
		if i, ok := optional[colOpponentID]; ok {
			row.agent.OpponentID = record[i]
		}
		if i, ok := optional[colTargetX]; ok && record[i] != "" {
			if row.targetX, err = strconv.ParseFloat(record[i], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w: %w", path, line, ErrBadRow, err)
			}
		}
		if i, ok := optional[colTargetY]; ok && record[i] != "" {
			if row.targetY, err = strconv.ParseFloat(record[i], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w: %w", path, line, ErrBadRow, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// assemble groups rows into plays, sorts samples by frame and trajectories
// by agent id, and attaches context.
func (l *Loader) assemble(rows []trackRow, ctxRows []contextRow) []model.Play {
	type agentKey struct{ playID, agentID string }

	samples := make(map[agentKey][]model.Sample)
	for _, row := range rows {
		key := agentKey{row.playID, row.agentID}
		samples[key] = append(samples[key], row.sample)
	}

	contexts := make(map[string]model.PlayContext)
	for _, row := range ctxRows {
		pc, ok := contexts[row.playID]
		if !ok {
			pc = model.PlayContext{Agents: make(map[string]model.AgentContext)}
		}
		pc.Agents[row.agentID] = row.agent
		if row.targetX != 0 || row.targetY != 0 {
			pc.TargetX, pc.TargetY = row.targetX, row.targetY
		}
		contexts[row.playID] = pc
	}

	byPlay := make(map[string][]model.Trajectory)
	for key, s := range samples {
		sort.Slice(s, func(i, j int) bool { return s[i].Frame < s[j].Frame })
		byPlay[key.playID] = append(byPlay[key.playID], model.Trajectory{
			AgentID:  key.agentID,
			Samples:  s,
			Interval: l.interval,
		})
	}

	plays := make([]model.Play, 0, len(byPlay))
	for playID, trajectories := range byPlay {
		sort.Slice(trajectories, func(i, j int) bool {
			return trajectories[i].AgentID < trajectories[j].AgentID
		})
		pc, ok := contexts[playID]
		if !ok {
			pc = model.PlayContext{Agents: map[string]model.AgentContext{}}
		}
		plays = append(plays, model.Play{
			PlayID:       playID,
			Context:      pc,
			Trajectories: trajectories,
		})
	}
	sort.Slice(plays, func(i, j int) bool { return plays[i].PlayID < plays[j].PlayID })
	return plays
}

// indexColumns maps required column names to their positions.
func indexColumns(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	out := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		out[name] = i
	}
	return out, nil
}

// indexOptional maps present optional columns to their positions.
func indexOptional(header []string, names ...string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		if i, ok := idx[name]; ok {
			out[name] = i
		}
	}
	return out
}
