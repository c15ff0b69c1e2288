// Package synth generates synthetic plays with known kinematic shapes and
// drives them through a running scoring service. Each play pairs one
// offensive archetype (straight runner or curved route) with one defensive
// archetype (delayed reactor or shadow defender), so every role and every
// component path gets exercised.
package synth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rai/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	playIDDivisor      = 10000
	archetypeDivisor   = 4
)

// Field geometry and motion ranges for generated plays.
const (
	fieldWidth  = 50.0
	fieldLength = 100.0

	runnerSpeedMin   = 4.0 // units per second
	runnerSpeedRange = 5.0

	reactorDelayMin   = 2 // stationary frames before reacting
	reactorDelayRange = 4
	reactorAccel      = 6.0 // units per second^2 toward the target

	cutFraction = 0.5  // where along the window a curved route cuts
	cutAngleMin = 50.0 // degrees
	cutAngleMax = 100.0

	shadowLag       = 2 // frames the shadow trails its assignment
	shadowOffset    = 2.5
	initialSepMin   = 6.0
	initialSepRange = 6.0
)

// Offensive archetype cases.
const (
	caseStraightRunner = 0
	caseCurvedRoute    = 1
)

// Defensive archetype cases.
const (
	caseDelayedReactor = 2
	caseShadowDefender = 3
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n).
func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generatePlays creates the specified number of plays with unique agent IDs.
func generatePlays(ctx context.Context, config *Config, stats *Stats) ([]Play, error) {
	logger.Get().Info(ctx, "generating plays", logger.Int("numPlays", config.NumPlays))

	plays := make([]Play, config.NumPlays)

	type playResult struct {
		index int
		play  Play
		err   error
	}

	resultChan := make(chan playResult, config.NumPlays)

	workerCount := minInt(config.Workers, config.NumPlays)
	playsPerWorker := config.NumPlays / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * playsPerWorker
		end := start + playsPerWorker
		if worker == workerCount-1 {
			end = config.NumPlays
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- playResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- playResult{index: i, play: GeneratePlay(i, config.Frames)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumPlays; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during play generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate play %d: %w", result.index, result.err)
			}
			plays[result.index] = result.play
		}
	}

	stats.PlaysGenerated = len(plays)
	logger.Get().Info(ctx, "generated plays successfully", logger.Int("count", len(plays)))

	return plays, nil
}

// GeneratePlay creates one play: an offensive agent, a defensive agent tied
// to it, and a target point at the offense's final position.
func GeneratePlay(index, frames int) Play {
	if frames < 2 {
		frames = DefaultFrames
	}

	randNum, _ := rand.Int(rand.Reader, big.NewInt(playIDDivisor))
	playID := "play_" + strconv.Itoa(index) + "_" +
		strconv.FormatInt(time.Now().Unix(), 10) + "_" +
		strconv.FormatInt(randNum.Int64(), 10)

	var offense Agent
	switch getRandomInt(archetypeDivisor) % 2 {
	case caseStraightRunner:
		offense = StraightRunner(uuid.New().String(), frames)
	default:
		offense = CurvedRoute(uuid.New().String(), frames)
	}

	// Target is where the offense ends up; reactors chase it, and
	// tracking correlation measures pursuit of it.
	last := offense.Samples[len(offense.Samples)-1]
	targetX, targetY := last.X, last.Y

	var defense Agent
	switch caseDelayedReactor + getRandomInt(2) {
	case caseShadowDefender:
		defense = ShadowDefender(uuid.New().String(), offense)
	default:
		defense = DelayedReactor(uuid.New().String(), frames, targetX, targetY)
	}

	return Play{
		PlayID:   playID,
		Interval: DefaultInterval,
		TargetX:  targetX,
		TargetY:  targetY,
		Agents:   []Agent{offense, defense},
	}
}

// StraightRunner moves at constant velocity along a random heading: maximal
// path efficiency, zero jerk, no break point.
func StraightRunner(agentID string, frames int) Agent {
	x := getRandomFloat() * fieldLength * 0.3
	y := getRandomFloat() * fieldWidth
	speed := runnerSpeedMin + getRandomFloat()*runnerSpeedRange
	heading := (getRandomFloat() - 0.5) * math.Pi / 2 // roughly downfield

	vx := speed * math.Cos(heading) * DefaultInterval
	vy := speed * math.Sin(heading) * DefaultInterval

	samples := make([]Sample, frames)
	for i := 0; i < frames; i++ {
		samples[i] = Sample{Frame: i, X: x + vx*float64(i), Y: y + vy*float64(i)}
	}
	return Agent{
		AgentID:    agentID,
		Assignment: "targeted",
		Team:       "offense",
		Samples:    samples,
	}
}

// CurvedRoute runs straight, then cuts by a sharp angle partway through the
// window while holding speed: a detectable break point with high quality.
func CurvedRoute(agentID string, frames int) Agent {
	x := getRandomFloat() * fieldLength * 0.3
	y := getRandomFloat() * fieldWidth
	speed := runnerSpeedMin + getRandomFloat()*runnerSpeedRange
	heading := (getRandomFloat() - 0.5) * math.Pi / 4

	cutAt := int(float64(frames) * cutFraction)
	cutAngle := (cutAngleMin + getRandomFloat()*(cutAngleMax-cutAngleMin)) * math.Pi / 180
	if getRandomInt(2) == 0 {
		cutAngle = -cutAngle
	}

	samples := make([]Sample, frames)
	cx, cy := x, y
	for i := 0; i < frames; i++ {
		samples[i] = Sample{Frame: i, X: cx, Y: cy}
		h := heading
		if i >= cutAt {
			h = heading + cutAngle
		}
		cx += speed * math.Cos(h) * DefaultInterval
		cy += speed * math.Sin(h) * DefaultInterval
	}
	return Agent{
		AgentID:    agentID,
		Assignment: "route",
		Team:       "offense",
		Samples:    samples,
	}
}

// DelayedReactor sits still for a few frames, then accelerates toward the
// target point: a sustained jerk spike at a known frame.
func DelayedReactor(agentID string, frames int, targetX, targetY float64) Agent {
	delay := reactorDelayMin + getRandomInt(reactorDelayRange)
	if delay >= frames {
		delay = frames / 2
	}

	// Start a known separation away from the target.
	sep := initialSepMin + getRandomFloat()*initialSepRange
	angle := getRandomFloat() * 2 * math.Pi
	x := targetX + sep*math.Cos(angle)
	y := targetY + sep*math.Sin(angle)

	samples := make([]Sample, frames)
	cx, cy := x, y
	speed := 0.0
	for i := 0; i < frames; i++ {
		samples[i] = Sample{Frame: i, X: cx, Y: cy}
		if i >= delay {
			speed += reactorAccel * DefaultInterval
		}
		dx, dy := targetX-cx, targetY-cy
		dist := math.Hypot(dx, dy)
		if dist > 1e-9 {
			step := speed * DefaultInterval
			if step > dist {
				step = dist
			}
			cx += dx / dist * step
			cy += dy / dist * step
		}
	}
	return Agent{
		AgentID:    agentID,
		Assignment: "coverage",
		Team:       "defense",
		Samples:    samples,
	}
}

// ShadowDefender trails its assignment by a fixed lag and lateral offset,
// so its heading series correlates with the offense's and separation stays
// roughly constant.
func ShadowDefender(agentID string, offense Agent) Agent {
	samples := make([]Sample, len(offense.Samples))
	for i := range offense.Samples {
		src := offense.Samples[maxInt(0, i-shadowLag)]
		samples[i] = Sample{
			Frame: offense.Samples[i].Frame,
			X:     src.X - shadowOffset,
			Y:     src.Y + shadowOffset,
		}
	}
	return Agent{
		AgentID:    agentID,
		Assignment: "shadow",
		Team:       "defense",
		OpponentID: offense.AgentID,
		Samples:    samples,
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// maxInt returns the maximum of two integers.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
