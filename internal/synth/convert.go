package synth

import "github.com/okian/rai/internal/domain/model"

// ToModel converts the wire play into the domain play, the same mapping the
// service applies on submission. Lets generated plays run through the
// engine directly, without a server in between.
func (p Play) ToModel() model.Play {
	play := model.Play{
		PlayID: p.PlayID,
		Context: model.PlayContext{
			TargetX: p.TargetX,
			TargetY: p.TargetY,
			Agents:  make(map[string]model.AgentContext, len(p.Agents)),
		},
		Trajectories: make([]model.Trajectory, 0, len(p.Agents)),
	}
	for _, a := range p.Agents {
		play.Context.Agents[a.AgentID] = model.AgentContext{
			Assignment: a.Assignment,
			Team:       a.Team,
			OpponentID: a.OpponentID,
		}
		samples := make([]model.Sample, len(a.Samples))
		for i, s := range a.Samples {
			samples[i] = model.Sample{Frame: s.Frame, X: s.X, Y: s.Y}
		}
		play.Trajectories = append(play.Trajectories, model.Trajectory{
			AgentID:  a.AgentID,
			Samples:  samples,
			Interval: p.Interval,
		})
	}
	return play
}
