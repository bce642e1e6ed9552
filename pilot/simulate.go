package pilot

const (
	DefaultDTStart = 1.0
	DefaultDTStep  = 0.25
)

// Trajectory is the outcome of one rollout
type Trajectory struct {
	Alive bool    `json:"alive" msgpack:"a"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	First Control `json:"first" msgpack:"f"`
	Path  []Point `json:"path,omitempty" msgpack:"p,omitempty"`
	Score float64 `json:"score" msgpack:"s"`
}

// Steps is the number of simulated steps the rollout recorded
func (t Trajectory) Steps() int {
	return len(t.Path)
}

// Simulator forward-integrates a world under a control sequence. Each step
// uses a longer dt than the last, so later look-ahead is coarser.
type Simulator struct {
	Arena   Arena
	Rules   Rules
	DTStart float64
	DTStep  float64

	// Score rewards surviving rollouts for ending near the arena center.
	Score bool
}

// NewSimulator returns a simulator with the default dt schedule
func NewSimulator(a Arena, rules Rules) Simulator {
	return Simulator{
		Arena:   a,
		Rules:   rules,
		DTStart: DefaultDTStart,
		DTStep:  DefaultDTStep,
	}
}

// Simulate runs seq against copies of ship and rocks. It stops at the first
// collision and discards the remaining inputs.
func (s Simulator) Simulate(ship Body, rocks []Body, seq []Control) Trajectory {
	p := ship
	rs := make([]Body, len(rocks))
	copy(rs, rocks)

	if len(seq) == 0 {
		return Trajectory{Alive: Alive(p, rs), X: p.X, Y: p.Y}
	}

	res := Trajectory{
		First: seq[0],
		Path:  make([]Point, 0, len(seq)),
	}
	dt := s.DTStart
	for _, c := range seq {
		p.Step(s.Arena, s.Rules, dt, c)
		res.Path = append(res.Path, Point{X: p.X, Y: p.Y})
		for i := range rs {
			rs[i].Step(s.Arena, s.Rules, dt, c)
		}
		dt += s.DTStep
		if !Alive(p, rs) {
			res.X, res.Y = p.X, p.Y
			return res
		}
	}

	res.Alive = true
	res.X, res.Y = p.X, p.Y
	if s.Score {
		cx, cy := s.Arena.Center()
		res.Score = -(p.X-cx)*(p.X-cx) - (p.Y-cy)*(p.Y-cy)
	}
	return res
}

// SimulateWorld is Simulate over a world's ship and rocks
func (s Simulator) SimulateWorld(w *World, seq []Control) Trajectory {
	return s.Simulate(w.Ship, w.Rocks, seq)
}
