// settings.go holds every tunable of the drive simulator.

package game

// Step is one scripted displacement along a route.
type Step struct {
	DX int32
	DY int32
}

// Route is a fixed, replayable sequence of steps.
type Route []Step

// Playbook assigns routes per formation slot.
// Slot i of the blockers runs Blockers[i]; missing entries mean "hold position".
type Playbook struct {
	Blockers  []Route
	Receivers []Route
}

// DefaultPlaybook pushes the line forward and runs both receivers on an out-and-up.
var DefaultPlaybook = Playbook{
	Blockers: []Route{
		{{DX: 1, DY: 0}, {DX: 1, DY: 0}},
		{{DX: 1, DY: -1}, {DX: 1, DY: 0}},
		{{DX: 1, DY: 1}, {DX: 1, DY: 0}},
	},
	Receivers: []Route{
		{{DX: 1, DY: 0}, {DX: 0, DY: -1}, {DX: 1, DY: 0}},
		{{DX: 1, DY: 0}, {DX: 0, DY: 1}, {DX: 1, DY: 0}},
	},
}

// Settings controls the field, the clock and the pacing of the non-quarterback actors.
type Settings struct {
	Cols         int32 // cells along the field; the last column is the end zone
	Rows         int32
	YardsPerCell int32

	FirstDownYards int32
	ClockSeconds   int32 // per drive; one second per quarterback move or pass attempt

	DefenderDelay int32 // defenders act once every N quarterback moves
	BlockerEvery  int32 // blockers act once every N quarterback moves
	PassRange     int32 // max column distance to a receiver on the quarterback's row

	GoalLineYards   int32 // below this distance to the end zone the defense packs one column
	PuntDistance    int32 // cells
	SnapOffset      int32
	KickoffColumn   int32
	TouchdownPoints int32

	// BlockQBIntoBlocker rejects quarterback moves onto a blocker's cell.
	BlockQBIntoBlocker bool

	Playbook Playbook
}

// DefaultSettings is a 100 yard field at 5 yards per cell.
var DefaultSettings = Settings{
	Cols:               20,
	Rows:               9,
	YardsPerCell:       5,
	FirstDownYards:     10,
	ClockSeconds:       120,
	DefenderDelay:      1,
	BlockerEvery:       3,
	PassRange:          3,
	GoalLineYards:      15,
	PuntDistance:       8,
	SnapOffset:         1,
	KickoffColumn:      1,
	TouchdownPoints:    6,
	BlockQBIntoBlocker: true,
	Playbook:           DefaultPlaybook,
}

// MinCols is the smallest playable field: a kickoff column, one column of play
// and the end zone.
const MinCols = 3

// Normalize fills unset fields from DefaultSettings. Counts and distances are
// unset when <= 0. SnapOffset and KickoffColumn are unset only when negative,
// so zero stays configurable. Fields narrower than MinCols are widened and the
// kickoff is kept out of the end zone. BlockQBIntoBlocker is taken as given.
func (s Settings) Normalize() Settings {
	d := DefaultSettings
	fill := func(v *int32, def int32) {
		if *v <= 0 {
			*v = def
		}
	}
	fillNegative := func(v *int32, def int32) {
		if *v < 0 {
			*v = def
		}
	}
	fill(&s.Cols, d.Cols)
	if s.Cols < MinCols {
		s.Cols = MinCols
	}
	fill(&s.Rows, d.Rows)
	fill(&s.YardsPerCell, d.YardsPerCell)
	fill(&s.FirstDownYards, d.FirstDownYards)
	fill(&s.ClockSeconds, d.ClockSeconds)
	fill(&s.DefenderDelay, d.DefenderDelay)
	fill(&s.BlockerEvery, d.BlockerEvery)
	fill(&s.PassRange, d.PassRange)
	fill(&s.GoalLineYards, d.GoalLineYards)
	fill(&s.PuntDistance, d.PuntDistance)
	fillNegative(&s.SnapOffset, d.SnapOffset)
	fillNegative(&s.KickoffColumn, d.KickoffColumn)
	s.KickoffColumn = clamp32(s.KickoffColumn, 0, s.GoalColumn()-1)
	fill(&s.TouchdownPoints, d.TouchdownPoints)
	if s.Playbook.Blockers == nil && s.Playbook.Receivers == nil {
		s.Playbook = d.Playbook
	}
	return s
}

// Clamp constrains p to the grid.
func (s *Settings) Clamp(p Point) Point {
	return Point{X: clamp32(p.X, 0, s.Cols-1), Y: clamp32(p.Y, 0, s.Rows-1)}
}

// InBounds reports whether p lies on the grid.
func (s *Settings) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Cols && p.Y >= 0 && p.Y < s.Rows
}

// GoalColumn is the end-zone column; reaching it scores.
func (s *Settings) GoalColumn() int32 {
	return s.Cols - 1
}

// MidRow is the row the quarterback lines up on.
func (s *Settings) MidRow() int32 {
	return s.Rows / 2
}

// MarkerFrom returns the first-down column for a series starting at los, clamped to the goal.
func (s *Settings) MarkerFrom(los int32) int32 {
	cells := (s.FirstDownYards + s.YardsPerCell - 1) / s.YardsPerCell
	return clamp32(los+cells, 0, s.GoalColumn())
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
