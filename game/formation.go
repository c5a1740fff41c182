// formation.go builds the actor set for a down relative to the line of scrimmage.

package game

// Formation selects the defensive look.
type Formation uint8

const (
	FormationNormal Formation = iota
	FormationGoalLine
)

func (f Formation) String() string {
	if f == FormationGoalLine {
		return "goal_line"
	}
	return "normal"
}

var (
	blockerRows  = []int32{0, -1, 1}
	receiverRows = []int32{-1, 1}

	// Two depth bands: three across the front, three spread deep.
	normalDefense = []Step{
		{DX: 3, DY: -1}, {DX: 3, DY: 0}, {DX: 3, DY: 1},
		{DX: 5, DY: -2}, {DX: 5, DY: 0}, {DX: 5, DY: 2},
	}
	// Everyone stacked on one column in front of the line.
	goalLineDefense = []Step{
		{DX: 2, DY: -3}, {DX: 2, DY: -2}, {DX: 2, DY: -1},
		{DX: 2, DY: 0}, {DX: 2, DY: 1}, {DX: 2, DY: 2},
	}
)

// FormationFor picks the defensive look for a line of scrimmage.
func FormationFor(settings *Settings, los int32) Formation {
	remaining := (settings.GoalColumn() - los) * settings.YardsPerCell
	if remaining < settings.GoalLineYards {
		return FormationGoalLine
	}
	return FormationNormal
}

// BuildFormation returns a fresh actor set lined up on los.
// The quarterback is always id 0 and the first blocker id 1, which holds the ball pre-snap.
// Coordinates are clamped, so formations near the sidelines or goal may stack up.
func BuildFormation(settings *Settings, los int32) ([]Actor, ActorID) {
	mid := settings.MidRow()
	origin := settings.Clamp(Point{X: los, Y: mid})

	actors := make([]Actor, 0, 1+len(blockerRows)+len(receiverRows)+len(normalDefense))
	add := func(role Role, slot int, p Point, route Route) {
		actors = append(actors, Actor{
			ID:    ActorID(len(actors)),
			Role:  role,
			Slot:  int32(slot),
			Pos:   settings.Clamp(p),
			Route: route,
		})
	}

	add(RoleQuarterback, 0, origin, nil)
	for i, dy := range blockerRows {
		add(RoleBlocker, i, Point{X: los + 1, Y: mid + dy}, routeFor(settings.Playbook.Blockers, i))
	}
	for i, dy := range receiverRows {
		add(RoleReceiver, i, Point{X: los - 1, Y: mid + dy}, routeFor(settings.Playbook.Receivers, i))
	}

	defense := normalDefense
	if FormationFor(settings, los) == FormationGoalLine {
		defense = goalLineDefense
	}
	for i, off := range defense {
		add(RoleDefender, i, Point{X: los, Y: mid}.Add(off), nil)
	}

	return actors, ActorID(1)
}

func routeFor(routes []Route, slot int) Route {
	if slot < len(routes) {
		return routes[slot]
	}
	return nil
}

// Reform rebuilds the actors on the state's current line of scrimmage and resets
// the per-down counters. The down, marker and flags are left to the caller.
func (s *DriveState) Reform() {
	s.Actors, s.Carrier = BuildFormation(&s.Settings, s.LineOfScrimmage)
	s.Phase = PhasePreSnap
	s.QBMoves = 0
	s.DefenderTicks = 0
}

// NewDrive returns a drive lined up at los for the given side.
func NewDrive(settings Settings, los int32, side Possession) *DriveState {
	settings = settings.Normalize()
	los = clamp32(los, 0, settings.GoalColumn())
	s := &DriveState{
		Settings:        settings,
		Carrier:         NoActor,
		Possession:      side,
		Down:            1,
		YardsToGo:       settings.FirstDownYards,
		LineOfScrimmage: los,
		SeriesStart:     los,
		FirstDownMarker: settings.MarkerFrom(los),
		Clock:           settings.ClockSeconds,
		NextDriveLOS:    settings.KickoffColumn,
		DriveNumber:     1,
	}
	s.Reform()
	return s
}

// NewGame returns the opening drive for the home side from the kickoff spot.
func NewGame(settings Settings) *DriveState {
	settings = settings.Normalize()
	return NewDrive(settings, settings.KickoffColumn, Home)
}
