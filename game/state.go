// Package game defines the core drive state types for the gridiron simulator.
//
// These types represent everything the rules need to play out one offensive
// drive on a discrete grid. The state is designed to be cheaply clonable so
// transitions can be pure (old state in, new state out).
package game

// Point is a grid coordinate.
// X runs along the field toward the scoring end (one cell = YardsPerCell yards),
// Y is the lateral row.
type Point struct {
	X int32
	Y int32
}

// Add returns p displaced by s.
func (p Point) Add(s Step) Point {
	return Point{X: p.X + s.DX, Y: p.Y + s.DY}
}

type Role uint8

const (
	RoleQuarterback Role = iota
	RoleBlocker
	RoleReceiver
	RoleDefender
)

func (r Role) String() string {
	switch r {
	case RoleQuarterback:
		return "quarterback"
	case RoleBlocker:
		return "blocker"
	case RoleReceiver:
		return "receiver"
	case RoleDefender:
		return "defender"
	default:
		return "unknown"
	}
}

// ActorID is a stable handle into DriveState.Actors for the lifetime of one formation.
type ActorID int32

// NoActor is the zero carrier before any formation has been built.
const NoActor ActorID = -1

// Actor is a single player on the grid.
// Route and Cursor are only meaningful for blockers and receivers.
type Actor struct {
	ID     ActorID
	Role   Role
	Slot   int32
	Pos    Point
	Route  Route
	Cursor int32
}

// RouteDone reports whether the actor has replayed every scripted step.
func (a *Actor) RouteDone() bool {
	return int(a.Cursor) >= len(a.Route)
}

// NextStep returns the pending route step. Callers must check RouteDone first.
func (a *Actor) NextStep() Step {
	return a.Route[a.Cursor]
}

type Possession uint8

const (
	Home Possession = iota
	Away
)

func (p Possession) String() string {
	if p == Away {
		return "away"
	}
	return "home"
}

// Other returns the opposing side.
func (p Possession) Other() Possession {
	if p == Home {
		return Away
	}
	return Home
}

type Phase uint8

const (
	PhasePreSnap Phase = iota
	PhaseLive
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhasePreSnap:
		return "pre_snap"
	case PhaseLive:
		return "live"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Reason records why a drive ended.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonTouchdown       Reason = "Touchdown"
	ReasonTurnoverOnDowns Reason = "Turnover on Downs"
	ReasonInterception    Reason = "Interception"
	ReasonPunt            Reason = "Punt"
	ReasonTimeExpired     Reason = "Time Expired"
)

// DriveState is the complete, owned aggregate for one drive.
// Actors are rebuilt wholesale by the formation builder; nothing survives a reform
// except through the counters on this struct.
type DriveState struct {
	Settings Settings

	Actors  []Actor
	Carrier ActorID

	Phase  Phase
	Reason Reason

	Down            int32
	YardsToGo       int32
	LineOfScrimmage int32
	FirstDownMarker int32
	SeriesStart     int32

	Possession Possession
	Score      [2]int32
	Clock      int32

	// NextDriveLOS is where the following drive starts once Continue is submitted.
	NextDriveLOS int32

	TackledThisDown   bool
	FirstDownThisPlay bool

	QBMoves       int32
	DefenderTicks int32

	DriveNumber int32
	Plays       int32
	Tick        int32
}

// Clone performs a deep copy of the drive state.
// Routes are immutable once assigned and are shared between copies.
func (s *DriveState) Clone() *DriveState {
	if s == nil {
		return nil
	}
	out := *s
	if len(s.Actors) > 0 {
		out.Actors = make([]Actor, len(s.Actors))
		copy(out.Actors, s.Actors)
	}
	return &out
}

// Actor returns the actor with the given id, or nil.
func (s *DriveState) Actor(id ActorID) *Actor {
	if id < 0 || int(id) >= len(s.Actors) {
		return nil
	}
	return &s.Actors[id]
}

// CarrierActor returns the current ball carrier.
func (s *DriveState) CarrierActor() *Actor {
	return s.Actor(s.Carrier)
}

// Quarterback returns the formation's quarterback. The builder always places it first.
func (s *DriveState) Quarterback() *Actor {
	for i := range s.Actors {
		if s.Actors[i].Role == RoleQuarterback {
			return &s.Actors[i]
		}
	}
	return nil
}

// ByRole returns ids of every actor with the given role, in slot order.
func (s *DriveState) ByRole(role Role) []ActorID {
	ids := make([]ActorID, 0, 6)
	for i := range s.Actors {
		if s.Actors[i].Role == role {
			ids = append(ids, s.Actors[i].ID)
		}
	}
	return ids
}

// OccupiedBy reports whether any actor with the given role stands on p.
func (s *DriveState) OccupiedBy(role Role, p Point) bool {
	for i := range s.Actors {
		if s.Actors[i].Role == role && s.Actors[i].Pos == p {
			return true
		}
	}
	return false
}

// QuarterbackHasBall reports whether the snap has happened and the quarterback carries.
func (s *DriveState) QuarterbackHasBall() bool {
	c := s.CarrierActor()
	return s.Phase == PhaseLive && c != nil && c.Role == RoleQuarterback
}

// YardsRemaining is the display value: yards left to the marker from the carrier.
func (s *DriveState) YardsRemaining() int32 {
	c := s.CarrierActor()
	if c == nil || s.Phase != PhaseLive {
		return s.YardsToGo
	}
	left := (s.FirstDownMarker - c.Pos.X) * s.Settings.YardsPerCell
	if left < 0 {
		return 0
	}
	return left
}
