package rules

import (
	"fmt"
	"strings"

	"github.com/brensch/gridiron/game"
)

// Direction is a quarterback movement. Row 0 is the top of the field.
type Direction uint8

const (
	MoveUp Direction = iota
	MoveDown
	MoveLeft
	MoveRight
)

var directionNames = []string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

// Step returns the unit displacement for d.
func (d Direction) Step() game.Step {
	switch d {
	case MoveUp:
		return game.Step{DY: -1}
	case MoveDown:
		return game.Step{DY: 1}
	case MoveLeft:
		return game.Step{DX: -1}
	case MoveRight:
		return game.Step{DX: 1}
	}
	return game.Step{}
}

type IntentKind uint8

const (
	IntentSnap IntentKind = iota
	IntentMove
	IntentPass
	IntentPunt
	IntentContinue
)

// Intent is one discrete input submitted by the host.
type Intent struct {
	Kind IntentKind
	Dir  Direction
}

func Snap() Intent            { return Intent{Kind: IntentSnap} }
func Move(d Direction) Intent { return Intent{Kind: IntentMove, Dir: d} }
func Pass() Intent            { return Intent{Kind: IntentPass} }
func Punt() Intent            { return Intent{Kind: IntentPunt} }
func ContinueDrive() Intent   { return Intent{Kind: IntentContinue} }

func (in Intent) String() string {
	switch in.Kind {
	case IntentSnap:
		return "snap"
	case IntentMove:
		return in.Dir.String()
	case IntentPass:
		return "pass"
	case IntentPunt:
		return "punt"
	case IntentContinue:
		return "continue"
	}
	return "unknown"
}

// ParseIntent accepts the names produced by Intent.String.
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "snap":
		return Snap(), nil
	case "up":
		return Move(MoveUp), nil
	case "down":
		return Move(MoveDown), nil
	case "left":
		return Move(MoveLeft), nil
	case "right":
		return Move(MoveRight), nil
	case "pass":
		return Pass(), nil
	case "punt":
		return Punt(), nil
	case "continue":
		return ContinueDrive(), nil
	}
	return Intent{}, fmt.Errorf("unknown intent %q", s)
}

type EventKind string

const (
	EventSnap            EventKind = "snap"
	EventMove            EventKind = "move"
	EventMoveBlocked     EventKind = "move_blocked"
	EventReceiverStep    EventKind = "receiver_step"
	EventBlockerStep     EventKind = "blocker_step"
	EventDefenderStep    EventKind = "defender_step"
	EventCompletion      EventKind = "completion"
	EventNoTarget        EventKind = "no_target"
	EventInterception    EventKind = "interception"
	EventFirstDown       EventKind = "first_down"
	EventTackle          EventKind = "tackle"
	EventNewSeries       EventKind = "new_series"
	EventNextDown        EventKind = "next_down"
	EventTurnoverOnDowns EventKind = "turnover_on_downs"
	EventTouchdown       EventKind = "touchdown"
	EventPunt            EventKind = "punt"
	EventTimeExpired     EventKind = "time_expired"
	EventRestart         EventKind = "restart"
)

// Event is something that happened during a tick.
// Actor is game.NoActor when no single actor is responsible.
type Event struct {
	Kind  EventKind
	Actor game.ActorID
	At    game.Point
}

// TickResult reports the outcome of one submitted intent.
type TickResult struct {
	Intent   Intent
	Accepted bool
	Events   []Event
	Phase    game.Phase
	Reason   game.Reason
}

// Has reports whether an event of the given kind was emitted.
func (r *TickResult) Has(kind EventKind) bool {
	for _, e := range r.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func (r *TickResult) emit(kind EventKind, actor game.ActorID, at game.Point) {
	r.Events = append(r.Events, Event{Kind: kind, Actor: actor, At: at})
}
