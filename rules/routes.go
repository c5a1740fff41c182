package rules

import (
	"github.com/brensch/gridiron/game"
)

// AdvanceReceivers moves every receiver one step along its route.
// A receiver only refuses a step onto a blocker; the cursor stays put so the
// step is retried on the next activation.
func AdvanceReceivers(state *game.DriveState) []game.ActorID {
	moved := []game.ActorID{}
	for i := range state.Actors {
		r := &state.Actors[i]
		if r.Role != game.RoleReceiver || r.RouteDone() {
			continue
		}
		to := state.Settings.Clamp(r.Pos.Add(r.NextStep()))
		if state.OccupiedBy(game.RoleBlocker, to) {
			continue
		}
		r.Pos = to
		r.Cursor++
		moved = append(moved, r.ID)
	}
	return moved
}

type blockerMove struct {
	id game.ActorID
	to game.Point
}

// AdvanceBlockers moves every blocker one step along its route, all at once.
//
// A step is refused when the destination holds another blocker, the quarterback
// or a receiver, or when two or more blockers aim at the same cell. In the last
// case none of the contenders move.
func AdvanceBlockers(state *game.DriveState) []game.ActorID {
	var qbPos game.Point
	hasQB := false
	if qb := state.Quarterback(); qb != nil {
		qbPos, hasQB = qb.Pos, true
	}

	proposals := make([]blockerMove, 0, 3)
	targets := make(map[game.Point]int, 3)
	for i := range state.Actors {
		b := &state.Actors[i]
		if b.Role != game.RoleBlocker || b.RouteDone() {
			continue
		}
		to := state.Settings.Clamp(b.Pos.Add(b.NextStep()))
		proposals = append(proposals, blockerMove{id: b.ID, to: to})
		targets[to]++
	}

	accepted := make([]blockerMove, 0, len(proposals))
	for _, p := range proposals {
		if targets[p.to] > 1 {
			continue
		}
		if hasQB && p.to == qbPos {
			continue
		}
		if state.OccupiedBy(game.RoleReceiver, p.to) {
			continue
		}
		if heldByOtherBlocker(state, p.id, p.to) {
			continue
		}
		accepted = append(accepted, p)
	}

	moved := make([]game.ActorID, 0, len(accepted))
	for _, p := range accepted {
		b := state.Actor(p.id)
		b.Pos = p.to
		b.Cursor++
		moved = append(moved, p.id)
	}
	return moved
}

func heldByOtherBlocker(state *game.DriveState, self game.ActorID, p game.Point) bool {
	for i := range state.Actors {
		a := &state.Actors[i]
		if a.ID != self && a.Role == game.RoleBlocker && a.Pos == p {
			return true
		}
	}
	return false
}
