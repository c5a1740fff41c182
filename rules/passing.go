package rules

import (
	"github.com/brensch/gridiron/game"
)

// PassOutcome is the resolution of a throw from the quarterback's cell.
type PassOutcome struct {
	Target      game.ActorID // NoActor when nobody was open
	Interceptor game.ActorID // NoActor when the ball got through
}

func (o PassOutcome) HasTarget() bool   { return o.Target != game.NoActor }
func (o PassOutcome) Intercepted() bool { return o.Interceptor != game.NoActor }

// PassTargets returns receivers on the quarterback's row within range, in slot order.
func PassTargets(state *game.DriveState) []game.ActorID {
	qb := state.Quarterback()
	if qb == nil {
		return nil
	}
	out := []game.ActorID{}
	for i := range state.Actors {
		r := &state.Actors[i]
		if r.Role != game.RoleReceiver || r.Pos.Y != qb.Pos.Y {
			continue
		}
		if abs32(r.Pos.X-qb.Pos.X) <= state.Settings.PassRange {
			out = append(out, r.ID)
		}
	}
	return out
}

// SelectTarget prefers the nearest receiver level with or ahead of the quarterback,
// falling back to the nearest overall. Ties keep slot order.
func SelectTarget(state *game.DriveState, candidates []game.ActorID) game.ActorID {
	qb := state.Quarterback()
	if qb == nil || len(candidates) == 0 {
		return game.NoActor
	}

	best, bestDist := game.NoActor, int32(-1)
	for _, id := range candidates {
		r := state.Actor(id)
		if r.Pos.X < qb.Pos.X {
			continue
		}
		if d := r.Pos.X - qb.Pos.X; bestDist < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	if best != game.NoActor {
		return best
	}

	for _, id := range candidates {
		r := state.Actor(id)
		if d := abs32(r.Pos.X - qb.Pos.X); bestDist < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// FindInterceptor walks the throwing lane from the quarterback toward the target
// and returns the first defender standing in it. The quarterback's own column is
// excluded, the target's column is included.
func FindInterceptor(state *game.DriveState, target game.ActorID) game.ActorID {
	qb := state.Quarterback()
	r := state.Actor(target)
	if qb == nil || r == nil || r.Pos.X == qb.Pos.X {
		return game.NoActor
	}
	dir := sign32(r.Pos.X - qb.Pos.X)
	row := qb.Pos.Y
	for x := qb.Pos.X + dir; ; x += dir {
		for i := range state.Actors {
			d := &state.Actors[i]
			if d.Role == game.RoleDefender && d.Pos.Y == row && d.Pos.X == x {
				return d.ID
			}
		}
		if x == r.Pos.X {
			break
		}
	}
	return game.NoActor
}

// ResolvePass decides the throw without mutating state.
func ResolvePass(state *game.DriveState) PassOutcome {
	out := PassOutcome{Target: game.NoActor, Interceptor: game.NoActor}
	out.Target = SelectTarget(state, PassTargets(state))
	if out.Target == game.NoActor {
		return out
	}
	out.Interceptor = FindInterceptor(state, out.Target)
	return out
}
