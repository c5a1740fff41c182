package rules

import (
	"github.com/brensch/gridiron/game"
)

// PursuitStep returns the single greedy step from `from` toward `to`.
// The axis with the larger gap wins; equal gaps go along x.
func PursuitStep(from, to game.Point) game.Step {
	dx := to.X - from.X
	dy := to.Y - from.Y
	switch {
	case dx != 0 && abs32(dx) >= abs32(dy):
		return game.Step{DX: sign32(dx)}
	case dy != 0:
		return game.Step{DY: sign32(dy)}
	}
	return game.Step{}
}

// MoveDefenders steps every defender toward the ball carrier.
// A step onto a blocker is vetoed and the defender holds for this tick.
func MoveDefenders(state *game.DriveState) []game.ActorID {
	carrier := state.CarrierActor()
	if carrier == nil {
		return nil
	}
	target := carrier.Pos

	moved := []game.ActorID{}
	for i := range state.Actors {
		d := &state.Actors[i]
		if d.Role != game.RoleDefender || d.ID == carrier.ID {
			continue
		}
		step := PursuitStep(d.Pos, target)
		if step == (game.Step{}) {
			continue
		}
		to := state.Settings.Clamp(d.Pos.Add(step))
		if state.OccupiedBy(game.RoleBlocker, to) {
			continue
		}
		d.Pos = to
		moved = append(moved, d.ID)
	}
	return moved
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
