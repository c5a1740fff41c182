package policy

import (
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
)

// Scripted is a greedy heuristic quarterback.
//
// It punts right after the snap on fourth and long outside the goal-line look,
// throws whenever a receiver ahead of it is open, and otherwise runs toward the
// end zone while keeping off defenders.
type Scripted struct{}

func (Scripted) Choose(state *game.DriveState) (rules.Intent, error) {
	switch state.Phase {
	case game.PhaseTerminal:
		return rules.ContinueDrive(), nil
	case game.PhasePreSnap:
		return rules.Snap(), nil
	}

	qb := state.Quarterback()
	if qb == nil || !state.QuarterbackHasBall() {
		return rules.Punt(), nil
	}

	s := &state.Settings
	if state.Down == 4 && state.YardsToGo > s.FirstDownYards/2 &&
		game.FormationFor(s, state.LineOfScrimmage) == game.FormationNormal {
		return rules.Punt(), nil
	}

	if out := rules.ResolvePass(state); out.HasTarget() && !out.Intercepted() {
		if t := state.Actor(out.Target); t.Pos.X > qb.Pos.X {
			return rules.Pass(), nil
		}
	}

	best, bestScore := rules.Punt(), int32(-1<<30)
	for _, in := range LegalIntents(state) {
		if in.Kind != rules.IntentMove {
			continue
		}
		if sc := runScore(state, qb.Pos.Add(in.Dir.Step())); sc > bestScore {
			best, bestScore = in, sc
		}
	}
	return best, nil
}

// runScore rewards forward progress and penalizes cells a defender holds or can
// reach next tick.
func runScore(state *game.DriveState, to game.Point) int32 {
	qb := state.Quarterback()
	score := 4 * (to.X - qb.Pos.X)
	for _, id := range state.ByRole(game.RoleDefender) {
		d := state.Actor(id).Pos
		switch dist := abs(d.X-to.X) + abs(d.Y-to.Y); {
		case dist == 0:
			score -= 20
		case dist == 1:
			score -= 3
		}
	}
	return score
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
