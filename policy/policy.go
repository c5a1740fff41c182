// Package policy chooses quarterback intents for headless play.
package policy

import (
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
)

// Policy picks the next intent for a drive. Implementations must not mutate state.
type Policy interface {
	Choose(state *game.DriveState) (rules.Intent, error)
}

// ActionSize is the number of distinct intents a model scores.
const ActionSize = 8

// Actions lists every intent in model output order.
var Actions = [ActionSize]rules.Intent{
	rules.Snap(),
	rules.Move(rules.MoveUp),
	rules.Move(rules.MoveDown),
	rules.Move(rules.MoveLeft),
	rules.Move(rules.MoveRight),
	rules.Pass(),
	rules.Punt(),
	rules.ContinueDrive(),
}

// ActionIndex returns the model output index of in, or -1.
func ActionIndex(in rules.Intent) int {
	for i, a := range Actions {
		if a == in {
			return i
		}
	}
	return -1
}

// LegalIntents returns the intents that would be accepted and have an effect.
// Moves that clamp in place and passes with no receiver in range are left out,
// even though the rules accept them.
func LegalIntents(state *game.DriveState) []rules.Intent {
	switch state.Phase {
	case game.PhaseTerminal:
		return []rules.Intent{rules.ContinueDrive()}
	case game.PhasePreSnap:
		return []rules.Intent{rules.Snap()}
	}

	out := make([]rules.Intent, 0, 6)
	if state.QuarterbackHasBall() {
		qb := state.Quarterback()
		for _, d := range []rules.Direction{rules.MoveUp, rules.MoveDown, rules.MoveLeft, rules.MoveRight} {
			to := state.Settings.Clamp(qb.Pos.Add(d.Step()))
			if to == qb.Pos {
				continue
			}
			if state.Settings.BlockQBIntoBlocker && state.OccupiedBy(game.RoleBlocker, to) {
				continue
			}
			out = append(out, rules.Move(d))
		}
		if len(rules.PassTargets(state)) > 0 {
			out = append(out, rules.Pass())
		}
	}
	return append(out, rules.Punt())
}
