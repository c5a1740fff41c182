package rules

import (
	"github.com/brensch/gridiron/game"
)

// NextState returns the state after applying in, leaving the input untouched.
func NextState(state *game.DriveState, in Intent) (*game.DriveState, TickResult) {
	next := state.Clone()
	res := Apply(next, in)
	return next, res
}

// Apply advances the drive by one intent, mutating state in place.
// Intents that make no sense in the current phase are rejected and change nothing.
func Apply(state *game.DriveState, in Intent) TickResult {
	res := TickResult{Intent: in}

	if state.Phase == game.PhaseTerminal {
		if in.Kind == IntentContinue {
			restart(state, &res)
		}
		return finish(state, res)
	}

	switch in.Kind {
	case IntentSnap:
		if state.Phase == game.PhasePreSnap {
			snap(state, &res)
		}
	case IntentMove:
		if state.QuarterbackHasBall() {
			moveQuarterback(state, in.Dir, &res)
		}
	case IntentPass:
		if state.QuarterbackHasBall() {
			pass(state, &res)
		}
	case IntentPunt:
		if state.Phase == game.PhaseLive {
			punt(state, &res)
		}
	}
	return finish(state, res)
}

func finish(state *game.DriveState, res TickResult) TickResult {
	if res.Accepted {
		state.Tick++
	}
	res.Phase = state.Phase
	res.Reason = state.Reason
	return res
}

func snap(state *game.DriveState, res *TickResult) {
	qb := state.Quarterback()
	state.Carrier = qb.ID
	state.Phase = game.PhaseLive
	state.TackledThisDown = false
	state.FirstDownThisPlay = false
	state.Plays++
	res.Accepted = true
	res.emit(EventSnap, qb.ID, qb.Pos)
}

func moveQuarterback(state *game.DriveState, dir Direction, res *TickResult) {
	qb := state.Quarterback()
	to := state.Settings.Clamp(qb.Pos.Add(dir.Step()))
	if state.Settings.BlockQBIntoBlocker && to != qb.Pos && state.OccupiedBy(game.RoleBlocker, to) {
		res.emit(EventMoveBlocked, qb.ID, to)
		return
	}

	res.Accepted = true
	qb.Pos = to
	state.Clock--
	res.emit(EventMove, qb.ID, to)

	for _, id := range AdvanceReceivers(state) {
		res.emit(EventReceiverStep, id, state.Actor(id).Pos)
	}

	state.QBMoves++
	if state.QBMoves >= state.Settings.BlockerEvery {
		state.QBMoves = 0
		for _, id := range AdvanceBlockers(state) {
			res.emit(EventBlockerStep, id, state.Actor(id).Pos)
		}
	}

	state.DefenderTicks++
	if state.DefenderTicks >= state.Settings.DefenderDelay {
		state.DefenderTicks = 0
		for _, id := range MoveDefenders(state) {
			res.emit(EventDefenderStep, id, state.Actor(id).Pos)
		}
	}

	evaluate(state, res)
}

func pass(state *game.DriveState, res *TickResult) {
	res.Accepted = true
	state.Clock--
	if state.Clock <= 0 {
		endDrive(state, game.ReasonTimeExpired, state.Settings.KickoffColumn)
		res.emit(EventTimeExpired, game.NoActor, game.Point{})
		return
	}

	qb := state.Quarterback()
	out := ResolvePass(state)
	switch {
	case !out.HasTarget():
		res.emit(EventNoTarget, qb.ID, qb.Pos)
		return
	case out.Intercepted():
		d := state.Actor(out.Interceptor)
		state.Carrier = d.ID
		endDrive(state, game.ReasonInterception, state.Settings.KickoffColumn)
		res.emit(EventInterception, d.ID, d.Pos)
		return
	}

	r := state.Actor(out.Target)
	qb.Pos = r.Pos
	res.emit(EventCompletion, r.ID, r.Pos)
	evaluate(state, res)
}

func punt(state *game.DriveState, res *TickResult) {
	res.Accepted = true
	s := &state.Settings
	spot := state.LineOfScrimmage + s.SnapOffset + s.PuntDistance
	if spot > s.Cols-2 {
		spot = s.Cols - 2
	}
	endDrive(state, game.ReasonPunt, spot)
	res.emit(EventPunt, game.NoActor, game.Point{X: spot})
}

// evaluate checks the end-of-tick conditions in order: touchdown, first-down latch,
// tackle, then the clock.
func evaluate(state *game.DriveState, res *TickResult) {
	c := state.CarrierActor()
	if c == nil {
		return
	}

	if c.Pos.X >= state.Settings.GoalColumn() {
		state.Score[state.Possession] += state.Settings.TouchdownPoints
		endDrive(state, game.ReasonTouchdown, state.Settings.KickoffColumn)
		res.emit(EventTouchdown, c.ID, c.Pos)
		return
	}

	if !state.FirstDownThisPlay && c.Pos.X >= state.FirstDownMarker {
		state.FirstDownThisPlay = true
		res.emit(EventFirstDown, c.ID, c.Pos)
	}

	if !state.TackledThisDown {
		if tackler := defenderAt(state, c.Pos); tackler != game.NoActor {
			tackle(state, tackler, c.Pos, res)
			if state.Phase == game.PhaseTerminal {
				return
			}
		}
	}

	if state.Clock <= 0 {
		endDrive(state, game.ReasonTimeExpired, state.Settings.KickoffColumn)
		res.emit(EventTimeExpired, game.NoActor, game.Point{})
	}
}

// defenderAt returns the lowest-id defender on p. Only one tackle is ever credited.
func defenderAt(state *game.DriveState, p game.Point) game.ActorID {
	for i := range state.Actors {
		a := &state.Actors[i]
		if a.Role == game.RoleDefender && a.Pos == p {
			return a.ID
		}
	}
	return game.NoActor
}

func tackle(state *game.DriveState, tackler game.ActorID, spot game.Point, res *TickResult) {
	state.TackledThisDown = true
	res.emit(EventTackle, tackler, spot)

	switch {
	case state.FirstDownThisPlay:
		newSeries(state, spot.X)
		res.emit(EventNewSeries, game.NoActor, game.Point{X: spot.X})
	case state.Down < 4:
		state.Down++
		state.LineOfScrimmage = spot.X
		state.YardsToGo = (state.FirstDownMarker - spot.X) * state.Settings.YardsPerCell
		state.Reform()
		res.emit(EventNextDown, game.NoActor, game.Point{X: spot.X})
	default:
		endDrive(state, game.ReasonTurnoverOnDowns, state.Settings.KickoffColumn)
		res.emit(EventTurnoverOnDowns, tackler, spot)
	}
}

func newSeries(state *game.DriveState, los int32) {
	state.Down = 1
	state.LineOfScrimmage = los
	state.SeriesStart = los
	state.FirstDownMarker = state.Settings.MarkerFrom(los)
	state.YardsToGo = state.Settings.FirstDownYards
	state.TackledThisDown = false
	state.FirstDownThisPlay = false
	state.Reform()
}

func endDrive(state *game.DriveState, reason game.Reason, nextLOS int32) {
	state.Phase = game.PhaseTerminal
	state.Reason = reason
	state.NextDriveLOS = nextLOS
}

// restart hands the ball to the other side at the recorded spot with a fresh clock.
func restart(state *game.DriveState, res *TickResult) {
	res.Accepted = true
	state.Possession = state.Possession.Other()
	state.Reason = game.ReasonNone
	state.Clock = state.Settings.ClockSeconds
	state.DriveNumber++
	state.Plays = 0
	newSeries(state, state.NextDriveLOS)
	state.NextDriveLOS = state.Settings.KickoffColumn
	res.emit(EventRestart, game.NoActor, game.Point{X: state.LineOfScrimmage})
}
