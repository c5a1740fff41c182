package rules

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/gridiron/game"
)

func dumpState(state *game.DriveState) string {
	if state == nil {
		return "<nil state>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tick=%d Phase=%s Down=%d ToGo=%d LOS=%d Marker=%d Clock=%d Poss=%s Score=%v Reason=%q\n",
		state.Tick, state.Phase, state.Down, state.YardsToGo, state.LineOfScrimmage, state.FirstDownMarker,
		state.Clock, state.Possession, state.Score, state.Reason)

	cols, rows := int(state.Settings.Cols), int(state.Settings.Rows)
	occ := make(map[[2]int]byte, len(state.Actors))
	for _, a := range state.Actors {
		k := [2]int{int(a.Pos.X), int(a.Pos.Y)}
		var g byte
		switch a.Role {
		case game.RoleQuarterback:
			g = 'Q'
		case game.RoleBlocker:
			g = 'B'
		case game.RoleReceiver:
			g = 'R'
		default:
			g = 'X'
		}
		if _, ok := occ[k]; ok {
			g = '2'
		}
		occ[k] = g
	}
	if c := state.CarrierActor(); c != nil {
		fmt.Fprintf(&b, "Carrier=%d (%s) at (%d,%d)\n", c.ID, c.Role, c.Pos.X, c.Pos.Y)
	}

	b.WriteString("Board:\n")
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if g, ok := occ[[2]int{x, y}]; ok {
				b.WriteByte(g)
				continue
			}
			switch {
			case x == int(state.FirstDownMarker):
				b.WriteByte('|')
			case x == cols-1:
				b.WriteByte(':')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func logApply(t *testing.T, name string, before *game.DriveState, in Intent, after *game.DriveState, res TickResult) {
	t.Helper()
	kinds := make([]string, 0, len(res.Events))
	for _, e := range res.Events {
		kinds = append(kinds, string(e.Kind))
	}
	t.Logf("=== %s ===\nBefore:\n%sIntent: %s accepted=%v events=%v\nAfter:\n%s",
		name, dumpState(before), in, res.Accepted, kinds, dumpState(after))
}

// quietSettings keeps defenders and blockers still so a test controls every position.
func quietSettings() game.Settings {
	s := game.DefaultSettings
	s.DefenderDelay = 1000
	s.BlockerEvery = 1000
	return s
}

func liveDrive(t *testing.T, settings game.Settings, los int32) *game.DriveState {
	t.Helper()
	state := game.NewDrive(settings, los, game.Home)
	if res := Apply(state, Snap()); !res.Accepted {
		t.Fatalf("snap rejected:\n%s", dumpState(state))
	}
	return state
}

func place(state *game.DriveState, id game.ActorID, x, y int32) {
	state.Actor(id).Pos = game.Point{X: x, Y: y}
}

// parkDefenders moves every defender onto the top row out of the way.
func parkDefenders(state *game.DriveState, fromX int32) {
	x := fromX
	for _, id := range state.ByRole(game.RoleDefender) {
		place(state, id, x, 0)
		x++
	}
}

func apply(t *testing.T, name string, state *game.DriveState, in Intent) TickResult {
	t.Helper()
	before := state.Clone()
	res := Apply(state, in)
	logApply(t, name, before, in, state, res)
	return res
}

func countEvents(res TickResult, kind EventKind) int {
	n := 0
	for _, e := range res.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestSnap_HandsBallToQuarterback(t *testing.T) {
	state := game.NewGame(game.DefaultSettings)
	if c := state.CarrierActor(); c.Role != game.RoleBlocker {
		t.Fatalf("pre-snap carrier=%s want blocker", c.Role)
	}

	res := apply(t, "snap", state, Snap())
	if !res.Accepted || state.Phase != game.PhaseLive {
		t.Fatalf("snap not applied: %+v", res)
	}
	if c := state.CarrierActor(); c.Role != game.RoleQuarterback {
		t.Fatalf("carrier=%s want quarterback", c.Role)
	}
	if state.Plays != 1 {
		t.Fatalf("plays=%d want 1", state.Plays)
	}

	if res := Apply(state, Snap()); res.Accepted {
		t.Fatalf("second snap during a live play should be rejected")
	}
}

func TestIntents_IgnoredOutOfPhase(t *testing.T) {
	state := game.NewGame(game.DefaultSettings)

	for _, in := range []Intent{Move(MoveRight), Pass(), Punt(), ContinueDrive()} {
		before := state.Clone()
		if res := Apply(state, in); res.Accepted {
			t.Fatalf("%s accepted pre-snap", in)
		}
		if state.Tick != before.Tick || state.Clock != before.Clock || state.Phase != game.PhasePreSnap {
			t.Fatalf("%s mutated state pre-snap", in)
		}
	}

	state.Phase = game.PhaseTerminal
	state.Reason = game.ReasonPunt
	for _, in := range []Intent{Snap(), Move(MoveUp), Pass(), Punt()} {
		if res := Apply(state, in); res.Accepted {
			t.Fatalf("%s accepted after the drive ended", in)
		}
	}
	if res := Apply(state, ContinueDrive()); !res.Accepted {
		t.Fatalf("continue rejected after the drive ended")
	}
}

func TestNextState_LeavesInputUntouched(t *testing.T) {
	state := liveDrive(t, quietSettings(), 1)
	before := state.Clone()

	next, res := NextState(state, Move(MoveDown))
	if !res.Accepted {
		t.Fatalf("move rejected")
	}
	if state.Quarterback().Pos != before.Quarterback().Pos || state.Clock != before.Clock {
		t.Fatalf("input state was mutated")
	}
	if next.Quarterback().Pos != (game.Point{X: 1, Y: 5}) {
		t.Fatalf("qb=%v want (1,5)", next.Quarterback().Pos)
	}
}

func TestMove_BlockedByBlocker(t *testing.T) {
	state := liveDrive(t, quietSettings(), 1)
	clock := state.Clock

	res := apply(t, "qb into center", state, Move(MoveRight))
	if res.Accepted {
		t.Fatalf("move into a blocker should be rejected")
	}
	if !res.Has(EventMoveBlocked) {
		t.Fatalf("expected move_blocked event")
	}
	if state.Quarterback().Pos != (game.Point{X: 1, Y: 4}) || state.Clock != clock {
		t.Fatalf("blocked move changed state")
	}

	settings := quietSettings()
	settings.BlockQBIntoBlocker = false
	state = liveDrive(t, settings, 1)
	res = apply(t, "qb into center (allowed)", state, Move(MoveRight))
	if !res.Accepted || state.Quarterback().Pos != (game.Point{X: 2, Y: 4}) {
		t.Fatalf("move should pass through when blocking is disabled")
	}
}

func TestTouchdown_ScoresForPossession(t *testing.T) {
	state := liveDrive(t, quietSettings(), 17)
	parkDefenders(state, 2)
	place(state, 0, 18, 8)

	res := apply(t, "touchdown", state, Move(MoveRight))
	if !res.Has(EventTouchdown) {
		t.Fatalf("expected touchdown event")
	}
	if state.Phase != game.PhaseTerminal || state.Reason != game.ReasonTouchdown {
		t.Fatalf("phase=%s reason=%q", state.Phase, state.Reason)
	}
	if state.Score[game.Home] != 6 || state.Score[game.Away] != 0 {
		t.Fatalf("score=%v want [6 0]", state.Score)
	}
	if state.NextDriveLOS != state.Settings.KickoffColumn {
		t.Fatalf("next drive los=%d want kickoff", state.NextDriveLOS)
	}

	res = apply(t, "continue after touchdown", state, ContinueDrive())
	if !res.Accepted || state.Phase != game.PhasePreSnap {
		t.Fatalf("restart failed: %+v", res)
	}
	if state.Possession != game.Away || state.LineOfScrimmage != 1 || state.Down != 1 {
		t.Fatalf("restart: poss=%s los=%d down=%d", state.Possession, state.LineOfScrimmage, state.Down)
	}
	if state.Clock != state.Settings.ClockSeconds || state.Reason != game.ReasonNone {
		t.Fatalf("restart: clock=%d reason=%q", state.Clock, state.Reason)
	}
	if state.Score[game.Home] != 6 {
		t.Fatalf("score lost on restart: %v", state.Score)
	}
}

func TestTackle_FourthDownTurnover(t *testing.T) {
	state := liveDrive(t, quietSettings(), 1)
	state.Down = 4
	parkDefenders(state, 10)
	tackler := state.ByRole(game.RoleDefender)[0]
	place(state, tackler, 1, 5)

	res := apply(t, "fourth down stop", state, Move(MoveDown))
	if countEvents(res, EventTackle) != 1 || !res.Has(EventTurnoverOnDowns) {
		t.Fatalf("expected tackle + turnover, got %+v", res.Events)
	}
	if state.Phase != game.PhaseTerminal || state.Reason != game.ReasonTurnoverOnDowns {
		t.Fatalf("phase=%s reason=%q", state.Phase, state.Reason)
	}
}

func TestTackle_AdvancesDownWithoutFirstDown(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	marker := state.FirstDownMarker
	parkDefenders(state, 10)
	place(state, 0, 5, 8)
	place(state, state.ByRole(game.RoleDefender)[0], 6, 8)

	res := apply(t, "short gain", state, Move(MoveRight))
	if !res.Has(EventNextDown) {
		t.Fatalf("expected next_down, got %+v", res.Events)
	}
	if state.Down != 2 || state.LineOfScrimmage != 6 || state.FirstDownMarker != marker {
		t.Fatalf("down=%d los=%d marker=%d", state.Down, state.LineOfScrimmage, state.FirstDownMarker)
	}
	if state.YardsToGo != 5 {
		t.Fatalf("yards to go=%d want 5", state.YardsToGo)
	}
	if state.Phase != game.PhasePreSnap {
		t.Fatalf("phase=%s want pre_snap after the whistle", state.Phase)
	}
	if qb := state.Quarterback(); qb.Pos != (game.Point{X: 6, Y: 4}) {
		t.Fatalf("formation not rebuilt at the spot: qb=%v", qb.Pos)
	}
}

func TestTackle_AfterFirstDownStartsNewSeries(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	state.Down = 2
	parkDefenders(state, 10)
	place(state, 0, 6, 8)
	place(state, state.ByRole(game.RoleDefender)[0], 7, 8)

	res := apply(t, "first down then tackle", state, Move(MoveRight))
	if !res.Has(EventFirstDown) || !res.Has(EventNewSeries) {
		t.Fatalf("expected first_down + new_series, got %+v", res.Events)
	}
	if state.Down != 1 || state.LineOfScrimmage != 7 || state.YardsToGo != 10 {
		t.Fatalf("down=%d los=%d togo=%d", state.Down, state.LineOfScrimmage, state.YardsToGo)
	}
	if state.FirstDownMarker != 9 {
		t.Fatalf("marker=%d want 9", state.FirstDownMarker)
	}
	if state.FirstDownThisPlay || state.TackledThisDown {
		t.Fatalf("flags should clear on a new series")
	}
}

func TestFirstDown_LatchKeepsPlayAlive(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 12)
	place(state, 0, 6, 8)

	res := apply(t, "cross the marker", state, Move(MoveRight))
	if !res.Has(EventFirstDown) || !state.FirstDownThisPlay {
		t.Fatalf("latch not set")
	}
	if state.Phase != game.PhaseLive || state.Down != 1 {
		t.Fatalf("crossing the marker must not end the down")
	}

	res = apply(t, "keep running", state, Move(MoveRight))
	if res.Has(EventFirstDown) {
		t.Fatalf("latch should only fire once per play")
	}
}

func TestTackle_OnlyOncePerDown(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 10)
	ids := state.ByRole(game.RoleDefender)
	place(state, 0, 5, 8)
	place(state, ids[0], 6, 8)
	place(state, ids[1], 6, 8)
	place(state, ids[2], 6, 8)

	res := apply(t, "gang tackle", state, Move(MoveRight))
	if n := countEvents(res, EventTackle); n != 1 {
		t.Fatalf("tackles=%d want 1", n)
	}
	if state.Down != 2 {
		t.Fatalf("down=%d want 2", state.Down)
	}
	if res.Events[len(res.Events)-1].Kind != EventNextDown {
		t.Fatalf("down should advance exactly once: %+v", res.Events)
	}

	// A carrier already whistled down this play cannot be tackled again.
	state = liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 10)
	place(state, 0, 5, 8)
	place(state, state.ByRole(game.RoleDefender)[0], 6, 8)
	state.TackledThisDown = true
	res = apply(t, "flag already set", state, Move(MoveRight))
	if res.Has(EventTackle) || state.Down != 1 {
		t.Fatalf("tackle processed twice in one down")
	}
}

func TestClock_ExpiresOnMove(t *testing.T) {
	state := liveDrive(t, quietSettings(), 1)
	parkDefenders(state, 10)
	state.Clock = 1

	res := apply(t, "last second", state, Move(MoveDown))
	if !res.Has(EventTimeExpired) {
		t.Fatalf("expected time_expired")
	}
	if state.Clock != 0 || state.Phase != game.PhaseTerminal || state.Reason != game.ReasonTimeExpired {
		t.Fatalf("clock=%d phase=%s reason=%q", state.Clock, state.Phase, state.Reason)
	}
}

func TestPunt_PlacesNextDriveAndFlipsPossession(t *testing.T) {
	cases := []struct {
		los  int32
		want int32
	}{
		{los: 5, want: 14},
		{los: 12, want: 18},
	}
	for _, tc := range cases {
		state := liveDrive(t, quietSettings(), tc.los)
		res := apply(t, fmt.Sprintf("punt from %d", tc.los), state, Punt())
		if !res.Accepted || state.Reason != game.ReasonPunt || state.Phase != game.PhaseTerminal {
			t.Fatalf("los=%d punt not terminal: %+v", tc.los, res)
		}
		if state.NextDriveLOS != tc.want {
			t.Fatalf("los=%d next=%d want %d", tc.los, state.NextDriveLOS, tc.want)
		}
		Apply(state, ContinueDrive())
		if state.Possession != game.Away || state.LineOfScrimmage != tc.want {
			t.Fatalf("after restart poss=%s los=%d", state.Possession, state.LineOfScrimmage)
		}
		if state.FirstDownMarker != state.Settings.MarkerFrom(tc.want) {
			t.Fatalf("marker not recomputed: %d", state.FirstDownMarker)
		}
	}
}

func TestPunt_TinyFieldStaysOnGrid(t *testing.T) {
	settings := quietSettings()
	settings.Cols = 1
	state := liveDrive(t, settings, 0)
	apply(t, "punt on a one-column field", state, Punt())
	if state.NextDriveLOS < 0 || state.NextDriveLOS >= state.Settings.GoalColumn() {
		t.Fatalf("next los=%d outside the field of play (cols=%d)", state.NextDriveLOS, state.Settings.Cols)
	}
	Apply(state, ContinueDrive())
	if state.LineOfScrimmage < 0 {
		t.Fatalf("restart los=%d", state.LineOfScrimmage)
	}
	for _, a := range state.Actors {
		if !state.Settings.InBounds(a.Pos) {
			t.Fatalf("actor %d off the grid at %v\n%s", a.ID, a.Pos, dumpState(state))
		}
	}
}

func TestPass_CompletionRelocatesQuarterback(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 12)
	r := state.ByRole(game.RoleReceiver)[0]
	place(state, r, 7, 4)
	clock := state.Clock

	res := apply(t, "completion", state, Pass())
	if !res.Has(EventCompletion) {
		t.Fatalf("expected completion: %+v", res.Events)
	}
	if qb := state.Quarterback(); qb.Pos != (game.Point{X: 7, Y: 4}) || state.Carrier != qb.ID {
		t.Fatalf("qb=%v carrier=%d", qb.Pos, state.Carrier)
	}
	if state.Clock != clock-1 {
		t.Fatalf("pass should consume one tick: %d -> %d", clock, state.Clock)
	}
	if !state.FirstDownThisPlay {
		t.Fatalf("reception at the marker should latch the first down")
	}
	if state.Actor(r).Cursor != 0 {
		t.Fatalf("pass must not advance routes")
	}
}

func TestPass_NoTargetConsumesClock(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	clock := state.Clock

	res := apply(t, "nobody open", state, Pass())
	if !res.Accepted || !res.Has(EventNoTarget) {
		t.Fatalf("expected accepted no_target: %+v", res)
	}
	if state.Clock != clock-1 || state.Phase != game.PhaseLive {
		t.Fatalf("clock=%d phase=%s", state.Clock, state.Phase)
	}
}

func TestPass_Interception(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 12)
	place(state, state.ByRole(game.RoleReceiver)[0], 8, 4)
	d := state.ByRole(game.RoleDefender)[0]
	place(state, d, 6, 4)

	res := apply(t, "picked", state, Pass())
	if !res.Has(EventInterception) {
		t.Fatalf("expected interception: %+v", res.Events)
	}
	if state.Carrier != d || state.Reason != game.ReasonInterception || state.Phase != game.PhaseTerminal {
		t.Fatalf("carrier=%d reason=%q phase=%s", state.Carrier, state.Reason, state.Phase)
	}

	Apply(state, ContinueDrive())
	if state.Possession != game.Away || state.LineOfScrimmage != state.Settings.KickoffColumn {
		t.Fatalf("restart after interception: poss=%s los=%d", state.Possession, state.LineOfScrimmage)
	}
}

func TestPass_ClockExpiryBeatsOutcome(t *testing.T) {
	state := liveDrive(t, quietSettings(), 5)
	parkDefenders(state, 12)
	place(state, state.ByRole(game.RoleReceiver)[0], 8, 4)
	place(state, state.ByRole(game.RoleDefender)[0], 6, 4)
	state.Clock = 1

	res := apply(t, "throw at the gun", state, Pass())
	if res.Has(EventInterception) || state.Reason != game.ReasonTimeExpired {
		t.Fatalf("reason=%q events=%+v", state.Reason, res.Events)
	}
	if state.CarrierActor().Role != game.RoleQuarterback {
		t.Fatalf("carrier changed despite expired clock")
	}
}

func TestApply_InvariantsUnderRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	intents := []Intent{Snap(), Move(MoveUp), Move(MoveDown), Move(MoveLeft), Move(MoveRight), Move(MoveRight), Move(MoveRight), Pass(), Punt()}

	state := game.NewGame(game.DefaultSettings)
	drives := 0
	for i := 0; i < 5000; i++ {
		in := intents[rng.Intn(len(intents))]
		if in.Kind == IntentPunt && rng.Intn(20) != 0 {
			in = Move(MoveRight)
		}
		if state.Phase == game.PhaseTerminal {
			in = ContinueDrive()
			drives++
		}
		Apply(state, in)

		for _, a := range state.Actors {
			if !state.Settings.InBounds(a.Pos) {
				t.Fatalf("step %d: actor %d out of bounds at %v\n%s", i, a.ID, a.Pos, dumpState(state))
			}
		}
		if state.CarrierActor() == nil {
			t.Fatalf("step %d: no ball carrier\n%s", i, dumpState(state))
		}
		if state.Down < 1 || state.Down > 4 || state.Clock < 0 {
			t.Fatalf("step %d: down=%d clock=%d", i, state.Down, state.Clock)
		}
	}
	if drives == 0 {
		t.Fatalf("random play never finished a drive")
	}
}
