package policy

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
)

func liveDrive(t *testing.T, settings game.Settings, los int32) *game.DriveState {
	t.Helper()
	st := game.NewDrive(settings, los, game.Home)
	if res := rules.Apply(st, rules.Snap()); !res.Accepted {
		t.Fatalf("snap rejected")
	}
	return st
}

// clearField moves everyone except the quarterback to the sidelines far downfield.
func clearField(st *game.DriveState) {
	for i := range st.Actors {
		a := &st.Actors[i]
		switch a.Role {
		case game.RoleBlocker, game.RoleReceiver:
			a.Pos = game.Point{X: int32(i), Y: st.Settings.Rows - 1}
		case game.RoleDefender:
			a.Pos = game.Point{X: st.Settings.Cols - 2 - int32(i%3), Y: 0}
		}
	}
}

func sameIntents(a, b []rules.Intent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLegalIntents(t *testing.T) {
	pre := game.NewDrive(game.DefaultSettings, 5, game.Home)
	if got := LegalIntents(pre); !sameIntents(got, []rules.Intent{rules.Snap()}) {
		t.Fatalf("pre-snap: %v", got)
	}

	live := liveDrive(t, game.DefaultSettings, 5)
	want := []rules.Intent{rules.Move(rules.MoveUp), rules.Move(rules.MoveDown), rules.Move(rules.MoveLeft), rules.Punt()}
	if got := LegalIntents(live); !sameIntents(got, want) {
		t.Fatalf("live: %v want %v", got, want)
	}

	loose := game.DefaultSettings
	loose.BlockQBIntoBlocker = false
	live = liveDrive(t, loose, 5)
	if got := LegalIntents(live); len(got) != 5 {
		t.Fatalf("without blocking rule: %v", got)
	}

	live = liveDrive(t, game.DefaultSettings, 5)
	r := live.Actor(live.ByRole(game.RoleReceiver)[0])
	r.Pos = game.Point{X: 7, Y: 4}
	got := LegalIntents(live)
	if got[len(got)-2] != rules.Pass() {
		t.Fatalf("expected pass before punt: %v", got)
	}

	live.Phase = game.PhaseTerminal
	if got := LegalIntents(live); !sameIntents(got, []rules.Intent{rules.ContinueDrive()}) {
		t.Fatalf("terminal: %v", got)
	}
}

func TestLegalIntents_AreAccepted(t *testing.T) {
	p := NewRandom(11)
	st := game.NewGame(game.DefaultSettings)
	for i := 0; i < 3000; i++ {
		in, err := p.Choose(st)
		if err != nil {
			t.Fatalf("choose: %v", err)
		}
		if res := rules.Apply(st, in); !res.Accepted {
			t.Fatalf("step %d: legal intent %s rejected in phase %s", i, in, st.Phase)
		}
	}
}

func TestRandom_Deterministic(t *testing.T) {
	play := func() []rules.Intent {
		p := NewRandom(3)
		st := game.NewGame(game.DefaultSettings)
		var out []rules.Intent
		for i := 0; i < 200; i++ {
			in, _ := p.Choose(st)
			out = append(out, in)
			rules.Apply(st, in)
		}
		return out
	}
	if a, b := play(), play(); !sameIntents(a, b) {
		t.Fatalf("same seed produced different intents")
	}
}

func TestScripted_FourthDown(t *testing.T) {
	var p Scripted

	st := game.NewDrive(game.DefaultSettings, 5, game.Home)
	if in, _ := p.Choose(st); in != rules.Snap() {
		t.Fatalf("first down: %s", in)
	}

	st.Down = 4
	if in, _ := p.Choose(st); in != rules.Snap() {
		t.Fatalf("4th and 10 pre-snap should still snap: %s", in)
	}

	live := liveDrive(t, game.DefaultSettings, 5)
	live.Down = 4
	if in, _ := p.Choose(live); in != rules.Punt() {
		t.Fatalf("4th and 10 after the snap: %s", in)
	}

	live.YardsToGo = 5
	if in, _ := p.Choose(live); in == rules.Punt() {
		t.Fatalf("4th and 5 should go for it")
	}

	gl := liveDrive(t, game.DefaultSettings, 17)
	gl.Down = 4
	if in, _ := p.Choose(gl); in == rules.Punt() {
		t.Fatalf("4th down at the goal line should go for it")
	}

	gl.Phase = game.PhaseTerminal
	if in, _ := p.Choose(gl); in != rules.ContinueDrive() {
		t.Fatalf("terminal: %s", in)
	}
}

func TestScripted_Live(t *testing.T) {
	var p Scripted

	st := liveDrive(t, game.DefaultSettings, 5)
	clearField(st)
	r := st.Actor(st.ByRole(game.RoleReceiver)[0])
	r.Pos = game.Point{X: 7, Y: 4}
	if in, _ := p.Choose(st); in != rules.Pass() {
		t.Fatalf("open receiver ahead: %s", in)
	}

	r.Pos = game.Point{X: 4, Y: 4}
	if in, _ := p.Choose(st); in != rules.Move(rules.MoveRight) {
		t.Fatalf("receiver behind, open field: %s", in)
	}

	d := st.Actor(st.ByRole(game.RoleDefender)[0])
	d.Pos = game.Point{X: 6, Y: 4}
	if in, _ := p.Choose(st); in != rules.Move(rules.MoveUp) {
		t.Fatalf("defender ahead: %s", in)
	}
}

func TestScripted_FinishesDrives(t *testing.T) {
	var p Scripted
	st := game.NewGame(game.DefaultSettings)
	drives := 0
	for i := 0; i < 5000 && drives < 4; i++ {
		in, err := p.Choose(st)
		if err != nil {
			t.Fatalf("choose: %v", err)
		}
		if in.Kind == rules.IntentContinue {
			t.Logf("drive %d ended: %s score=%v", st.DriveNumber, st.Reason, st.Score)
			drives++
		}
		rules.Apply(st, in)
	}
	if drives < 4 {
		t.Fatalf("only %d drives finished", drives)
	}
}

func TestEncodeState(t *testing.T) {
	st := game.NewGame(game.DefaultSettings)
	buf := EncodeState(st)
	data := *buf

	rows, cols := int(st.Settings.Rows), int(st.Settings.Cols)
	if len(data) != Channels*rows*cols {
		t.Fatalf("len=%d", len(data))
	}
	at := func(c, x, y int) float32 { return data[c*rows*cols+y*cols+x] }

	mid := int(st.Settings.MidRow())
	if at(0, 2, mid) != 1 {
		t.Fatalf("carrier plane should mark the center blocker")
	}
	if at(1, 1, mid) != 1 || at(1, 2, mid) != 0 {
		t.Fatalf("quarterback plane")
	}
	if at(4, 4, mid) != 1 {
		t.Fatalf("defender plane")
	}
	for y := 0; y < rows; y++ {
		if at(5, int(st.FirstDownMarker), y) != 1 {
			t.Fatalf("marker plane row %d", y)
		}
	}
	if at(6, 0, 0) != 0.25 || at(7, 5, 5) != 1 {
		t.Fatalf("scalar planes: down=%v clock=%v", at(6, 0, 0), at(7, 5, 5))
	}

	// A reused buffer must not carry old marks.
	PutBuffer(buf)
	st.Actors[0].Pos = game.Point{X: 9, Y: 0}
	buf = EncodeState(st)
	if (*buf)[1*rows*cols+mid*cols+1] != 0 {
		t.Fatalf("stale quarterback mark")
	}
	PutBuffer(buf)
}

func TestArgmaxLegal(t *testing.T) {
	scores := make([]float32, ActionSize)
	scores[ActionIndex(rules.Snap())] = 5
	scores[ActionIndex(rules.Pass())] = float32(math.NaN())
	scores[ActionIndex(rules.Move(rules.MoveRight))] = 2
	scores[ActionIndex(rules.Punt())] = 1

	legal := []rules.Intent{rules.Move(rules.MoveRight), rules.Pass(), rules.Punt()}
	got, err := argmaxLegal(scores, legal)
	if err != nil || got != rules.Move(rules.MoveRight) {
		t.Fatalf("got %s err=%v", got, err)
	}

	nan := float32(math.NaN())
	for i := range scores {
		scores[i] = nan
	}
	if _, err := argmaxLegal(scores, legal); !errors.Is(err, ErrModelOutput) {
		t.Fatalf("err=%v want ErrModelOutput", err)
	}
}

func TestNewOnnxPolicy_MissingModel(t *testing.T) {
	if _, err := NewOnnxPolicy(filepath.Join(t.TempDir(), "nope.onnx"), game.DefaultSettings); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestEpsilon(t *testing.T) {
	pre := game.NewDrive(game.DefaultSettings, 5, game.Home)
	never := NewEpsilon(Scripted{}, 0, 1)
	for i := 0; i < 50; i++ {
		if in, _ := never.Choose(pre); in != rules.Snap() {
			t.Fatalf("rate 0 should defer to base, got %s", in)
		}
	}

	live := liveDrive(t, game.DefaultSettings, 5)
	legal := LegalIntents(live)
	always := NewEpsilon(Scripted{}, 1, 1)
	seen := make(map[rules.Intent]bool)
	for i := 0; i < 200; i++ {
		in, _ := always.Choose(live)
		seen[in] = true
	}
	if len(seen) != len(legal) {
		t.Fatalf("rate 1 should sample every legal intent, saw %d of %d", len(seen), len(legal))
	}
}
