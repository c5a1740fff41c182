package selfplay

import (
	"context"
	"errors"
	"testing"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/rules"
)

func TestPlayGame_Completes(t *testing.T) {
	steps := 0
	cfg := Config{
		Settings: game.DefaultSettings,
		Drives:   3,
		Source:   "test",
		OnStep:   func() { steps++ },
	}
	res, err := PlayGame(context.Background(), "g1", cfg, policy.Scripted{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.Completed || len(res.Drives) != 3 {
		t.Fatalf("completed=%v drives=%d", res.Completed, len(res.Drives))
	}
	if steps != res.Steps || len(res.Ticks) != res.Steps {
		t.Fatalf("steps=%d ticks=%d callbacks=%d", res.Steps, len(res.Ticks), steps)
	}
	for i, d := range res.Drives {
		t.Logf("drive %d %s: %s plays=%d yards=%d", d.Drive, d.Possession, d.Reason, d.Plays, d.YardsGained)
		if d.Drive != int32(i+1) || d.GameID != "g1" || d.Source != "test" {
			t.Fatalf("drive row %d: %+v", i, d)
		}
	}
	if res.Drives[0].Possession == res.Drives[1].Possession {
		t.Fatalf("possession should alternate")
	}
	if last := res.Ticks[len(res.Ticks)-1]; last.Phase != game.PhaseTerminal.String() {
		t.Fatalf("last tick phase=%s", last.Phase)
	}
}

func TestPlayGame_SeededRandomIsReproducible(t *testing.T) {
	cfg := Config{Settings: game.DefaultSettings, Drives: 2}
	a, errA := PlayGame(context.Background(), "a", cfg, policy.NewRandom(42))
	b, errB := PlayGame(context.Background(), "b", cfg, policy.NewRandom(42))
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v %v", errA, errB)
	}
	if a.Steps != b.Steps || a.Score != b.Score {
		t.Fatalf("same seed diverged: steps %d/%d score %v/%v", a.Steps, b.Steps, a.Score, b.Score)
	}
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{Settings: game.DefaultSettings, Drives: 100}
	n := 0
	cfg.OnStep = func() {
		n++
		if n == 10 {
			cancel()
		}
	}
	res, err := PlayGame(ctx, "g2", cfg, policy.Scripted{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if res.Completed || len(res.Ticks) != 10 {
		t.Fatalf("partial result: completed=%v ticks=%d", res.Completed, len(res.Ticks))
	}
}

func TestPlayGame_TickLimit(t *testing.T) {
	cfg := Config{Settings: game.DefaultSettings, MaxTicks: 5}
	res, err := PlayGame(context.Background(), "g3", cfg, policy.Scripted{})
	if !errors.Is(err, ErrTickLimit) {
		t.Fatalf("err=%v", err)
	}
	if res.Steps != 5 {
		t.Fatalf("steps=%d", res.Steps)
	}
}

type failing struct{}

var errNoIdea = errors.New("no idea")

func (failing) Choose(*game.DriveState) (rules.Intent, error) { return rules.Intent{}, errNoIdea }

type stubborn struct{}

// Pass before the snap is always rejected.
func (stubborn) Choose(*game.DriveState) (rules.Intent, error) { return rules.Pass(), nil }

func TestPlayGame_PolicyErrors(t *testing.T) {
	cfg := Config{Settings: game.DefaultSettings}
	if _, err := PlayGame(context.Background(), "g4", cfg, failing{}); !errors.Is(err, errNoIdea) {
		t.Fatalf("err=%v", err)
	}
	res, err := PlayGame(context.Background(), "g5", cfg, stubborn{})
	if err == nil || res.Steps != 1 {
		t.Fatalf("rejected intent: steps=%d err=%v", res.Steps, err)
	}
}
