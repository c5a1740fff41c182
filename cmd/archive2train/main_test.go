package main

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/rules"
	"github.com/brensch/gridiron/selfplay"
	"github.com/brensch/gridiron/store"
	"github.com/parquet-go/parquet-go"
)

func TestTrainingRows_FirstExampleIsKickoff(t *testing.T) {
	res, err := selfplay.PlayGame(context.Background(), "t1", selfplay.Config{Settings: game.DefaultSettings, Drives: 2}, policy.Scripted{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	rows, err := trainingRows(game.DefaultSettings, res.Ticks)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// Two drives, one continue in between.
	if len(rows) != len(res.Ticks)-1 {
		t.Fatalf("rows=%d ticks=%d", len(rows), len(res.Ticks))
	}

	first := rows[0]
	if first.Policy != int32(policy.ActionIndex(rules.Snap())) {
		t.Fatalf("first label=%d", first.Policy)
	}
	want := policy.EncodeState(game.NewGame(game.DefaultSettings))
	defer policy.PutBuffer(want)
	if len(first.X) != 4*len(*want) {
		t.Fatalf("x bytes=%d", len(first.X))
	}
	for i, f := range *want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(first.X[i*4:])); got != f {
			t.Fatalf("x[%d]=%v want %v", i, got, f)
		}
	}

	for _, d := range res.Drives {
		var want float32
		switch game.Reason(d.Reason) {
		case game.ReasonTouchdown:
			want = 1
		case game.ReasonInterception, game.ReasonTurnoverOnDowns:
			want = -1
		}
		for _, r := range rows {
			if r.Drive == d.Drive && r.Value != want {
				t.Fatalf("drive %d (%s) value=%v want %v", d.Drive, d.Reason, r.Value, want)
			}
		}
	}
}

func TestConvertOne(t *testing.T) {
	dir := t.TempDir()
	res, err := selfplay.PlayGame(context.Background(), "t2", selfplay.Config{Settings: game.DefaultSettings, Drives: 1}, policy.NewRandom(5))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	tickPath, _, err := store.WriteBatchAtomic(dir, res.Ticks, res.Drives)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	inputs := findTickFiles(filepath.Join(dir, store.TicksDir))
	if len(inputs) != 1 || inputs[0] != tickPath {
		t.Fatalf("inputs=%v", inputs)
	}

	outPath := filepath.Join(dir, "out", "batch.train.parquet")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		t.Fatal(err)
	}
	n, err := convertOne(game.DefaultSettings, tickPath, outPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	got, err := parquet.ReadFile[store.TrainingRow](outPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if n == 0 || len(got) != n {
		t.Fatalf("n=%d read=%d", n, len(got))
	}
	if got[0].XC != policy.Channels || got[0].XH != 9 || got[0].XW != 20 {
		t.Fatalf("shape: %d %d %d", got[0].XC, got[0].XH, got[0].XW)
	}
}
