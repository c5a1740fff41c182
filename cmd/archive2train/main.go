// Command archive2train turns archived tick parquet files into training
// examples: the encoded state before each accepted intent, labelled with that
// intent and the drive's outcome.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/drive"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/rules"
	"github.com/brensch/gridiron/store"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

func main() {
	inDir := flag.String("in-dir", "", "Archive root containing ticks/ parquet batches")
	outDir := flag.String("out-dir", "", "Output directory for training parquet files")
	settings := config.BindSettingsFlags(flag.CommandLine, game.DefaultSettings)
	flag.Parse()

	if *inDir == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "-in-dir and -out-dir are required")
		os.Exit(2)
	}
	absIn, _ := filepath.Abs(*inDir)
	absOut, _ := filepath.Abs(*outDir)
	if absIn == absOut {
		fmt.Fprintln(os.Stderr, "out-dir must be different from in-dir")
		os.Exit(2)
	}
	if err := os.MkdirAll(absOut, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create out-dir: %v\n", err)
		os.Exit(2)
	}

	inputs := findTickFiles(filepath.Join(absIn, store.TicksDir))
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "no parquet inputs found")
		os.Exit(1)
	}

	s := settings.Normalize()
	converted := 0
	for _, inPath := range inputs {
		base := filepath.Base(inPath)
		outPath := filepath.Join(absOut, strings.TrimSuffix(base, filepath.Ext(base))+".train.parquet")
		n, err := convertOne(s, inPath, outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "convert %s: %v\n", inPath, err)
			continue
		}
		if n > 0 {
			converted++
		}
	}
	if converted == 0 {
		fmt.Fprintln(os.Stderr, "no output written (no convertible rows)")
		os.Exit(1)
	}
}

func findTickFiles(root string) []string {
	var inputs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".parquet") {
			inputs = append(inputs, path)
		}
		return nil
	})
	return inputs
}

// convertOne streams tick rows from inPath and writes training rows to outPath.
// Rows of one game must be contiguous and in play order, as the archive writes them.
func convertOne(settings game.Settings, inPath, outPath string) (int, error) {
	inF, err := os.Open(inPath)
	if err != nil {
		return 0, err
	}
	defer inF.Close()

	reader := parquet.NewGenericReader[store.TickRow](inF)
	defer reader.Close()

	var ticks []store.TickRow
	buf := make([]store.TickRow, 256)
	for {
		n, err := reader.Read(buf)
		ticks = append(ticks, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read ticks: %w", err)
		}
	}

	rows, err := trainingRows(settings, ticks)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	outTmp := outPath + ".tmp"
	_ = os.Remove(outTmp)
	outF, err := os.OpenFile(outTmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	writer := parquet.NewGenericWriter[store.TrainingRow](
		outF,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	writer.SetKeyValueMetadata("schema", store.TrainingSchema)

	if _, err := writer.Write(rows); err != nil {
		_ = outF.Close()
		_ = os.Remove(outTmp)
		return 0, fmt.Errorf("write training rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = outF.Close()
		_ = os.Remove(outTmp)
		return 0, fmt.Errorf("close writer: %w", err)
	}
	if err := outF.Close(); err != nil {
		_ = os.Remove(outTmp)
		return 0, err
	}
	if err := os.Rename(outTmp, outPath); err != nil {
		_ = os.Remove(outTmp)
		return 0, err
	}
	return len(rows), nil
}

// trainingRows pairs every accepted intent with the state it was chosen in.
// The state before a game's first tick is the opening kickoff drive.
func trainingRows(settings game.Settings, ticks []store.TickRow) ([]store.TrainingRow, error) {
	outcomes := driveOutcomes(ticks)
	out := make([]store.TrainingRow, 0, len(ticks))

	var (
		prev     *game.DriveState
		prevGame string
	)
	for _, row := range ticks {
		if row.GameID != prevGame || prev == nil {
			prev = game.NewGame(settings)
			prevGame = row.GameID
		}
		if !row.Accepted {
			continue
		}
		in, err := rules.ParseIntent(row.Intent)
		if err != nil {
			return nil, fmt.Errorf("game %s tick %d: %w", row.GameID, row.Tick, err)
		}

		// Restarts are not decisions worth learning.
		if in.Kind != rules.IntentContinue {
			out = append(out, store.TrainingRow{
				GameID: row.GameID,
				Drive:  row.Drive,
				Tick:   row.Tick,
				X:      encodeBytes(prev),
				Policy: int32(policy.ActionIndex(in)),
				Value:  outcomes[driveKey{row.GameID, row.Drive}],
				XC:     policy.Channels,
				XH:     settings.Rows,
				XW:     settings.Cols,
				Source: row.Source,
			})
		}

		next, err := drive.StateFromTick(settings, row)
		if err != nil {
			return nil, err
		}
		prev = next
	}
	return out, nil
}

type driveKey struct {
	game  string
	drive int32
}

func driveOutcomes(ticks []store.TickRow) map[driveKey]float32 {
	out := make(map[driveKey]float32)
	for _, row := range ticks {
		if row.Phase != game.PhaseTerminal.String() {
			continue
		}
		var v float32
		switch game.Reason(row.Reason) {
		case game.ReasonTouchdown:
			v = 1
		case game.ReasonInterception, game.ReasonTurnoverOnDowns:
			v = -1
		}
		out[driveKey{row.GameID, row.Drive}] = v
	}
	return out
}

func encodeBytes(st *game.DriveState) []byte {
	ptr := policy.EncodeState(st)
	defer policy.PutBuffer(ptr)
	x := make([]byte, 4*len(*ptr))
	for i, f := range *ptr {
		binary.LittleEndian.PutUint32(x[i*4:], math.Float32bits(f))
	}
	return x
}
