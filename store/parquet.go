package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	TickSchema  = "drive_tick_v1"
	DriveSchema = "drive_summary_v1"

	TicksDir  = "ticks"
	DrivesDir = "drives"
)

// TickRow is one accepted (or rejected) intent and the state it produced.
//
// Seq numbers every submission of a game from 1 and is unique per game_id.
// Tick is the drive state's tick counter, which rejected intents do not
// advance, so a rejected row repeats the tick of the row before it.
//
// Actor positions are flattened into parallel columns indexed by actor id:
// ActorRole[i], ActorX[i], ActorY[i]. Roles use the game.Role values
// (0=quarterback, 1=blocker, 2=receiver, 3=defender).
type TickRow struct {
	GameID string `parquet:"game_id,dict"`
	Drive  int32  `parquet:"drive"`
	Seq    int32  `parquet:"seq"`
	Tick   int32  `parquet:"tick"`

	Intent   string   `parquet:"intent,dict"`
	Accepted bool     `parquet:"accepted"`
	Events   []string `parquet:"events"`

	Phase      string `parquet:"phase,dict"`
	Reason     string `parquet:"reason,dict,optional"`
	Possession string `parquet:"possession,dict"`

	Down            int32 `parquet:"down"`
	YardsToGo       int32 `parquet:"yards_to_go"`
	LineOfScrimmage int32 `parquet:"los"`
	FirstDownMarker int32 `parquet:"marker"`
	Clock           int32 `parquet:"clock"`
	ScoreHome       int32 `parquet:"score_home"`
	ScoreAway       int32 `parquet:"score_away"`

	Carrier   int32   `parquet:"carrier"`
	ActorRole []int32 `parquet:"actor_role"`
	ActorX    []int32 `parquet:"actor_x"`
	ActorY    []int32 `parquet:"actor_y"`

	Source string `parquet:"source,dict"`
}

// DriveRow summarizes a finished drive.
type DriveRow struct {
	GameID      string `parquet:"game_id,dict"`
	Drive       int32  `parquet:"drive"`
	Possession  string `parquet:"possession,dict"`
	StartLOS    int32  `parquet:"start_los"`
	EndLOS      int32  `parquet:"end_los"`
	YardsGained int32  `parquet:"yards_gained"`
	Plays       int32  `parquet:"plays"`
	Ticks       int32  `parquet:"ticks"`
	Reason      string `parquet:"reason,dict"`
	Points      int32  `parquet:"points"`
	Source      string `parquet:"source,dict"`
	CreatedNs   int64  `parquet:"created_ns"`
}

// WriteTicksParquet writes rows to outPath via a temp file and rename.
func WriteTicksParquet(outPath string, rows []TickRow) error {
	return writeFileAtomic(outPath, rows, TickSchema)
}

// WriteDrivesParquet writes rows to outPath via a temp file and rename.
func WriteDrivesParquet(outPath string, rows []DriveRow) error {
	return writeFileAtomic(outPath, rows, DriveSchema)
}

// WriteBatchAtomic writes one batch of ticks and one batch of drive summaries
// under outDir/ticks and outDir/drives. Each file is written into a tmp/
// subdirectory first and renamed into place, so readers never observe a
// partially written batch.
//
// Empty inputs are skipped; the returned paths are empty for skipped files.
func WriteBatchAtomic(outDir string, ticks []TickRow, drives []DriveRow) (string, string, error) {
	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())

	var tickPath, drivePath string
	if len(ticks) > 0 {
		p, err := writeBatch(filepath.Join(outDir, TicksDir), name, ticks, TickSchema)
		if err != nil {
			return "", "", err
		}
		tickPath = p
	}
	if len(drives) > 0 {
		p, err := writeBatch(filepath.Join(outDir, DrivesDir), name, drives, DriveSchema)
		if err != nil {
			return tickPath, "", err
		}
		drivePath = p
	}
	return tickPath, drivePath, nil
}

// ReadTicks loads every tick row from a parquet file.
func ReadTicks(path string) ([]TickRow, error) {
	rows, err := parquet.ReadFile[TickRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// ReadDrives loads every drive summary from a parquet file.
func ReadDrives(path string) ([]DriveRow, error) {
	rows, err := parquet.ReadFile[DriveRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

func writeBatch[T any](dir, name string, rows []T, schema string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmpDir := filepath.Join(dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	if err := writeParquet(tmpPath, rows, schema); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func writeFileAtomic[T any](outPath string, rows []T, schema string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := writeParquet(tmpPath, rows, schema); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func writeParquet[T any](path string, rows []T, schema string) error {
	_ = os.Remove(path)
	if err := parquet.WriteFile(path, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
