// Command debugdrive prints a game tick by tick, either played on the spot
// under a policy or replayed from an archived ticks parquet file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/drive"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/selfplay"
	"github.com/brensch/gridiron/store"
)

func main() {
	replay := flag.String("replay", "", "Ticks parquet file to replay instead of playing")
	gameID := flag.String("game", "", "Game id to replay (default: the first in the file)")
	policyName := flag.String("policy", "scripted", "scripted or random")
	seed := flag.Int64("seed", 1, "Seed for the random policy")
	drives := flag.Int("drives", 2, "Drives to play")
	outDir := flag.String("out-dir", config.GetEnvOrDefault("DEBUG_OUT_DIR", ""), "If set, write the played game as a parquet batch")
	settings := config.BindSettingsFlags(flag.CommandLine, game.DefaultSettings)
	flag.Parse()

	var ticks []store.TickRow
	if *replay != "" {
		rows, err := store.ReadTicks(*replay)
		if err != nil {
			log.Fatalf("read ticks: %v", err)
		}
		ticks = filterGame(rows, *gameID)
		if len(ticks) == 0 {
			log.Fatalf("no ticks for game %q in %s", *gameID, *replay)
		}
	} else {
		var p policy.Policy = policy.Scripted{}
		if *policyName == "random" {
			p = policy.NewRandom(*seed)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		id := fmt.Sprintf("debug_%d", time.Now().UnixNano())
		res, err := selfplay.PlayGame(ctx, id, selfplay.Config{Settings: settings.Normalize(), Drives: *drives, Source: "debug"}, p)
		if err != nil {
			log.Fatalf("play: %v", err)
		}
		ticks = res.Ticks
		if *outDir != "" {
			tickPath, _, err := store.WriteBatchAtomic(*outDir, res.Ticks, res.Drives)
			if err != nil {
				log.Fatalf("write: %v", err)
			}
			log.Printf("Debug game written to: %s", tickPath)
		}
	}

	if err := printTicks(os.Stdout, settings.Normalize(), ticks); err != nil {
		log.Fatal(err)
	}
}

func filterGame(rows []store.TickRow, id string) []store.TickRow {
	if id == "" && len(rows) > 0 {
		id = rows[0].GameID
	}
	out := make([]store.TickRow, 0, len(rows))
	for _, r := range rows {
		if r.GameID == id {
			out = append(out, r)
		}
	}
	return out
}

func printTicks(w io.Writer, settings game.Settings, ticks []store.TickRow) error {
	for _, row := range ticks {
		st, err := drive.StateFromTick(settings, row)
		if err != nil {
			return err
		}
		status := "ok"
		if !row.Accepted {
			status = "rejected"
		}
		fmt.Fprintf(w, "=== drive %d tick %d | %s (%s) %v ===\n", row.Drive, row.Tick, row.Intent, status, row.Events)
		fmt.Fprint(w, drive.Render(st))
	}
	return nil
}
