// Command autoplay runs headless games under a policy and archives them as parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/gridiron/config"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/selfplay"
	"github.com/brensch/gridiron/store"
	tea "github.com/charmbracelet/bubbletea"
)

var totalSteps atomic.Int64
var totalGames atomic.Int64

func main() {
	outDir := flag.String("out-dir", config.GetEnvOrDefault("OUT_DIR", "data/autoplay"), "Output directory for parquet batches")
	workers := flag.Int("workers", config.GetEnvIntOrDefault("WORKERS", 8), "Number of concurrent games")
	gamesPerFlush := flag.Int("games-per-flush", config.GetEnvIntOrDefault("GAMES_PER_FLUSH", 50), "Games buffered per parquet flush")
	maxGames := flag.Int64("max-games", int64(config.GetEnvIntOrDefault("MAX_GAMES", 0)), "If > 0, stop after this many new seeds")
	drives := flag.Int("drives", config.GetEnvIntOrDefault("DRIVES_PER_GAME", selfplay.DefaultDrives), "Drives per game")
	policyName := flag.String("policy", config.GetEnvOrDefault("POLICY", "scripted"), "scripted, random or onnx")
	modelPath := flag.String("model", config.GetEnvOrDefault("MODEL_PATH", "models/gridiron.onnx"), "ONNX model for -policy onnx")
	epsilon := flag.Float64("epsilon", 0.1, "Probability of a random legal intent instead of the policy's choice")
	seedBase := flag.Int64("seed-base", 1, "First seed to play")
	ledgerPath := flag.String("ledger", config.GetEnvOrDefault("SEED_LEDGER", ""), "Seed ledger (default <out-dir>/seeds.log)")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")
	statsEvery := flag.Duration("stats-every", config.GetEnvDurationOrDefault("STATS_EVERY", 5*time.Second), "Interval between stats lines without -tui")
	useTUI := flag.Bool("tui", config.GetEnvBoolOrDefault("TUI", false), "Show a live dashboard")
	settings := config.BindSettingsFlags(flag.CommandLine, game.DefaultSettings)
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	if *useTUI {
		// The dashboard owns the terminal; logs go next to the batches.
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create out dir: %v", err)
		}
		f, err := os.OpenFile(filepath.Join(*outDir, "autoplay.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	logger := slog.New(logging.NewJSONHandler(log.Writer(), &logging.Options{Level: level}))

	if *ledgerPath == "" {
		*ledgerPath = filepath.Join(*outDir, "seeds.log")
	}
	ledger, err := store.OpenSeedLedger(*ledgerPath)
	if err != nil {
		log.Fatalf("open seed ledger: %v", err)
	}
	defer ledger.Close()
	log.Printf("Seed ledger %s has %d seeds", *ledgerPath, ledger.Count())

	var shared *policy.OnnxPolicy
	if *policyName == "onnx" {
		shared, err = policy.NewOnnxPolicy(*modelPath, settings.Normalize())
		if err != nil {
			log.Fatalf("load model: %v", err)
		}
		defer shared.Close()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	seeds := seedSource(*seedBase, *maxGames, ledger, ctx.Done())
	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *gamesPerFlush, ledger, writeReqs)
		close(writerDone)
	}()

	cfg := selfplay.Config{
		Settings: settings.Normalize(),
		Drives:   *drives,
		Source:   "autoplay:" + *policyName,
		Logger:   logger,
		OnStep:   func() { totalSteps.Add(1) },
	}

	var workerWG sync.WaitGroup
	log.Printf("Starting autoplay with %d workers, policy %s", *workers, *policyName)
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			for seed := range seeds {
				p, err := newPolicy(*policyName, seed, *epsilon, shared)
				if err != nil {
					log.Printf("Worker %d: %v", workerID, err)
					cancel()
					return
				}
				gameID := fmt.Sprintf("autoplay_%d", seed)
				res, err := selfplay.PlayGame(ctx, gameID, cfg, p)
				update := GameUpdate{WorkerID: workerID, Seed: seed, Steps: res.Steps, Score: res.Score, Drives: len(res.Drives)}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					update.Err = err.Error()
				} else {
					writeReqs <- gameWriteRequest{seed: seed, ticks: res.Ticks, drives: res.Drives}
					totalGames.Add(1)
				}
				select {
				case updates <- update:
				default:
				}
			}
		}(i)
	}

	allDone := make(chan struct{})
	go func() {
		workerWG.Wait()
		close(writeReqs)
		<-writerDone
		close(allDone)
	}()

	if *useTUI {
		go func() {
			<-allDone
			close(updates)
		}()
		p := tea.NewProgram(initialModel(updates, totalSteps.Load), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.Printf("dashboard: %v", err)
		}
		cancel()
		<-allDone
		log.Printf("Shutdown complete (games=%d)", totalGames.Load())
		return
	}

	startTime := time.Now()
	ticker := time.NewTicker(*statsEvery)
	defer ticker.Stop()
	for {
		select {
		case <-allDone:
			log.Printf("Shutdown complete: final parquet flush done (games=%d)", totalGames.Load())
			return
		case update := <-updates:
			log.Print(formatUpdate(update))
		case <-ticker.C:
			secs := time.Since(startTime).Seconds()
			log.Printf("Stats: games=%d steps/s=%.1f games/s=%.2f", totalGames.Load(), float64(totalSteps.Load())/secs, float64(totalGames.Load())/secs)
		}
	}
}

// newPolicy builds the per-game policy. Deterministic policies are wrapped in
// an epsilon explorer so each seed plays a different game.
func newPolicy(name string, seed int64, epsilon float64, shared *policy.OnnxPolicy) (policy.Policy, error) {
	switch name {
	case "scripted":
		return policy.NewEpsilon(policy.Scripted{}, epsilon, seed), nil
	case "random":
		return policy.NewRandom(seed), nil
	case "onnx":
		if shared == nil {
			return nil, fmt.Errorf("onnx policy requires a loaded model")
		}
		return policy.NewEpsilon(shared, epsilon, seed), nil
	}
	return nil, fmt.Errorf("unknown policy %q", name)
}
