// Package selfplay plays whole games under a policy and collects archive rows.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/gridiron/drive"
	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/policy"
	"github.com/brensch/gridiron/store"
)

const (
	DefaultDrives   = 4
	DefaultMaxTicks = 10000
)

// ErrTickLimit is returned when a game does not finish within MaxTicks intents.
var ErrTickLimit = errors.New("tick limit reached")

type Config struct {
	Settings game.Settings
	// Drives is the number of drives per game; possession alternates.
	Drives   int
	MaxTicks int
	Source   string
	Logger   *slog.Logger
	// OnStep is called after every submitted intent.
	OnStep func()
}

type Result struct {
	GameID    string
	Completed bool
	Steps     int
	Score     [2]int32
	Ticks     []store.TickRow
	Drives    []store.DriveRow
}

// PlayGame plays cfg.Drives drives with p choosing every intent.
//
// On cancellation or error the rows recorded so far are returned with
// Completed=false alongside the error.
func PlayGame(ctx context.Context, gameID string, cfg Config, p policy.Policy) (Result, error) {
	if cfg.Drives <= 0 {
		cfg.Drives = DefaultDrives
	}
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = DefaultMaxTicks
	}
	log := logging.OrDiscard(cfg.Logger).With("game", gameID)

	session := drive.NewSession(drive.Config{
		ID:       gameID,
		Settings: cfg.Settings,
		Logger:   log,
		Record:   true,
		Source:   cfg.Source,
	})

	res := Result{GameID: gameID}
	finish := func(err error) (Result, error) {
		res.Ticks, res.Drives = session.TakeRows()
		res.Score = session.State().Score
		return res, err
	}

	finished := 0
	for res.Steps < cfg.MaxTicks {
		select {
		case <-ctx.Done():
			return finish(ctx.Err())
		default:
		}

		state := session.State()
		in, err := p.Choose(state)
		if err != nil {
			return finish(fmt.Errorf("choose intent at tick %d: %w", state.Tick, err))
		}

		tick := session.Submit(in)
		res.Steps++
		if cfg.OnStep != nil {
			cfg.OnStep()
		}
		if !tick.Accepted {
			return finish(fmt.Errorf("policy chose %s in phase %s: intent rejected", in, state.Phase))
		}

		if state.Phase != game.PhaseTerminal && tick.Phase == game.PhaseTerminal {
			finished++
			if finished >= cfg.Drives {
				res.Completed = true
				return finish(nil)
			}
		}
	}
	return finish(fmt.Errorf("game %s after %d steps: %w", gameID, res.Steps, ErrTickLimit))
}
