// Package drive hosts one running simulation: it feeds intents into the rules,
// exposes the rendering query surface and optionally records archive rows.
package drive

import (
	"log/slog"
	"sync"
	"time"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/logging"
	"github.com/brensch/gridiron/rules"
	"github.com/brensch/gridiron/store"
)

type Config struct {
	ID       string
	Settings game.Settings
	Logger   *slog.Logger

	// Record buffers a TickRow per submitted intent and a DriveRow per finished
	// drive. Drain them with TakeRows.
	Record bool
	Source string
}

// Session owns a single DriveState. All methods are safe for concurrent use,
// but intents are applied strictly one at a time.
type Session struct {
	mu sync.Mutex

	id     string
	source string
	record bool
	log    *slog.Logger

	state *game.DriveState

	driveStartLOS int32
	driveTicks    int32
	seq           int32

	ticks  []store.TickRow
	drives []store.DriveRow
}

func NewSession(cfg Config) *Session {
	state := game.NewGame(cfg.Settings)
	log := logging.OrDiscard(cfg.Logger)
	if cfg.ID != "" {
		log = log.With("session", cfg.ID)
	}
	s := &Session{
		id:            cfg.ID,
		source:        cfg.Source,
		record:        cfg.Record,
		log:           log,
		state:         state,
		driveStartLOS: state.LineOfScrimmage,
	}
	s.log.Info("drive started", "drive", state.DriveNumber, "possession", state.Possession.String(), "los", state.LineOfScrimmage)
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Submit applies one intent. Rejected intents leave the state untouched.
func (s *Session) Submit(in rules.Intent) rules.TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	wasTerminal := st.Phase == game.PhaseTerminal
	res := rules.Apply(st, in)
	s.seq++

	if res.Accepted {
		s.driveTicks++
	}
	s.log.Debug("tick",
		"intent", in.String(),
		"accepted", res.Accepted,
		"events", eventNames(res.Events),
		"phase", st.Phase.String(),
		"clock", st.Clock,
	)
	if s.record {
		s.ticks = append(s.ticks, tickRow(s.id, s.source, s.seq, st, in, res))
	}

	switch {
	case !wasTerminal && st.Phase == game.PhaseTerminal:
		row := s.summarize()
		s.log.Info("drive over",
			"drive", row.Drive,
			"possession", row.Possession,
			"reason", row.Reason,
			"plays", row.Plays,
			"yards", row.YardsGained,
			"score_home", st.Score[game.Home],
			"score_away", st.Score[game.Away],
		)
		if s.record {
			s.drives = append(s.drives, row)
		}
	case wasTerminal && res.Accepted:
		s.driveStartLOS = st.LineOfScrimmage
		s.driveTicks = 0
		s.log.Info("drive started", "drive", st.DriveNumber, "possession", st.Possession.String(), "los", st.LineOfScrimmage)
	case res.Has(rules.EventNewSeries):
		s.log.Info("first down", "los", st.LineOfScrimmage, "marker", st.FirstDownMarker)
	case res.Has(rules.EventNextDown):
		s.log.Info("next down", "down", st.Down, "yards_to_go", st.YardsToGo, "los", st.LineOfScrimmage)
	}
	return res
}

// summarize builds the DriveRow for the drive that just ended.
func (s *Session) summarize() store.DriveRow {
	st := s.state
	end := st.LineOfScrimmage
	var points int32
	if st.Reason == game.ReasonTouchdown {
		end = st.Settings.GoalColumn()
		points = st.Settings.TouchdownPoints
	}
	return store.DriveRow{
		GameID:      s.id,
		Drive:       st.DriveNumber,
		Possession:  st.Possession.String(),
		StartLOS:    s.driveStartLOS,
		EndLOS:      end,
		YardsGained: (end - s.driveStartLOS) * st.Settings.YardsPerCell,
		Plays:       st.Plays,
		Ticks:       s.driveTicks,
		Reason:      string(st.Reason),
		Points:      points,
		Source:      s.source,
		CreatedNs:   time.Now().UnixNano(),
	}
}

// State returns a copy of the current drive state.
func (s *Session) State() *game.DriveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SnapshotOf(s.state)
	snap.Session = s.id
	return snap
}

// TakeRows returns the buffered archive rows and clears the buffers.
func (s *Session) TakeRows() ([]store.TickRow, []store.DriveRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticks, drives := s.ticks, s.drives
	s.ticks, s.drives = nil, nil
	return ticks, drives
}

func tickRow(id, source string, seq int32, st *game.DriveState, in rules.Intent, res rules.TickResult) store.TickRow {
	n := len(st.Actors)
	row := store.TickRow{
		GameID:          id,
		Drive:           st.DriveNumber,
		Seq:             seq,
		Tick:            st.Tick,
		Intent:          in.String(),
		Accepted:        res.Accepted,
		Events:          eventNames(res.Events),
		Phase:           st.Phase.String(),
		Reason:          string(st.Reason),
		Possession:      st.Possession.String(),
		Down:            st.Down,
		YardsToGo:       st.YardsToGo,
		LineOfScrimmage: st.LineOfScrimmage,
		FirstDownMarker: st.FirstDownMarker,
		Clock:           st.Clock,
		ScoreHome:       st.Score[game.Home],
		ScoreAway:       st.Score[game.Away],
		Carrier:         int32(st.Carrier),
		ActorRole:       make([]int32, n),
		ActorX:          make([]int32, n),
		ActorY:          make([]int32, n),
		Source:          source,
	}
	for i, a := range st.Actors {
		row.ActorRole[i] = int32(a.Role)
		row.ActorX[i] = a.Pos.X
		row.ActorY[i] = a.Pos.Y
	}
	return row
}

func eventNames(events []rules.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = string(e.Kind)
	}
	return out
}
