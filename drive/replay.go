package drive

import (
	"fmt"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/store"
)

// StateFromTick rebuilds a drive state from an archived tick for display.
// Route cursors and the per-down throttles are not archived, so the result
// can be rendered but not stepped further.
func StateFromTick(settings game.Settings, row store.TickRow) (*game.DriveState, error) {
	n := len(row.ActorRole)
	if len(row.ActorX) != n || len(row.ActorY) != n {
		return nil, fmt.Errorf("tick %d: actor columns disagree (%d/%d/%d)", row.Tick, n, len(row.ActorX), len(row.ActorY))
	}

	st := &game.DriveState{
		Settings:        settings.Normalize(),
		Actors:          make([]game.Actor, n),
		Carrier:         game.ActorID(row.Carrier),
		Reason:          game.Reason(row.Reason),
		Down:            row.Down,
		YardsToGo:       row.YardsToGo,
		LineOfScrimmage: row.LineOfScrimmage,
		FirstDownMarker: row.FirstDownMarker,
		Clock:           row.Clock,
		Score:           [2]int32{row.ScoreHome, row.ScoreAway},
		DriveNumber:     row.Drive,
		Tick:            row.Tick,
	}
	for i := range st.Actors {
		st.Actors[i] = game.Actor{
			ID:   game.ActorID(i),
			Role: game.Role(row.ActorRole[i]),
			Pos:  game.Point{X: row.ActorX[i], Y: row.ActorY[i]},
		}
	}

	switch row.Phase {
	case game.PhasePreSnap.String():
		st.Phase = game.PhasePreSnap
	case game.PhaseLive.String():
		st.Phase = game.PhaseLive
	case game.PhaseTerminal.String():
		st.Phase = game.PhaseTerminal
	default:
		return nil, fmt.Errorf("tick %d: unknown phase %q", row.Tick, row.Phase)
	}
	if row.Possession == game.Away.String() {
		st.Possession = game.Away
	}
	return st, nil
}
