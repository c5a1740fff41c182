package drive

import (
	"fmt"
	"strings"

	"github.com/brensch/gridiron/game"
)

// Cell is a grid coordinate as sent to renderers.
type Cell struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type ActorView struct {
	ID   int32  `json:"id"`
	Role string `json:"role"`
	Cell
}

type Score struct {
	Home int32 `json:"home"`
	Away int32 `json:"away"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Session string `json:"session,omitempty"`
	Drive   int32  `json:"drive"`
	Tick    int32  `json:"tick"`

	Cols int32 `json:"cols"`
	Rows int32 `json:"rows"`

	Phase    string `json:"phase"`
	Terminal bool   `json:"terminal"`
	Reason   string `json:"reason,omitempty"`

	Possession      string `json:"possession"`
	Score           Score  `json:"score"`
	Down            int32  `json:"down"`
	YardsToGo       int32  `json:"yards_to_go"`
	YardsRemaining  int32  `json:"yards_remaining"`
	LineOfScrimmage int32  `json:"los"`
	FirstDownMarker int32  `json:"marker"`
	Clock           int32  `json:"clock"`
	Formation       string `json:"formation"`

	Carrier int32       `json:"carrier"`
	Ball    Cell        `json:"ball"`
	Actors  []ActorView `json:"actors"`
}

func SnapshotOf(st *game.DriveState) Snapshot {
	snap := Snapshot{
		Drive:           st.DriveNumber,
		Tick:            st.Tick,
		Cols:            st.Settings.Cols,
		Rows:            st.Settings.Rows,
		Phase:           st.Phase.String(),
		Terminal:        st.Phase == game.PhaseTerminal,
		Reason:          string(st.Reason),
		Possession:      st.Possession.String(),
		Score:           Score{Home: st.Score[game.Home], Away: st.Score[game.Away]},
		Down:            st.Down,
		YardsToGo:       st.YardsToGo,
		YardsRemaining:  st.YardsRemaining(),
		LineOfScrimmage: st.LineOfScrimmage,
		FirstDownMarker: st.FirstDownMarker,
		Clock:           st.Clock,
		Formation:       game.FormationFor(&st.Settings, st.LineOfScrimmage).String(),
		Carrier:         int32(st.Carrier),
		Actors:          make([]ActorView, len(st.Actors)),
	}
	for i, a := range st.Actors {
		snap.Actors[i] = ActorView{ID: int32(a.ID), Role: a.Role.String(), Cell: Cell{X: a.Pos.X, Y: a.Pos.Y}}
	}
	if c := st.CarrierActor(); c != nil {
		snap.Ball = Cell{X: c.Pos.X, Y: c.Pos.Y}
	}
	return snap
}

// Ordinal renders a down number as 1st, 2nd, 3rd or 4th.
func Ordinal(n int32) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return fmt.Sprintf("%dth", n)
}

// Render draws the field as text. The carrier is shown as '*', other actors by
// role initial (D for defenders), '|' is the first-down marker and ':' the end zone.
func Render(st *game.DriveState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Home %d - %d Away   %s ball   %s & %d   LOS %d   clock %d\n",
		st.Score[game.Home], st.Score[game.Away], st.Possession,
		Ordinal(st.Down), st.YardsRemaining(), st.LineOfScrimmage, st.Clock)

	cols, rows := int(st.Settings.Cols), int(st.Settings.Rows)
	grid := make([][]byte, rows)
	for y := range grid {
		grid[y] = make([]byte, cols)
		for x := range grid[y] {
			switch {
			case x == cols-1:
				grid[y][x] = ':'
			case x == int(st.FirstDownMarker):
				grid[y][x] = '|'
			default:
				grid[y][x] = '.'
			}
		}
	}
	for _, a := range st.Actors {
		if !st.Settings.InBounds(a.Pos) {
			continue
		}
		g := roleGlyph(a.Role)
		if a.ID == st.Carrier {
			g = '*'
		}
		cell := &grid[a.Pos.Y][a.Pos.X]
		if *cell == '*' {
			continue
		}
		*cell = g
	}
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}

	switch st.Phase {
	case game.PhasePreSnap:
		b.WriteString("pre-snap\n")
	case game.PhaseTerminal:
		fmt.Fprintf(&b, "drive over: %s\n", st.Reason)
	}
	return b.String()
}

func roleGlyph(r game.Role) byte {
	switch r {
	case game.RoleQuarterback:
		return 'Q'
	case game.RoleBlocker:
		return 'B'
	case game.RoleReceiver:
		return 'R'
	}
	return 'D'
}
