package policy

import (
	"sync"

	"github.com/brensch/gridiron/game"
)

// Channels is the number of planes in an encoded state.
//
//	0: ball carrier
//	1: quarterback
//	2: blockers
//	3: receivers
//	4: defenders
//	5: first-down marker column
//	6: down / 4 (whole plane)
//	7: clock remaining as a fraction of the drive clock (whole plane)
const Channels = 8

var floatPool = sync.Pool{
	New: func() interface{} {
		b := make([]float32, 0)
		return &b
	},
}

// PutBuffer returns a buffer from EncodeState to the pool.
func PutBuffer(b *[]float32) {
	floatPool.Put(b)
}

// EncodeState writes the state into a pooled float32 slice of shape
// [Channels, Rows, Cols]. The caller returns it with PutBuffer.
func EncodeState(state *game.DriveState) *[]float32 {
	rows, cols := int(state.Settings.Rows), int(state.Settings.Cols)
	plane := rows * cols
	size := Channels * plane

	ptr := floatPool.Get().(*[]float32)
	if cap(*ptr) < size {
		*ptr = make([]float32, size)
	}
	*ptr = (*ptr)[:size]
	data := *ptr
	clear(data)

	set := func(c int, p game.Point, v float32) {
		x, y := int(p.X), int(p.Y)
		if x < 0 || x >= cols || y < 0 || y >= rows {
			return
		}
		data[c*plane+y*cols+x] = v
	}
	fill := func(c int, v float32) {
		for i := c * plane; i < (c+1)*plane; i++ {
			data[i] = v
		}
	}

	for _, a := range state.Actors {
		switch a.Role {
		case game.RoleQuarterback:
			set(1, a.Pos, 1)
		case game.RoleBlocker:
			set(2, a.Pos, 1)
		case game.RoleReceiver:
			set(3, a.Pos, 1)
		case game.RoleDefender:
			set(4, a.Pos, 1)
		}
	}
	if c := state.CarrierActor(); c != nil {
		set(0, c.Pos, 1)
	}
	for y := 0; y < rows; y++ {
		set(5, game.Point{X: state.FirstDownMarker, Y: int32(y)}, 1)
	}
	fill(6, float32(state.Down)/4)
	if state.Settings.ClockSeconds > 0 {
		fill(7, float32(max(state.Clock, 0))/float32(state.Settings.ClockSeconds))
	}
	return ptr
}
