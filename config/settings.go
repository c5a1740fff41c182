package config

import (
	"flag"
	"fmt"

	"github.com/brensch/gridiron/game"
)

// BindSettingsFlags registers one flag per drive setting on fs. Defaults come from
// the environment (e.g. CLOCK_SECONDS) and then from base.
//
// Values are written into the returned pointer when fs is parsed; call
// Normalize afterwards.
func BindSettingsFlags(fs *flag.FlagSet, base game.Settings) *game.Settings {
	s := base
	intFlag := func(dst *int32, name, env, usage string) {
		def := GetEnvIntOrDefault(env, int(*dst))
		*dst = int32(def)
		fs.Func(name, usage+" (env "+env+")", func(v string) error {
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
				return err
			}
			*dst = int32(n)
			return nil
		})
	}

	intFlag(&s.Cols, "cols", "FIELD_COLS", "field columns; the last column is the end zone")
	intFlag(&s.Rows, "rows", "FIELD_ROWS", "field rows")
	intFlag(&s.YardsPerCell, "yards-per-cell", "YARDS_PER_CELL", "yards represented by one column")
	intFlag(&s.FirstDownYards, "first-down-yards", "FIRST_DOWN_YARDS", "yards needed for a first down")
	intFlag(&s.ClockSeconds, "clock", "CLOCK_SECONDS", "drive clock in seconds")
	intFlag(&s.DefenderDelay, "defender-delay", "DEFENDER_DELAY", "defenders move once every N quarterback moves")
	intFlag(&s.BlockerEvery, "blocker-every", "BLOCKER_EVERY", "blockers move once every N quarterback moves")
	intFlag(&s.PassRange, "pass-range", "PASS_RANGE", "max columns between quarterback and receiver for a pass")
	intFlag(&s.GoalLineYards, "goal-line-yards", "GOAL_LINE_YARDS", "distance to the end zone that triggers the goal-line defense")
	intFlag(&s.PuntDistance, "punt-distance", "PUNT_DISTANCE", "punt distance in columns")
	intFlag(&s.KickoffColumn, "kickoff-column", "KICKOFF_COLUMN", "line of scrimmage after a score, turnover or expired clock")

	s.BlockQBIntoBlocker = GetEnvBoolOrDefault("BLOCK_QB_INTO_BLOCKER", s.BlockQBIntoBlocker)
	fs.BoolVar(&s.BlockQBIntoBlocker, "block-qb", s.BlockQBIntoBlocker, "reject quarterback moves onto a blocker (env BLOCK_QB_INTO_BLOCKER)")
	return &s
}
