package policy

import (
	"math/rand"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
)

// Random picks uniformly among the legal intents. Not safe for concurrent use.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Choose(state *game.DriveState) (rules.Intent, error) {
	legal := LegalIntents(state)
	return legal[r.rng.Intn(len(legal))], nil
}
