package policy

import (
	"math/rand"

	"github.com/brensch/gridiron/game"
	"github.com/brensch/gridiron/rules"
)

// Epsilon replaces the base policy's choice with a random legal intent with
// probability Rate. It makes deterministic policies produce a different game
// per seed. Not safe for concurrent use.
type Epsilon struct {
	Base Policy
	Rate float64
	rng  *rand.Rand
}

func NewEpsilon(base Policy, rate float64, seed int64) *Epsilon {
	return &Epsilon{Base: base, Rate: rate, rng: rand.New(rand.NewSource(seed))}
}

func (e *Epsilon) Choose(state *game.DriveState) (rules.Intent, error) {
	if e.Rate > 0 && e.rng.Float64() < e.Rate {
		legal := LegalIntents(state)
		return legal[e.rng.Intn(len(legal))], nil
	}
	return e.Base.Choose(state)
}
