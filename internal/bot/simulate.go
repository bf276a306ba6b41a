package bot

import (
	"math/rand"

	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

// Quality scoring. A hand that can open outranks one that merely holds a
// meld, and low deadwood earns a continuous credit. This is a bounded
// approximation, not a search over future draws: latency stays flat no
// matter the position.
const (
	openBonus     = 2.0
	anyMeldBonus  = 0.5
	deadwoodScale = 200.0
)

// handQuality samples hypothetical next draws and averages the resulting
// hand scores. Opponent hands are unknown, so draws are modeled as
// uniform over the full pool.
func (d *Decider) handQuality(hand []game.Card) float64 {
	if len(hand) == 0 {
		return openBonus + 1
	}

	total := 0.0
	for range d.Samples {
		probe := append(append(make([]game.Card, 0, len(hand)+1), hand...), randomCard(d.rng))
		total += scoreHand(probe)
	}
	return total / float64(d.Samples)
}

// scoreHand is the per-sample evaluation: opening reach, meld potential,
// deadwood credit.
func scoreHand(hand []game.Card) float64 {
	melds := FindMelds(hand)

	score := 0.0
	best := 0
	for _, m := range melds {
		if m.Points > best {
			best = m.Points
		}
	}
	if best >= rummy.OpeningPoints {
		score += openBonus
	} else if len(melds) > 0 {
		score += anyMeldBonus
	}

	deadwood := float64(game.TotalValue(hand))
	if credit := (deadwoodScale - deadwood) / deadwoodScale; credit > 0 {
		score += credit
	}
	return score
}

// randomCard draws uniformly from the 108-card pool shape: 104 suited
// cards plus 4 jokers.
func randomCard(rng *rand.Rand) game.Card {
	if rng.Intn(game.PoolSize) < 4 {
		return game.Card{Suit: game.Jokers, Rank: game.Joker}
	}
	return game.Card{
		Suit: game.Suit(rng.Intn(4)),
		Rank: game.Rank(rng.Intn(13)),
	}
}
