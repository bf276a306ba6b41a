// Package bot drives automated seats. Decisions come from a usefulness
// heuristic plus a bounded sampling estimate of hand quality; every
// choice degrades to a deterministic fallback so an automated seat can
// never stall a match.
package bot

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

// DefaultSamples bounds the sampling loop in the quality estimate.
const DefaultSamples = 50

type Decider struct {
	Samples int

	rng    *rand.Rand
	logger *log.Logger
}

type DeciderOption func(*Decider)

func WithRand(rng *rand.Rand) DeciderOption {
	return func(d *Decider) { d.rng = rng }
}

func WithSamples(n int) DeciderOption {
	return func(d *Decider) { d.Samples = n }
}

func NewDecider(logger *log.Logger, opts ...DeciderOption) *Decider {
	d := &Decider{
		Samples: DefaultSamples,
		logger:  logger.WithPrefix("decider"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return d
}

// ChooseDrawSource weighs the visible pile card against an unknown deck
// card. The pile wins when its usefulness clears the threshold or when
// the sampled quality of the hand-plus-pile-card sufficiently beats the
// discounted deck estimate.
func (d *Decider) ChooseDrawSource(hand []game.Card, pileTop *game.Card, deckCount int, opened bool) (source rummy.DrawSource) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("draw-source scoring failed, falling back to deck", "panic", r)
			source = rummy.DrawDeck
		}
	}()

	if pileTop == nil {
		return rummy.DrawDeck
	}
	if deckCount == 0 {
		return rummy.DrawPile
	}

	usefulness := Usefulness(*pileTop, hand)
	threshold := PileThresholdUnopened
	if opened {
		threshold = PileThresholdOpened
	}

	withPile := append(append(make([]game.Card, 0, len(hand)+1), hand...), *pileTop)
	pileQuality := d.handQuality(withPile)
	deckQuality := d.handQuality(hand) * DeckQualityDiscount

	if usefulness > threshold || pileQuality > deckQuality+PileQualityMargin {
		return rummy.DrawPile
	}
	return rummy.DrawDeck
}

// ChooseDiscard picks the card to shed: high value, low usefulness,
// weak remaining hand. A joker is only ever discarded from an all-joker
// hand.
func (d *Decider) ChooseDiscard(hand []game.Card) (card game.Card, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("discard scoring failed, falling back to highest value", "panic", r)
			card, ok = fallbackDiscard(hand)
		}
	}()

	if len(hand) == 0 {
		return game.Card{}, false
	}
	if len(hand) == 1 {
		return hand[0], true
	}

	best := 0
	bestScore := jokerDiscardScore - 1
	for i, c := range hand {
		rest := make([]game.Card, 0, len(hand)-1)
		rest = append(rest, hand[:i]...)
		rest = append(rest, hand[i+1:]...)

		if score := d.discardScore(c, rest); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return hand[best], true
}

// ChooseMelds returns the groups to submit this turn, or nothing when an
// unopened seat cannot reach the bar.
func (d *Decider) ChooseMelds(hand []game.Card, opened bool) (groups [][]game.Card) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("meld search failed, playing no melds", "panic", r)
			groups = nil
		}
	}()
	return chooseMelds(hand, opened)
}

// fallbackDiscard is the deterministic last resort: the highest-value
// non-joker card, or the first card when only jokers remain.
func fallbackDiscard(hand []game.Card) (game.Card, bool) {
	if len(hand) == 0 {
		return game.Card{}, false
	}
	best := -1
	for i, c := range hand {
		if c.IsJoker() {
			continue
		}
		if best < 0 || c.Value() > hand[best].Value() {
			best = i
		}
	}
	if best < 0 {
		return hand[0], true
	}
	return hand[best], true
}
