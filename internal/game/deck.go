package game

import (
	"errors"
	"math/rand"
)

// PoolSize is the full two-deck pool: 52 cards per deck plus 2 jokers each.
const PoolSize = 108

// HandSize is the number of cards dealt to each of the four seats.
const HandSize = 14

// ErrExhausted is returned when a deck draw is requested while both the
// deck and the reshuffleable part of the pile are empty.
var ErrExhausted = errors.New("EXHAUSTED: deck and pile are both empty")

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewShuffledPool builds the 108-card pool (two 13-rank, 4-suit decks
// plus two jokers per deck) and shuffles it with the supplied source so
// deals can be reproduced in tests.
func NewShuffledPool(rng *rand.Rand) *Deck {
	deck := make([]Card, 0, PoolSize)
	ranks := []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}

	for range 2 {
		for _, suit := range suits {
			for _, rank := range ranks {
				deck = append(deck, Card{suit, rank})
			}
		}
		deck = append(deck, Card{Jokers, Joker})
		deck = append(deck, Card{Jokers, Joker})
	}

	d := &Deck{deck}
	d.Shuffle(rng)
	return d
}

func (deck Deck) Count() int {
	return len(deck.Cards)
}

func (deck *Deck) Draw(i int) (cards []Card) {
	for range i {
		card := deck.Cards[len(deck.Cards)-1]
		cards = append(cards, card)
		deck.Cards = deck.Cards[:len(deck.Cards)-1]
	}
	return
}

func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Deal hands out 14 cards to each of four seats in turn, flips one card
// to start the pile, and leaves the remainder as the deck. The pool size
// is fixed by construction, so a short pool is a configuration bug.
func (deck *Deck) Deal() (hands [4][]Card, pileCard Card, err error) {
	if deck.Count() < 4*HandSize+1 {
		return hands, pileCard, errors.New("SHORT_POOL: not enough cards to deal")
	}

	for range HandSize {
		for seat := range hands {
			hands[seat] = append(hands[seat], deck.Draw(1)[0])
		}
	}
	pileCard = deck.Draw(1)[0]

	return hands, pileCard, nil
}

// Reshuffle rebuilds an empty deck from the pile, keeping the pile's top
// card in place. A pile of one card or fewer cannot be reshuffled; that
// is the stalemate condition callers must surface, not a crash.
func Reshuffle(pile []Card, rng *rand.Rand) (deck *Deck, newPile []Card, err error) {
	if len(pile) <= 1 {
		return nil, pile, ErrExhausted
	}

	top := pile[len(pile)-1]
	deck = &Deck{Cards: append([]Card(nil), pile[:len(pile)-1]...)}
	deck.Shuffle(rng)

	return deck, []Card{top}, nil
}
