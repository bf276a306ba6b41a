package game_test

import (
	"errors"
	"math/rand"
	"testing"

	"rummy-server/internal/game"
)

func TestNewShuffledPool(t *testing.T) {
	pool := game.NewShuffledPool(rand.New(rand.NewSource(1)))

	if pool.Count() != game.PoolSize {
		t.Fatalf("Pool has %d cards, expected %d", pool.Count(), game.PoolSize)
	}

	counts := make(map[game.Card]int)
	for _, card := range pool.Cards {
		counts[card]++
	}

	if counts[game.Card{game.Jokers, game.Joker}] != 4 {
		t.Errorf("Pool has %d jokers, expected 4", counts[game.Card{game.Jokers, game.Joker}])
	}
	if counts[game.Card{game.Spades, game.Ace}] != 2 {
		t.Errorf("Pool has %d aces of spades, expected 2 (one per deck)", counts[game.Card{game.Spades, game.Ace}])
	}
}

func TestShuffleIsSeedable(t *testing.T) {
	a := game.NewShuffledPool(rand.New(rand.NewSource(42)))
	b := game.NewShuffledPool(rand.New(rand.NewSource(42)))

	for i := range a.Cards {
		if a.Cards[i] != b.Cards[i] {
			t.Fatal("Same seed should produce the same shuffle order")
		}
	}
}

func TestDeal(t *testing.T) {
	pool := game.NewShuffledPool(rand.New(rand.NewSource(7)))

	hands, _, err := pool.Deal()
	if err != nil {
		t.Fatalf("Deal failed: %v", err)
	}

	total := 0
	for seat, hand := range hands {
		if len(hand) != game.HandSize {
			t.Errorf("Seat %d has %d cards, expected %d", seat, len(hand), game.HandSize)
		}
		total += len(hand)
	}

	// 108 - 56 dealt - 1 pile card
	if pool.Count() != game.PoolSize-total-1 {
		t.Errorf("Deck has %d cards after deal, expected %d", pool.Count(), game.PoolSize-total-1)
	}
}

func TestDealShortPool(t *testing.T) {
	pool := &game.Deck{Cards: make([]game.Card, 40)}
	if _, _, err := pool.Deal(); err == nil {
		t.Error("Dealing from a short pool should fail")
	}
}

func TestReshuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pile := []game.Card{
		{game.Spades, game.Two},
		{game.Hearts, game.Five},
		{game.Clubs, game.Nine},
		{game.Diamonds, game.King},
	}
	top := pile[len(pile)-1]

	deck, newPile, err := game.Reshuffle(pile, rng)
	if err != nil {
		t.Fatalf("Reshuffle failed: %v", err)
	}

	if deck.Count() != len(pile)-1 {
		t.Errorf("New deck has %d cards, expected %d", deck.Count(), len(pile)-1)
	}
	if len(newPile) != 1 || newPile[0] != top {
		t.Errorf("Pile after reshuffle should hold only the old top card, got %v", newPile)
	}
}

func TestReshuffleExhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, pile := range [][]game.Card{nil, {{game.Spades, game.Two}}} {
		_, _, err := game.Reshuffle(pile, rng)
		if !errors.Is(err, game.ErrExhausted) {
			t.Errorf("Reshuffle of pile size %d returned %v, expected ErrExhausted", len(pile), err)
		}
	}
}
