package game_test

import (
	"testing"

	"rummy-server/internal/game"
)

func TestCardValue(t *testing.T) {
	tests := []struct {
		name  string
		card  game.Card
		value int
	}{
		{name: "ace is one", card: game.Card{game.Spades, game.Ace}, value: 1},
		{name: "numeric is face value", card: game.Card{game.Hearts, game.Seven}, value: 7},
		{name: "ten", card: game.Card{game.Clubs, game.Ten}, value: 10},
		{name: "jack", card: game.Card{game.Diamonds, game.Jack}, value: 10},
		{name: "queen", card: game.Card{game.Diamonds, game.Queen}, value: 10},
		{name: "king", card: game.Card{game.Diamonds, game.King}, value: 10},
		{name: "joker", card: game.Card{game.Jokers, game.Joker}, value: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.Value(); got != tt.value {
				t.Errorf("%s valued at %d, expected %d", tt.card, got, tt.value)
			}
		})
	}
}

func TestRankIndex(t *testing.T) {
	if game.Ace.Index() != 0 {
		t.Errorf("Ace index is %d, expected 0", game.Ace.Index())
	}
	if game.King.Index() != 12 {
		t.Errorf("King index is %d, expected 12", game.King.Index())
	}
}

func TestRemoveFirst(t *testing.T) {
	sevenOfSpades := game.Card{game.Spades, game.Seven}
	hand := []game.Card{
		sevenOfSpades,
		{game.Hearts, game.Two},
		sevenOfSpades, // second deck copy
	}

	hand, ok := game.RemoveFirst(hand, sevenOfSpades)
	if !ok {
		t.Fatal("RemoveFirst failed to find the card")
	}
	if len(hand) != 2 {
		t.Fatalf("Hand has %d cards after removal, expected 2", len(hand))
	}
	if !game.Contains(hand, sevenOfSpades) {
		t.Error("Removal consumed both copies, only one instance should go")
	}

	hand, ok = game.RemoveFirst(hand, sevenOfSpades)
	if !ok || game.Contains(hand, sevenOfSpades) {
		t.Error("Second removal should consume the remaining copy")
	}

	_, ok = game.RemoveFirst(hand, sevenOfSpades)
	if ok {
		t.Error("Removal from a hand without the card should report failure")
	}
}

func TestJokerCount(t *testing.T) {
	cards := []game.Card{
		{game.Jokers, game.Joker},
		{game.Spades, game.Ace},
		{game.Jokers, game.Joker},
	}
	if got := game.JokerCount(cards); got != 2 {
		t.Errorf("JokerCount returned %d, expected 2", got)
	}
}

func TestTotalValue(t *testing.T) {
	cards := []game.Card{
		{game.Spades, game.Ace},
		{game.Hearts, game.King},
		{game.Jokers, game.Joker},
	}
	if got := game.TotalValue(cards); got != 36 {
		t.Errorf("TotalValue returned %d, expected 36", got)
	}
}
