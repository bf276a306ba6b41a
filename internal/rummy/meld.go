package rummy

import (
	"sort"

	"rummy-server/internal/game"
)

type MeldKind string

const (
	KindInvalid MeldKind = "invalid"
	KindSet     MeldKind = "set"
	KindRun     MeldKind = "run"
)

// highAceIndex is the run position of an Ace played above the King.
const highAceIndex = 13

// Meld is a placed group on the shared board. Run cards are stored in
// play order with jokers slotted into the positions they fill; Low and
// High record the effective rank span so extensions can check adjacency
// without re-deriving joker placement.
type Meld struct {
	Seat   int         `json:"seat"`
	Kind   MeldKind    `json:"kind"`
	Cards  []game.Card `json:"cards"`
	Points int         `json:"points"`
	Low    int         `json:"low,omitempty"`
	High   int         `json:"high,omitempty"`
}

// Classify decides whether a candidate group is a valid Set or Run and
// returns its point value. It is a pure function of the card multiset.
// Jokers score their own 25 points, never the rank they stand in for.
func Classify(cards []game.Card) (MeldKind, int) {
	if isValidSet(cards) {
		return KindSet, game.TotalValue(cards)
	}
	if ok, _, _ := classifyRun(cards); ok {
		return KindRun, game.TotalValue(cards)
	}
	return KindInvalid, 0
}

// isValidSet checks for 3-4 cards of one rank with distinct suits among
// the non-jokers. An all-joker group is never a meld.
func isValidSet(cards []game.Card) bool {
	if len(cards) < 3 || len(cards) > 4 {
		return false
	}

	var rank game.Rank
	allJokers := true
	suits := make(map[game.Suit]bool)

	for _, card := range cards {
		if card.IsJoker() {
			continue
		}
		if allJokers {
			rank = card.Rank
			allJokers = false
		} else if card.Rank != rank {
			return false
		}
		if suits[card.Suit] {
			return false
		}
		suits[card.Suit] = true
	}

	return !allJokers
}

// classifyRun checks for 3+ same-suit cards in consecutive rank order,
// with jokers filling interior gaps. When the group holds both an Ace
// and a King the Ace is retried at the high position (index 13, directly
// after the King); the low-ace and high-ace readings are never mixed.
// Jokers may participate in a wrapped run: the high-ace pass runs the
// same gap arithmetic, so Jack-Joker-Ace closing through the King is
// legal. On success low/high give the effective rank span.
func classifyRun(cards []game.Card) (ok bool, low, high int) {
	if len(cards) < 3 {
		return false, 0, 0
	}

	var regular []game.Card
	for _, card := range cards {
		if !card.IsJoker() {
			regular = append(regular, card)
		}
	}
	if len(regular) == 0 {
		return false, 0, 0
	}

	suit := regular[0].Suit
	for _, card := range regular {
		if card.Suit != suit {
			return false, 0, 0
		}
	}
	jokers := len(cards) - len(regular)

	if ok, low, high = runSpan(rankIndexes(regular, false), jokers); ok {
		return true, low, high
	}

	// Retry with the Ace above the King.
	hasAce, hasKing := false, false
	for _, card := range regular {
		switch card.Rank {
		case game.Ace:
			hasAce = true
		case game.King:
			hasKing = true
		}
	}
	if hasAce && hasKing {
		if ok, low, high = runSpan(rankIndexes(regular, true), jokers); ok {
			return true, low, high
		}
	}

	return false, 0, 0
}

// rankIndexes maps the non-joker cards to sorted run positions, with the
// Ace placed at 13 when aceHigh is set.
func rankIndexes(regular []game.Card, aceHigh bool) []int {
	indexes := make([]int, 0, len(regular))
	for _, card := range regular {
		idx := card.Rank.Index()
		if aceHigh && card.Rank == game.Ace {
			idx = highAceIndex
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}

// runSpan checks that the gaps between consecutive sorted positions can
// be covered by the available jokers. A duplicate position invalidates
// the run. Leftover jokers lengthen the run past its ends, preferring
// the high end, without passing the high Ace or dropping below the low
// Ace.
func runSpan(indexes []int, jokers int) (ok bool, low, high int) {
	needed := 0
	for i := 1; i < len(indexes); i++ {
		gap := indexes[i] - indexes[i-1] - 1
		if gap < 0 {
			return false, 0, 0
		}
		needed += gap
	}
	if needed > jokers {
		return false, 0, 0
	}

	low = indexes[0]
	high = indexes[len(indexes)-1]
	for spare := jokers - needed; spare > 0; spare-- {
		if high < highAceIndex {
			high++
		} else if low > 0 {
			low--
		} else {
			return false, 0, 0
		}
	}

	return true, low, high
}

// buildMeld validates a candidate group and produces the board-ready
// meld, with run cards reordered into their slot positions.
func buildMeld(seat int, cards []game.Card) (Meld, bool) {
	if isValidSet(cards) {
		ordered := append([]game.Card(nil), cards...)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Suit < ordered[j].Suit
		})
		return Meld{
			Seat:   seat,
			Kind:   KindSet,
			Cards:  ordered,
			Points: game.TotalValue(cards),
		}, true
	}

	ok, low, high := classifyRun(cards)
	if !ok {
		return Meld{}, false
	}

	return Meld{
		Seat:   seat,
		Kind:   KindRun,
		Cards:  orderRun(cards, low, high),
		Points: game.TotalValue(cards),
		Low:    low,
		High:   high,
	}, true
}

// orderRun lays the run out from low to high, placing each non-joker at
// its rank slot and jokers in the remaining slots.
func orderRun(cards []game.Card, low, high int) []game.Card {
	slots := make([]*game.Card, high-low+1)
	var jokers []game.Card

	for _, card := range cards {
		if card.IsJoker() {
			jokers = append(jokers, card)
			continue
		}
		idx := card.Rank.Index()
		if card.Rank == game.Ace && idx < low {
			idx = highAceIndex
		}
		c := card
		slots[idx-low] = &c
	}

	ordered := make([]game.Card, 0, len(cards))
	for _, slot := range slots {
		if slot != nil {
			ordered = append(ordered, *slot)
		} else {
			ordered = append(ordered, jokers[0])
			jokers = jokers[1:]
		}
	}
	return ordered
}
