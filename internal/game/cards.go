package game

import "fmt"

type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
	Jokers
)

var suitString = map[Suit]string{
	Spades:   "Spades",
	Hearts:   "Hearts",
	Diamonds: "Diamonds",
	Clubs:    "Clubs",
	Jokers:   "Jokers",
}

func (s Suit) String() string {
	return suitString[s]
}

type Rank int

const (
	Ace Rank = iota
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Joker
)

var rankString = map[Rank]string{
	Ace:   "Ace",
	Two:   "Two",
	Three: "Three",
	Four:  "Four",
	Five:  "Five",
	Six:   "Six",
	Seven: "Seven",
	Eight: "Eight",
	Nine:  "Nine",
	Ten:   "Ten",
	Jack:  "Jack",
	Queen: "Queen",
	King:  "King",
	Joker: "Joker",
}

var pointValues = map[Rank]int{
	Ace:   1,
	Two:   2,
	Three: 3,
	Four:  4,
	Five:  5,
	Six:   6,
	Seven: 7,
	Eight: 8,
	Nine:  9,
	Ten:   10,
	Jack:  10,
	Queen: 10,
	King:  10,
	Joker: 25,
}

func (r Rank) String() string {
	return rankString[r]
}

// Index is the position of the rank in a low-ace run, Ace=0 through King=12.
func (r Rank) Index() int {
	return int(r)
}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (card Card) Value() int {
	return pointValues[card.Rank]
}

func (card Card) String() string {
	if card.Rank == Joker {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", card.Rank.String(), card.Suit.String())
}

func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

func JokerCount(cards []Card) (count int) {
	for _, card := range cards {
		if card.IsJoker() {
			count++
		}
	}
	return
}

// TotalValue sums the point values of a group of cards.
func TotalValue(cards []Card) (sum int) {
	for _, card := range cards {
		sum += card.Value()
	}
	return
}

// RemoveFirst deletes one instance of card from cards. With two decks in
// play a hand can hold two equal cards, so removal always consumes a
// single matching instance rather than every match.
func RemoveFirst(cards []Card, card Card) ([]Card, bool) {
	for i, c := range cards {
		if c == card {
			return append(cards[:i:i], cards[i+1:]...), true
		}
	}
	return cards, false
}

// Contains reports whether at least one instance of card is present.
func Contains(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}
