package rummy

import (
	"errors"
	"fmt"

	"rummy-server/internal/game"
)

type DrawSource string

const (
	DrawDeck DrawSource = "deck"
	DrawPile DrawSource = "pile"
)

// OpeningPoints is the minimum total a seat's first meld call must reach
// before any of its melds count.
const OpeningPoints = 71

var (
	ErrMatchOver     = errors.New("MATCH_OVER: match has ended")
	ErrNotYourTurn   = errors.New("NOT_YOUR_TURN: another seat is acting")
	ErrWrongPhase    = errors.New("WRONG_PHASE: command not legal in this phase")
	ErrPileEmpty     = errors.New("PILE_EMPTY: no card to take from the pile")
	ErrCardNotInHand = errors.New("CARD_NOT_IN_HAND: seat does not hold that card")
	ErrInvalidMeld   = errors.New("INVALID_MELD: cards do not form a set or run")
	ErrNoMeld        = errors.New("NO_SUCH_MELD: meld index out of range")
	ErrCardNoFit     = errors.New("CARD_NO_FIT: card does not extend that meld")
)

/*
 * Draw Phase
 */

// Draw takes the top card of the chosen source into the seat's hand and
// moves the turn to the discard phase. Drawing from an empty deck first
// reshuffles the pile under its top card; if that leaves nothing to draw
// the match ends in a stalemate and game.ErrExhausted is returned.
func (m *Match) Draw(seat int, source DrawSource) (game.Card, error) {
	if err := m.gate(seat, PhaseDraw); err != nil {
		return game.Card{}, err
	}

	var card game.Card
	switch source {
	case DrawPile:
		if len(m.Pile) == 0 {
			return game.Card{}, ErrPileEmpty
		}
		card = m.Pile[len(m.Pile)-1]
		m.Pile = m.Pile[:len(m.Pile)-1]

	case DrawDeck:
		if m.Deck.Count() == 0 {
			deck, pile, err := game.Reshuffle(m.Pile, m.rand())
			if err != nil {
				// Deck and pile both dry. Nobody can move again, so the
				// round ends with every seat keeping its own deadwood.
				m.endStalemate()
				return game.Card{}, err
			}
			m.Deck = deck
			m.Pile = pile
		}
		card = m.Deck.Draw(1)[0]

	default:
		return game.Card{}, fmt.Errorf("UNKNOWN_SOURCE: cannot draw from %q", source)
	}

	m.Seats[seat].Hand = append(m.Seats[seat].Hand, card)
	m.Phase = PhaseDiscard
	m.assertConservation()
	return card, nil
}

/*
 * Discard Phase
 */

// Meld plays one or more card groups from the seat's hand onto the
// board. The call is atomic: every group must be fully present in the
// hand (a single physical card cannot back two groups) and classify as
// a set or run, and an unopened seat must reach the opening bar with the
// groups of this one call, otherwise nothing is committed. An empty hand
// after a successful meld wins the match on the spot.
func (m *Match) Meld(seat int, groups [][]game.Card) ([]Meld, error) {
	if err := m.gate(seat, PhaseDiscard); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrInvalidMeld
	}

	// Stage removals against a scratch copy so a late failure commits
	// nothing.
	remaining := append([]game.Card(nil), m.Seats[seat].Hand...)
	placed := make([]Meld, 0, len(groups))
	total := 0

	for _, group := range groups {
		for _, card := range group {
			var ok bool
			if remaining, ok = game.RemoveFirst(remaining, card); !ok {
				return nil, ErrCardNotInHand
			}
		}

		meld, ok := buildMeld(seat, group)
		if !ok {
			return nil, ErrInvalidMeld
		}
		placed = append(placed, meld)
		total += meld.Points
	}

	if !m.Seats[seat].Opened && total < OpeningPoints {
		return nil, fmt.Errorf("OPENING_POINTS: need %d points to open, melds total %d", OpeningPoints, total)
	}

	m.Seats[seat].Hand = remaining
	m.Melds = append(m.Melds, placed...)
	m.Seats[seat].Opened = true
	m.assertConservation()

	if len(remaining) == 0 {
		m.endWithWinner(seat)
	}
	return placed, nil
}

// ExtendMeld adds a single card from the seat's hand to a placed board
// meld: the fourth card of a set, or an adjacent rank on either end of a
// run. A seat that has not opened cannot extend, since one card can
// never reach the opening bar.
func (m *Match) ExtendMeld(seat int, meldIndex int, card game.Card) (Meld, error) {
	if err := m.gate(seat, PhaseDiscard); err != nil {
		return Meld{}, err
	}
	if meldIndex < 0 || meldIndex >= len(m.Melds) {
		return Meld{}, ErrNoMeld
	}
	if !game.Contains(m.Seats[seat].Hand, card) {
		return Meld{}, ErrCardNotInHand
	}
	if !m.Seats[seat].Opened {
		return Meld{}, fmt.Errorf("OPENING_POINTS: need %d points to open before extending", OpeningPoints)
	}

	meld := m.Melds[meldIndex]
	extended, ok := extend(meld, card)
	if !ok {
		return Meld{}, ErrCardNoFit
	}

	m.Seats[seat].Hand, _ = game.RemoveFirst(m.Seats[seat].Hand, card)
	m.Melds[meldIndex] = extended
	m.assertConservation()

	if len(m.Seats[seat].Hand) == 0 {
		m.endWithWinner(seat)
	}
	return extended, nil
}

// runSuit is the suit of a placed run, taken from its first non-joker
// card. A run always holds at least one.
func runSuit(meld Meld) game.Suit {
	for _, c := range meld.Cards {
		if !c.IsJoker() {
			return c.Suit
		}
	}
	return game.Jokers
}

// extend tries to grow a placed meld with one card.
func extend(meld Meld, card game.Card) (Meld, bool) {
	switch meld.Kind {
	case KindSet:
		if len(meld.Cards) >= 4 {
			return Meld{}, false
		}
		probe := append(append([]game.Card(nil), meld.Cards...), card)
		if !isValidSet(probe) {
			return Meld{}, false
		}
		updated, _ := buildMeld(meld.Seat, probe)
		return updated, true

	case KindRun:
		if card.IsJoker() || card.Suit != runSuit(meld) {
			return Meld{}, false
		}
		idx := card.Rank.Index()
		if card.Rank == game.Ace && meld.High == highAceIndex-1 {
			idx = highAceIndex
		}
		updated := meld
		switch idx {
		case meld.Low - 1:
			updated.Cards = append([]game.Card{card}, meld.Cards...)
			updated.Low = idx
		case meld.High + 1:
			updated.Cards = append(append([]game.Card(nil), meld.Cards...), card)
			updated.High = idx
		default:
			return Meld{}, false
		}
		updated.Points = meld.Points + card.Value()
		return updated, true
	}
	return Meld{}, false
}

// Discard moves a card from the seat's hand to the pile top and passes
// the turn one seat anticlockwise. Emptying the hand wins instead.
func (m *Match) Discard(seat int, card game.Card) error {
	if err := m.gate(seat, PhaseDiscard); err != nil {
		return err
	}

	hand, ok := game.RemoveFirst(m.Seats[seat].Hand, card)
	if !ok {
		return ErrCardNotInHand
	}

	m.Seats[seat].Hand = hand
	m.Pile = append(m.Pile, card)
	m.assertConservation()

	if len(hand) == 0 {
		m.endWithWinner(seat)
		return nil
	}

	m.Phase = PhaseDraw
	m.Turn = (m.Turn + 3) % 4 // anticlockwise
	return nil
}

// gate is the shared legality check: the match must be live, and the
// command must come from the seat whose turn it is, in the right phase.
func (m *Match) gate(seat int, phase Phase) error {
	if m.GameOver {
		return ErrMatchOver
	}
	if seat != m.Turn {
		return ErrNotYourTurn
	}
	if m.Phase != phase {
		return ErrWrongPhase
	}
	return nil
}
