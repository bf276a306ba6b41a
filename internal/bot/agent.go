package bot

import (
	"errors"

	"github.com/charmbracelet/log"

	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

// TurnOutcome records what an automated seat did with its turn, in the
// shape the broadcaster needs.
type TurnOutcome struct {
	Seat      int
	Source    rummy.DrawSource
	Drawn     game.Card
	Melds     []rummy.Meld
	Discarded *game.Card
	Stalemate bool
}

// Agent plays one automated seat. It only ever calls the same match
// transitions a remote client would; it holds no private channel into
// the engine.
type Agent struct {
	Seat    int
	Decider *Decider

	logger *log.Logger
}

func NewAgent(seat int, decider *Decider, logger *log.Logger) *Agent {
	return &Agent{
		Seat:    seat,
		Decider: decider,
		logger:  logger.WithPrefix("agent").With("seat", seat),
	}
}

// PlayTurn runs a full draw-meld-discard turn. The caller must hold the
// match's serialization; a terminal match is a silent no-op so a
// decision landing after game over cannot disturb anything.
func (a *Agent) PlayTurn(m *rummy.Match) (TurnOutcome, error) {
	outcome := TurnOutcome{Seat: a.Seat}

	if m.GameOver || m.Turn != a.Seat {
		return outcome, nil
	}

	hand := m.Seats[a.Seat].Hand
	opened := m.Seats[a.Seat].Opened

	var pileTop *game.Card
	if len(m.Pile) > 0 {
		top := m.Pile[len(m.Pile)-1]
		pileTop = &top
	}

	outcome.Source = a.Decider.ChooseDrawSource(hand, pileTop, m.Deck.Count(), opened)
	drawn, err := m.Draw(a.Seat, outcome.Source)
	if errors.Is(err, rummy.ErrPileEmpty) {
		// Heuristic picked a dry pile; the deck is the legal fallback.
		outcome.Source = rummy.DrawDeck
		drawn, err = m.Draw(a.Seat, rummy.DrawDeck)
	}
	if errors.Is(err, game.ErrExhausted) {
		outcome.Stalemate = true
		return outcome, err
	}
	if err != nil {
		return outcome, err
	}
	outcome.Drawn = drawn

	if groups := a.Decider.ChooseMelds(m.Seats[a.Seat].Hand, m.Seats[a.Seat].Opened); len(groups) > 0 {
		placed, err := m.Meld(a.Seat, groups)
		if err != nil {
			// The search and the engine disagree on legality; log it and
			// play on without melding rather than stall the seat.
			a.logger.Warn("meld submission rejected", "err", err)
		} else {
			outcome.Melds = placed
			if m.GameOver {
				return outcome, nil
			}
		}
	}

	card, ok := a.Decider.ChooseDiscard(m.Seats[a.Seat].Hand)
	if !ok {
		return outcome, nil
	}
	if err := m.Discard(a.Seat, card); err != nil {
		card, _ = fallbackDiscard(m.Seats[a.Seat].Hand)
		if err := m.Discard(a.Seat, card); err != nil {
			return outcome, err
		}
	}
	outcome.Discarded = &card

	return outcome, nil
}
