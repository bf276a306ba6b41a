package rummy

import "rummy-server/internal/game"

// ClientState is one seat's view of the match: its own hand in full,
// every other seat reduced to a card count. This is the only shape the
// engine hands to the transport, so opponent hands cannot leak.
type ClientState struct {
	SeatIndex int              `json:"seatIndex"`
	Name      string           `json:"name"`
	Hand      []game.Card      `json:"hand"`
	DeckCount int              `json:"deckCount"`
	PileCount int              `json:"pileCount"`
	PileTop   *game.Card       `json:"pileTop"` // nil when the pile is empty
	Melds     []Meld           `json:"melds"`
	Turn      int              `json:"turn"`
	Phase     Phase            `json:"phase"`
	Opened    [4]bool          `json:"opened"`
	MyTurn    bool             `json:"myTurn"`
	Opponents []OtherSeatState `json:"opponents"`
	GameOver  bool             `json:"gameOver"`
	Winner    int              `json:"winner"`
	Scores    [4]int           `json:"scores"`
}

type OtherSeatState struct {
	SeatIndex int    `json:"seatIndex"`
	Name      string `json:"name"`
	HandSize  int    `json:"handSize"`
	Opened    bool   `json:"opened"`
	Automated bool   `json:"automated"`
}

func (m *Match) ClientState(seat int) *ClientState {
	me := m.Seats[seat]

	var opened [4]bool
	opponents := []OtherSeatState{}
	for i, s := range m.Seats {
		opened[i] = s.Opened
		if i != seat {
			opponents = append(opponents, OtherSeatState{
				SeatIndex: i,
				Name:      s.Name,
				HandSize:  len(s.Hand),
				Opened:    s.Opened,
				Automated: s.Automated,
			})
		}
	}

	var pileTop *game.Card
	if len(m.Pile) > 0 {
		card := m.Pile[len(m.Pile)-1]
		pileTop = &card
	}

	return &ClientState{
		SeatIndex: seat,
		Name:      me.Name,
		Hand:      append([]game.Card(nil), me.Hand...),
		DeckCount: m.Deck.Count(),
		PileCount: len(m.Pile),
		PileTop:   pileTop,
		Melds:     m.Melds,
		Turn:      m.Turn,
		Phase:     m.Phase,
		Opened:    opened,
		MyTurn:    m.Turn == seat,
		Opponents: opponents,
		GameOver:  m.GameOver,
		Winner:    m.Winner,
		Scores:    m.Scores(),
	}
}
