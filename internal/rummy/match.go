package rummy

import (
	"fmt"
	"math/rand"
	"time"

	"rummy-server/internal/game"
)

type Phase string

const (
	PhaseDraw    Phase = "draw"
	PhaseDiscard Phase = "discard"
)

// NoWinner marks a match that ended in stalemate.
const NoWinner = -1

type Seat struct {
	Name      string      `json:"name"`
	Hand      []game.Card `json:"hand"`
	Opened    bool        `json:"opened"`
	Score     int         `json:"score"`
	Automated bool        `json:"automated"`
}

// Match is the authoritative per-match state. All mutation goes through
// the transition methods in moves.go; callers serialize access per match.
type Match struct {
	Id       string      `json:"id"`
	Seats    [4]*Seat    `json:"seats"`
	Deck     *game.Deck  `json:"deck"`
	Pile     []game.Card `json:"pile"`
	Melds    []Meld      `json:"melds"`
	Turn     int         `json:"turn"`
	Phase    Phase       `json:"phase"`
	GameOver bool        `json:"gameOver"`
	Winner   int         `json:"winner"`

	rng *rand.Rand
}

type MatchOption func(*Match)

// WithRand injects a seeded source for deterministic deals and
// reshuffles in tests.
func WithRand(rng *rand.Rand) MatchOption {
	return func(m *Match) {
		m.rng = rng
	}
}

// WithAutomatedSeats flags the given seats as driven by the decision
// engine instead of a remote client.
func WithAutomatedSeats(seats ...int) MatchOption {
	return func(m *Match) {
		for _, seat := range seats {
			m.Seats[seat].Automated = true
		}
	}
}

// NewMatch shuffles the 108-card pool, deals 14 cards to each seat and
// one to the pile, and starts seat 0 in the draw phase.
func NewMatch(id string, names [4]string, opts ...MatchOption) (*Match, error) {
	m := &Match{
		Id:     id,
		Turn:   0,
		Phase:  PhaseDraw,
		Winner: NoWinner,
	}
	for i, name := range names {
		m.Seats[i] = &Seat{Name: name}
	}
	for _, opt := range opts {
		opt(m)
	}

	pool := game.NewShuffledPool(m.rand())
	hands, pileCard, err := pool.Deal()
	if err != nil {
		return nil, err
	}

	for i := range m.Seats {
		m.Seats[i].Hand = hands[i]
	}
	m.Pile = []game.Card{pileCard}
	m.Deck = pool

	return m, nil
}

// rand returns the match's random source, creating a time-seeded one on
// first use. Matches restored from a snapshot lose their source and get
// a fresh seed here.
func (m *Match) rand() *rand.Rand {
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m.rng
}

// CardCount totals every zone. From deal to game over this must equal
// the 108-card pool: no transition creates or destroys a card.
func (m *Match) CardCount() int {
	count := m.Deck.Count() + len(m.Pile)
	for _, seat := range m.Seats {
		count += len(seat.Hand)
	}
	for _, meld := range m.Melds {
		count += len(meld.Cards)
	}
	return count
}

// assertConservation panics when a transition has corrupted the card
// pool. A broken total is a bug in the engine itself, not bad input.
func (m *Match) assertConservation() {
	if count := m.CardCount(); count != game.PoolSize {
		panic(fmt.Sprintf("rummy: card conservation broken, have %d cards, want %d (match %s)", count, game.PoolSize, m.Id))
	}
}
