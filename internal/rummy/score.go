package rummy

import "rummy-server/internal/game"

// Deadwood is the point total of the cards left in a hand.
func Deadwood(hand []game.Card) int {
	return game.TotalValue(hand)
}

// endWithWinner closes the match and settles the score vector: each
// loser gives up its deadwood, the winner collects the total. The vector
// sums to zero.
func (m *Match) endWithWinner(winner int) {
	credit := 0
	for i, seat := range m.Seats {
		if i == winner {
			continue
		}
		penalty := Deadwood(seat.Hand)
		seat.Score = -penalty
		credit += penalty
	}
	m.Seats[winner].Score = credit

	m.Winner = winner
	m.GameOver = true
}

// endStalemate closes a match in which nobody can draw. There is no
// winner to credit, so every seat simply loses its own deadwood.
func (m *Match) endStalemate() {
	for _, seat := range m.Seats {
		seat.Score = -Deadwood(seat.Hand)
	}
	m.Winner = NoWinner
	m.GameOver = true
}

// Scores returns the per-seat score vector, meaningful once GameOver is
// set.
func (m *Match) Scores() [4]int {
	var scores [4]int
	for i, seat := range m.Seats {
		scores[i] = seat.Score
	}
	return scores
}
