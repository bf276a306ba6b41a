package bot

import (
	"rummy-server/internal/game"
)

// Usefulness weights. A card is worth keeping when it pairs into sets or
// chains into runs with the rest of the hand; its own point value counts
// against it because deadwood is expensive.
const (
	ScoreSameRank     = 15.0 // per same-rank card, a set in the making
	ScoreAdjacentRank = 20.0 // per same-suit neighbor one rank away
	ScoreGapRank      = 10.0 // per same-suit card two ranks away, a joker can bridge
	ValuePenalty      = 0.5  // fraction of the card's own point value

	// Pile thresholds: an opened seat takes the pile card more readily
	// since it no longer needs to bank 71 points.
	PileThresholdOpened   = 15.0
	PileThresholdUnopened = 25.0

	// Margin by which the sampled quality of the pile hand must beat the
	// deck hand before the pile wins on simulation alone.
	PileQualityMargin = 0.1

	// Deck draws keep their option value, a pile draw is information
	// given away. Discount mirrors that.
	DeckQualityDiscount = 0.9

	// A joker is never thrown while any other card can be.
	jokerDiscardScore = -1000.0
)

// Usefulness scores how much a card contributes to the rest of the hand.
func Usefulness(card game.Card, hand []game.Card) float64 {
	score := 0.0

	for _, c := range hand {
		if c == card || c.IsJoker() {
			continue
		}
		if c.Rank == card.Rank && c.Suit != card.Suit {
			score += ScoreSameRank
		}
		if c.Suit == card.Suit && c.Rank != card.Rank {
			diff := c.Rank.Index() - card.Rank.Index()
			if diff < 0 {
				diff = -diff
			}
			switch diff {
			case 1:
				score += ScoreAdjacentRank
			case 2:
				score += ScoreGapRank
			}
		}
	}

	return score - float64(card.Value())*ValuePenalty
}

// discardScore ranks a card for discarding; higher means better to shed.
// Expensive cards that help nothing in the remaining hand score highest,
// and a weak remaining hand (low sampled quality) pushes the score up
// further. Jokers are pinned to the floor.
func (d *Decider) discardScore(card game.Card, rest []game.Card) float64 {
	if card.IsJoker() {
		return jokerDiscardScore
	}
	quality := d.handQuality(rest)
	return float64(card.Value())*2 - Usefulness(card, rest) + (1-quality)*50
}
