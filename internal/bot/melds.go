package bot

import (
	"sort"

	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

// Candidate is a playable meld found in a hand. Indices point back into
// the hand slice so overlapping candidates can be kept apart; the same
// physical card must never back two melds in one submission.
type Candidate struct {
	Cards   []game.Card
	Indices []int
	Points  int
	Kind    rummy.MeldKind
}

// FindMelds enumerates the valid sets and runs in a hand, including
// joker-assisted and ace-wrapped ones. The search is bounded by rank
// arithmetic, not permutations, so it stays cheap on a 15-card hand.
func FindMelds(hand []game.Card) []Candidate {
	var out []Candidate
	out = append(out, findSets(hand)...)
	out = append(out, findRuns(hand)...)
	return out
}

func findSets(hand []game.Card) []Candidate {
	byRank := make(map[game.Rank][]int)
	var jokers []int
	for i, card := range hand {
		if card.IsJoker() {
			jokers = append(jokers, i)
		} else {
			byRank[card.Rank] = append(byRank[card.Rank], i)
		}
	}

	var out []Candidate
	for _, indices := range byRank {
		for _, size := range []int{4, 3} {
			forEachSubset(indices, size, func(subset []int) {
				out = appendIfValid(out, hand, subset)
			})
		}
		// Jokers stand in for the missing suits.
		for take := 1; take <= len(jokers) && take <= 2; take++ {
			need := 3 - take
			if need < 2 || len(indices) < need {
				continue
			}
			forEachSubset(indices, need, func(subset []int) {
				withJokers := append(append([]int(nil), subset...), jokers[:take]...)
				out = appendIfValid(out, hand, withJokers)
			})
		}
	}
	return out
}

// findRuns walks every rank window per suit, including the high-ace
// slot above the King, slotting jokers into holes.
func findRuns(hand []game.Card) []Candidate {
	bySuit := make(map[game.Suit]bool)
	var jokers []int
	for i, card := range hand {
		if card.IsJoker() {
			jokers = append(jokers, i)
		} else {
			bySuit[card.Suit] = true
		}
	}

	var out []Candidate
	for suit := range bySuit {
		for start := 0; start <= 13; start++ {
			for end := start + 2; end <= 13; end++ {
				indices, ok := collectRun(hand, suit, start, end, jokers)
				if !ok {
					continue
				}
				out = appendIfValid(out, hand, indices)
			}
		}
	}
	return out
}

// collectRun picks one hand index for every slot of the [start,end] rank
// window, spending jokers on holes. Slot 13 is the high Ace.
func collectRun(hand []game.Card, suit game.Suit, start, end int, jokers []int) ([]int, bool) {
	used := make(map[int]bool)
	jokersLeft := len(jokers)
	var indices []int

	for slot := start; slot <= end; slot++ {
		rank := game.Rank(slot % 13) // slot 13 wraps to the Ace
		found := -1
		for i, card := range hand {
			if used[i] || card.IsJoker() {
				continue
			}
			if card.Suit == suit && card.Rank == rank {
				found = i
				break
			}
		}
		if found >= 0 {
			used[found] = true
			indices = append(indices, found)
			continue
		}
		if jokersLeft == 0 {
			return nil, false
		}
		jokersLeft--
		joker := jokers[len(jokers)-jokersLeft-1]
		used[joker] = true
		indices = append(indices, joker)
	}
	return indices, true
}

func appendIfValid(out []Candidate, hand []game.Card, indices []int) []Candidate {
	cards := make([]game.Card, len(indices))
	for i, idx := range indices {
		cards[i] = hand[idx]
	}
	kind, points := rummy.Classify(cards)
	if kind == rummy.KindInvalid {
		return out
	}
	return append(out, Candidate{Cards: cards, Indices: indices, Points: points, Kind: kind})
}

// forEachSubset visits every size-k subset of indices.
func forEachSubset(indices []int, k int, visit func([]int)) {
	if k > len(indices) {
		return
	}
	subset := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			visit(append([]int(nil), subset...))
			return
		}
		for i := start; i <= len(indices)-(k-depth); i++ {
			subset[depth] = indices[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

// overlaps reports whether two candidates claim a common hand index.
func overlaps(a, b Candidate) bool {
	for _, i := range a.Indices {
		for _, j := range b.Indices {
			if i == j {
				return true
			}
		}
	}
	return false
}

// chooseMelds picks the groups to submit. An unopened seat needs a
// single meld worth 71+, or two disjoint melds that add up to it; short
// of that it plays nothing and keeps building. An opened seat lays down
// its best single meld.
func chooseMelds(hand []game.Card, opened bool) [][]game.Card {
	candidates := FindMelds(hand)
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Points > candidates[j].Points
	})

	if opened {
		return [][]game.Card{candidates[0].Cards}
	}

	for _, c := range candidates {
		if c.Points >= rummy.OpeningPoints {
			return [][]game.Card{c.Cards}
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].Points+candidates[j].Points < rummy.OpeningPoints {
				break // sorted, nothing further down can reach the bar
			}
			if !overlaps(candidates[i], candidates[j]) {
				return [][]game.Card{candidates[i].Cards, candidates[j].Cards}
			}
		}
	}
	return nil
}
