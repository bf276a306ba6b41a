package bot_test

import (
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rummy-server/internal/bot"
	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

func newMatch(t *testing.T, seed int64) *rummy.Match {
	t.Helper()
	m, err := rummy.NewMatch(
		"bot-match",
		[4]string{"CPU0", "CPU1", "CPU2", "CPU3"},
		rummy.WithRand(rand.New(rand.NewSource(seed))),
		rummy.WithAutomatedSeats(0, 1, 2, 3),
	)
	require.NoError(t, err)
	return m
}

func TestAgentIgnoresWrongTurn(t *testing.T) {
	m := newMatch(t, 1)
	agent := bot.NewAgent(2, newDecider(t, 1), log.New(io.Discard))

	before := m.CardCount()
	outcome, err := agent.PlayTurn(m)

	require.NoError(t, err)
	assert.Nil(t, outcome.Discarded)
	assert.Equal(t, 0, m.Turn, "an out-of-turn agent must not move the match")
	assert.Equal(t, before, m.CardCount())
}

func TestAgentIgnoresFinishedMatch(t *testing.T) {
	m := newMatch(t, 1)
	m.GameOver = true

	agent := bot.NewAgent(0, newDecider(t, 1), log.New(io.Discard))
	outcome, err := agent.PlayTurn(m)

	require.NoError(t, err)
	assert.Nil(t, outcome.Discarded)
	assert.Empty(t, outcome.Melds)
}

func TestAgentPlaysLegalTurns(t *testing.T) {
	m := newMatch(t, 42)
	logger := log.New(io.Discard)

	agents := [4]*bot.Agent{}
	for seat := range agents {
		agents[seat] = bot.NewAgent(seat, newDecider(t, int64(seat)), logger)
	}

	for turn := 0; turn < 400 && !m.GameOver; turn++ {
		seat := m.Turn
		outcome, err := agents[seat].PlayTurn(m)
		if outcome.Stalemate {
			break
		}
		require.NoError(t, err, "turn %d seat %d", turn, seat)

		require.Equal(t, game.PoolSize, m.CardCount(), "turn %d broke card conservation", turn)
		if !m.GameOver {
			require.Equal(t, rummy.PhaseDraw, m.Phase, "turn %d left the match mid-turn", turn)
			require.NotEqual(t, seat, m.Turn, "turn %d did not pass the turn on", turn)
		}
	}

	if m.GameOver {
		total := 0
		for _, score := range m.Scores() {
			total += score
		}
		if m.Winner == rummy.NoWinner {
			assert.LessOrEqual(t, total, 0, "stalemate scores are all penalties")
		} else {
			assert.Equal(t, 0, total, "a won match settles zero-sum")
		}
	}
}
