package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rummy-server/internal/rummy"
)

// newBareServer builds a server with in-memory managers and no database,
// enough for state building and bot scheduling.
func newBareServer(clock quartz.Clock) *Server {
	return &Server{
		cfg: Config{
			BotDelay:   time.Second,
			RateLimit:  10,
			RateWindow: time.Second,
		},
		logger:            log.New(io.Discard),
		clock:             clock,
		connectionManager: NewConnectionManager(),
		matchManager:      NewMatchManager(),
		sessionManager:    NewSessionManager(),
		rateLimiter:       NewRateLimiter(10, time.Second),
	}
}

func TestBuildLobbyStateIsPersonalized(t *testing.T) {
	s := newBareServer(quartz.NewReal())
	room, creatorToken, err := s.matchManager.CreateMatch("Alice", false)
	require.NoError(t, err)
	_, bobToken, _, err := s.matchManager.JoinMatch(room.RoomCode, "Bob")
	require.NoError(t, err)

	forAlice := s.buildLobbyState(room, creatorToken)
	assert.True(t, forAlice.Seats[0].IsYou)
	assert.False(t, forAlice.Seats[1].IsYou)

	forBob := s.buildLobbyState(room, bobToken)
	assert.False(t, forBob.Seats[0].IsYou)
	assert.True(t, forBob.Seats[1].IsYou)

	assert.Equal(t, 2, forBob.PlayerCount)
	assert.False(t, forBob.AllReady)
	assert.Equal(t, string(StatusLobby), forBob.Status)
}

func TestBuildMatchStateMessage(t *testing.T) {
	s := newBareServer(quartz.NewReal())
	room, token, err := s.matchManager.CreateMatch("Alice", true)
	require.NoError(t, err)

	// Before the deal there is no engine state to show.
	msg := s.buildMatchStateMessage(room, 0)
	assert.Nil(t, msg.State)
	assert.Equal(t, string(StatusLobby), msg.Status)

	_, _, err = s.matchManager.SetReady(room.RoomCode, token, true)
	require.NoError(t, err)
	room.Lock()
	require.NoError(t, s.matchManager.StartMatch(room))
	msg = s.buildMatchStateMessage(room, 0)
	room.Unlock()

	require.NotNil(t, msg.State)
	assert.Equal(t, 0, msg.State.SeatIndex)
	assert.Len(t, msg.State.Hand, 14)
	require.Len(t, msg.State.Opponents, 3)
	for _, opp := range msg.State.Opponents {
		assert.Equal(t, 14, opp.HandSize, "opponents appear as counts only")
		assert.True(t, opp.Automated)
	}
}

func TestScheduledBotTurnsPlayThroughCpuSeats(t *testing.T) {
	clock := quartz.NewMock(t)
	s := newBareServer(clock)

	room, token, err := s.matchManager.CreateMatch("Alice", true)
	require.NoError(t, err)
	_, _, err = s.matchManager.SetReady(room.RoomCode, token, true)
	require.NoError(t, err)

	room.Lock()
	require.NoError(t, s.matchManager.StartMatch(room))

	// Play the human turn so the next seat up is a bot. Seat order is
	// anticlockwise, so seat 3 follows seat 0.
	match := room.Match
	_, err = match.Draw(0, rummy.DrawDeck)
	require.NoError(t, err)
	discard := match.Seats[0].Hand[len(match.Seats[0].Hand)-1]
	require.NoError(t, match.Discard(0, discard))
	require.Equal(t, 3, match.Turn)

	s.scheduleBotTurn(room)
	room.Unlock()

	ctx := context.Background()
	for _, wantTurn := range []int{2, 1, 0} {
		clock.Advance(s.cfg.BotDelay).MustWait(ctx)

		room.Lock()
		assert.Equal(t, wantTurn, match.Turn, "bot seat should have played and passed the turn")
		assert.Equal(t, 108, match.CardCount())
		room.Unlock()
	}
}

func TestScheduleBotTurnIgnoresHumanSeats(t *testing.T) {
	clock := quartz.NewMock(t)
	s := newBareServer(clock)

	room, token, err := s.matchManager.CreateMatch("Alice", true)
	require.NoError(t, err)
	_, _, err = s.matchManager.SetReady(room.RoomCode, token, true)
	require.NoError(t, err)

	room.Lock()
	require.NoError(t, s.matchManager.StartMatch(room))
	match := room.Match
	s.scheduleBotTurn(room) // seat 0 is human, nothing should be armed
	room.Unlock()

	clock.Advance(s.cfg.BotDelay).MustWait(context.Background())

	room.Lock()
	assert.Equal(t, 0, match.Turn, "no bot should act while it is a human's turn")
	assert.Equal(t, 14, len(match.Seats[0].Hand))
	room.Unlock()
}
