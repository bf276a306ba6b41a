package server

import (
	"rummy-server/internal/bot"
)

// scheduleBotTurn arms a timer for the automated seat whose turn it is,
// if any. Caller holds the room lock. The delay makes bot play readable
// for the humans at the table; the clock is mockable so tests advance it
// instantly.
func (s *Server) scheduleBotTurn(room *ActiveMatch) {
	if room.Status != StatusPlaying || room.Match == nil || room.Match.GameOver {
		return
	}

	seat := room.Match.Turn
	if !room.Seats[seat].Automated {
		return
	}

	s.clock.AfterFunc(s.cfg.BotDelay, func() {
		s.playBotTurn(room, seat)
	})
}

// playBotTurn runs one automated turn under the room lock. The state may
// have moved since the timer was armed (pause, game over, reconnect), so
// everything re-checks before acting; a stale timer is a no-op.
func (s *Server) playBotTurn(room *ActiveMatch, seat int) {
	room.Lock()
	defer room.Unlock()

	match := room.Match
	if room.Status != StatusPlaying || match == nil || match.GameOver || match.Turn != seat {
		return
	}

	decider := bot.NewDecider(s.logger)
	agent := bot.NewAgent(seat, decider, s.logger)

	outcome, err := agent.PlayTurn(match)
	if outcome.Stalemate {
		s.finishMatch(room)
		return
	}
	if err != nil {
		s.logger.Error("bot turn failed", "room", room.RoomCode, "seat", seat, "err", err)
		return
	}

	s.broadcastToRoom(room, "draw_event", DrawNotification{
		SeatID:    seat,
		Source:    string(outcome.Source),
		DeckCount: match.Deck.Count(),
		PileCount: len(match.Pile),
	})

	if len(outcome.Melds) > 0 {
		s.broadcastToRoom(room, "meld_event", MeldNotification{
			SeatID: seat,
			Melds:  outcome.Melds,
			Opened: match.Seats[seat].Opened,
		})
	}

	if outcome.Discarded != nil {
		s.broadcastToRoom(room, "discard_event", DiscardNotification{
			SeatID: seat,
			Card:   *outcome.Discarded,
			Turn:   match.Turn,
		})
	}

	if match.GameOver {
		s.finishMatch(room)
		return
	}

	s.broadcastMatchState(room)
	s.scheduleBotTurn(room)
}
