package server

import (
	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE MATCH (create_match)
// ============================================================================
type CreateMatchRequest struct {
	Username string `json:"username"`
	VsCpu    bool   `json:"vsCpu"`
}

type CreateMatchResponse struct {
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
	SeatID   int    `json:"seatId"`
}

// ============================================================================
// JOIN MATCH (join_match)
// ============================================================================
type JoinMatchRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type JoinMatchResponse struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
	SeatID   int    `json:"seatId"`
	Message  string `json:"message,omitempty"`
}

// ============================================================================
// RECONNECT (reconnect)
// ============================================================================
type ReconnectRequest struct {
	Token string `json:"token"`
}

type ReconnectResponse struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode"`
	SeatID   int    `json:"seatId"`
	Message  string `json:"message,omitempty"`
}

// ============================================================================
// SET READY (set_ready)
// ============================================================================
type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// ============================================================================
// LEAVE MATCH (leave_match)
// ============================================================================
type LeaveMatchRequest struct {
	// No fields, the token identifies the seat.
}

// ============================================================================
// EXECUTE MOVE (execute_move)
// ============================================================================
type MoveRequest struct {
	Type      string        `json:"type"`
	Card      *game.Card    `json:"card,omitempty"`      // discard, extend_meld
	Groups    [][]game.Card `json:"groups,omitempty"`    // meld
	MeldIndex int           `json:"meldIndex,omitempty"` // extend_meld
}

type MoveResultResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Drawn   *game.Card `json:"drawn,omitempty"` // only ever sent to the drawer
}

// ============================================================================
// LOBBY STATE (lobby_update broadcast)
// ============================================================================
type LobbyState struct {
	RoomCode    string         `json:"roomCode"`
	Seats       [4]LobbySeat   `json:"seats"`
	PlayerCount int            `json:"playerCount"`
	Status      string         `json:"status"`
	AllReady    bool           `json:"allReady"`
}

type LobbySeat struct {
	Username  string `json:"username"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	Automated bool   `json:"automated"`
	IsYou     bool   `json:"isYou"` // personalized per client
}

// ============================================================================
// MATCH LIFECYCLE BROADCASTS
// ============================================================================
type MatchStartedNotification struct {
	Message string `json:"message"`
}

type PlayerStatusNotification struct {
	SeatID    int    `json:"seatId"`
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

type MatchPausedNotification struct {
	Message string `json:"message"`
}

// ============================================================================
// TURN EVENTS (broadcast after each successful move)
// ============================================================================

// DrawNotification goes to everyone. The drawn card itself only travels
// in the drawer's MoveResultResponse; other seats learn the source and
// the new counts.
type DrawNotification struct {
	SeatID    int    `json:"seatId"`
	Source    string `json:"source"`
	DeckCount int    `json:"deckCount"`
	PileCount int    `json:"pileCount"`
}

type MeldNotification struct {
	SeatID int          `json:"seatId"`
	Melds  []rummy.Meld `json:"melds"`
	Opened bool         `json:"opened"`
}

type ExtendNotification struct {
	SeatID    int        `json:"seatId"`
	MeldIndex int        `json:"meldIndex"`
	Card      game.Card  `json:"card"`
	Meld      rummy.Meld `json:"meld"`
}

type DiscardNotification struct {
	SeatID int       `json:"seatId"`
	Card   game.Card `json:"card"`
	Turn   int       `json:"turn"`
}

// ============================================================================
// GAME OVER (game_over broadcast)
// ============================================================================
type GameOverNotification struct {
	Winner     int            `json:"winner"` // -1 on stalemate
	Scores     [4]int         `json:"scores"`
	FinalHands [4][]game.Card `json:"finalHands"`
	Stalemate  bool           `json:"stalemate"`
}

// ============================================================================
// MATCH STATE (match_state, personalized per seat)
// ============================================================================
type MatchStateMessage struct {
	State  *rummy.ClientState `json:"state,omitempty"`
	Status string             `json:"status"`
}
