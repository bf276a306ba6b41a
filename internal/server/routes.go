package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"rummy-server/internal/game"
	"rummy-server/internal/rummy"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "up"}
	if err := s.db.PingContext(r.Context()); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to write health response", "err", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	s.logger.Info("new connection", "conn", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	defer s.closeConnection(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			s.logger.Debug("connection read error", "conn", connectionID, "err", err)
			return
		}

		if msgType != websocket.MessageText {
			s.logger.Debug("non-text input", "conn", connectionID)
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMITED: Too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(socket, ctx, err.Error())
			continue
		}

		s.logger.Debug("message received", "type", msg.Type, "conn", connectionID)

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID)
		case "create_match":
			s.handleCreateMatch(socket, ctx, connectionID, msg.Payload)
		case "join_match":
			s.handleJoinMatch(socket, ctx, connectionID, msg.Payload)
		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)
		case "set_ready":
			s.handleSetReady(socket, ctx, connectionID, msg.Payload)
		case "leave_match":
			s.handleLeaveMatch(socket, ctx, connectionID)
		case "execute_move":
			s.handleExecuteMove(socket, ctx, connectionID, msg.Payload)
		}
	}
}

// closeConnection tears down connection state and pauses the player's
// match if one is running.
func (s *Server) closeConnection(connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)

	s.connectionManager.RemoveConnection(connectionID)
	s.rateLimiter.RemoveConnection(connectionID)
	s.logger.Info("connection closed", "conn", connectionID)

	if token == "" {
		return
	}

	paused, room, seatID, err := s.matchManager.MarkPlayerDisconnected(token)
	if err != nil {
		// Player may have left via leave_match before the socket closed.
		if err.Error() != "TOKEN_NOT_FOUND: Invalid session token" {
			s.logger.Error("failed to mark player disconnected", "err", err)
		}
		return
	}

	room.Lock()
	username := room.Seats[seatID].Username
	s.logger.Info("player disconnected", "seat", seatID, "username", username, "room", room.RoomCode)

	s.broadcastToRoom(room, "player_disconnected", PlayerStatusNotification{
		SeatID:    seatID,
		Username:  username,
		Connected: false,
	})

	if paused {
		s.broadcastToRoom(room, "match_paused", MatchPausedNotification{
			Message: fmt.Sprintf("%s disconnected. Match paused.", username),
		})
	}
	room.Unlock()
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("failed to send pong", "conn", connectionID, "err", err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Debug("failed to send error message", "err", err)
	}
}

// broadcastToRoom sends the same payload to every connected human seat.
func (s *Server) broadcastToRoom(room *ActiveMatch, messageType string, payload interface{}) {
	for _, slot := range room.Seats {
		if slot.Token == "" {
			continue
		}

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    messageType,
			Payload: payload,
		}
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			s.logger.Debug("broadcast failed", "username", slot.Username, "err", err)
		}
	}
}

func (s *Server) handleCreateMatch(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateMatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_match payload")
		return
	}

	room, token, err := s.matchManager.CreateMatch(req.Username, req.VsCpu)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{
		Token:    token,
		RoomCode: room.RoomCode,
		SeatID:   0,
		Username: req.Username,
	}
	s.sessionManager.StoreSession(session)
	s.connectionManager.BindToken(connectionID, token)
	s.persistRoom(room, session)

	response := ServerMessage{
		Type: "match_created",
		Payload: CreateMatchResponse{
			RoomCode: room.RoomCode,
			Token:    token,
			SeatID:   0,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Error("failed to send match_created", "err", err)
		return
	}

	room.Lock()
	s.broadcastLobbyUpdate(room)
	room.Unlock()
}

func (s *Server) handleJoinMatch(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinMatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_match payload")
		return
	}

	room, token, slotID, err := s.matchManager.JoinMatch(req.RoomCode, req.Username)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	session := SessionInfo{
		Token:    token,
		RoomCode: room.RoomCode,
		SeatID:   slotID,
		Username: req.Username,
	}
	s.sessionManager.StoreSession(session)
	s.connectionManager.BindToken(connectionID, token)
	s.persistRoom(room, session)

	response := ServerMessage{
		Type: "match_joined",
		Payload: JoinMatchResponse{
			Success:  true,
			RoomCode: room.RoomCode,
			Token:    token,
			SeatID:   slotID,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Error("failed to send match_joined", "err", err)
		return
	}

	room.Lock()
	s.broadcastLobbyUpdate(room)
	room.Unlock()
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reconnect payload")
		return
	}

	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Displace any previous connection holding this token.
	oldConnectionID := s.connectionManager.BindToken(connectionID, req.Token)
	if oldConnectionID != "" {
		if oldConn := s.connectionManager.GetConnection(oldConnectionID); oldConn != nil {
			s.sendMessage(oldConn, context.Background(), ServerMessage{
				Type: "disconnected_elsewhere",
				Payload: struct {
					Message string `json:"message"`
				}{
					Message: "You connected on another device",
				},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
	}

	room, err := s.matchManager.ReconnectPlayer(req.Token, session.RoomCode, session.SeatID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	response := ServerMessage{
		Type: "reconnected",
		Payload: ReconnectResponse{
			Success:  true,
			RoomCode: session.RoomCode,
			SeatID:   session.SeatID,
			Message:  "Successfully reconnected",
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		s.logger.Error("failed to send reconnected response", "err", err)
	}

	room.Lock()
	defer room.Unlock()

	s.broadcastToRoom(room, "player_reconnected", PlayerStatusNotification{
		SeatID:    session.SeatID,
		Username:  session.Username,
		Connected: true,
	})

	if room.Status == StatusPlaying {
		s.broadcastToRoom(room, "match_resumed", struct {
			Message string `json:"message"`
		}{
			Message: "Match resumed!",
		})
		// A bot may have been waiting out the pause.
		s.scheduleBotTurn(room)
	}

	switch room.Status {
	case StatusPlaying, StatusPaused, StatusCompleted:
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "match_state",
			Payload: s.buildMatchStateMessage(room, session.SeatID),
		})
	case StatusLobby:
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "lobby_update",
			Payload: s.buildLobbyState(room, req.Token),
		})
	}
}

func (s *Server) handleSetReady(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SetReadyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid set_ready payload")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_MATCH: No active session")
		return
	}

	room, _, err := s.matchManager.GetMatchByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	room, allReady, err := s.matchManager.SetReady(room.RoomCode, token, req.Ready)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	room.Lock()
	defer room.Unlock()

	s.broadcastLobbyUpdate(room)

	if !allReady {
		return
	}

	if err := s.matchManager.StartMatch(room); err != nil {
		s.logger.Error("failed to start match", "room", room.RoomCode, "err", err)
		return
	}

	s.logger.Info("match started", "room", room.RoomCode, "vsCpu", room.VsCpu)

	s.broadcastToRoom(room, "match_started", MatchStartedNotification{
		Message: "Match is starting! Cards are dealt.",
	})
	s.broadcastMatchState(room)
	s.scheduleBotTurn(room)
}

func (s *Server) handleLeaveMatch(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_MATCH: No active session")
		return
	}

	room, _, err := s.matchManager.GetMatchByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	room, err = s.matchManager.LeaveMatch(room.RoomCode, token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.RemoveSession(token)

	room.Lock()
	s.broadcastLobbyUpdate(room)
	room.Unlock()
}

// handleExecuteMove runs one engine transition for a human seat. All
// engine errors come back as a failed move_result; the match state only
// broadcasts after a successful transition.
func (s *Server) handleExecuteMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid move request")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_MATCH: No active session")
		return
	}

	room, seatID, err := s.matchManager.GetMatchByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	room.Lock()
	defer room.Unlock()

	switch room.Status {
	case StatusLobby:
		s.sendError(socket, ctx, "MATCH_NOT_STARTED: Match hasn't started yet")
		return
	case StatusPaused:
		s.sendError(socket, ctx, "MATCH_PAUSED: Match is paused due to disconnection")
		return
	case StatusCompleted:
		s.sendError(socket, ctx, "MATCH_COMPLETED: Match has ended")
		return
	}

	match := room.Match
	result := MoveResultResponse{Success: true}

	switch rummy.MoveType(req.Type) {
	case rummy.MoveDrawFromDeck, rummy.MoveDrawFromPile:
		source := rummy.DrawDeck
		if rummy.MoveType(req.Type) == rummy.MoveDrawFromPile {
			source = rummy.DrawPile
		}

		card, err := match.Draw(seatID, source)
		if errors.Is(err, game.ErrExhausted) {
			// Stalemate: the match just ended with no winner.
			s.finishMatch(room)
			s.sendMessage(socket, ctx, ServerMessage{
				Type:    "move_result",
				Payload: MoveResultResponse{Success: false, Message: err.Error()},
			})
			return
		}
		if err != nil {
			s.sendMoveFailure(socket, ctx, err)
			return
		}

		result.Drawn = &card
		s.broadcastToRoom(room, "draw_event", DrawNotification{
			SeatID:    seatID,
			Source:    string(source),
			DeckCount: match.Deck.Count(),
			PileCount: len(match.Pile),
		})

	case rummy.MoveMeld:
		if len(req.Groups) == 0 {
			s.sendMoveFailure(socket, ctx, rummy.ErrInvalidMeld)
			return
		}
		melds, err := match.Meld(seatID, req.Groups)
		if err != nil {
			s.sendMoveFailure(socket, ctx, err)
			return
		}
		s.broadcastToRoom(room, "meld_event", MeldNotification{
			SeatID: seatID,
			Melds:  melds,
			Opened: match.Seats[seatID].Opened,
		})

	case rummy.MoveExtendMeld:
		if req.Card == nil {
			s.sendMoveFailure(socket, ctx, rummy.ErrCardNotInHand)
			return
		}
		meld, err := match.ExtendMeld(seatID, req.MeldIndex, *req.Card)
		if err != nil {
			s.sendMoveFailure(socket, ctx, err)
			return
		}
		s.broadcastToRoom(room, "extend_event", ExtendNotification{
			SeatID:    seatID,
			MeldIndex: req.MeldIndex,
			Card:      *req.Card,
			Meld:      meld,
		})

	case rummy.MoveDiscard:
		if req.Card == nil {
			s.sendMoveFailure(socket, ctx, rummy.ErrCardNotInHand)
			return
		}
		if err := match.Discard(seatID, *req.Card); err != nil {
			s.sendMoveFailure(socket, ctx, err)
			return
		}
		s.broadcastToRoom(room, "discard_event", DiscardNotification{
			SeatID: seatID,
			Card:   *req.Card,
			Turn:   match.Turn,
		})

	default:
		s.sendError(socket, ctx, fmt.Sprintf("INVALID_MOVE: Unknown move type '%s'", req.Type))
		return
	}

	room.UpdatedAt = time.Now()

	if match.GameOver {
		s.finishMatch(room)
	} else {
		s.broadcastMatchState(room)
		s.scheduleBotTurn(room)
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "move_result",
		Payload: result,
	})
}

func (s *Server) sendMoveFailure(socket *websocket.Conn, ctx context.Context, err error) {
	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "move_result",
		Payload: MoveResultResponse{Success: false, Message: err.Error()},
	})
}

// finishMatch moves the room to completed, announces the final scores
// and hands, and snapshots the result. Caller holds the room lock.
func (s *Server) finishMatch(room *ActiveMatch) {
	match := room.Match
	room.Status = StatusCompleted
	room.UpdatedAt = time.Now()

	var finalHands [4][]game.Card
	for i, seat := range match.Seats {
		finalHands[i] = append([]game.Card(nil), seat.Hand...)
	}

	s.broadcastToRoom(room, "game_over", GameOverNotification{
		Winner:     match.Winner,
		Scores:     match.Scores(),
		FinalHands: finalHands,
		Stalemate:  match.Winner == rummy.NoWinner,
	})
	s.broadcastMatchState(room)

	s.logger.Info("match finished", "room", room.RoomCode, "winner", match.Winner, "scores", match.Scores())

	if err := s.persistenceManager.SaveMatch(room); err != nil {
		s.logger.Error("failed to save finished match", "room", room.RoomCode, "err", err)
	}
}

// persistRoom snapshots a room and one session; lobby mutations call it
// so a restart keeps rooms joinable.
func (s *Server) persistRoom(room *ActiveMatch, session SessionInfo) {
	room.Lock()
	err := s.persistenceManager.SaveMatch(room)
	room.Unlock()
	if err != nil {
		s.logger.Error("failed to save match", "room", room.RoomCode, "err", err)
		return
	}
	if err := s.persistenceManager.SaveSession(session); err != nil {
		s.logger.Error("failed to save session", "err", err)
	}
}

// broadcastLobbyUpdate sends personalized lobby state to every human
// seat. Caller holds the room lock.
func (s *Server) broadcastLobbyUpdate(room *ActiveMatch) {
	for _, slot := range room.Seats {
		if slot.Token == "" || !slot.Connected {
			continue
		}

		lobbyState := s.buildLobbyState(room, slot.Token)

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "lobby_update",
			Payload: lobbyState,
		}
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			s.logger.Debug("lobby broadcast failed", "username", slot.Username, "err", err)
		}
	}
}

func (s *Server) buildLobbyState(room *ActiveMatch, forToken string) LobbyState {
	seats := [4]LobbySeat{}
	playerCount := 0

	for i, slot := range room.Seats {
		if slot.Username == "" {
			continue
		}

		playerCount++
		seats[i] = LobbySeat{
			Username:  slot.Username,
			Ready:     slot.Ready,
			Connected: slot.Connected,
			Automated: slot.Automated,
			IsYou:     slot.Token != "" && slot.Token == forToken,
		}
	}

	allReady := playerCount == 4
	for _, slot := range room.Seats {
		if slot.Username != "" && !slot.Ready {
			allReady = false
			break
		}
	}

	return LobbyState{
		RoomCode:    room.RoomCode,
		Seats:       seats,
		PlayerCount: playerCount,
		Status:      string(room.Status),
		AllReady:    allReady,
	}
}

// broadcastMatchState sends each connected human seat its own view.
// Caller holds the room lock.
func (s *Server) broadcastMatchState(room *ActiveMatch) {
	if room.Match == nil {
		return
	}

	for i, slot := range room.Seats {
		if slot.Token == "" || !slot.Connected {
			continue
		}

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}
		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "match_state",
			Payload: s.buildMatchStateMessage(room, i),
		}
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			s.logger.Debug("state broadcast failed", "username", slot.Username, "err", err)
		}
	}
}

// buildMatchStateMessage produces one seat's personalized view. The
// engine's ClientState carries only hand counts for the other seats.
func (s *Server) buildMatchStateMessage(room *ActiveMatch, seatID int) MatchStateMessage {
	if room.Match == nil {
		return MatchStateMessage{Status: string(room.Status)}
	}

	return MatchStateMessage{
		State:  room.Match.ClientState(seatID),
		Status: string(room.Status),
	}
}
