package server

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rummy-server/internal/rummy"
)

// CPU seat names for vs-CPU rooms, seats 1-3.
var cpuNames = [3]string{"CPU1", "CPU2", "CPU3"}

const lobbyLifetime = 5 * time.Minute

type MatchManager struct {
	rooms     map[string]*ActiveMatch
	usedCodes map[string]bool
	mu        sync.RWMutex
}

// ActiveMatch is one room: the lobby around a match plus, once started,
// the match itself. All transitions on a room (human commands and bot
// commits alike) run under mu; the registry map has its own lock.
type ActiveMatch struct {
	Match       *rummy.Match `json:"match"`
	RoomCode    string       `json:"roomCode"`
	Status      MatchStatus  `json:"status"`
	Seats       [4]SeatSlot  `json:"seats"`
	VsCpu       bool         `json:"vsCpu"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	LobbyExpiry time.Time    `json:"lobbyExpiry"`

	mu sync.Mutex
}

func (am *ActiveMatch) Lock()   { am.mu.Lock() }
func (am *ActiveMatch) Unlock() { am.mu.Unlock() }

type SeatSlot struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	Connected bool      `json:"connected"`
	Ready     bool      `json:"ready"`
	Automated bool      `json:"automated"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type MatchStatus string

const (
	StatusLobby     MatchStatus = "lobby"
	StatusPlaying   MatchStatus = "playing"
	StatusPaused    MatchStatus = "paused"
	StatusCompleted MatchStatus = "completed"
)

func NewMatchManager() *MatchManager {
	return &MatchManager{
		rooms:     make(map[string]*ActiveMatch),
		usedCodes: make(map[string]bool),
	}
}

// CreateMatch opens a new room with the creator in seat 0. A vs-CPU room
// fills seats 1-3 with automated seats that are always ready, so the
// match starts as soon as the creator readies up.
func (mm *MatchManager) CreateMatch(username string, vsCpu bool) (*ActiveMatch, string, error) {
	if err := mm.validateUsernameFormat(username); err != nil {
		return nil, "", err
	}

	mm.mu.Lock()
	roomCode := GenerateRoomCode(mm.usedCodes)
	mm.usedCodes[roomCode] = true
	mm.mu.Unlock()

	token := uuid.New().String()

	now := time.Now()
	room := &ActiveMatch{
		Match:       nil, // dealt when everyone is ready
		RoomCode:    roomCode,
		Status:      StatusLobby,
		VsCpu:       vsCpu,
		CreatedAt:   now,
		UpdatedAt:   now,
		LobbyExpiry: now.Add(lobbyLifetime),
	}

	room.Seats[0] = SeatSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}

	if vsCpu {
		for i, name := range cpuNames {
			room.Seats[i+1] = SeatSlot{
				Username:  name,
				Connected: true,
				Ready:     true,
				Automated: true,
				JoinedAt:  now,
			}
		}
	}

	mm.mu.Lock()
	mm.rooms[roomCode] = room
	mm.mu.Unlock()

	return room, token, nil
}

func (mm *MatchManager) JoinMatch(roomCode, username string) (*ActiveMatch, string, int, error) {
	roomCode = strings.ToUpper(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, "", -1, err
	}

	mm.mu.RLock()
	room, exists := mm.rooms[roomCode]
	mm.mu.RUnlock()

	if !exists {
		return nil, "", -1, errors.New("ROOM_NOT_FOUND: Match not found")
	}

	room.Lock()
	defer room.Unlock()

	if room.Status != StatusLobby {
		return nil, "", -1, errors.New("MATCH_ALREADY_STARTED: Cannot join a match in progress")
	}

	if err := mm.validateUsername(room, username); err != nil {
		return nil, "", -1, err
	}

	slotID := -1
	for i, slot := range room.Seats {
		if slot.Username == "" {
			slotID = i
			break
		}
	}

	if slotID == -1 {
		return nil, "", -1, errors.New("ROOM_FULL: Lobby is full (4/4 seats)")
	}

	token := uuid.New().String()

	now := time.Now()
	room.Seats[slotID] = SeatSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		JoinedAt:  now,
	}
	room.UpdatedAt = now

	return room, token, slotID, nil
}

// SetReady flips a seat's ready flag. The second return reports whether
// every occupied seat is now ready, which is the start trigger.
func (mm *MatchManager) SetReady(roomCode, token string, ready bool) (*ActiveMatch, bool, error) {
	mm.mu.RLock()
	room, exists := mm.rooms[roomCode]
	mm.mu.RUnlock()

	if !exists {
		return nil, false, errors.New("ROOM_NOT_FOUND: Match not found")
	}

	room.Lock()
	defer room.Unlock()

	if room.Status != StatusLobby {
		return nil, false, errors.New("MATCH_ALREADY_STARTED: Cannot change ready state after the deal")
	}

	slotID := mm.findSlot(room, token)
	if slotID == -1 {
		return nil, false, errors.New("NOT_IN_MATCH: Invalid token")
	}

	room.Seats[slotID].Ready = ready
	room.UpdatedAt = time.Now()

	return room, mm.checkAllReady(room), nil
}

// StartMatch deals the 108-card pool and moves the room to playing. The
// caller must hold the room lock.
func (mm *MatchManager) StartMatch(room *ActiveMatch) error {
	if room.Status != StatusLobby {
		return errors.New("INVALID_STATUS: Match already started")
	}
	if !mm.checkAllReady(room) {
		return errors.New("NOT_ALL_READY: Cannot start, not all seats ready")
	}

	var names [4]string
	var automated []int
	for i, slot := range room.Seats {
		names[i] = slot.Username
		if slot.Automated {
			automated = append(automated, i)
		}
	}

	match, err := rummy.NewMatch(room.RoomCode, names, rummy.WithAutomatedSeats(automated...))
	if err != nil {
		return err
	}

	room.Match = match
	room.Status = StatusPlaying
	room.UpdatedAt = time.Now()

	return nil
}

func (mm *MatchManager) LeaveMatch(roomCode, token string) (*ActiveMatch, error) {
	mm.mu.RLock()
	room, exists := mm.rooms[roomCode]
	mm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Match not found")
	}

	room.Lock()
	defer room.Unlock()

	if room.Status != StatusLobby {
		return nil, errors.New("MATCH_STARTED: Use disconnect for active matches")
	}

	slotID := mm.findSlot(room, token)
	if slotID == -1 {
		return nil, errors.New("NOT_IN_MATCH: Invalid token")
	}

	room.Seats[slotID] = SeatSlot{}
	room.UpdatedAt = time.Now()

	if slotID == 0 {
		mm.promoteNewCreator(room)
	}

	return room, nil
}

func (mm *MatchManager) GetMatch(roomCode string) (*ActiveMatch, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	room, exists := mm.rooms[roomCode]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Match not found")
	}

	return room, nil
}

func (mm *MatchManager) GetMatchByToken(token string) (*ActiveMatch, int, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	for _, room := range mm.rooms {
		for i, slot := range room.Seats {
			if slot.Token != "" && slot.Token == token {
				return room, i, nil
			}
		}
	}

	return nil, -1, errors.New("TOKEN_NOT_FOUND: Invalid session token")
}

func (mm *MatchManager) ReconnectPlayer(token, roomCode string, seatID int) (*ActiveMatch, error) {
	mm.mu.RLock()
	room, exists := mm.rooms[roomCode]
	mm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Match not found")
	}

	if seatID < 0 || seatID >= 4 {
		return nil, errors.New("INVALID_SEAT: Seat out of range")
	}

	room.Lock()
	defer room.Unlock()

	slot := &room.Seats[seatID]

	if slot.Token != token {
		return nil, errors.New("TOKEN_MISMATCH: Token does not match seat")
	}
	if slot.Username == "" {
		return nil, errors.New("INVALID_SEAT: Seat is empty")
	}

	slot.Connected = true
	room.UpdatedAt = time.Now()

	if room.Status == StatusPaused {
		allConnected := true
		for _, s := range room.Seats {
			if s.Username != "" && !s.Connected {
				allConnected = false
				break
			}
		}
		if allConnected {
			room.Status = StatusPlaying
		}
	}

	return room, nil
}

// MarkPlayerDisconnected flags the seat and pauses a running match. A
// vs-CPU match keeps no other humans, so it pauses too and resumes on
// reconnect.
func (mm *MatchManager) MarkPlayerDisconnected(token string) (paused bool, room *ActiveMatch, seatID int, err error) {
	room, seatID, err = mm.GetMatchByToken(token)
	if err != nil {
		return false, nil, -1, err
	}

	room.Lock()
	defer room.Unlock()

	room.Seats[seatID].Connected = false
	room.UpdatedAt = time.Now()

	if room.Status == StatusPlaying {
		room.Status = StatusPaused
		return true, room, seatID, nil
	}
	return false, room, seatID, nil
}

// RemoveMatch drops a room from the registry and frees its code.
func (mm *MatchManager) RemoveMatch(roomCode string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	delete(mm.rooms, roomCode)
	delete(mm.usedCodes, roomCode)
}

// ExpiredLobbies returns the codes of lobbies that never started and
// outlived their expiry.
func (mm *MatchManager) ExpiredLobbies(now time.Time) []string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	var expired []string
	for code, room := range mm.rooms {
		if room.Status == StatusLobby && now.After(room.LobbyExpiry) {
			expired = append(expired, code)
		}
	}
	return expired
}

// Snapshot returns the registered rooms. Callers iterating it still take
// each room's lock before touching its state.
func (mm *MatchManager) Snapshot() []*ActiveMatch {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	rooms := make([]*ActiveMatch, 0, len(mm.rooms))
	for _, room := range mm.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// restore puts a persisted room back into the registry, used on boot.
func (mm *MatchManager) restore(room *ActiveMatch) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.rooms[room.RoomCode] = room
	mm.usedCodes[room.RoomCode] = true
}

func (mm *MatchManager) promoteNewCreator(room *ActiveMatch) {
	newCreatorSlot := -1
	for i := 1; i < 4; i++ {
		if room.Seats[i].Username != "" && !room.Seats[i].Automated && room.Seats[i].Connected {
			newCreatorSlot = i
			break
		}
	}

	// Nobody human left, let the lobby expire.
	if newCreatorSlot == -1 {
		room.LobbyExpiry = time.Now()
		return
	}

	room.Seats[0] = room.Seats[newCreatorSlot]
	room.Seats[newCreatorSlot] = SeatSlot{}
	room.Seats[0].Ready = false
}

func (mm *MatchManager) findSlot(room *ActiveMatch, token string) int {
	for i, slot := range room.Seats {
		if slot.Token != "" && slot.Token == token {
			return i
		}
	}
	return -1
}

func (mm *MatchManager) checkAllReady(room *ActiveMatch) bool {
	seatCount := 0
	readyCount := 0

	for _, slot := range room.Seats {
		if slot.Username != "" {
			seatCount++
			if slot.Ready {
				readyCount++
			}
		}
	}

	return seatCount == 4 && readyCount == 4
}

func (mm *MatchManager) validateUsernameFormat(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("USERNAME_INVALID: Username cannot be empty")
	}
	if len(username) > 20 {
		return errors.New("USERNAME_INVALID: Username too long (max 20 characters)")
	}
	return nil
}

func (mm *MatchManager) validateUsername(room *ActiveMatch, username string) error {
	if err := mm.validateUsernameFormat(username); err != nil {
		return err
	}

	for _, slot := range room.Seats {
		if slot.Username == username {
			return errors.New("USERNAME_TAKEN: Username already taken")
		}
	}

	return nil
}
