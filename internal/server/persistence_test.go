package server

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupTestDB starts a throwaway postgres container and applies the
// schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("rummy"),
		tcpostgres.WithUsername("rummy"),
		tcpostgres.WithPassword("rummy"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenDatabase(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewPersistenceManager(db).EnsureSchema())

	return db
}

func lobbyRoom(code string) *ActiveMatch {
	now := time.Now().UTC()
	room := &ActiveMatch{
		RoomCode:    code,
		Status:      StatusLobby,
		CreatedAt:   now,
		UpdatedAt:   now,
		LobbyExpiry: now.Add(lobbyLifetime),
	}
	room.Seats[0] = SeatSlot{Username: "Alice", Token: "token-alice", Connected: true, JoinedAt: now}
	room.Seats[1] = SeatSlot{Username: "Bob", Token: "token-bob", Connected: true, JoinedAt: now}
	return room
}

func TestSaveAndLoadLobbyMatch(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	room := lobbyRoom("TEST")
	require.NoError(t, pm.SaveMatch(room))

	loaded, err := pm.LoadMatch("TEST")
	require.NoError(t, err)

	assert.Equal(t, room.RoomCode, loaded.RoomCode)
	assert.Equal(t, StatusLobby, loaded.Status)
	assert.Equal(t, "Alice", loaded.Seats[0].Username)
	assert.Equal(t, "Bob", loaded.Seats[1].Username)
	assert.Nil(t, loaded.Match)
}

func TestSaveAndLoadRunningMatch(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	mm := NewMatchManager()
	room, token, err := mm.CreateMatch("Alice", true)
	require.NoError(t, err)
	_, _, err = mm.SetReady(room.RoomCode, token, true)
	require.NoError(t, err)
	room.Lock()
	require.NoError(t, mm.StartMatch(room))
	room.Unlock()

	require.NoError(t, pm.SaveMatch(room))

	loaded, err := pm.LoadMatch(room.RoomCode)
	require.NoError(t, err)

	require.NotNil(t, loaded.Match)
	assert.Equal(t, StatusPlaying, loaded.Status)
	assert.Equal(t, room.Match.Turn, loaded.Match.Turn)
	assert.Equal(t, room.Match.Phase, loaded.Match.Phase)
	assert.Equal(t, 108, loaded.Match.CardCount(), "the full pool survives the round trip")
	for i := 0; i < 4; i++ {
		assert.Equal(t, room.Match.Seats[i].Hand, loaded.Match.Seats[i].Hand)
	}
}

func TestSaveMatchUpserts(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	room := lobbyRoom("UPST")
	require.NoError(t, pm.SaveMatch(room))

	room.Status = StatusCompleted
	room.UpdatedAt = time.Now().UTC()
	require.NoError(t, pm.SaveMatch(room))

	loaded, err := pm.LoadMatch("UPST")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, loaded.Status)
}

func TestLoadAllActiveMatchesSkipsCompleted(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	active := lobbyRoom("LIVE")
	require.NoError(t, pm.SaveMatch(active))

	done := lobbyRoom("DONE")
	done.Status = StatusCompleted
	require.NoError(t, pm.SaveMatch(done))

	rooms, err := pm.LoadAllActiveMatches()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "LIVE", rooms[0].RoomCode)
}

func TestSessionRoundTripAndCascade(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	room := lobbyRoom("SESS")
	require.NoError(t, pm.SaveMatch(room))

	session := SessionInfo{
		Token:    "token-alice",
		RoomCode: "SESS",
		SeatID:   0,
		Username: "Alice",
	}
	require.NoError(t, pm.SaveSession(session))

	loaded, err := pm.LoadSession("token-alice")
	require.NoError(t, err)
	assert.Equal(t, session, *loaded)

	sessions, err := pm.LoadAllSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	// Deleting the match cascades to its sessions.
	require.NoError(t, pm.DeleteMatch("SESS"))
	_, err = pm.LoadSession("token-alice")
	assert.ErrorContains(t, err, "TOKEN_NOT_FOUND")
}

func TestCleanupOldMatches(t *testing.T) {
	pm := NewPersistenceManager(setupTestDB(t))

	old := lobbyRoom("OLDC")
	old.Status = StatusCompleted
	old.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, pm.SaveMatch(old))

	fresh := lobbyRoom("NEWC")
	fresh.Status = StatusCompleted
	require.NoError(t, pm.SaveMatch(fresh))

	codes, err := pm.CleanupOldMatches(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"OLDC"}, codes)

	_, err = pm.LoadMatch("OLDC")
	assert.Error(t, err)
	_, err = pm.LoadMatch("NEWC")
	assert.NoError(t, err)
}
