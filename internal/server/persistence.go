package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PersistenceManager snapshots rooms and sessions to postgres so a
// restart does not lose running matches.
type PersistenceManager struct {
	db *sql.DB
}

func NewPersistenceManager(db *sql.DB) *PersistenceManager {
	return &PersistenceManager{db: db}
}

// OpenDatabase connects via the pgx stdlib driver and verifies the
// connection.
func OpenDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the snapshot tables if they do not exist yet.
func (pm *PersistenceManager) EnsureSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			room_code  TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			match_data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			room_code  TEXT NOT NULL REFERENCES matches(room_code) ON DELETE CASCADE,
			seat_id    INTEGER NOT NULL,
			username   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := pm.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SaveMatch upserts a room snapshot. The whole ActiveMatch serializes to
// JSON, the columns outside match_data exist for querying.
func (pm *PersistenceManager) SaveMatch(room *ActiveMatch) error {
	matchData, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to serialize match: %w", err)
	}

	query := `
		INSERT INTO matches (room_code, status, match_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_code) DO UPDATE
		SET status = EXCLUDED.status,
		    match_data = EXCLUDED.match_data,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = pm.db.Exec(
		query,
		room.RoomCode,
		string(room.Status),
		matchData,
		room.CreatedAt,
		room.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", room.RoomCode, err)
	}

	return nil
}

// LoadMatch retrieves one room snapshot by code.
func (pm *PersistenceManager) LoadMatch(roomCode string) (*ActiveMatch, error) {
	query := `SELECT match_data FROM matches WHERE room_code = $1`

	var matchData []byte
	err := pm.db.QueryRow(query, roomCode).Scan(&matchData)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match not found: %s", roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", roomCode, err)
	}

	var room ActiveMatch
	if err := json.Unmarshal(matchData, &room); err != nil {
		return nil, fmt.Errorf("failed to deserialize match %s: %w", roomCode, err)
	}

	return &room, nil
}

// LoadAllActiveMatches retrieves every room that is not completed, used
// on startup to rebuild the registry.
func (pm *PersistenceManager) LoadAllActiveMatches() ([]*ActiveMatch, error) {
	query := `
		SELECT match_data FROM matches
		WHERE status != $1
		ORDER BY updated_at DESC
	`

	rows, err := pm.db.Query(query, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query active matches: %w", err)
	}
	defer rows.Close()

	var rooms []*ActiveMatch
	for rows.Next() {
		var matchData []byte
		if err := rows.Scan(&matchData); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}

		var room ActiveMatch
		if err := json.Unmarshal(matchData, &room); err != nil {
			// Skip the corrupt row, keep restoring the rest.
			continue
		}

		rooms = append(rooms, &room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}

	return rooms, nil
}

// DeleteMatch removes a room snapshot; sessions cascade.
func (pm *PersistenceManager) DeleteMatch(roomCode string) error {
	result, err := pm.db.Exec(`DELETE FROM matches WHERE room_code = $1`, roomCode)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", roomCode, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("match not found: %s", roomCode)
	}

	return nil
}

func (pm *PersistenceManager) SaveSession(session SessionInfo) error {
	query := `
		INSERT INTO sessions (token, room_code, seat_id, username, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE
		SET room_code = EXCLUDED.room_code,
		    seat_id = EXCLUDED.seat_id,
		    username = EXCLUDED.username
	`

	_, err := pm.db.Exec(
		query,
		session.Token,
		session.RoomCode,
		session.SeatID,
		session.Username,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.Token, err)
	}

	return nil
}

func (pm *PersistenceManager) LoadSession(token string) (*SessionInfo, error) {
	query := `SELECT token, room_code, seat_id, username FROM sessions WHERE token = $1`

	var session SessionInfo
	err := pm.db.QueryRow(query, token).Scan(
		&session.Token,
		&session.RoomCode,
		&session.SeatID,
		&session.Username,
	)

	if err == sql.ErrNoRows {
		return nil, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", token, err)
	}

	return &session, nil
}

func (pm *PersistenceManager) LoadAllSessions() ([]SessionInfo, error) {
	rows, err := pm.db.Query(`SELECT token, room_code, seat_id, username FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var session SessionInfo
		if err := rows.Scan(&session.Token, &session.RoomCode, &session.SeatID, &session.Username); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

func (pm *PersistenceManager) DeleteSession(token string) error {
	if _, err := pm.db.Exec(`DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", token, err)
	}
	return nil
}

// CleanupOldMatches deletes completed rooms older than the cooldown and
// returns the codes it removed so the registry can free them.
func (pm *PersistenceManager) CleanupOldMatches(olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `
		DELETE FROM matches
		WHERE status = $1 AND updated_at < $2
		RETURNING room_code
	`

	rows, err := pm.db.Query(query, string(StatusCompleted), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to cleanup old matches: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan room code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cleanup rows: %w", err)
	}

	return codes, nil
}
