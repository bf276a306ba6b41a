package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Config carries the runtime knobs cmd/api resolves from flags and env.
type Config struct {
	Port        int
	DatabaseURL string
	BotDelay    time.Duration
	RateLimit   int
	RateWindow  time.Duration
}

type Server struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock

	db                 *sql.DB
	connectionManager  *ConnectionManager
	matchManager       *MatchManager
	sessionManager     *SessionManager
	persistenceManager *PersistenceManager
	rateLimiter        *RateLimiter
}

type ServerOption func(*Server)

// WithClock injects a mockable clock for bot scheduling in tests.
func WithClock(clock quartz.Clock) ServerOption {
	return func(s *Server) { s.clock = clock }
}

// NewServer wires the managers, applies the schema, restores persisted
// rooms and sessions, and returns the server plus a configured
// http.Server ready to listen.
func NewServer(cfg Config, logger *log.Logger, opts ...ServerOption) (*Server, *http.Server, error) {
	db, err := OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	persistenceManager := NewPersistenceManager(db)
	if err := persistenceManager.EnsureSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}

	s := &Server{
		cfg:                cfg,
		logger:             logger,
		clock:              quartz.NewReal(),
		db:                 db,
		connectionManager:  NewConnectionManager(),
		matchManager:       NewMatchManager(),
		sessionManager:     NewSessionManager(),
		persistenceManager: persistenceManager,
		rateLimiter:        NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadPersistedState(); err != nil {
		// Start empty rather than refuse to boot.
		logger.Warn("failed to load persisted state", "err", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer, nil
}

// loadPersistedState rebuilds the registry and session table from the
// last snapshots.
func (s *Server) loadPersistedState() error {
	rooms, err := s.persistenceManager.LoadAllActiveMatches()
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}

	for _, room := range rooms {
		// Nobody is connected on a fresh boot; running matches wait for
		// their players to come back.
		for i := range room.Seats {
			if !room.Seats[i].Automated {
				room.Seats[i].Connected = false
			}
		}
		if room.Status == StatusPlaying {
			room.Status = StatusPaused
		}
		s.matchManager.restore(room)
		s.logger.Info("restored match", "room", room.RoomCode, "status", room.Status)
	}

	sessions, err := s.persistenceManager.LoadAllSessions()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, session := range sessions {
		s.sessionManager.StoreSession(session)
	}

	s.logger.Info("persisted state loaded", "matches", len(rooms), "sessions", len(sessions))
	return nil
}

// RunBackgroundTasks starts the periodic save and cleanup loops. They
// stop when ctx is cancelled.
func (s *Server) RunBackgroundTasks(ctx context.Context) {
	go s.periodicSaveTask(ctx)
	go s.cleanupTask(ctx)
}

// periodicSaveTask persists every room each interval, catching changes
// that have no explicit save point such as disconnects.
func (s *Server) periodicSaveTask(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.saveAllMatches()
		}
	}
}

func (s *Server) saveAllMatches() {
	saved := 0
	for _, room := range s.matchManager.Snapshot() {
		room.Lock()
		err := s.persistenceManager.SaveMatch(room)
		room.Unlock()

		if err != nil {
			s.logger.Error("periodic save failed", "room", room.RoomCode, "err", err)
		} else {
			saved++
		}
	}
	s.logger.Debug("periodic save completed", "matches", saved)
}

// cleanupTask sweeps expired lobbies and completed matches past their
// cooldown, and trims stale rate limit state.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, code := range s.matchManager.ExpiredLobbies(time.Now()) {
				s.logger.Info("expiring idle lobby", "room", code)
				s.matchManager.RemoveMatch(code)
				s.sessionManager.RemoveSessionsForRoom(code)
				if err := s.persistenceManager.DeleteMatch(code); err != nil {
					s.logger.Debug("lobby had no snapshot to delete", "room", code, "err", err)
				}
			}

			codes, err := s.persistenceManager.CleanupOldMatches(24 * time.Hour)
			if err != nil {
				s.logger.Error("cleanup task failed", "err", err)
			}
			for _, code := range codes {
				s.matchManager.RemoveMatch(code)
				s.sessionManager.RemoveSessionsForRoom(code)
			}
			if len(codes) > 0 {
				s.logger.Info("cleaned up completed matches", "count", len(codes))
			}

			s.rateLimiter.Cleanup()
		}
	}
}

// Shutdown saves every room and closes the database. Called before the
// http server stops accepting connections is fine; in-flight moves hold
// their room lock and land in the snapshot.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("saving state before shutdown")
	s.saveAllMatches()

	for _, session := range s.sessionManager.GetAllSessions() {
		if err := s.persistenceManager.SaveSession(session); err != nil {
			s.logger.Error("failed to save session on shutdown", "err", err)
		}
	}

	return s.db.Close()
}
