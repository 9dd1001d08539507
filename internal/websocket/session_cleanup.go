package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IdleSessionEnder ends collaboration sessions that no longer have any
// connected participants and reports how many were closed.
type IdleSessionEnder interface {
	EndIdleSessions(ctx context.Context) (int, error)
}

// SessionCleanupService handles background tasks for session management
type SessionCleanupService struct {
	ender    IdleSessionEnder
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(ender IdleSessionEnder, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		ender:    ender,
		interval: 30 * time.Minute,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started")
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Session cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *SessionCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run initial cleanup after 1 minute
	initialTimer := time.NewTimer(1 * time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.runCleanup()
			// Initial timer only runs once
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup ends sessions whose last participant has left
func (s *SessionCleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	closed, err := s.ender.EndIdleSessions(ctx)
	if err != nil {
		s.logger.Error("Failed to end idle sessions", zap.Error(err))
		return
	}

	if closed > 0 {
		s.logger.Info("Session cleanup completed",
			zap.Int("closedSessions", closed))
	}
}
