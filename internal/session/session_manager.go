package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

const (
	sessionIDLength        = 32
	defaultCleanupInterval = 5 * time.Minute
	defaultSessionTimeout  = 30 * time.Minute
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithTimeouts overrides how often idle sessions are swept and how long a
// session may stay idle.
func WithTimeouts(cleanupInterval, sessionTimeout time.Duration) ManagerOption {
	return func(sm *SessionManager) {
		if cleanupInterval > 0 {
			sm.cleanupInterval = cleanupInterval
		}
		if sessionTimeout > 0 {
			sm.sessionTimeout = sessionTimeout
		}
	}
}

// SessionManager manages multiple concurrent sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	services        *Services
	cleanupInterval time.Duration
	sessionTimeout  time.Duration
	done            chan struct{}
	stopped         sync.WaitGroup
	closeOnce       sync.Once
	logger          *log.Logger
}

// NewSessionManager starts the idle session cleanup goroutine. Call Close
// to stop it.
func NewSessionManager(services *Services, logger *log.Logger, opts ...ManagerOption) (*SessionManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if err := services.validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new SessionManager", nil)

	sm := &SessionManager{
		sessions:        make(map[string]*Session),
		services:        services,
		cleanupInterval: defaultCleanupInterval,
		sessionTimeout:  defaultSessionTimeout,
		done:            make(chan struct{}),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(sm)
	}
	sm.startCleanupRoutine()

	logger.Info(ctx, "SessionManager created successfully", nil)
	return sm, nil
}

// SessionAdd creates a new session and returns its ID
func (sm *SessionManager) SessionAdd() (string, error) {
	ctx := context.Background()
	sessionID, err := generateSessionID()
	if err != nil {
		sm.logger.Error(ctx, "Failed to generate session ID", log.Fields{"error": err})
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = NewSession(sessionID, sm.services, sm.logger)
	sm.mu.Unlock()

	sm.logger.Info(ctx, "New session added", log.Fields{"sessionID": sessionID})
	return sessionID, nil
}

// SessionGet retrieves a session by its ID
func (sm *SessionManager) SessionGet(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[sessionID]
	return session, exists
}

// SessionDelete removes a session. It reports whether the session existed.
func (sm *SessionManager) SessionDelete(sessionID string) bool {
	ctx := context.Background()
	sm.mu.Lock()
	_, exists := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if !exists {
		sm.logger.Warn(ctx, "Attempted to delete non-existent session", log.Fields{"sessionID": sessionID})
		return false
	}
	sm.logger.Info(ctx, "Session deleted", log.Fields{"sessionID": sessionID})
	return true
}

// SessionCount returns the number of live sessions.
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// SessionRun executes a command for a specific session. system exit and
// quit end the session.
func (sm *SessionManager) SessionRun(ctx context.Context, sessionID string, cmd model.Command) (interface{}, error) {
	session, exists := sm.SessionGet(sessionID)
	if !exists {
		sm.logger.Error(ctx, "Session not found", log.Fields{"sessionID": sessionID})
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sm.logger.Command(ctx, "Command received", log.Fields{
		"sessionID": sessionID,
		"scope":     cmd.Scope,
		"operation": cmd.Operation,
		"args":      cmd.Args,
	})

	result, err := session.CommandRun(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Scope == "system" {
		sm.SessionDelete(sessionID)
	}
	return result, nil
}

// Close stops the cleanup routine and drops every session.
func (sm *SessionManager) Close() {
	sm.closeOnce.Do(func() {
		close(sm.done)
		sm.stopped.Wait()
		sm.mu.Lock()
		sm.sessions = make(map[string]*Session)
		sm.mu.Unlock()
		sm.logger.Info(context.Background(), "SessionManager closed", nil)
	})
}

// startCleanupRoutine starts a goroutine that periodically cleans up inactive sessions
func (sm *SessionManager) startCleanupRoutine() {
	ticker := time.NewTicker(sm.cleanupInterval)
	sm.stopped.Add(1)
	go func() {
		defer sm.stopped.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sm.cleanupInactiveSessions(time.Now())
			case <-sm.done:
				return
			}
		}
	}()
}

// cleanupInactiveSessions removes sessions idle for longer than the timeout.
func (sm *SessionManager) cleanupInactiveSessions(now time.Time) int {
	sm.mu.RLock()
	var idle []string
	for id, session := range sm.sessions {
		if now.Sub(session.LastActivity()) > sm.sessionTimeout {
			idle = append(idle, id)
		}
	}
	sm.mu.RUnlock()

	for _, id := range idle {
		sm.logger.Info(context.Background(), "Removing inactive session", log.Fields{"sessionID": id})
		sm.SessionDelete(id)
	}
	return len(idle)
}

// generateSessionID creates a cryptographically secure random session ID
func generateSessionID() (string, error) {
	b := make([]byte, sessionIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
