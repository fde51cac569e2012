package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session may sit without a qualifying
// interaction before it is force-terminated.
const DefaultIdleTimeout = 3 * time.Hour

// SignOutFunc is the identity collaborator's sign-out primitive.
type SignOutFunc func(ctx context.Context, sessionID string) error

// idleMonitor owns the single outstanding timer for one session. Reset and
// stop are its only mutations; a reset always supersedes the previous
// deadline rather than stacking a second timer.
type idleMonitor struct {
	sessionID string
	timeout   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// touch resets the idle clock to zero. Returns false once the monitor has
// fired or been stopped, so activity on a dead session cannot resurrect it.
func (m *idleMonitor) touch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}

	m.timer.Stop()
	m.timer.Reset(m.timeout)
	return true
}

// stop cancels the pending expiry. Returns false if the monitor was already
// stopped, so expiry and explicit termination cannot both run the sign-out.
func (m *idleMonitor) stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}

	m.stopped = true
	m.timer.Stop()
	return true
}

// SessionRegistry tracks the idle monitor for every active session. One
// monitor per session, created exactly once at session start and cleared on
// sign-out or teardown.
type SessionRegistry struct {
	Timeout time.Duration
	SignOut SignOutFunc
	Logger  *slog.Logger

	// OnExpired runs after a forced sign-out (successful or not) so the
	// caller can route the client to the public entry point. Optional.
	OnExpired func(sessionID string)

	mu       sync.Mutex
	sessions map[string]*idleMonitor
}

// NewSessionRegistry creates a registry with the given idle timeout.
// A non-positive timeout falls back to DefaultIdleTimeout.
func NewSessionRegistry(timeout time.Duration, signOut SignOutFunc, logger *slog.Logger) *SessionRegistry {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &SessionRegistry{
		Timeout:  timeout,
		SignOut:  signOut,
		Logger:   logger,
		sessions: make(map[string]*idleMonitor),
	}
}

// Begin starts idle tracking for a session. Calling Begin again for a live
// session resets its clock instead of creating a duplicate timer.
func (r *SessionRegistry) Begin(sessionID string) {
	if sessionID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		existing.touch()
		return
	}

	m := &idleMonitor{
		sessionID: sessionID,
		timeout:   r.Timeout,
	}
	m.timer = time.AfterFunc(r.Timeout, func() { r.expire(m) })
	r.sessions[sessionID] = m

	r.Logger.Debug("idle monitor started",
		slog.String("session_id", sessionID),
		slog.Duration("timeout", r.Timeout),
	)
}

// Touch records a qualifying interaction, resetting the session's idle clock.
// Unknown or already-terminated sessions are ignored.
func (r *SessionRegistry) Touch(sessionID string) {
	r.mu.Lock()
	m, ok := r.sessions[sessionID]
	r.mu.Unlock()

	if !ok {
		return
	}
	if !m.touch() {
		r.remove(sessionID, m)
	}
}

// Active reports whether the session currently has a live monitor.
func (r *SessionRegistry) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// End handles the explicit closing signal: forced sign-out and monitor
// cleared, so no stale authenticated state lingers. Safe to call for
// sessions the registry no longer tracks.
func (r *SessionRegistry) End(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	m, ok := r.sessions[sessionID]
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if !m.stop() {
		// Expiry beat us to it and already signed out.
		return nil
	}
	r.remove(sessionID, m)

	if err := r.SignOut(ctx, sessionID); err != nil {
		r.Logger.Error("sign-out failed on session end",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// Shutdown cancels every outstanding timer without signing anyone out, for
// app teardown. Sessions survive a restart; their monitors do not.
func (r *SessionRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.sessions {
		m.stop()
		delete(r.sessions, id)
	}
	r.Logger.Info("session registry shut down")
}

// expire runs on the timer goroutine when a session idles out. The sign-out
// is forced; if the sign-out call itself fails the expiry callback still
// runs, because an authenticated-looking client with no backing session is
// the worse failure mode.
func (r *SessionRegistry) expire(m *idleMonitor) {
	if !m.stop() {
		return // End already terminated this session
	}
	r.remove(m.sessionID, m)

	r.Logger.Info("session idle limit reached, forcing sign-out",
		slog.String("session_id", m.sessionID),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.SignOut(ctx, m.sessionID); err != nil {
		r.Logger.Error("forced sign-out failed, client redirect proceeds regardless",
			slog.String("session_id", m.sessionID),
			slog.Any("error", err),
		)
	}

	if r.OnExpired != nil {
		r.OnExpired(m.sessionID)
	}
}

func (r *SessionRegistry) remove(sessionID string, m *idleMonitor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[sessionID]; ok && current == m {
		delete(r.sessions, sessionID)
	}
}
