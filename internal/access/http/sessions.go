package http

import (
	"net/http"

	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// SessionsHandler serves the idle-tracking endpoints. The session ID comes
// from the verified token, never from the request body.
type SessionsHandler struct {
	Sessions *service.SessionRegistry
}

// HandleBegin starts idle tracking for the caller's session. Re-posting for
// a live session resets its clock rather than stacking a second timer.
func (h *SessionsHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := httpx.SessionIDFromCtx(ctx)
	if sessionID == "" {
		portalapi.ErrUnauthorized.WriteError(w)
		return
	}

	h.Sessions.Begin(sessionID)

	httpx.WriteJSON(w, http.StatusCreated, portalapi.SessionResponse{
		SessionID:          sessionID,
		IdleTimeoutSeconds: int(h.Sessions.Timeout.Seconds()),
	})
}

// HandleActivity records a qualifying interaction, resetting the idle clock.
func (h *SessionsHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := httpx.SessionIDFromCtx(ctx)
	if sessionID == "" {
		portalapi.ErrUnauthorized.WriteError(w)
		return
	}

	h.Sessions.Touch(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleEnd is the explicit closing signal: sign out and stop tracking. The
// client routes to the public entry point regardless of the outcome here, so
// a failed upstream sign-out is logged but still answered with 204.
func (h *SessionsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessionID := httpx.SessionIDFromCtx(ctx)
	if sessionID == "" {
		portalapi.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.Sessions.End(ctx, sessionID); err != nil {
		log.Error("sign-out failed on explicit session end", "session_id", sessionID, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
