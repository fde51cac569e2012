package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// InviteLandingHandler serves GET /invite, the route emailed links point at.
// It previews the invitation without consuming it, so a recipient can load
// the page any number of times before committing.
type InviteLandingHandler struct {
	InviteService *service.InviteService
}

func (h *InviteLandingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "token query parameter is required").WriteError(w)
		return
	}

	inv, err := h.InviteService.Lookup(ctx, token)
	if err != nil {
		// Unknown, expired and malformed tokens are indistinguishable to
		// the caller.
		portalapi.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalapi.InvitationPreview{
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
	})
}

// RedeemHandler serves POST /v1/invitations/redeem, the consuming step.
type RedeemHandler struct {
	InviteService *service.InviteService
}

func (h *RedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalapi.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return
	}
	if req.Token == "" {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "token is required").WriteError(w)
		return
	}

	account, err := h.InviteService.Redeem(ctx, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationNotFound):
			portalapi.ErrInvalidToken.WriteError(w)
		case errors.Is(err, service.ErrInvitationConsumed):
			portalapi.ErrAlreadyConsumed.WriteError(w)
		case errors.Is(err, service.ErrProvisioningFailed):
			// The token is spent but no account exists. Surfaced distinctly
			// so support can remediate instead of the recipient retrying a
			// dead token.
			log.Error("redemption claimed but provisioning failed", "err", err)
			portalapi.NewAPIError(http.StatusInternalServerError,
				portalapi.ErrorCodeProvisioningError,
				"the invitation was accepted but account creation failed; contact support").WriteError(w)
		default:
			log.Error("redemption failed", "err", err)
			portalapi.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, portalapi.RedeemResponse{
		AccountID:      account.ID,
		Email:          account.Email,
		Role:           string(account.Role),
		OrganizationID: account.OrganizationID,
	})
}
