package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// InviteHandler serves the admin-facing invitation endpoints: batch minting
// and the audit listing.
type InviteHandler struct {
	InviteService   *service.InviteService
	AccountsService *service.AccountsService
}

// HandleMint mints and emails an invitation per requested address. The batch
// never fails as a whole: each address gets its own outcome in the response,
// in request order.
func (h *InviteHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalapi.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return
	}
	if len(req.Emails) == 0 {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "emails is required and must be non-empty").WriteError(w)
		return
	}

	inviterID := httpx.AccountIDFromCtx(ctx)
	inviter, err := h.AccountsService.Get(ctx, inviterID)
	if err != nil {
		portalapi.ErrUnauthorized.WriteError(w)
		return
	}

	outcomes, err := h.InviteService.Invite(ctx, req.Emails, inviterID, inviter.OrganizationID)
	if err != nil {
		log.Error("invitation batch failed", "err", err)
		portalapi.ErrServerError.WriteError(w)
		return
	}

	resp := portalapi.InviteResponse{Results: make([]portalapi.InviteResult, 0, len(outcomes))}
	for _, o := range outcomes {
		resp.Results = append(resp.Results, inviteResult(o))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func inviteResult(o service.InviteOutcome) portalapi.InviteResult {
	res := portalapi.InviteResult{
		Email:        o.Email,
		InvitationID: o.InvitationID,
	}
	if !o.ExpiresAt.IsZero() {
		res.ExpiresAt = o.ExpiresAt.Format(time.RFC3339)
	}

	switch {
	case o.StoreErr != nil:
		res.Status = portalapi.InviteStatusRejected
		res.Error = o.StoreErr.Error()
	case o.DeliveryErr != nil:
		// The record exists; only the email failed. The admin re-invites
		// rather than retrying delivery of the old token.
		res.Status = portalapi.InviteStatusDeliveryFailed
		res.Error = portalapi.ErrorCodeDeliveryFailure
	default:
		res.Status = portalapi.InviteStatusSent
	}
	return res
}

// HandleList returns the caller organization's invitation records, newest
// first, consumed and expired included.
func (h *InviteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	caller, err := h.AccountsService.Get(ctx, httpx.AccountIDFromCtx(ctx))
	if err != nil {
		portalapi.ErrUnauthorized.WriteError(w)
		return
	}

	invs, err := h.InviteService.ListInvitations(ctx, caller.OrganizationID)
	if err != nil {
		log.Error("failed to list invitations", "err", err)
		portalapi.ErrServerError.WriteError(w)
		return
	}

	resp := portalapi.ListInvitationsResponse{
		Invitations: make([]portalapi.InvitationInfo, 0, len(invs)),
	}
	for _, inv := range invs {
		info := portalapi.InvitationInfo{
			ID:             inv.ID,
			Email:          inv.Email,
			InvitedBy:      inv.InvitedBy,
			OrganizationID: inv.OrganizationID,
			CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
			ExpiresAt:      inv.ExpiresAt.Format(time.RFC3339),
		}
		if inv.ConsumedAt != nil {
			info.ConsumedAt = inv.ConsumedAt.Format(time.RFC3339)
		}
		resp.Invitations = append(resp.Invitations, info)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
