package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// RoleHandler serves PUT /v1/accounts/{id}/role, the privileged role
// mutation. requireAdmin has already vetted the caller.
type RoleHandler struct {
	RolesService *service.RolesService
}

func (h *RoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req portalapi.RoleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "role must be \"admin\" or \"user\"").WriteError(w)
		return
	}

	accountID := r.PathValue("id")
	if err := h.RolesService.UpdateRole(ctx, accountID, role); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			portalapi.ErrAccountNotFound.WriteError(w)
			return
		}
		log.Error("role update failed", "err", err)
		portalapi.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ProfileHandler serves PUT /v1/accounts/{id}/profile. Profile setup is
// self-service: an account may only write its own profile.
type ProfileHandler struct {
	AccountsService *service.AccountsService
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := r.PathValue("id")
	if accountID != httpx.AccountIDFromCtx(ctx) {
		portalapi.ErrForbidden.WriteError(w)
		return
	}

	var req portalapi.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return
	}

	account, err := h.AccountsService.UpdateProfile(ctx, accountID, domain.Profile{
		Name:    req.Name,
		Company: req.Company,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			portalapi.ErrAccountNotFound.WriteError(w)
			return
		}
		log.Error("profile update failed", "err", err)
		portalapi.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, portalapi.AccountResponse{
		ID:              account.ID,
		Email:           account.Email,
		Role:            string(account.Role),
		OrganizationID:  account.OrganizationID,
		ProfileComplete: account.Profile.Complete(),
	})
}
