package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/pkg/slogx"
)

var ErrAccountNotFound = errors.New("account not found")

// RolesService owns the privileged role mutation. Authorization of the caller
// is the access gate's job at the HTTP boundary; there is no self-service
// path through which a user can touch their own role.
type RolesService struct {
	Store store.Store
}

// UpdateRole sets the role for an account.
func (s *RolesService) UpdateRole(
	ctx context.Context,
	accountID string,
	role domain.Role,
) error {
	log := slogx.FromContext(ctx)

	if err := s.Store.Accounts().UpdateRole(ctx, accountID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("role update for unknown account",
				slog.String("account_id", accountID),
			)
			return ErrAccountNotFound
		}
		log.Error("failed to update role", slog.Any("error", err))
		return err
	}

	log.Info("account role updated",
		slog.String("account_id", accountID),
		slog.String("role", string(role)),
	)
	return nil
}

// GetRole returns the current role for an account.
func (s *RolesService) GetRole(ctx context.Context, accountID string) (domain.Role, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	return account.Role, nil
}
