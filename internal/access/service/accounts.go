package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// AccountsService covers account reads and the self-service profile mutation.
type AccountsService struct {
	Store store.Store
}

// Get returns an account by ID.
func (s *AccountsService) Get(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return account, nil
}

// UpdateProfile replaces the account's profile fields and returns the updated
// account. Completeness is not enforced here; the gate derives it on the next
// evaluation, so a partial save simply leaves the redirect in place.
func (s *AccountsService) UpdateProfile(
	ctx context.Context,
	accountID string,
	p domain.Profile,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	if err := s.Store.Accounts().UpdateProfile(ctx, accountID, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		log.Error("failed to update profile", slog.Any("error", err))
		return domain.Account{}, err
	}

	log.Info("account profile updated",
		slog.String("account_id", accountID),
		slog.Bool("complete", p.Complete()),
	)

	return s.Get(ctx, accountID)
}
