package service

import (
	"context"
	"testing"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestAccountsService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("profile update round trips and derives completeness", func(t *testing.T) {
		t.Parallel()
		svc := &AccountsService{Store: newServiceStore(t)}

		account := domain.Account{
			ID:             idx.New().String(),
			Email:          "profile@haulstack.example",
			Role:           domain.RoleUser,
			OrganizationID: "org-1",
		}
		require.NoError(t, svc.Store.Accounts().CreateAccount(ctx, account))

		got, err := svc.Get(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, got.Profile.Complete())

		// Partial save: still incomplete.
		got, err = svc.UpdateProfile(ctx, account.ID, domain.Profile{Name: "Sam"})
		require.NoError(t, err)
		require.False(t, got.Profile.Complete())

		got, err = svc.UpdateProfile(ctx, account.ID, domain.Profile{
			Name:    "Sam Dispatcher",
			Company: "Haulstack Logistics",
			Address: "1 Dock Rd",
			Phone:   "+1 555 0101",
		})
		require.NoError(t, err)
		require.True(t, got.Profile.Complete())
	})

	t.Run("missing accounts are reported as such", func(t *testing.T) {
		t.Parallel()
		svc := &AccountsService{Store: newServiceStore(t)}

		_, err := svc.Get(ctx, idx.New().String())
		require.ErrorIs(t, err, ErrAccountNotFound)

		_, err = svc.UpdateProfile(ctx, idx.New().String(), domain.Profile{})
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}
