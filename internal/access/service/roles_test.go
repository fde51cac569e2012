package service

import (
	"context"
	"testing"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestRolesService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("updates and reads back the role", func(t *testing.T) {
		t.Parallel()
		svc := &RolesService{Store: newServiceStore(t)}

		account := domain.Account{
			ID:             idx.New().String(),
			Email:          "role@haulstack.example",
			Role:           domain.RoleUser,
			OrganizationID: "org-1",
		}
		require.NoError(t, svc.Store.Accounts().CreateAccount(ctx, account))

		role, err := svc.GetRole(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, role)

		require.NoError(t, svc.UpdateRole(ctx, account.ID, domain.RoleAdmin))

		role, err = svc.GetRole(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, role)
	})

	t.Run("missing accounts are reported as such", func(t *testing.T) {
		t.Parallel()
		svc := &RolesService{Store: newServiceStore(t)}

		err := svc.UpdateRole(ctx, idx.New().String(), domain.RoleAdmin)
		require.ErrorIs(t, err, ErrAccountNotFound)

		_, err = svc.GetRole(ctx, idx.New().String())
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"admin", "user"} {
		role, err := domain.ParseRole(valid)
		require.NoError(t, err)
		require.Equal(t, domain.Role(valid), role)
	}

	for _, invalid := range []string{"", "root", "Admin", "superuser"} {
		_, err := domain.ParseRole(invalid)
		require.ErrorIs(t, err, domain.ErrInvalidRole)
	}
}
