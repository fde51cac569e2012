package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/store"
)

type accountsRepo struct {
	e execer
}

const accountColumns = `id, email, role, organization_id, name, company, address, phone, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.e.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.e.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	_, err := r.e.ExecContext(ctx, `
		INSERT INTO accounts (id, email, role, organization_id, name, company, address, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, string(a.Role), a.OrganizationID,
		a.Profile.Name, a.Profile.Company, a.Profile.Address, a.Profile.Phone,
		a.CreatedAt.UTC(), a.CreatedAt.UTC(),
	)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) UpdateRole(ctx context.Context, accountID string, role domain.Role) error {
	res, err := r.e.ExecContext(ctx, `
		UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), accountID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *accountsRepo) UpdateProfile(ctx context.Context, accountID string, p domain.Profile) error {
	res, err := r.e.ExecContext(ctx, `
		UPDATE accounts SET name = ?, company = ?, address = ?, phone = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Company, p.Address, p.Phone, time.Now().UTC(), accountID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// isUniqueViolation sniffs the driver error text for a UNIQUE constraint
// failure. modernc.org/sqlite does not export typed constraint errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	var role string

	err := row.Scan(
		&a.ID, &a.Email, &role, &a.OrganizationID,
		&a.Profile.Name, &a.Profile.Company, &a.Profile.Address, &a.Profile.Phone,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.Role = domain.Role(role)
	return a, nil
}
