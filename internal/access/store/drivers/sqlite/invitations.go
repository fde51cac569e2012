package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/store"
)

type invitationsRepo struct {
	e execer
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.e.ExecContext(ctx, `
		INSERT INTO invitations (id, email, token_hash, invited_by, organization_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.TokenHash, inv.InvitedBy, inv.OrganizationID,
		inv.ExpiresAt.UTC(), inv.CreatedAt.UTC(),
	)
	return err
}

func (r *invitationsRepo) GetActiveByTokenHash(
	ctx context.Context,
	hash string,
) (domain.Invitation, error) {
	row := r.e.QueryRowContext(ctx, `
		SELECT id, email, token_hash, invited_by, organization_id, expires_at, consumed_at, created_at
		FROM invitations
		WHERE token_hash = ? AND consumed_at IS NULL AND expires_at > ?`,
		hash, time.Now().UTC(),
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) ClaimByTokenHash(
	ctx context.Context,
	hash string,
	now time.Time,
) (domain.Invitation, error) {
	now = now.UTC()

	// The conditional UPDATE is the compare-and-set: only a live, unconsumed
	// invitation matches, so of two racing claims exactly one changes a row.
	res, err := r.e.ExecContext(ctx, `
		UPDATE invitations
		SET consumed_at = ?
		WHERE token_hash = ? AND consumed_at IS NULL AND expires_at > ?`,
		now, hash, now,
	)
	if err != nil {
		return domain.Invitation{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.Invitation{}, err
	}

	if n == 0 {
		// Distinguish a spent token from an unknown or expired one. Expired
		// reads back as not-found: to the redeemer the two are the same.
		row := r.e.QueryRowContext(ctx, `
			SELECT id, email, token_hash, invited_by, organization_id, expires_at, consumed_at, created_at
			FROM invitations
			WHERE token_hash = ?`, hash,
		)
		inv, err := scanInvitation(row)
		if err != nil {
			return domain.Invitation{}, err
		}
		if inv.Consumed() {
			return domain.Invitation{}, store.ErrAlreadyConsumed
		}
		return domain.Invitation{}, store.ErrNotFound
	}

	row := r.e.QueryRowContext(ctx, `
		SELECT id, email, token_hash, invited_by, organization_id, expires_at, consumed_at, created_at
		FROM invitations
		WHERE token_hash = ?`, hash,
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) ListByOrganization(
	ctx context.Context,
	orgID string,
) ([]domain.Invitation, error) {
	rows, err := r.e.QueryContext(ctx, `
		SELECT id, email, token_hash, invited_by, organization_id, expires_at, consumed_at, created_at
		FROM invitations
		WHERE organization_id = ?
		ORDER BY id DESC`, orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitationRow(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row *sql.Row) (domain.Invitation, error) {
	inv, err := scanInvitationRow(row)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func scanInvitationRow(s rowScanner) (domain.Invitation, error) {
	var inv domain.Invitation
	var consumedAt sql.NullTime

	err := s.Scan(
		&inv.ID, &inv.Email, &inv.TokenHash, &inv.InvitedBy,
		&inv.OrganizationID, &inv.ExpiresAt, &consumedAt, &inv.CreatedAt,
	)
	if err != nil {
		return domain.Invitation{}, err
	}

	inv.ConsumedAt = mapNullTimePtr(consumedAt)
	return inv, nil
}
