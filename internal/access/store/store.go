package store

import (
	"context"
	"errors"
	"time"

	"github.com/haulstack/freightportal/internal/access/domain"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrAlreadyConsumed = errors.New("store: invitation already consumed")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, with transactions available for multi-step operations.
type Store interface {
	Invitations() Invitations
	Accounts() Accounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invitations interface {
	// CreateInvitation inserts a new invitation record (token_hash is the
	// SHA-256 fingerprint of the opaque token, id is an app-supplied ULID).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetActiveByTokenHash returns a not-consumed, not-expired invitation by
	// fingerprint. Used by the redemption landing route, which must not
	// consume anything.
	GetActiveByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// ClaimByTokenHash atomically sets consumed_at for a live invitation and
	// returns the claimed record. This compare-and-set is the sole
	// concurrency-control point for redemption: of two racing claims exactly
	// one wins. Returns ErrNotFound for unknown or expired fingerprints and
	// ErrAlreadyConsumed for spent ones.
	ClaimByTokenHash(ctx context.Context, hash string, now time.Time) (domain.Invitation, error)

	// ListByOrganization returns an organization's invitations, newest
	// first. Records are retained indefinitely as an audit trail.
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Invitation, error)
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail returns an account by email address.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is an app-supplied ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateRole sets the role for an account and bumps updated_at.
	// Returns ErrNotFound when the account does not exist.
	UpdateRole(ctx context.Context, accountID string, role domain.Role) error

	// UpdateProfile replaces the profile fields and bumps updated_at.
	// Returns ErrNotFound when the account does not exist.
	UpdateProfile(ctx context.Context, accountID string, p domain.Profile) error
}
