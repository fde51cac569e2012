package domain

import "time"

// Invitation is the audit record behind an emailed redemption link. Only the
// token's SHA-256 fingerprint is stored; the raw token exists in the email.
// Records are never deleted — expiry is enforced when they are read.
type Invitation struct {
	ID             string
	Email          string
	TokenHash      string
	InvitedBy      string // account ID of the inviter
	OrganizationID string
	ExpiresAt      time.Time
	ConsumedAt     *time.Time
	CreatedAt      time.Time
}

// Consumed reports whether the invitation has already been redeemed.
func (i Invitation) Consumed() bool {
	return i.ConsumedAt != nil
}

// Expired reports whether the invitation is past its useful lifetime at the
// given instant.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
