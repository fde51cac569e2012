package domain

import (
	"errors"
	"time"
)

// Role is the coarse capability tier attached to an account. Exactly one role
// per account; elevation only happens through the privileged role-update path.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var ErrInvalidRole = errors.New("domain: invalid role")

// ParseRole validates a role string from an API request or a database row.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// Profile holds the account attributes the portal requires before granting
// access to the main application routes.
type Profile struct {
	Name    string
	Company string
	Address string
	Phone   string
}

// Complete reports whether every required profile field is filled in. It is
// derived on demand, never cached, so a just-finished profile takes effect on
// the next gate evaluation.
func (p Profile) Complete() bool {
	return p.Name != "" && p.Company != "" && p.Address != "" && p.Phone != ""
}

// Account is a portal account provisioned through invitation redemption.
type Account struct {
	ID             string
	Email          string
	Role           Role
	OrganizationID string
	Profile        Profile
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
