package portalapi

// ============================================================================
// Invitation Types
// ============================================================================

// InviteRequest asks the service to mint and email invitations for a batch
// of addresses. Each address is processed independently.
type InviteRequest struct {
	// Emails is the list of recipient addresses. Must be non-empty.
	Emails []string `json:"emails"`
}

// Invitation outcome statuses.
const (
	InviteStatusSent           = "sent"
	InviteStatusRejected       = "rejected"
	InviteStatusDeliveryFailed = "delivery_failed"
)

// InviteResult is the per-address outcome of a batch invite.
type InviteResult struct {
	Email string `json:"email"`

	// Status is one of "sent", "rejected" or "delivery_failed".
	Status string `json:"status"`

	// InvitationID identifies the minted record. Empty when Status is
	// "rejected"; present for "delivery_failed" because the record exists
	// even though the email never went out.
	InvitationID string `json:"invitation_id,omitempty"`

	// ExpiresAt is when the emailed link stops working (RFC3339).
	ExpiresAt string `json:"expires_at,omitempty"`

	// Error describes the failure for non-"sent" statuses.
	Error string `json:"error,omitempty"`
}

// InviteResponse carries one result per requested address, in request order.
type InviteResponse struct {
	Results []InviteResult `json:"results"`
}

// InvitationInfo describes one invitation record for listing.
type InvitationInfo struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	InvitedBy      string `json:"invited_by"`
	OrganizationID string `json:"organization_id"`
	CreatedAt      string `json:"created_at"`  // RFC3339
	ExpiresAt      string `json:"expires_at"`  // RFC3339
	ConsumedAt     string `json:"consumed_at"` // RFC3339, empty while unredeemed
}

// ListInvitationsResponse contains the invitation records for an
// organization, newest first. Consumed and expired records are included;
// the trail is never pruned.
type ListInvitationsResponse struct {
	Invitations []InvitationInfo `json:"invitations"`
}

// InvitationPreview is returned from the redemption landing route. It
// confirms the token is live without consuming it.
type InvitationPreview struct {
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"` // RFC3339
}

// RedeemRequest consumes an invitation token.
type RedeemRequest struct {
	Token string `json:"token"`
}

// RedeemResponse describes the account provisioned by a redemption.
type RedeemResponse struct {
	AccountID      string `json:"account_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
}

// ============================================================================
// Account Types
// ============================================================================

// RoleUpdateRequest changes an account's role.
type RoleUpdateRequest struct {
	// Role is "admin" or "user".
	Role string `json:"role"`
}

// ProfileUpdateRequest replaces an account's profile fields.
type ProfileUpdateRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// AccountResponse describes one account.
type AccountResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	OrganizationID  string `json:"organization_id"`
	ProfileComplete bool   `json:"profile_complete"`
}

// ============================================================================
// Authorization Types
// ============================================================================

// AuthorizeResponse is the access decision for one route.
type AuthorizeResponse struct {
	// Decision is "allow", "deny" or "redirect".
	Decision string `json:"decision"`

	// RedirectTo is set when Decision is "redirect" and names the route the
	// client should navigate to instead.
	RedirectTo string `json:"redirect_to,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

// SessionResponse acknowledges session tracking operations.
type SessionResponse struct {
	SessionID string `json:"session_id"`

	// IdleTimeoutSeconds is how long the session may sit without activity
	// before it is force-terminated.
	IdleTimeoutSeconds int `json:"idle_timeout_seconds"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is shared by the /livez and /readyz endpoints; readyz
// includes the Checks field.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`

	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}
