package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"time"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/mail"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/pkg/cryptox"
	"github.com/haulstack/freightportal/pkg/idx"
	"github.com/haulstack/freightportal/pkg/slogx"
)

var (
	ErrNoRecipients        = errors.New("no recipients given")
	ErrInvitationNotFound  = errors.New("invitation not found or expired")
	ErrInvitationConsumed  = errors.New("invitation has already been used")
	ErrProvisioningFailed  = errors.New("invitation consumed but account provisioning failed")
	ErrAccountEmailInUse   = errors.New("an account already exists for this email")
	ErrInvalidEmailAddress = errors.New("invalid email address")
)

// DefaultInvitationTTL bounds how long an emailed link stays redeemable.
// Enforced at read time only; records are never deleted.
const DefaultInvitationTTL = 14 * 24 * time.Hour

// InviteOutcome is the per-recipient result of a batch invite. Each address
// is an independent unit of work, so one outcome failing says nothing about
// its siblings.
type InviteOutcome struct {
	Email        string
	InvitationID string
	ExpiresAt    time.Time

	// StoreErr is set when the record could not be persisted; no email was
	// attempted in that case.
	StoreErr error

	// DeliveryErr is set when the record exists but the email collaborator
	// could not deliver. Re-inviting the address mints a fresh record.
	DeliveryErr error
}

// InviteService orchestrates invitation issuance and redemption.
type InviteService struct {
	Store   store.Store
	Mailer  mail.Mailer
	BaseURL string        // portal origin used to build redemption links
	TTL     time.Duration // zero means DefaultInvitationTTL
}

func (s *InviteService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultInvitationTTL
	}
	return s.TTL
}

// Invite mints an invitation per address and emails each a redemption link.
// Store or delivery failure for one address never aborts the rest; the caller
// gets every outcome and decides what to re-invoke. Delivery is not retried
// here.
func (s *InviteService) Invite(
	ctx context.Context,
	emails []string,
	inviterID string,
	organizationID string,
) ([]InviteOutcome, error) {
	log := slogx.FromContext(ctx)

	if len(emails) == 0 {
		return nil, ErrNoRecipients
	}

	outcomes := make([]InviteOutcome, 0, len(emails))
	for _, email := range emails {
		outcomes = append(outcomes, s.inviteOne(ctx, email, inviterID, organizationID))
	}

	var delivered, failed int
	for _, o := range outcomes {
		if o.StoreErr != nil || o.DeliveryErr != nil {
			failed++
		} else {
			delivered++
		}
	}
	log.Info("invitation batch processed",
		slog.String("organization_id", organizationID),
		slog.String("invited_by", inviterID),
		slog.Int("delivered", delivered),
		slog.Int("failed", failed),
	)

	return outcomes, nil
}

func (s *InviteService) inviteOne(
	ctx context.Context,
	email string,
	inviterID string,
	organizationID string,
) InviteOutcome {
	log := slogx.FromContext(ctx)
	outcome := InviteOutcome{Email: email}

	if _, err := netmail.ParseAddress(email); err != nil {
		outcome.StoreErr = fmt.Errorf("%w: %q", ErrInvalidEmailAddress, email)
		return outcome
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		outcome.StoreErr = err
		return outcome
	}

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:             idx.New().String(),
		Email:          email,
		TokenHash:      cryptox.FingerprintToken(token),
		InvitedBy:      inviterID,
		OrganizationID: organizationID,
		ExpiresAt:      now.Add(s.ttl()),
		CreatedAt:      now,
	}

	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to persist invitation",
			slog.String("email", email),
			slog.Any("error", err),
		)
		outcome.StoreErr = err
		return outcome
	}

	outcome.InvitationID = inv.ID
	outcome.ExpiresAt = inv.ExpiresAt

	msg := redemptionEmail(s.BaseURL, token, email)
	if err := s.Mailer.Send(ctx, msg); err != nil {
		// Record exists; only delivery failed. Reported, not retried.
		log.Warn("invitation email delivery failed",
			slog.String("email", email),
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		outcome.DeliveryErr = err
		return outcome
	}

	log.Debug("invitation sent",
		slog.String("invitation_id", inv.ID),
		slog.String("email", email),
	)
	return outcome
}

// redemptionEmail builds the invitation message. The token is base64url so it
// needs no escaping in the query string.
func redemptionEmail(baseURL, token, email string) mail.Message {
	link := fmt.Sprintf("%s/invite?token=%s", baseURL, token)
	return mail.Message{
		To:      email,
		Subject: "You have been invited to the freight portal",
		Body: fmt.Sprintf(
			"Hello,\n\nYou have been invited to the freight portal. "+
				"Follow the link below to activate your account:\n\n%s\n\n"+
				"If you were not expecting this invitation you can ignore this email.\n",
			link,
		),
	}
}

// ListInvitations returns an organization's invitation records, newest first.
// Consumed and expired records are included; the trail is never pruned.
func (s *InviteService) ListInvitations(ctx context.Context, organizationID string) ([]domain.Invitation, error) {
	return s.Store.Invitations().ListByOrganization(ctx, organizationID)
}

// Lookup validates a raw token without consuming it, for the redemption
// landing route.
func (s *InviteService) Lookup(ctx context.Context, token string) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvitationNotFound
	}

	inv, err := s.Store.Invitations().GetActiveByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, err
	}
	return inv, nil
}

// Redeem consumes an invitation token and provisions the account it was
// minted for. The claim is a store-level compare-and-set, so of two racing
// redemptions exactly one proceeds to provisioning.
//
// The claim and the provisioning are one logical unit but are deliberately
// not rolled back together: unwinding the claim on a provisioning failure
// would reopen the race with a concurrent duplicate redemption. A failure
// after the claim surfaces as ErrProvisioningFailed for manual remediation.
func (s *InviteService) Redeem(ctx context.Context, token string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	if token == "" {
		return domain.Account{}, ErrInvitationNotFound
	}

	hash := cryptox.FingerprintToken(token)
	inv, err := s.Store.Invitations().ClaimByTokenHash(ctx, hash, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn("redemption attempted with unknown or expired token")
			return domain.Account{}, ErrInvitationNotFound
		case errors.Is(err, store.ErrAlreadyConsumed):
			log.Warn("redemption attempted with spent token")
			return domain.Account{}, ErrInvitationConsumed
		default:
			log.Error("failed to claim invitation", slog.Any("error", err))
			return domain.Account{}, err
		}
	}

	account := domain.Account{
		ID:             idx.New().String(),
		Email:          inv.Email,
		Role:           domain.RoleUser, // elevation is a separate privileged mutation
		OrganizationID: inv.OrganizationID,
	}

	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		log.Error("account provisioning failed after invitation claim; manual remediation required",
			slog.String("invitation_id", inv.ID),
			slog.String("email", inv.Email),
			slog.Any("error", err),
		)
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, fmt.Errorf("%w: %w", ErrProvisioningFailed, ErrAccountEmailInUse)
		}
		return domain.Account{}, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}

	log.Info("account provisioned via invitation",
		slog.String("account_id", account.ID),
		slog.String("invitation_id", inv.ID),
		slog.String("organization_id", inv.OrganizationID),
	)

	return account, nil
}
