package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client for the access service. The session token is the
// bearer token issued by the identity provider; unauthenticated endpoints
// ignore it.
type Client struct {
	BaseURL      string
	SessionToken string
	HTTPClient   *http.Client
}

// NewClient creates a client for the access service at baseURL.
func NewClient(baseURL, sessionToken string) *Client {
	return &Client{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		SessionToken: sessionToken,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Invite mints and emails invitations for the given addresses. Requires an
// admin session.
func (c *Client) Invite(ctx context.Context, emails []string) (*InviteResponse, error) {
	var out InviteResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/invitations",
		InviteRequest{Emails: emails}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvitations returns the caller organization's invitation records,
// newest first. Requires an admin session.
func (c *Client) ListInvitations(ctx context.Context) (*ListInvitationsResponse, error) {
	var out ListInvitationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/invitations", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupInvitation previews an invitation without consuming it.
func (c *Client) LookupInvitation(ctx context.Context, token string) (*InvitationPreview, error) {
	var out InvitationPreview
	path := "/invite?token=" + url.QueryEscape(token)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Redeem consumes an invitation token and returns the provisioned account.
func (c *Client) Redeem(ctx context.Context, token string) (*RedeemResponse, error) {
	var out RedeemResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/invitations/redeem",
		RedeemRequest{Token: token}, &out, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRole changes an account's role. Requires an admin session.
func (c *Client) UpdateRole(ctx context.Context, accountID, role string) error {
	path := "/v1/accounts/" + url.PathEscape(accountID) + "/role"
	return c.doJSON(ctx, http.MethodPut, path, RoleUpdateRequest{Role: role}, nil, http.StatusNoContent)
}

// UpdateProfile replaces the caller's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, accountID string, req ProfileUpdateRequest) (*AccountResponse, error) {
	var out AccountResponse
	path := "/v1/accounts/" + url.PathEscape(accountID) + "/profile"
	if err := c.doJSON(ctx, http.MethodPut, path, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authorize asks for the access decision on a route for the caller's session.
func (c *Client) Authorize(ctx context.Context, route string) (*AuthorizeResponse, error) {
	var out AuthorizeResponse
	path := "/v1/authorize?route=" + url.QueryEscape(route)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// BeginSession starts idle tracking for the caller's session.
func (c *Client) BeginSession(ctx context.Context) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", nil, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordActivity reports a qualifying interaction, resetting the idle clock.
func (c *Client) RecordActivity(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/sessions/activity", nil, nil, http.StatusNoContent)
}

// EndSession signs the caller out and stops idle tracking.
func (c *Client) EndSession(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/sessions", nil, nil, http.StatusNoContent)
}

// Livez checks process liveness.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz checks service readiness including its dependencies.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON performs a request with an optional JSON body, decodes the response
// into out when expectedStatus carries a body, and maps non-2xx responses to
// *APIError.
func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	in, out any,
	expectedStatus int,
) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.SessionToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
