package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/mail"
	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/internal/access/store/drivers/sqlite"
	"github.com/haulstack/freightportal/pkg/idx"
	"github.com/haulstack/freightportal/pkg/jwtx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/stretchr/testify/require"
)

const testIssuer = "haulstack-identity"

// captureMailer records sent messages so tests can fish tokens out of them.
type captureMailer struct {
	sent []mail.Message
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	router *Router
	store  store.Store
	signer *jwtx.EdDSASigner
	mailer *captureMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, pub, err := jwtx.GenerateEdDSASigner()
	require.NoError(t, err)
	verifier := jwtx.NewEdDSAVerifier(pub, testIssuer)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &captureMailer{}

	router := NewRouter(verifier, st, logger)
	router.InviteService = &service.InviteService{
		Store:   st,
		Mailer:  mailer,
		BaseURL: "https://portal.haulstack.example",
	}
	router.RolesService = &service.RolesService{Store: st}
	router.AccountsService = &service.AccountsService{Store: st}
	router.Gate = &service.Gate{
		Store:             st,
		ProfileSetupRoute: "/profile/setup",
		Routes: map[string]domain.RouteRule{
			"/": {},
			"/profile/setup": {
				RequiresAuth: true,
			},
			"/quotes": {
				RequiresAuth:            true,
				RequiresCompleteProfile: true,
			},
			"/admin/accounts": {
				RequiresAuth:            true,
				RequiresRole:            domain.RoleAdmin,
				RequiresCompleteProfile: true,
			},
		},
	}
	router.Sessions = service.NewSessionRegistry(time.Hour, func(ctx context.Context, sid string) error {
		return nil
	}, logger)
	t.Cleanup(router.Sessions.Shutdown)
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, signer: signer, mailer: mailer}
}

// seedAccount creates an account directly in the store and returns it.
func (e *testEnv) seedAccount(t *testing.T, role domain.Role, complete bool) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:             idx.New().String(),
		Email:          idx.New().String() + "@haulstack.example",
		Role:           role,
		OrganizationID: "org-1",
	}
	if complete {
		a.Profile = domain.Profile{
			Name:    "Sam Dispatcher",
			Company: "Haulstack Logistics",
			Address: "1 Dock Rd",
			Phone:   "+1 555 0101",
		}
	}
	require.NoError(t, e.store.Accounts().CreateAccount(context.Background(), a))
	return a
}

// tokenFor signs a session token for an account the way the identity
// provider would.
func (e *testEnv) tokenFor(t *testing.T, accountID string) string {
	t.Helper()

	claims := jwtx.NewSessionClaims(accountID, "sess-"+accountID, "", time.Hour, testIssuer, time.Now())
	token, err := e.signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestInviteEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("requires a session token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/v1/invitations", "",
			portalapi.InviteRequest{Emails: []string{"x@haulstack.example"}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("requires the admin role", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, true)

		rec := env.do(t, http.MethodPost, "/v1/invitations", env.tokenFor(t, user.ID),
			portalapi.InviteRequest{Emails: []string{"x@haulstack.example"}})
		require.Equal(t, http.StatusForbidden, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		require.Equal(t, portalapi.ErrorCodeForbidden, body["error"])
	})

	t.Run("admin mints a batch with per-address outcomes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)

		rec := env.do(t, http.MethodPost, "/v1/invitations", env.tokenFor(t, admin.ID),
			portalapi.InviteRequest{Emails: []string{
				"one@haulstack.example",
				"not-an-address",
				"two@haulstack.example",
			}})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[portalapi.InviteResponse](t, rec)
		require.Len(t, resp.Results, 3)
		require.Equal(t, portalapi.InviteStatusSent, resp.Results[0].Status)
		require.Equal(t, portalapi.InviteStatusRejected, resp.Results[1].Status)
		require.Equal(t, portalapi.InviteStatusSent, resp.Results[2].Status)
		require.Len(t, env.mailer.sent, 2)

		// The audit listing shows both minted records.
		rec = env.do(t, http.MethodGet, "/v1/invitations", env.tokenFor(t, admin.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decodeBody[portalapi.ListInvitationsResponse](t, rec)
		require.Len(t, list.Invitations, 2)
	})

	t.Run("empty batch is a bad request", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)

		rec := env.do(t, http.MethodPost, "/v1/invitations", env.tokenFor(t, admin.ID),
			portalapi.InviteRequest{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// redemptionToken drives a mint through the API and extracts the raw token
// from the captured email.
func redemptionToken(t *testing.T, env *testEnv, adminID, email string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/v1/invitations", env.tokenFor(t, adminID),
		portalapi.InviteRequest{Emails: []string{email}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := env.mailer.sent[len(env.mailer.sent)-1].Body
	i := strings.Index(body, "/invite?token=")
	require.GreaterOrEqual(t, i, 0)
	token, _, _ := strings.Cut(body[i+len("/invite?token="):], "\n")
	return strings.TrimSpace(token)
}

func TestRedeemEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("landing previews without consuming, then redeems once", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)
		token := redemptionToken(t, env, admin.ID, "new@haulstack.example")

		rec := env.do(t, http.MethodGet, "/invite?token="+url.QueryEscape(token), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		preview := decodeBody[portalapi.InvitationPreview](t, rec)
		require.Equal(t, "new@haulstack.example", preview.Email)

		rec = env.do(t, http.MethodPost, "/v1/invitations/redeem", "",
			portalapi.RedeemRequest{Token: token})
		require.Equal(t, http.StatusCreated, rec.Code)

		account := decodeBody[portalapi.RedeemResponse](t, rec)
		require.Equal(t, "new@haulstack.example", account.Email)
		require.Equal(t, "user", account.Role)
		require.Equal(t, "org-1", account.OrganizationID)

		// Second redemption is refused with the spent-token error.
		rec = env.do(t, http.MethodPost, "/v1/invitations/redeem", "",
			portalapi.RedeemRequest{Token: token})
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		require.Equal(t, portalapi.ErrorCodeAlreadyConsumed, body["error"])
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/v1/invitations/redeem", "",
			portalapi.RedeemRequest{Token: "never-issued"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		require.Equal(t, portalapi.ErrorCodeInvalidToken, body["error"])
	})
}

func TestRoleEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("admin promotes a user", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)
		user := env.seedAccount(t, domain.RoleUser, true)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+user.ID+"/role",
			env.tokenFor(t, admin.ID), portalapi.RoleUpdateRequest{Role: "admin"})
		require.Equal(t, http.StatusNoContent, rec.Code)

		role, err := env.router.RolesService.GetRole(context.Background(), user.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, role)
	})

	t.Run("invalid role is a bad request", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+admin.ID+"/role",
			env.tokenFor(t, admin.ID), portalapi.RoleUpdateRequest{Role: "superuser"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		admin := env.seedAccount(t, domain.RoleAdmin, true)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+idx.New().String()+"/role",
			env.tokenFor(t, admin.ID), portalapi.RoleUpdateRequest{Role: "admin"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, true)
		other := env.seedAccount(t, domain.RoleUser, true)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+other.ID+"/role",
			env.tokenFor(t, user.ID), portalapi.RoleUpdateRequest{Role: "admin"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestProfileEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("completing the profile reports complete", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, false)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+user.ID+"/profile",
			env.tokenFor(t, user.ID), portalapi.ProfileUpdateRequest{
				Name:    "Sam Dispatcher",
				Company: "Haulstack Logistics",
				Address: "1 Dock Rd",
				Phone:   "+1 555 0101",
			})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[portalapi.AccountResponse](t, rec)
		require.True(t, resp.ProfileComplete)
	})

	t.Run("a partial save stays incomplete", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, false)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+user.ID+"/profile",
			env.tokenFor(t, user.ID), portalapi.ProfileUpdateRequest{Name: "Sam"})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[portalapi.AccountResponse](t, rec)
		require.False(t, resp.ProfileComplete)
	})

	t.Run("writing someone else's profile is refused", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, true)
		other := env.seedAccount(t, domain.RoleUser, true)

		rec := env.do(t, http.MethodPut, "/v1/accounts/"+other.ID+"/profile",
			env.tokenFor(t, user.ID), portalapi.ProfileUpdateRequest{Name: "Mallory"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAuthorizeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("anonymous callers get real decisions", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/v1/authorize?route=/", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "allow", decodeBody[portalapi.AuthorizeResponse](t, rec).Decision)

		rec = env.do(t, http.MethodGet, "/v1/authorize?route="+url.QueryEscape("/quotes"), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "deny", decodeBody[portalapi.AuthorizeResponse](t, rec).Decision)
	})

	t.Run("incomplete profile is redirected to setup", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, false)

		rec := env.do(t, http.MethodGet,
			"/v1/authorize?route="+url.QueryEscape("/quotes"), env.tokenFor(t, user.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[portalapi.AuthorizeResponse](t, rec)
		require.Equal(t, "redirect", resp.Decision)
		require.Equal(t, "/profile/setup", resp.RedirectTo)
	})

	t.Run("admin route needs the admin role", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, true)
		admin := env.seedAccount(t, domain.RoleAdmin, true)

		route := url.QueryEscape("/admin/accounts")

		rec := env.do(t, http.MethodGet, "/v1/authorize?route="+route, env.tokenFor(t, user.ID), nil)
		require.Equal(t, "deny", decodeBody[portalapi.AuthorizeResponse](t, rec).Decision)

		rec = env.do(t, http.MethodGet, "/v1/authorize?route="+route, env.tokenFor(t, admin.ID), nil)
		require.Equal(t, "allow", decodeBody[portalapi.AuthorizeResponse](t, rec).Decision)
	})

	t.Run("unknown route is not found", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/v1/authorize?route="+url.QueryEscape("/nope"), "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("garbage bearer token is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/v1/authorize?route=/", "not-a-jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("begin, activity and end round trip", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := env.seedAccount(t, domain.RoleUser, true)
		token := env.tokenFor(t, user.ID)

		rec := env.do(t, http.MethodPost, "/v1/sessions", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeBody[portalapi.SessionResponse](t, rec)
		require.Equal(t, "sess-"+user.ID, resp.SessionID)
		require.Equal(t, 3600, resp.IdleTimeoutSeconds)
		require.True(t, env.router.Sessions.Active(resp.SessionID))

		rec = env.do(t, http.MethodPost, "/v1/sessions/activity", token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodDelete, "/v1/sessions", token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.False(t, env.router.Sessions.Active(resp.SessionID))
	})

	t.Run("session endpoints require a token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/v1/sessions", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[portalapi.HealthResponse](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ready := decodeBody[portalapi.HealthResponse](t, rec)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}
