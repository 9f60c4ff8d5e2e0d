package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"

	"github.com/flexio/bbauth/auth"
	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/internal/config"
	"github.com/flexio/bbauth/providers"
	"github.com/flexio/bbauth/ratelimit"
	"github.com/flexio/bbauth/server"
	"github.com/flexio/bbauth/storage"
	"github.com/flexio/bbauth/token"
	"github.com/flexio/bbauth/token/keys"
)

const (
	testAdminToken  = "admin-secret"
	testVerifierURL = "https://verifier.example.com/check"
	testRedirectURI = "https://app.example.com/cb"
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.OAuth
	config.Security
	config.Storage
}

func (testConfig) GetEnv() string        { return "TEST" }
func (testConfig) GetAdminToken() string { return testAdminToken }

type serverFixture struct {
	server  *httptest.Server
	client  *http.Client
	clients *clients.Registry
}

func newServerFixture(t *testing.T, opts ...func(*server.Dependencies)) *serverFixture {
	t.Helper()

	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	keyPair, err := keys.GenerateES256KeyPair(keys.DefaultKeyID)
	require.NoError(t, err)

	clientRegistry := clients.NewRegistry(store)
	providerRegistry := providers.NewRegistry(store)
	sessionRepo := auth.NewSessionRepo(store)
	codeRepo := auth.NewAuthCodeRepo(store)
	refreshRepo := token.NewRefreshTokenRepo(store)
	manager := token.New(keys.NewKeyPairSigner(keyPair), "http://localhost:8080", refreshRepo)

	authService := auth.NewAuthorizationService(auth.Dependencies{
		Clients:       clientRegistry,
		Providers:     providerRegistry,
		Sessions:      sessionRepo,
		Codes:         codeRepo,
		Tokens:        manager,
		RefreshTokens: refreshRepo,
		VerifierURL:   testVerifierURL,
	})

	deps := server.Dependencies{
		Auth:      authService,
		Clients:   clientRegistry,
		Providers: providerRegistry,
		Tokens:    manager,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv := server.New(testConfig{}, deps, zerolog.Nop())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	_, _, err = clientRegistry.Register(context.Background(), clients.Registration{
		ClientID:      "c1",
		Name:          "test app",
		Type:          clients.ClientTypePublic,
		RedirectURIs:  []string{testRedirectURI},
		AllowedScopes: []string{"email", "drive.readonly"},
	})
	require.NoError(t, err)

	return &serverFixture{
		server:  ts,
		clients: clientRegistry,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (f *serverFixture) authorizeURL(challenge string) string {
	q := url.Values{}
	q.Set("client_id", "c1")
	q.Set("redirect_uri", testRedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "email")
	q.Set("state", "xyz")
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	return f.server.URL + "/oauth/authorize?" + q.Encode()
}

// runFlow drives authorize and callback over HTTP, returning the one-time
// authorization code.
func (f *serverFixture) runFlow(t *testing.T, verifier, email string) string {
	t.Helper()

	resp, err := f.client.Get(f.authorizeURL(xoauth2.S256ChallengeFromVerifier(verifier)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(location.String(), testVerifierURL))
	sessionID := location.Query().Get("session_id")
	require.NotEmpty(t, sessionID)

	callbackURL := f.server.URL + "/oauth/callback?session_id=" + url.QueryEscape(sessionID) + "&email=" + url.QueryEscape(email)
	resp, err = f.client.Get(callbackURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	clientRedirect, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "xyz", clientRedirect.Query().Get("state"))
	code := clientRedirect.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (f *serverFixture) postToken(t *testing.T, form url.Values) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := f.client.PostForm(f.server.URL+"/oauth/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func exchangeForm(code, verifier string) url.Values {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", testRedirectURI)
	form.Set("client_id", "c1")
	form.Set("code_verifier", verifier)
	return form
}

func TestAuthorizationCodeFlow(t *testing.T) {
	f := newServerFixture(t)

	verifier := xoauth2.GenerateVerifier()
	code := f.runFlow(t, verifier, "user@example.com")

	resp, body := f.postToken(t, exchangeForm(code, verifier))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	require.Equal(t, "Bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
	require.NotEmpty(t, body["id_token"])
	require.Equal(t, "email", body["scope"])

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/oauth/userinfo", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+body["access_token"].(string))
	userInfoResp, err := f.client.Do(req)
	require.NoError(t, err)
	defer userInfoResp.Body.Close()
	require.Equal(t, http.StatusOK, userInfoResp.StatusCode)

	var info map[string]any
	require.NoError(t, json.NewDecoder(userInfoResp.Body).Decode(&info))
	require.Equal(t, "user@example.com", info["email"])
	require.Equal(t, "user@example.com", info["sub"])
	require.Equal(t, true, info["email_verified"])
}

func TestAuthorizePlainChallengeRejected(t *testing.T) {
	f := newServerFixture(t)

	q := url.Values{}
	q.Set("client_id", "c1")
	q.Set("redirect_uri", testRedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "email")
	q.Set("code_challenge", "plain-text-challenge")
	q.Set("code_challenge_method", "plain")

	resp, err := f.client.Get(f.server.URL + "/oauth/authorize?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	// Direct JSON error, not a redirect
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "invalid_request", body["error"])
}

func TestTokenDoubleRedemption(t *testing.T) {
	f := newServerFixture(t)

	verifier := xoauth2.GenerateVerifier()
	code := f.runFlow(t, verifier, "user@example.com")

	resp, _ := f.postToken(t, exchangeForm(code, verifier))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.postToken(t, exchangeForm(code, verifier))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", body["error"])
}

func TestRefreshTokenGrant(t *testing.T) {
	f := newServerFixture(t)

	verifier := xoauth2.GenerateVerifier()
	code := f.runFlow(t, verifier, "user@example.com")
	resp, body := f.postToken(t, exchangeForm(code, verifier))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", body["refresh_token"].(string))
	form.Set("client_id", "c1")

	resp, refreshed := f.postToken(t, form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, refreshed["access_token"])
	require.Empty(t, refreshed["refresh_token"])
}

func TestUserInfoMissingToken(t *testing.T) {
	f := newServerFixture(t)

	resp, err := f.client.Get(f.server.URL + "/oauth/userinfo")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestDiscoveryDocument(t *testing.T) {
	f := newServerFixture(t)

	resp, err := f.client.Get(f.server.URL + "/.well-known/openid-configuration")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, "http://localhost:8080", doc["issuer"])
	require.Equal(t, "http://localhost:8080/oauth/authorize", doc["authorization_endpoint"])
	require.Equal(t, []any{"code"}, doc["response_types_supported"])
	require.Equal(t, []any{"S256"}, doc["code_challenge_methods_supported"])
	require.Equal(t, []any{"ES256"}, doc["id_token_signing_alg_values_supported"])
}

func TestJWKSEndpoint(t *testing.T) {
	f := newServerFixture(t)

	resp, err := f.client.Get(f.server.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "EC", jwks.Keys[0]["kty"])
	require.Equal(t, "P-256", jwks.Keys[0]["crv"])
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	f := newServerFixture(t)

	resp, err := f.client.Get(f.server.URL + "/admin/client/list")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/admin/client/list", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminClientLifecycle(t *testing.T) {
	f := newServerFixture(t)

	registration := `{"clientId":"c2","name":"second app","clientType":"confidential","redirectUris":["https://second.example.com/cb"],"allowedScopes":["email"]}`
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/admin/client/register", strings.NewReader(registration))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created["clientSecret"])

	req, err = http.NewRequest(http.MethodGet, f.server.URL+"/admin/client/list", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	resp, err = f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Clients []map[string]any `json:"clients"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Clients, 2)
	for _, c := range listing.Clients {
		require.Empty(t, c["clientSecretHash"])
	}

	req, err = http.NewRequest(http.MethodDelete, f.server.URL+"/admin/client/delete/c2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	resp, err = f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, f.server.URL+"/admin/client/delete/c2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	resp, err = f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminProviderRegister(t *testing.T) {
	f := newServerFixture(t)

	registration := `{"externalVerifierUrl":"https://other-verifier.example.com/check","name":"campus verifier"}`
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/admin/provider/register", strings.NewReader(registration))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		Provider struct {
			ID string `json:"providerId"`
		} `json:"provider"`
		PrivateKey string `json:"privateKey"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
	require.True(t, strings.HasPrefix(registered.Provider.ID, "bbauth:"))
	require.NotEmpty(t, registered.PrivateKey)
}

func TestRateLimitExceeded(t *testing.T) {
	var store *storage.MemoryStore

	f := newServerFixture(t, func(deps *server.Dependencies) {
		store = storage.NewMemoryStore()
		deps.Limiter = ratelimit.New(store, ratelimit.WithLimit(2))
	})
	t.Cleanup(func() { _ = store.Close() })

	for i := 0; i < 2; i++ {
		resp, err := f.client.Get(f.server.URL + "/.well-known/jwks.json")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := f.client.Get(f.server.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestUnknownRouteNotFound(t *testing.T) {
	f := newServerFixture(t)

	resp, err := f.client.Get(f.server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
