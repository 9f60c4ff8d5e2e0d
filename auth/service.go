// Package auth implements the OAuth 2.0 authorization code flow with PKCE:
// the authorize, callback, token and userinfo operations, and the session
// and authorization-code records that bridge them.
package auth

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/crypto"
	"github.com/flexio/bbauth/oauth2"
	"github.com/flexio/bbauth/providers"
	"github.com/flexio/bbauth/token"
)

// AuthorizationParameters are the query parameters of an authorization
// request.
type AuthorizationParameters struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Nonce               string
	ProviderID          string
}

// CallbackParameters are the query parameters the external verifier sends
// back.
type CallbackParameters struct {
	SessionID        string
	Email            string
	Error            string
	ErrorDescription string
}

// RedirectError is a protocol error that is delivered to the client via its
// validated redirect URI. It is only used once the redirect URI has been
// checked against the client's registered list.
type RedirectError struct {
	RedirectURI string
	State       string
	Err         *oauth2.Error
}

func (e *RedirectError) Error() string {
	return e.Err.Error()
}

// URL renders the redirect carrying error, error_description and state.
func (e *RedirectError) URL() string {
	u, err := url.Parse(e.RedirectURI)
	if err != nil {
		return e.RedirectURI
	}
	q := u.Query()
	q.Set("error", e.Err.Code)
	q.Set("error_description", e.Err.Description)
	if e.State != "" {
		q.Set("state", e.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Dependencies wires the authorization service to its collaborators.
type Dependencies struct {
	Clients       *clients.Registry
	Providers     *providers.Registry
	Sessions      *SessionRepo
	Codes         *AuthCodeRepo
	Tokens        *token.Manager
	RefreshTokens *token.RefreshTokenRepo

	// VerifierURL is the default external identity-verification endpoint.
	// A session's provider_id overrides it per request.
	VerifierURL string
}

// AuthorizationService drives the authorize → callback → token state
// machine.
type AuthorizationService struct {
	deps    Dependencies
	nowFunc func() time.Time
}

// ServiceOption configures an AuthorizationService.
type ServiceOption func(*AuthorizationService)

// WithNowFunc sets the clock used for record timestamps and expiry checks.
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *AuthorizationService) {
		s.nowFunc = now
	}
}

// NewAuthorizationService creates the service.
func NewAuthorizationService(deps Dependencies, options ...ServiceOption) *AuthorizationService {
	s := &AuthorizationService{deps: deps, nowFunc: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Authorize validates an authorization request, persists a session and
// returns the verifier redirect URL.
//
// Failures before the redirect URI is validated against the client's
// registered list return a plain *oauth2.Error, rendered as a direct 400;
// redirecting them would hand an open redirect to anyone who can type a
// URL. This is deliberately stricter than RFC 6749 §4.1.2.1, which permits
// redirecting errors such as unsupported_response_type once the client is
// identified: nothing is ever redirected to a URI that has not been
// checked. Failures after that point return a *RedirectError for delivery
// via the client's own redirect URI.
func (s *AuthorizationService) Authorize(ctx context.Context, params AuthorizationParameters) (string, error) {
	if params.ClientID == "" || params.RedirectURI == "" || params.ResponseType == "" ||
		params.Scope == "" || params.CodeChallenge == "" || params.CodeChallengeMethod == "" {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Missing required parameters")
	}

	if params.ResponseType != string(oauth2.CodeResponseType) {
		return "", oauth2.NewError(oauth2.ErrorUnsupportedResponseType, `Only "code" response type is supported`)
	}

	if params.CodeChallengeMethod != string(oauth2.CodeMethodTypeS256) {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Only S256 code challenge method is supported")
	}

	client, err := s.deps.Clients.Get(ctx, params.ClientID)
	if errors.Is(err, clients.ErrClientNotFound) {
		return "", oauth2.NewError(oauth2.ErrorUnauthorizedClient, "Invalid client_id")
	}
	if err != nil {
		return "", errors.Wrap(err, "[Authorize] load client")
	}

	if !client.HasRedirectURI(params.RedirectURI) {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Invalid redirect_uri")
	}

	if err := client.ValidateScopes(params.Scope); err != nil {
		return "", &RedirectError{
			RedirectURI: params.RedirectURI,
			State:       params.State,
			Err:         oauth2.NewError(oauth2.ErrorInvalidScope, "Requested scope is not allowed for this client"),
		}
	}

	now := s.nowFunc()
	session := &Session{
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		Scope:               params.Scope,
		State:               params.State,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: string(oauth2.CodeMethodTypeS256),
		Nonce:               params.Nonce,
		ProviderID:          params.ProviderID,
		CreatedAt:           now.UTC(),
		ExpiresAt:           now.Add(SessionTTL).UTC(),
	}
	if err := s.deps.Sessions.Create(ctx, session); err != nil {
		return "", errors.Wrap(err, "[Authorize] create session")
	}

	verifierURL := s.deps.VerifierURL
	if params.ProviderID != "" {
		if provider, err := s.deps.Providers.Get(ctx, params.ProviderID); err == nil {
			verifierURL = provider.VerifierURL
		}
	}

	return verifierURL + "?session_id=" + url.QueryEscape(session.SessionID), nil
}

// Callback consumes the session the verifier reports on, mints a one-time
// authorization code and returns the client redirect URL carrying it.
func (s *AuthorizationService) Callback(ctx context.Context, params CallbackParameters) (string, error) {
	if params.Error != "" {
		description := params.ErrorDescription
		if description == "" {
			description = "Unknown error"
		}
		return "", oauth2.NewError(params.Error, description)
	}

	if params.SessionID == "" || params.Email == "" {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Missing session_id or email")
	}

	session, err := s.deps.Sessions.Get(ctx, params.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Invalid or expired session")
	}
	if err != nil {
		return "", errors.Wrap(err, "[Callback] load session")
	}

	now := s.nowFunc()
	if session.ExpiresAt.Before(now) {
		// Left to expire via TTL; deleting here would let a racing caller
		// distinguish expiry from absence.
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Session expired")
	}

	code := &AuthorizationCode{
		ClientID:            session.ClientID,
		RedirectURI:         session.RedirectURI,
		Scope:               session.Scope,
		Email:               params.Email,
		CodeChallenge:       session.CodeChallenge,
		CodeChallengeMethod: session.CodeChallengeMethod,
		Nonce:               session.Nonce,
		CreatedAt:           now.UTC(),
		ExpiresAt:           now.Add(AuthCodeTTL).UTC(),
	}
	if err := s.deps.Codes.Create(ctx, code); err != nil {
		return "", errors.Wrap(err, "[Callback] create code")
	}

	// Single use: the consumer that deletes the session wins; a concurrent
	// callback for the same session loses and gets an error.
	owned, err := s.deps.Sessions.Consume(ctx, params.SessionID)
	if err != nil {
		return "", errors.Wrap(err, "[Callback] consume session")
	}
	if !owned {
		return "", oauth2.NewError(oauth2.ErrorInvalidRequest, "Invalid or expired session")
	}

	redirectURL, err := url.Parse(session.RedirectURI)
	if err != nil {
		return "", errors.Wrap(err, "[Callback] parse redirect URI")
	}
	q := redirectURL.Query()
	q.Set("code", code.Code)
	if session.State != "" {
		q.Set("state", session.State)
	}
	redirectURL.RawQuery = q.Encode()
	return redirectURL.String(), nil
}

// ExchangeToken dispatches a token request on its grant type.
func (s *AuthorizationService) ExchangeToken(ctx context.Context, request oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	switch request.GrantType {
	case oauth2.AuthorizationCodeGrant:
		return s.exchangeAuthorizationCode(ctx, request)
	case oauth2.RefreshTokenGrant:
		return s.refreshAccessToken(ctx, request)
	default:
		return nil, oauth2.NewError(oauth2.ErrorUnsupportedGrantType, "Grant type not supported")
	}
}

func (s *AuthorizationService) exchangeAuthorizationCode(ctx context.Context, request oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if request.Code == "" || request.RedirectURI == "" || request.ClientID == "" || request.CodeVerifier == "" {
		return nil, oauth2.NewError(oauth2.ErrorInvalidRequest, "Missing required parameters")
	}

	code, err := s.deps.Codes.Get(ctx, request.Code)
	if errors.Is(err, ErrAuthCodeNotFound) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Invalid or expired authorization code")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] load code")
	}

	if code.ExpiresAt.Before(s.nowFunc()) {
		_ = s.deps.Codes.Delete(ctx, request.Code)
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Authorization code expired")
	}

	if code.ClientID != request.ClientID {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Client ID mismatch")
	}
	if code.RedirectURI != request.RedirectURI {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Redirect URI mismatch")
	}

	if !crypto.VerifyPKCE(request.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "PKCE verification failed")
	}

	client, err := s.deps.Clients.Get(ctx, request.ClientID)
	if errors.Is(err, clients.ErrClientNotFound) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidClient, "Invalid client")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] load client")
	}

	if client.Type == clients.ClientTypeConfidential {
		if err := client.CheckSecret(request.ClientSecret); err != nil {
			return nil, oauth2.NewError(oauth2.ErrorInvalidClient, "Invalid client secret")
		}
	}

	// One-time use. The delete happens only after every prior check passed;
	// a concurrent redemption that lost the race observes the key already
	// gone and fails here.
	owned, err := s.deps.Codes.Consume(ctx, request.Code)
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] consume code")
	}
	if !owned {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Invalid or expired authorization code")
	}

	accessToken, err := s.deps.Tokens.CreateAccessToken(code.Email, code.ClientID, code.Scope)
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] create access token")
	}

	var idToken string
	if scopeContains(code.Scope, "email") {
		idToken, err = s.deps.Tokens.CreateIDToken(code.Email, code.ClientID, code.Nonce)
		if err != nil {
			return nil, errors.Wrap(err, "[exchangeAuthorizationCode] create id token")
		}
	}

	refreshToken, err := s.deps.Tokens.CreateRefreshToken(ctx, code.ClientID, code.Email, code.Scope)
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] create refresh token")
	}

	return &oauth2.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.deps.Tokens.AccessTokenExpiry().Seconds()),
		RefreshToken: refreshToken,
		IDToken:      idToken,
		Scope:        code.Scope,
	}, nil
}

func (s *AuthorizationService) refreshAccessToken(ctx context.Context, request oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if request.RefreshToken == "" || request.ClientID == "" {
		return nil, oauth2.NewError(oauth2.ErrorInvalidRequest, "Missing required parameters")
	}

	record, err := s.deps.RefreshTokens.Get(ctx, request.RefreshToken)
	if errors.Is(err, token.ErrRefreshTokenNotFound) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Invalid or expired refresh token")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[refreshAccessToken] load refresh token")
	}

	if record.ExpiresAt.Before(s.nowFunc()) {
		_ = s.deps.RefreshTokens.Delete(ctx, request.RefreshToken)
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Refresh token expired")
	}

	if record.ClientID != request.ClientID {
		return nil, oauth2.NewError(oauth2.ErrorInvalidGrant, "Client ID mismatch")
	}

	scope := request.Scope
	if scope == "" {
		scope = record.Scope
	}
	if !clients.ScopesSubset(scope, record.Scope) {
		return nil, oauth2.NewError(oauth2.ErrorInvalidScope, "Requested scope exceeds original scope")
	}

	accessToken, err := s.deps.Tokens.CreateAccessToken(record.Email, record.ClientID, scope)
	if err != nil {
		return nil, errors.Wrap(err, "[refreshAccessToken] create access token")
	}

	// No refresh-token rotation on this path; the presented token stays
	// valid until its own expiry.
	return &oauth2.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.deps.Tokens.AccessTokenExpiry().Seconds()),
		Scope:       scope,
	}, nil
}

// UserInfo verifies a bearer access token and returns the identity claims.
// The token must carry the "email" scope.
func (s *AuthorizationService) UserInfo(rawToken string) (*oauth2.UserInfoResponse, error) {
	claims, err := s.deps.Tokens.Verify(rawToken)
	if err != nil {
		return nil, oauth2.NewError(oauth2.ErrorInvalidToken, "Invalid or expired access token")
	}

	scope, _ := claims["scope"].(string)
	if !scopeContains(scope, "email") {
		return nil, oauth2.NewError(oauth2.ErrorInsufficientScope, "Token does not have email scope")
	}

	sub, _ := claims["sub"].(string)
	return &oauth2.UserInfoResponse{
		Sub:           sub,
		Email:         sub,
		EmailVerified: true,
	}, nil
}

func scopeContains(scope, want string) bool {
	for _, s := range clients.SplitScopes(scope) {
		if s == want {
			return true
		}
	}
	return false
}
