// Package token mints and verifies the JWTs issued by the broker: access
// tokens, OIDC ID tokens and the opaque refresh tokens stored server-side.
package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/flexio/bbauth/token/keys"
)

// Default token lifetimes.
const (
	DefaultAccessTokenExpiry  = time.Hour
	DefaultIDTokenExpiry      = time.Hour
	DefaultRefreshTokenExpiry = 30 * 24 * time.Hour
)

// Manager mints and verifies JWTs with a single ES256 signer.
type Manager struct {
	signer             keys.Signer
	issuer             string
	refreshRepo        *RefreshTokenRepo
	accessTokenExpiry  time.Duration
	idTokenExpiry      time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, idTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.idTokenExpiry = idTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(signer keys.Signer, issuer string, refreshRepo *RefreshTokenRepo, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:      signer,
		issuer:      issuer,
		refreshRepo: refreshRepo,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.idTokenExpiry == 0 {
		m.idTokenExpiry = DefaultIDTokenExpiry
	}
	if m.refreshTokenExpiry == 0 {
		m.refreshTokenExpiry = DefaultRefreshTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry reports the configured access token lifetime.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// RefreshTokenExpiry reports the configured refresh token lifetime.
func (m *Manager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}

// CreateAccessToken mints an access token. The subject is the verified
// email; the audience is the requesting client.
func (m *Manager) CreateAccessToken(email, clientID, scope string) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":   m.issuer,
		"sub":   email,
		"aud":   clientID,
		"iat":   now.Unix(),
		"exp":   now.Add(m.accessTokenExpiry).Unix(),
		"scope": scope,
		"jti":   uuid.New().String(),
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[CreateAccessToken] sign")
	}
	return signed, nil
}

// CreateIDToken mints an OIDC ID token carrying the verified email. The
// nonce is echoed back when the authorization request supplied one.
func (m *Manager) CreateIDToken(email, clientID, nonce string) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":            m.issuer,
		"sub":            email,
		"aud":            clientID,
		"iat":            now.Unix(),
		"exp":            now.Add(m.idTokenExpiry).Unix(),
		"email":          email,
		"email_verified": true,
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[CreateIDToken] sign")
	}
	return signed, nil
}

// CreateRefreshToken mints an opaque refresh token and persists its record.
func (m *Manager) CreateRefreshToken(ctx context.Context, clientID, email, scope string) (string, error) {
	now := m.nowFunc()
	record := &RefreshToken{
		ClientID:  clientID,
		Email:     email,
		Scope:     scope,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(m.refreshTokenExpiry).UTC(),
	}

	tokenString, err := m.refreshRepo.Create(ctx, record, m.refreshTokenExpiry)
	if err != nil {
		return "", errors.Wrap(err, "[CreateRefreshToken] create")
	}
	return tokenString, nil
}

// Verify parses and validates a signed token, enforcing ES256 and expiry.
// Audience is not checked here; callers gate on aud per endpoint.
func (m *Manager) Verify(rawToken string) (jwt.MapClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("[Verify] empty token")
	}

	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{keys.ES256}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Verify] parse")
	}
	if !parsed.Valid {
		return nil, errors.New("[Verify] invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("[Verify] unexpected claims type")
	}
	return claims, nil
}

// GetJWKS returns the JSON Web Key Set for public key distribution
func (m *Manager) GetJWKS() (*keys.JWKS, error) {
	keyPairSigner, ok := m.signer.(*keys.KeyPairSigner)
	if !ok {
		return nil, errors.New("JWKS only supported for asymmetric signing")
	}
	return keyPairSigner.GetJWKS()
}
