package config

import "time"

type OAuthConfig interface {
	GetVerifierURL() string
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultIDTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetJWTPrivateKeyPEM() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetVerifierURL returns the default external identity-verification
// endpoint users are redirected to from /oauth/authorize.
func (OAuth) GetVerifierURL() string {
	return GetEnv(verifierURLVar, "")
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultIDTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 30 * 24 * time.Hour
}

// GetJWTPrivateKeyPEM returns the PEM-encoded ES256 private key. Empty
// means generate an ephemeral key at startup (tokens do not survive a
// restart).
func (OAuth) GetJWTPrivateKeyPEM() string {
	return GetEnv(jwtPrivateVar, "")
}
