// Package clients holds the OAuth client registry. Clients are registered
// through the admin API and persisted as JSON records in the store.
package clients

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

var (
	ErrInvalidScope  = errors.New("requested scope not allowed for client")
	ErrInvalidSecret = errors.New("client secret mismatch")
)

// Client is a registered OAuth client. Confidential clients store a bcrypt
// hash of their secret; the plaintext secret is returned exactly once, at
// registration, and never persisted.
type Client struct {
	ID            string     `json:"clientId"`
	Type          ClientType `json:"clientType"`
	Name          string     `json:"name"`
	SecretHash    string     `json:"clientSecretHash,omitempty"`
	RedirectURIs  []string   `json:"redirectUris"`
	AllowedScopes []string   `json:"allowedScopes"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// HasRedirectURI checks the redirect URI against the registered list by
// exact string comparison. No pattern or prefix matching.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range SplitScopes(requestedScopes) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// CheckSecret compares a presented plaintext secret against the stored
// bcrypt hash.
func (c *Client) CheckSecret(secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return ErrInvalidSecret
	}
	return nil
}

// HashSecret hashes a plaintext client secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "[HashSecret] bcrypt.GenerateFromPassword")
	}
	return string(hash), nil
}

// SplitScopes splits a space-separated scope string, dropping empty
// elements.
func SplitScopes(scopes string) []string {
	return strings.Fields(scopes)
}

// ScopesSubset reports whether every scope in requested appears in original.
// Used by the refresh grant to stop scope escalation.
func ScopesSubset(requested, original string) bool {
	granted := SplitScopes(original)
	for _, scope := range SplitScopes(requested) {
		found := false
		for _, g := range granted {
			if g == scope {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
