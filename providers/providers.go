// Package providers holds the external identity-verification provider
// registry. A provider is a hosted script that confirms a user's email and
// calls back with the result; its identity is an Ed25519 public-key
// fingerprint.
package providers

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// IDPrefix marks provider fingerprints so they are recognizable in logs and
// store keys.
const IDPrefix = "bbauth:"

// Provider is a registered identity-verification provider. Only the public
// key is persisted; the private key is handed to the operator once at
// registration.
type Provider struct {
	ID          string    `json:"providerId"`
	VerifierURL string    `json:"externalVerifierUrl"`
	PublicKey   string    `json:"publicKey"` // base64url, no padding
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FingerprintID derives the provider ID from an Ed25519 public key. The
// mapping is deterministic, so a provider re-registering with the same key
// gets the same ID.
func FingerprintID(publicKey ed25519.PublicKey) string {
	return IDPrefix + base64.RawURLEncoding.EncodeToString(publicKey)
}

// GenerateKeyPair creates a fresh Ed25519 key pair for a new provider.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}
