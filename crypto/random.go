// Package crypto holds the primitives the OAuth flow is built on: random
// token generation, PKCE verification and ES256 JWT handling (the latter
// lives in the token package, keyed by material from token/keys).
package crypto

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// DefaultTokenLength is the number of random bytes backing session IDs,
// authorization codes and refresh tokens. 32 bytes = 256 bits.
const DefaultTokenLength = 32

// RandomToken returns n cryptographically secure random bytes encoded as
// unpadded base64url (RFC 4648 §5). If n <= 0 DefaultTokenLength is used.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenLength
	}
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[RandomToken] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
