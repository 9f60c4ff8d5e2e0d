package crypto

import (
	"crypto/subtle"

	"golang.org/x/oauth2"
)

// S256ChallengeMethod is the only PKCE challenge method this server accepts
// (RFC 7636 §4.2). The "plain" method is treated as a verification failure.
const S256ChallengeMethod = "S256"

// S256Challenge computes BASE64URL(SHA256(verifier)). Delegates to
// golang.org/x/oauth2 so client and server derive the challenge identically.
func S256Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// VerifyPKCE checks a code_verifier against the stored code_challenge.
// Any method other than S256 fails closed, including "plain".
func VerifyPKCE(verifier, challenge, method string) bool {
	if method != S256ChallengeMethod {
		return false
	}
	computed := S256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
