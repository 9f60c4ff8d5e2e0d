package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow. It is the only
	// response type this server implements; the implicit flow is rejected.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge
// method used to bind an authorization code to the requesting client.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing of the code verifier:
	// code_challenge = BASE64URL(SHA256(code_verifier)).
	// S256 is the only accepted method; "plain" is always rejected.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a one-time authorization code
	// (verified against a PKCE code_verifier) for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	// The refresh token is not rotated on this path; it stays valid until
	// its own expiry.
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenRequest holds the form fields posted to the token endpoint. Fields not
// relevant to the active grant type are left empty.
type TokenRequest struct {
	GrantType    GrantType
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
	RefreshToken string
	Scope        string
}
