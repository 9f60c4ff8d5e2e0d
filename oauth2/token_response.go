package oauth2

// TokenResponse is the token endpoint response format defined in RFC 6749.
// Returned for both the authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken is the ES256-signed JWT used to access protected resources.
	// Clients send it as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds. The authoritative
	// expiry is the JWT "exp" claim; this field is a hint.
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Only issued on the authorization_code grant.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken carries the verified identity claims (email, email_verified,
	// nonce). Only issued when the granted scope includes "email".
	IDToken string `json:"id_token,omitempty"`

	// Scope is the space-delimited set of granted scopes.
	Scope string `json:"scope"`
}

// UserInfoResponse is returned by the userinfo endpoint for a valid bearer
// token carrying the "email" scope.
type UserInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}
