package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/flexio/bbauth/authz"
)

// Audiences for the chat-facing token kinds. Each verifier accepts exactly
// one audience, so a token minted for one surface cannot be replayed on
// another.
const (
	AudienceChat    = "flexio-chat"
	AudienceService = "flexio-service"
	AudienceAdmin   = "flexio-admin"
)

// UserTokenExpiry is the chat user token lifetime.
const UserTokenExpiry = 365 * 24 * time.Hour

// ServiceTokenExpiry is the service token lifetime.
const ServiceTokenExpiry = 30 * 24 * time.Hour

// UserTokenClaims identifies a chat participant.
type UserTokenClaims struct {
	UserName  string `json:"userName"`
	Link      string `json:"link"`
	SavedTime string `json:"savedTime"`
	Authority string `json:"authority"`
}

// Role resolves the authority claim against the chat role hierarchy.
func (c *UserTokenClaims) Role() (authz.Role, error) {
	return authz.ParseRole(c.Authority)
}

// ServiceTokenClaims authenticates a backend service account.
type ServiceTokenClaims struct {
	ServiceID string `json:"serviceID"`
	AccountID string `json:"accountID"`
	IssuedAt  string `json:"issuedAt"`
	ExpiresAt string `json:"expiresAt"`
}

// AdminTokenClaims authenticates an administrator until Period.
type AdminTokenClaims struct {
	UserName  string `json:"userName"`
	Authority string `json:"authority"`
	Period    string `json:"period"`
}

// Role resolves the authority claim against the chat role hierarchy.
func (c *AdminTokenClaims) Role() (authz.Role, error) {
	return authz.ParseRole(c.Authority)
}

// CreateUserToken mints a chat user token.
func (m *Manager) CreateUserToken(payload UserTokenClaims) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":       m.issuer,
		"sub":       "user:" + payload.UserName,
		"aud":       AudienceChat,
		"iat":       now.Unix(),
		"exp":       now.Add(UserTokenExpiry).Unix(),
		"userName":  payload.UserName,
		"link":      payload.Link,
		"savedTime": payload.SavedTime,
		"authority": payload.Authority,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[CreateUserToken] sign")
	}
	return signed, nil
}

// CreateServiceToken mints a service account token.
func (m *Manager) CreateServiceToken(accountID string) (string, error) {
	now := m.nowFunc()
	expiresAt := now.Add(ServiceTokenExpiry)
	claims := jwt.MapClaims{
		"iss":       m.issuer,
		"sub":       "service:" + accountID,
		"aud":       AudienceService,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
		"serviceID": "flexio",
		"accountID": accountID,
		"issuedAt":  now.UTC().Format(time.RFC3339),
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[CreateServiceToken] sign")
	}
	return signed, nil
}

// CreateAdminToken mints an administrator token valid until period.
func (m *Manager) CreateAdminToken(payload AdminTokenClaims) (string, error) {
	period, err := time.Parse(time.RFC3339, payload.Period)
	if err != nil {
		return "", errors.Wrap(err, "[CreateAdminToken] parse period")
	}

	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":       m.issuer,
		"sub":       "admin:" + payload.UserName,
		"aud":       AudienceAdmin,
		"iat":       now.Unix(),
		"exp":       period.Unix(),
		"userName":  payload.UserName,
		"authority": payload.Authority,
		"period":    payload.Period,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[CreateAdminToken] sign")
	}
	return signed, nil
}

// VerifyUserToken validates a chat user token. Returns nil without an error
// for tokens that verify but carry the wrong audience.
func (m *Manager) VerifyUserToken(rawToken string) (*UserTokenClaims, error) {
	claims, err := m.verifyForAudience(rawToken, AudienceChat)
	if err != nil || claims == nil {
		return nil, err
	}

	return &UserTokenClaims{
		UserName:  stringClaim(claims, "userName"),
		Link:      stringClaim(claims, "link"),
		SavedTime: stringClaim(claims, "savedTime"),
		Authority: stringClaim(claims, "authority"),
	}, nil
}

// VerifyServiceToken validates a service token.
func (m *Manager) VerifyServiceToken(rawToken string) (*ServiceTokenClaims, error) {
	claims, err := m.verifyForAudience(rawToken, AudienceService)
	if err != nil || claims == nil {
		return nil, err
	}

	return &ServiceTokenClaims{
		ServiceID: stringClaim(claims, "serviceID"),
		AccountID: stringClaim(claims, "accountID"),
		IssuedAt:  stringClaim(claims, "issuedAt"),
		ExpiresAt: stringClaim(claims, "expiresAt"),
	}, nil
}

// VerifyAdminToken validates an administrator token.
func (m *Manager) VerifyAdminToken(rawToken string) (*AdminTokenClaims, error) {
	claims, err := m.verifyForAudience(rawToken, AudienceAdmin)
	if err != nil || claims == nil {
		return nil, err
	}

	return &AdminTokenClaims{
		UserName:  stringClaim(claims, "userName"),
		Authority: stringClaim(claims, "authority"),
		Period:    stringClaim(claims, "period"),
	}, nil
}

// verifyForAudience verifies the signature and expiry, then gates on the
// audience. A wrong audience is (nil, nil) so callers can treat it as an
// authorization miss rather than a malformed token.
func (m *Manager) verifyForAudience(rawToken, audience string) (jwt.MapClaims, error) {
	claims, err := m.Verify(rawToken)
	if err != nil {
		return nil, err
	}

	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == audience {
			return claims, nil
		}
	}
	return nil, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}
