package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/crypto"
	"github.com/flexio/bbauth/storage"
)

// AuthCodeTTL bounds the window between code issuance and redemption.
const AuthCodeTTL = 10 * time.Minute

// ErrAuthCodeNotFound is returned when a code is absent or expired.
var ErrAuthCodeNotFound = errors.New("authorization code not found")

// AuthorizationCode is the one-time credential minted at the callback and
// redeemed at the token endpoint. It carries the PKCE binding from the
// session that produced it.
type AuthorizationCode struct {
	Code                string    `json:"code"`
	ClientID            string    `json:"clientId"`
	RedirectURI         string    `json:"redirectUri"`
	Scope               string    `json:"scope"`
	Email               string    `json:"email"`
	CodeChallenge       string    `json:"codeChallenge"`
	CodeChallengeMethod string    `json:"codeChallengeMethod"`
	Nonce               string    `json:"nonce,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

// AuthCodeRepo persists authorization codes under "authcode:{code}".
type AuthCodeRepo struct {
	store storage.Store
}

// NewAuthCodeRepo creates an authorization code repository over the store.
func NewAuthCodeRepo(store storage.Store) *AuthCodeRepo {
	return &AuthCodeRepo{store: store}
}

// Create assigns a fresh code and persists the record with the code TTL.
func (r *AuthCodeRepo) Create(ctx context.Context, code *AuthorizationCode) error {
	codeString, err := crypto.RandomToken(crypto.DefaultTokenLength)
	if err != nil {
		return errors.Wrap(err, "[Create] generate code")
	}
	code.Code = codeString

	data, err := json.Marshal(code)
	if err != nil {
		return errors.Wrap(err, "[Create] marshal code")
	}
	if err := r.store.Put(ctx, storage.AuthCodeKey(codeString), data, AuthCodeTTL); err != nil {
		return errors.Wrap(err, "[Create] store.Put")
	}
	return nil
}

// Get loads an authorization code record.
func (r *AuthCodeRepo) Get(ctx context.Context, codeString string) (*AuthorizationCode, error) {
	data, err := r.store.Get(ctx, storage.AuthCodeKey(codeString))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAuthCodeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Get] store.Get")
	}

	var code AuthorizationCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal code")
	}
	return &code, nil
}

// Consume deletes the code and reports whether this caller owned the
// deletion. The conditional delete is the one-time-use guard: a concurrent
// redemption of the same code loses the race and observes false.
func (r *AuthCodeRepo) Consume(ctx context.Context, codeString string) (bool, error) {
	existed, err := r.store.Delete(ctx, storage.AuthCodeKey(codeString))
	if err != nil {
		return false, errors.Wrap(err, "[Consume] store.Delete")
	}
	return existed, nil
}

// Delete removes a code without caring whether it existed. Used when an
// expired code is discovered on the read path.
func (r *AuthCodeRepo) Delete(ctx context.Context, codeString string) error {
	if _, err := r.store.Delete(ctx, storage.AuthCodeKey(codeString)); err != nil {
		return errors.Wrap(err, "[Delete] store.Delete")
	}
	return nil
}
