package token

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/crypto"
	"github.com/flexio/bbauth/storage"
)

// ErrRefreshTokenNotFound is returned when a refresh token is absent or
// expired; callers cannot distinguish the two.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshToken is the server-side record behind an opaque refresh token.
// The token string itself is the store key suffix, not a JWT.
type RefreshToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	Email     string    `json:"email"`
	Scope     string    `json:"scope"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RefreshTokenRepo persists refresh tokens under "refresh:{token}".
type RefreshTokenRepo struct {
	store storage.Store
}

// NewRefreshTokenRepo creates a refresh token repository over the store.
func NewRefreshTokenRepo(store storage.Store) *RefreshTokenRepo {
	return &RefreshTokenRepo{store: store}
}

// Create generates the opaque token string, fills it into the record and
// persists it with the given TTL.
func (r *RefreshTokenRepo) Create(ctx context.Context, record *RefreshToken, ttl time.Duration) (string, error) {
	tokenString, err := crypto.RandomToken(crypto.DefaultTokenLength)
	if err != nil {
		return "", errors.Wrap(err, "[Create] generate token")
	}
	record.Token = tokenString

	data, err := json.Marshal(record)
	if err != nil {
		return "", errors.Wrap(err, "[Create] marshal record")
	}
	if err := r.store.Put(ctx, storage.RefreshTokenKey(tokenString), data, ttl); err != nil {
		return "", errors.Wrap(err, "[Create] store.Put")
	}
	return tokenString, nil
}

// Get loads a refresh token record.
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (*RefreshToken, error) {
	data, err := r.store.Get(ctx, storage.RefreshTokenKey(tokenString))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Get] store.Get")
	}

	var record RefreshToken
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal record")
	}
	return &record, nil
}

// Delete removes a refresh token record.
func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenString string) error {
	if _, err := r.store.Delete(ctx, storage.RefreshTokenKey(tokenString)); err != nil {
		return errors.Wrap(err, "[Delete] store.Delete")
	}
	return nil
}
