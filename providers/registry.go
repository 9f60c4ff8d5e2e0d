package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/storage"
)

// ErrProviderNotFound is returned when no provider record exists for an ID.
var ErrProviderNotFound = errors.New("provider not found")

// Registration is the admin-facing input for registering a provider.
type Registration struct {
	VerifierURL string `json:"externalVerifierUrl"`
	Name        string `json:"name"`
}

// Registered is the one-time registration result. PrivateKey is returned
// here and nowhere else; it is never persisted, so losing it means
// registering a new provider.
type Registered struct {
	Provider   *Provider `json:"provider"`
	PrivateKey string    `json:"privateKey"` // base64url, no padding
}

// Registry persists providers in the key-value store under "provider:{id}".
type Registry struct {
	store   storage.Store
	nowFunc func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNowFunc sets the clock used for createdAt stamps.
func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

// NewRegistry creates a provider registry over the store.
func NewRegistry(store storage.Store, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, nowFunc: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register generates an Ed25519 key pair, derives the provider ID from the
// public key and persists the record.
func (r *Registry) Register(ctx context.Context, reg Registration) (*Registered, error) {
	if reg.VerifierURL == "" {
		return nil, errors.New("[Register] verifier URL is required")
	}

	publicKey, privateKey, err := GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "[Register] generate key pair")
	}

	provider := &Provider{
		ID:          FingerprintID(publicKey),
		VerifierURL: reg.VerifierURL,
		PublicKey:   base64.RawURLEncoding.EncodeToString(publicKey),
		Name:        reg.Name,
		CreatedAt:   r.nowFunc().UTC(),
	}

	data, err := json.Marshal(provider)
	if err != nil {
		return nil, errors.Wrap(err, "[Register] marshal provider")
	}
	if err := r.store.Put(ctx, storage.ProviderKey(provider.ID), data, 0); err != nil {
		return nil, errors.Wrap(err, "[Register] store.Put")
	}

	return &Registered{
		Provider:   provider,
		PrivateKey: base64.RawURLEncoding.EncodeToString(privateKey),
	}, nil
}

// Get loads a provider by ID.
func (r *Registry) Get(ctx context.Context, providerID string) (*Provider, error) {
	data, err := r.store.Get(ctx, storage.ProviderKey(providerID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Get] store.Get")
	}

	var provider Provider
	if err := json.Unmarshal(data, &provider); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal provider")
	}
	return &provider, nil
}

// List returns every registered provider.
func (r *Registry) List(ctx context.Context) ([]*Provider, error) {
	keys, err := r.store.List(ctx, storage.KeyPrefixProvider)
	if err != nil {
		return nil, errors.Wrap(err, "[List] store.List")
	}

	result := make([]*Provider, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "[List] store.Get")
		}
		var provider Provider
		if err := json.Unmarshal(data, &provider); err != nil {
			return nil, errors.Wrap(err, "[List] unmarshal provider")
		}
		result = append(result, &provider)
	}
	return result, nil
}

// Delete removes a provider record.
func (r *Registry) Delete(ctx context.Context, providerID string) error {
	existed, err := r.store.Delete(ctx, storage.ProviderKey(providerID))
	if err != nil {
		return errors.Wrap(err, "[Delete] store.Delete")
	}
	if !existed {
		return ErrProviderNotFound
	}
	return nil
}
