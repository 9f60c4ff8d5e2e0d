package clients

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/crypto"
	"github.com/flexio/bbauth/storage"
)

// ErrClientNotFound is returned when no client record exists for an ID.
var ErrClientNotFound = errors.New("client not found")

// Registration is the admin-facing input for registering a client. The
// caller chooses the client ID; the server generates the secret for
// confidential clients.
type Registration struct {
	ClientID      string     `json:"clientId"`
	Name          string     `json:"name"`
	Type          ClientType `json:"clientType"`
	RedirectURIs  []string   `json:"redirectUris"`
	AllowedScopes []string   `json:"allowedScopes"`
}

// Registry persists clients in the key-value store under "client:{id}".
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

// NewRegistry creates a client registry over the store.
func NewRegistry(store storage.Store, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, nowFunc: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a client record. For confidential clients a secret is
// generated and returned in plaintext; only its bcrypt hash is stored.
func (r *Registry) Register(ctx context.Context, reg Registration) (*Client, string, error) {
	if reg.ClientID == "" {
		return nil, "", errors.New("[Register] client ID is required")
	}
	if reg.Type == "" {
		reg.Type = ClientTypePublic
	}
	if reg.Type != ClientTypePublic && reg.Type != ClientTypeConfidential {
		return nil, "", errors.Errorf("[Register] invalid client type %q", reg.Type)
	}
	if len(reg.RedirectURIs) == 0 {
		return nil, "", errors.New("[Register] at least one redirect URI is required")
	}
	if len(reg.AllowedScopes) == 0 {
		return nil, "", errors.New("[Register] at least one allowed scope is required")
	}
	for _, uri := range reg.RedirectURIs {
		if !strings.HasPrefix(uri, "https://") && !strings.HasPrefix(uri, "http://localhost") && !strings.HasPrefix(uri, "http://127.0.0.1") {
			return nil, "", errors.Errorf("[Register] redirect URI %q must be https or loopback", uri)
		}
	}

	client := &Client{
		ID:            reg.ClientID,
		Type:          reg.Type,
		Name:          reg.Name,
		RedirectURIs:  reg.RedirectURIs,
		AllowedScopes: reg.AllowedScopes,
		CreatedAt:     r.nowFunc().UTC(),
	}

	var plaintextSecret string
	if reg.Type == ClientTypeConfidential {
		secret, err := crypto.RandomToken(crypto.DefaultTokenLength)
		if err != nil {
			return nil, "", errors.Wrap(err, "[Register] generate secret")
		}
		hash, err := HashSecret(secret)
		if err != nil {
			return nil, "", errors.Wrap(err, "[Register] hash secret")
		}
		client.SecretHash = hash
		plaintextSecret = secret
	}

	if err := r.put(ctx, client); err != nil {
		return nil, "", err
	}
	return client, plaintextSecret, nil
}

// Get loads a client by ID.
func (r *Registry) Get(ctx context.Context, clientID string) (*Client, error) {
	data, err := r.store.Get(ctx, storage.ClientKey(clientID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Get] store.Get")
	}

	var client Client
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal client")
	}
	return &client, nil
}

// List returns every registered client. Secret hashes are stripped from the
// listing.
func (r *Registry) List(ctx context.Context) ([]*Client, error) {
	keys, err := r.store.List(ctx, storage.KeyPrefixClient)
	if err != nil {
		return nil, errors.Wrap(err, "[List] store.List")
	}

	result := make([]*Client, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue // expired between list and get
		}
		if err != nil {
			return nil, errors.Wrap(err, "[List] store.Get")
		}
		var client Client
		if err := json.Unmarshal(data, &client); err != nil {
			return nil, errors.Wrap(err, "[List] unmarshal client")
		}
		client.SecretHash = ""
		result = append(result, &client)
	}
	return result, nil
}

// Delete removes a client. Returns ErrClientNotFound if no record existed.
func (r *Registry) Delete(ctx context.Context, clientID string) error {
	existed, err := r.store.Delete(ctx, storage.ClientKey(clientID))
	if err != nil {
		return errors.Wrap(err, "[Delete] store.Delete")
	}
	if !existed {
		return ErrClientNotFound
	}
	return nil
}

func (r *Registry) put(ctx context.Context, client *Client) error {
	data, err := json.Marshal(client)
	if err != nil {
		return errors.Wrap(err, "[put] marshal client")
	}
	if err := r.store.Put(ctx, storage.ClientKey(client.ID), data, 0); err != nil {
		return errors.Wrap(err, "[put] store.Put")
	}
	return nil
}
