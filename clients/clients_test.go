package clients_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/storage"
)

func newTestRegistry(t *testing.T) *clients.Registry {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return clients.NewRegistry(store)
}

func TestRegisterPublicClient(t *testing.T) {
	registry := newTestRegistry(t)

	client, secret, err := registry.Register(context.Background(), clients.Registration{
		ClientID:      "spa-app",
		Name:          "SPA App",
		Type:          clients.ClientTypePublic,
		RedirectURIs:  []string{"https://app.example.com/callback"},
		AllowedScopes: []string{"email", "drive.readonly"},
	})
	require.NoError(t, err)
	require.Equal(t, "spa-app", client.ID)
	require.Empty(t, secret, "public clients get no secret")
	require.Empty(t, client.SecretHash)
	require.True(t, client.IsPublic())
	require.False(t, client.CreatedAt.IsZero())
}

func TestRegisterConfidentialClient(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	client, secret, err := registry.Register(ctx, clients.Registration{
		ClientID:      "backend-service",
		Type:          clients.ClientTypeConfidential,
		RedirectURIs:  []string{"https://service.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, secret)
	require.NotEmpty(t, client.SecretHash)
	require.NotEqual(t, secret, client.SecretHash, "secret must be stored hashed")

	// The stored record verifies the plaintext secret and rejects others.
	stored, err := registry.Get(ctx, client.ID)
	require.NoError(t, err)
	require.NoError(t, stored.CheckSecret(secret))
	require.ErrorIs(t, stored.CheckSecret("wrong"), clients.ErrInvalidSecret)
}

func TestRegisterValidation(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := registry.Register(ctx, clients.Registration{
		RedirectURIs:  []string{"https://app.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.Error(t, err, "missing client ID")

	_, _, err = registry.Register(ctx, clients.Registration{
		ClientID:      "app",
		Type:          "native",
		RedirectURIs:  []string{"https://app.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.Error(t, err, "unknown client type")

	_, _, err = registry.Register(ctx, clients.Registration{
		ClientID:      "app",
		AllowedScopes: []string{"email"},
	})
	require.Error(t, err, "no redirect URIs")

	_, _, err = registry.Register(ctx, clients.Registration{
		ClientID:     "app",
		RedirectURIs: []string{"https://app.example.com/cb"},
	})
	require.Error(t, err, "no allowed scopes")

	_, _, err = registry.Register(ctx, clients.Registration{
		ClientID:      "app",
		RedirectURIs:  []string{"http://evil.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.Error(t, err, "plain http on non-loopback host")

	_, _, err = registry.Register(ctx, clients.Registration{
		ClientID:      "app",
		RedirectURIs:  []string{"http://localhost:3000/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err, "loopback http is allowed for development")
}

func TestRegisterDefaultsToPublic(t *testing.T) {
	registry := newTestRegistry(t)

	client, secret, err := registry.Register(context.Background(), clients.Registration{
		ClientID:      "app",
		RedirectURIs:  []string{"https://app.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err)
	require.Equal(t, clients.ClientTypePublic, client.Type)
	require.Empty(t, secret)
}

func TestGetMissingClient(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Get(context.Background(), "nope")
	require.ErrorIs(t, err, clients.ErrClientNotFound)
}

func TestListStripsSecretHashes(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := registry.Register(ctx, clients.Registration{
		ClientID:      "svc",
		Type:          clients.ClientTypeConfidential,
		RedirectURIs:  []string{"https://svc.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err)

	listed, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Empty(t, listed[0].SecretHash)
}

func TestDeleteClient(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	client, _, err := registry.Register(ctx, clients.Registration{
		ClientID:      "app",
		RedirectURIs:  []string{"https://app.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err)

	require.NoError(t, registry.Delete(ctx, client.ID))
	require.ErrorIs(t, registry.Delete(ctx, client.ID), clients.ErrClientNotFound)
}

func TestHasRedirectURIExactMatch(t *testing.T) {
	client := &clients.Client{RedirectURIs: []string{"https://app.example.com/callback"}}

	require.True(t, client.HasRedirectURI("https://app.example.com/callback"))
	require.False(t, client.HasRedirectURI("https://app.example.com/callback/"))
	require.False(t, client.HasRedirectURI("https://app.example.com"))
}

func TestValidateScopes(t *testing.T) {
	client := &clients.Client{AllowedScopes: []string{"email", "drive.readonly"}}

	require.NoError(t, client.ValidateScopes(""))
	require.NoError(t, client.ValidateScopes("email"))
	require.NoError(t, client.ValidateScopes("email drive.readonly"))
	require.ErrorIs(t, client.ValidateScopes("email gmail.send"), clients.ErrInvalidScope)
}

func TestScopesSubset(t *testing.T) {
	require.True(t, clients.ScopesSubset("", "email drive.readonly"))
	require.True(t, clients.ScopesSubset("email", "email drive.readonly"))
	require.True(t, clients.ScopesSubset("drive.readonly email", "email drive.readonly"))
	require.False(t, clients.ScopesSubset("gmail.send", "email"))
	require.False(t, clients.ScopesSubset("email", ""))
}

func TestClientCreatedAtUsesInjectedClock(t *testing.T) {
	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	registry := clients.NewRegistry(store, clients.WithNowFunc(func() time.Time { return fixed }))

	client, _, err := registry.Register(context.Background(), clients.Registration{
		ClientID:      "app",
		RedirectURIs:  []string{"https://app.example.com/cb"},
		AllowedScopes: []string{"email"},
	})
	require.NoError(t, err)
	require.Equal(t, fixed, client.CreatedAt)
}
