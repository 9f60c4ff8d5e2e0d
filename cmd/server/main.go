package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/flexio/bbauth/auth"
	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/internal/config"
	"github.com/flexio/bbauth/providers"
	"github.com/flexio/bbauth/ratelimit"
	"github.com/flexio/bbauth/server"
	"github.com/flexio/bbauth/storage"
	"github.com/flexio/bbauth/token"
	"github.com/flexio/bbauth/token/keys"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store, err := newStore(c, logger)
	if err != nil {
		return fmt.Errorf("newStore: %w", err)
	}
	defer store.Close()

	signer, err := newSigner(c, logger)
	if err != nil {
		return fmt.Errorf("newSigner: %w", err)
	}

	refreshRepo := token.NewRefreshTokenRepo(store)
	manager := token.New(signer, c.GetIssuerURL(), refreshRepo,
		token.WithTokenExpiry(c.GetDefaultAccessTokenExpiry(), c.GetDefaultIDTokenExpiry(), c.GetDefaultRefreshTokenExpiry()),
	)

	clientRegistry := clients.NewRegistry(store)
	providerRegistry := providers.NewRegistry(store)

	authService := auth.NewAuthorizationService(auth.Dependencies{
		Clients:       clientRegistry,
		Providers:     providerRegistry,
		Sessions:      auth.NewSessionRepo(store),
		Codes:         auth.NewAuthCodeRepo(store),
		Tokens:        manager,
		RefreshTokens: refreshRepo,
		VerifierURL:   c.GetVerifierURL(),
	})

	var limiter *ratelimit.Limiter
	if c.GetEnableRateLimiting() {
		limiter = ratelimit.New(store,
			ratelimit.WithLimit(c.GetRateLimit()),
			ratelimit.WithWindow(c.GetRateLimitWindow()),
		)
	}

	srv := server.New(c, server.Dependencies{
		Auth:      authService,
		Clients:   clientRegistry,
		Providers: providerRegistry,
		Tokens:    manager,
		Limiter:   limiter,
	}, logger)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newStore selects Redis when an address is configured, otherwise the
// in-memory store for development.
func newStore(c config.Config, logger zerolog.Logger) (storage.Store, error) {
	addr := c.GetRedisAddr()
	if addr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory store; records do not survive a restart")
		return storage.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.NewRedisStore(ctx, storage.RedisConfig{
		Addr:      addr,
		Password:  c.GetRedisPassword(),
		KeyPrefix: c.GetRedisKeyPrefix(),
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewRedisStore: %w", err)
	}
	logger.Info().Str("addr", addr).Msg("connected to redis")
	return store, nil
}

// newSigner loads the configured ES256 key, or generates an ephemeral one
// when none is set. Ephemeral keys mean issued tokens die with the process.
func newSigner(c config.Config, logger zerolog.Logger) (keys.Signer, error) {
	if pem := c.GetJWTPrivateKeyPEM(); pem != "" {
		keyPair, err := keys.LoadKeyPairFromPEM(keys.DefaultKeyID, pem)
		if err != nil {
			return nil, fmt.Errorf("keys.LoadKeyPairFromPEM: %w", err)
		}
		return keys.NewKeyPairSigner(keyPair), nil
	}

	logger.Warn().Msg("JWT_PRIVATE_KEY not set, generating ephemeral signing key")
	keyPair, err := keys.GenerateES256KeyPair(keys.DefaultKeyID)
	if err != nil {
		return nil, fmt.Errorf("keys.GenerateES256KeyPair: %w", err)
	}
	return keys.NewKeyPairSigner(keyPair), nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
