package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flexio/bbauth/oauth2"
	"github.com/flexio/bbauth/ratelimit"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.RateLimitMiddleware,
	}
}

func (s *Server) AdminMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.APIMiddleware(), s.AdminAuthMiddleware)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeJSONError(w, oauth2.ErrorServerError, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// RateLimitMiddleware enforces a per-caller fixed-window budget. The window
// counter lives in the shared store, so every instance sees the same count.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}

		result, err := s.limiter.Check(r.Context(), ratelimit.ClientIdentifier(r))
		if err != nil {
			// Fail open: a store outage should not take the endpoints down.
			s.logger.Warn().Err(err).Msg("rate limit check failed")
			next(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			// Round up so a client honoring Retry-After lands past the reset.
			retryAfter := int64((result.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// AdminAuthMiddleware gates the registry endpoints on a static bearer token.
// An unset token disables the endpoints entirely rather than leaving them
// open.
func (s *Server) AdminAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminToken := s.config.GetAdminToken()
		if adminToken == "" {
			http.NotFound(w, r)
			return
		}

		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(adminToken)) != 1 {
			writeJSONError(w, "unauthorized", "Invalid admin token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
