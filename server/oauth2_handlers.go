package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/auth"
	"github.com/flexio/bbauth/oauth2"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Authorize handles GET /oauth/authorize: validates the request, stores a
// pending session and redirects the user to the external verifier.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := auth.AuthorizationParameters{
			ClientID:            q.Get("client_id"),
			RedirectURI:         q.Get("redirect_uri"),
			ResponseType:        q.Get("response_type"),
			Scope:               q.Get("scope"),
			State:               q.Get("state"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: q.Get("code_challenge_method"),
			Nonce:               q.Get("nonce"),
			ProviderID:          q.Get("provider_id"),
		}

		verifierURL, err := s.auth.Authorize(r.Context(), params)
		if err != nil {
			s.writeAuthorizeError(w, r, err)
			return
		}
		http.Redirect(w, r, verifierURL, http.StatusFound)
	}
}

// Callback handles GET /oauth/callback: the external verifier reports the
// verified email here, and the user is bounced back to the client with a
// one-time authorization code.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := auth.CallbackParameters{
			SessionID:        q.Get("session_id"),
			Email:            q.Get("email"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}

		redirectURL, err := s.auth.Callback(r.Context(), params)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// Token handles POST /oauth/token for the authorization_code and
// refresh_token grants.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Malformed request body", http.StatusBadRequest)
			return
		}

		request := oauth2.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			Code:         r.PostFormValue("code"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			ClientID:     r.PostFormValue("client_id"),
			ClientSecret: r.PostFormValue("client_secret"),
			CodeVerifier: r.PostFormValue("code_verifier"),
			RefreshToken: r.PostFormValue("refresh_token"),
			Scope:        r.PostFormValue("scope"),
		}

		response, err := s.auth.ExchangeToken(r.Context(), request)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}

		// Token responses must never be cached (RFC 6749 §5.1).
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, response)
	}
}

// UserInfo handles GET /oauth/userinfo, returning the identity claims for a
// bearer access token carrying the email scope.
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || rawToken == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		info, err := s.auth.UserInfo(rawToken)
		if err != nil {
			var oauthErr *oauth2.Error
			if errors.As(err, &oauthErr) {
				status := statusForOAuthError(oauthErr.Code)
				if status == http.StatusUnauthorized || status == http.StatusForbidden {
					w.Header().Set("WWW-Authenticate", `Bearer error="`+oauthErr.Code+`"`)
				}
				writeJSONError(w, oauthErr.Code, oauthErr.Description, status)
				return
			}
			s.writeInternalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// IndexHandler serves a small JSON description of the API surface.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":        s.config.GetAppName(),
			"description": "OAuth 2.0 identity broker",
			"endpoints": map[string]string{
				"authorization": RouteOAuthAuthorize,
				"token":         RouteOAuthToken,
				"userinfo":      RouteOAuthUserInfo,
				"discovery":     RouteWellKnownOpenIDConfig,
				"jwks":          RouteWellKnownJWKS,
			},
		})
	}
}

// writeAuthorizeError renders authorize failures. Errors raised after the
// redirect URI was validated travel back via the client redirect; everything
// earlier is a direct JSON response so the endpoint cannot be used as an
// open redirector.
func (s *Server) writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	var redirectErr *auth.RedirectError
	if errors.As(err, &redirectErr) {
		http.Redirect(w, r, redirectErr.URL(), http.StatusFound)
		return
	}
	s.writeOAuthError(w, r, err)
}

func (s *Server) writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var oauthErr *oauth2.Error
	if errors.As(err, &oauthErr) {
		writeJSONError(w, oauthErr.Code, oauthErr.Description, statusForOAuthError(oauthErr.Code))
		return
	}
	s.writeInternalError(w, r, err)
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSONError(w, oauth2.ErrorServerError, "Internal server error", http.StatusInternalServerError)
}

func statusForOAuthError(code string) int {
	switch code {
	case oauth2.ErrorInvalidClient, oauth2.ErrorInvalidToken:
		return http.StatusUnauthorized
	case oauth2.ErrorInsufficientScope:
		return http.StatusForbidden
	case oauth2.ErrorServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.Error{Code: errorCode, Description: description})
}
