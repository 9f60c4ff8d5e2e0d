package server

import "net/http"

// DiscoveryDocument is the OpenID Connect discovery metadata.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// WellKnownOpenIDConfig serves GET /.well-known/openid-configuration.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issuer := s.config.GetIssuerURL()
		doc := DiscoveryDocument{
			Issuer:                            issuer,
			AuthorizationEndpoint:             issuer + RouteOAuthAuthorize,
			TokenEndpoint:                     issuer + RouteOAuthToken,
			UserInfoEndpoint:                  issuer + RouteOAuthUserInfo,
			JWKSURI:                           issuer + RouteWellKnownJWKS,
			ResponseTypesSupported:            []string{"code"},
			GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
			SubjectTypesSupported:             []string{"public"},
			IDTokenSigningAlgValuesSupported:  []string{"ES256"},
			ScopesSupported:                   []string{"email", "drive.readonly", "gmail.send"},
			TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "none"},
			CodeChallengeMethodsSupported:     []string{"S256"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, doc)
	}
}

// JWKS serves GET /.well-known/jwks.json with the signing public key.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.tokens.GetJWKS()
		if err != nil {
			s.writeInternalError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, jwks)
	}
}
