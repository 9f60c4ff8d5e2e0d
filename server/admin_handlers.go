package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/clients"
	"github.com/flexio/bbauth/oauth2"
	"github.com/flexio/bbauth/providers"
	"github.com/flexio/bbauth/token/keys"
)

// SetupInit handles POST /setup/init: generates a fresh ES256 signing key
// pair and returns the PEMs once, for the operator to store as secrets.
func (s *Server) SetupInit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyPair, err := keys.GenerateES256KeyPair(keys.DefaultKeyID)
		if err != nil {
			s.writeInternalError(w, r, errors.Wrap(err, "[SetupInit] generate key pair"))
			return
		}

		privatePEM, err := keyPair.ExportPrivateKeyPEM()
		if err != nil {
			s.writeInternalError(w, r, errors.Wrap(err, "[SetupInit] export private key"))
			return
		}
		publicPEM, err := keyPair.ExportPublicKeyPEM()
		if err != nil {
			s.writeInternalError(w, r, errors.Wrap(err, "[SetupInit] export public key"))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":       "Setup successful. Store the private key as a secret; it is not shown again.",
			"jwtPrivateKey": privatePEM,
			"jwtPublicKey":  publicPEM,
			"instructions":  []string{"Set JWT_PRIVATE_KEY to the private key PEM and restart the service."},
		})
	}
}

// ClientRegister handles POST /admin/client/register.
func (s *Server) ClientRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var registration clients.Registration
		if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Malformed request body", http.StatusBadRequest)
			return
		}

		client, secret, err := s.clients.Register(r.Context(), registration)
		if err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"message": "Client registered successfully",
			"client":  client,
		}
		if secret != "" {
			// Shown once; only the bcrypt hash is stored.
			response["clientSecret"] = secret
		}
		writeJSON(w, http.StatusCreated, response)
	}
}

// ClientList handles GET /admin/client/list. Secret hashes are never
// included in the listing.
func (s *Server) ClientList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.clients.List(r.Context())
		if err != nil {
			s.writeInternalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clients": list})
	}
}

// ClientDelete handles DELETE /admin/client/delete/{clientID}.
func (s *Server) ClientDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.PathValue("clientID")
		err := s.clients.Delete(r.Context(), clientID)
		if errors.Is(err, clients.ErrClientNotFound) {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Unknown client", http.StatusNotFound)
			return
		}
		if err != nil {
			s.writeInternalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Client deleted successfully",
			"clientId": clientID,
		})
	}
}

// ProviderRegister handles POST /admin/provider/register. The generated
// Ed25519 private key appears only in this response.
func (s *Server) ProviderRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var registration providers.Registration
		if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Malformed request body", http.StatusBadRequest)
			return
		}

		registered, err := s.providers.Register(r.Context(), registration)
		if err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, registered)
	}
}
