package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/crypto"
	"github.com/flexio/bbauth/storage"
)

// SessionTTL bounds the window between the authorize redirect and the
// verifier's callback.
const SessionTTL = 10 * time.Minute

// ErrSessionNotFound is returned when a session is absent or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session bridges the authorize and callback steps while the external
// verifier confirms the user's identity. It is consumed exactly once.
type Session struct {
	SessionID           string    `json:"sessionId"`
	ClientID            string    `json:"clientId"`
	RedirectURI         string    `json:"redirectUri"`
	Scope               string    `json:"scope"`
	State               string    `json:"state"`
	CodeChallenge       string    `json:"codeChallenge"`
	CodeChallengeMethod string    `json:"codeChallengeMethod"`
	Nonce               string    `json:"nonce,omitempty"`
	ProviderID          string    `json:"providerId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

// SessionRepo persists sessions under "session:{id}".
type SessionRepo struct {
	store storage.Store
}

// NewSessionRepo creates a session repository over the store.
func NewSessionRepo(store storage.Store) *SessionRepo {
	return &SessionRepo{store: store}
}

// Create assigns a fresh session ID and persists the record with the
// session TTL.
func (r *SessionRepo) Create(ctx context.Context, session *Session) error {
	sessionID, err := crypto.RandomToken(crypto.DefaultTokenLength)
	if err != nil {
		return errors.Wrap(err, "[Create] generate session id")
	}
	session.SessionID = sessionID

	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[Create] marshal session")
	}
	if err := r.store.Put(ctx, storage.SessionKey(sessionID), data, SessionTTL); err != nil {
		return errors.Wrap(err, "[Create] store.Put")
	}
	return nil
}

// Get loads a session by ID.
func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.store.Get(ctx, storage.SessionKey(sessionID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Get] store.Get")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal session")
	}
	return &session, nil
}

// Consume deletes the session and reports whether this caller owned the
// deletion. Of two concurrent callbacks for the same session, exactly one
// observes true.
func (r *SessionRepo) Consume(ctx context.Context, sessionID string) (bool, error) {
	existed, err := r.store.Delete(ctx, storage.SessionKey(sessionID))
	if err != nil {
		return false, errors.Wrap(err, "[Consume] store.Delete")
	}
	return existed, nil
}
