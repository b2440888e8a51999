// Package auth owns the client's authentication state: anti-forgery token,
// bearer token and decoded claims, login/registration flags, and the
// persisted session record restored across runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Woondzer/ChatIt/api"
	"github.com/Woondzer/ChatIt/store"
)

// State of the session machine.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

// Persisted keys. The names match what earlier client builds wrote so an
// upgraded client resumes existing sessions.
const (
	keyToken    = "token"
	keyClaims   = "decodedJwt"
	keyLoggedIn = "loggedIn"
)

// Credentials for Login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Profile for Register. ConfirmPassword is checked locally and never sent.
type Profile struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Session is the single process-wide authentication state. The CSRF token
// lives in memory only and is re-fetched lazily; the bearer token, claims
// snapshot and logged-in flag are persisted.
type Session struct {
	client *api.Client
	store  store.Store
	now    func() time.Time
	csrf   singleflight.Group

	mu         sync.Mutex
	state      State
	csrfToken  string
	token      string
	claims     *Claims
	registered bool
	status     string
	errMsg     string
}

// NewSession restores any persisted session. A stored token that fails
// validation transitions to Anonymous and purges the record, so a half-valid
// session is never visible.
func NewSession(client *api.Client, st store.Store) *Session {
	s := &Session{client: client, store: st, now: time.Now}
	s.restore()
	return s
}

func (s *Session) restore() {
	tok, okTok := s.store.Get(keyToken)
	flag, okFlag := s.store.Get(keyLoggedIn)
	if !okTok || !okFlag {
		if okTok || okFlag {
			// Partial record: self-heal rather than surface it.
			s.purge()
		}
		s.client.SetAuthToken("")
		return
	}

	var loggedIn bool
	if err := json.Unmarshal(flag, &loggedIn); err != nil || !loggedIn {
		s.purge()
		s.client.SetAuthToken("")
		return
	}
	token := string(tok)
	if !Valid(token, s.now()) {
		log.Debug().Msg("[auth] stored token expired or malformed; clearing session")
		s.purge()
		s.client.SetAuthToken("")
		return
	}

	// The token just validated, so it decodes; the persisted claims
	// snapshot is ignored in favor of a fresh decode and rewritten.
	claims, _ := DecodeToken(token)
	s.persist(token, claims)
	s.token = token
	s.claims = claims
	s.state = Authenticated
	s.client.SetAuthToken(token)
}

// FetchCSRF refreshes the anti-forgery token. Failures are non-fatal: the
// previous token (if any) stays usable and the next state-changing call
// retries lazily. Concurrent fetches collapse to one request.
func (s *Session) FetchCSRF(ctx context.Context) {
	_, _, _ = s.csrf.Do("csrf", func() (any, error) {
		var out struct {
			CSRFToken string `json:"csrfToken"`
		}
		if err := s.client.Patch(ctx, "/csrf", nil, &out); err != nil {
			log.Warn().Err(err).Msg("[auth] csrf fetch failed")
			return nil, nil
		}
		if out.CSRFToken != "" {
			s.mu.Lock()
			s.csrfToken = out.CSRFToken
			s.mu.Unlock()
		}
		return nil, nil
	})
}

// EnsureCSRF returns the cached anti-forgery token, fetching one first if
// none is cached. Callers attach it to state-changing requests.
func (s *Session) EnsureCSRF(ctx context.Context) string {
	s.mu.Lock()
	tok := s.csrfToken
	s.mu.Unlock()
	if tok != "" {
		return tok
	}
	s.FetchCSRF(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// Register submits a new account. It does not mutate token state; on
// success the endpoint's message (or a default) becomes the status message.
func (s *Session) Register(ctx context.Context, p Profile) bool {
	s.begin()
	if p.Password != p.ConfirmPassword {
		s.setError("Passwords does not match")
		return false
	}
	csrf := s.EnsureCSRF(ctx)

	body := struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		CSRFToken string `json:"csrfToken,omitempty"`
	}{p.Username, p.Email, p.Password, csrf}

	var out struct {
		Message string `json:"message"`
	}
	if err := s.client.Post(ctx, "/auth/register", body, &out); err != nil {
		s.setError(reasonOf(err, "Registration failed"))
		return false
	}

	s.mu.Lock()
	s.registered = true
	if out.Message != "" {
		s.status = out.Message
	} else {
		s.status = "Registered successfully"
	}
	s.mu.Unlock()
	return true
}

// Login exchanges credentials for a bearer token. A token that is missing,
// structurally invalid or expired is treated exactly like a rejected login:
// error recorded, session and persisted record cleared.
func (s *Session) Login(ctx context.Context, c Credentials) bool {
	s.begin()
	s.mu.Lock()
	s.state = Authenticating
	s.mu.Unlock()

	csrf := s.EnsureCSRF(ctx)
	body := struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		CSRFToken string `json:"csrfToken,omitempty"`
	}{c.Username, c.Password, csrf}

	var out struct {
		Token string `json:"token"`
	}
	if err := s.client.Post(ctx, "/auth/token", body, &out); err != nil {
		s.reject(reasonOf(err, "Sign in failed"))
		return false
	}
	if !Valid(out.Token, s.now()) {
		s.reject("Sign in failed")
		return false
	}

	claims, _ := DecodeToken(out.Token)
	s.persist(out.Token, claims)
	s.client.SetAuthToken(out.Token)

	s.mu.Lock()
	s.token = out.Token
	s.claims = claims
	s.state = Authenticated
	s.status = "Signed in successfully"
	s.mu.Unlock()
	return true
}

// Logout clears memory and persisted state and the default outgoing
// credential. It never calls the network.
func (s *Session) Logout() {
	s.purge()
	s.client.SetAuthToken("")
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.state = Anonymous
	s.status = ""
	s.errMsg = ""
	s.mu.Unlock()
}

// begin clears the status/error pair at the start of an auth operation.
func (s *Session) begin() {
	s.mu.Lock()
	s.status = ""
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.status = ""
	s.mu.Unlock()
}

// reject records a failed login: no partial token state survives.
func (s *Session) reject(msg string) {
	s.purge()
	s.client.SetAuthToken("")
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.state = Anonymous
	s.errMsg = msg
	s.status = ""
	s.mu.Unlock()
}

func (s *Session) persist(token string, claims *Claims) {
	snapshot, _ := json.Marshal(claims.Raw)
	for key, val := range map[string][]byte{
		keyToken:    []byte(token),
		keyClaims:   snapshot,
		keyLoggedIn: []byte("true"),
	} {
		if err := s.store.Set(key, val); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("[auth] persist session failed")
		}
	}
}

func (s *Session) purge() {
	for _, key := range []string{keyToken, keyClaims, keyLoggedIn} {
		if err := s.store.Remove(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("[auth] purge session failed")
		}
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoggedIn reports whether the session holds a currently valid token.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Authenticated && s.claims != nil && s.claims.Exp*1000 > s.now().UnixMilli()
}

// Subject is the authenticated user id, empty when anonymous.
func (s *Session) Subject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Subject
}

func (s *Session) Claims() *Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims
}

func (s *Session) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *Session) StatusMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// CSRFToken exposes the cached anti-forgery token (empty until fetched).
func (s *Session) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// reasonOf extracts the endpoint-supplied reason from an API error, falling
// back to a generic message for transport failures and silent bodies.
func reasonOf(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Reason != "" {
		return apiErr.Reason
	}
	return fallback
}
