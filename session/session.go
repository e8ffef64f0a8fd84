// Package session keeps the backend bearer token of a signed-in user in
// the fiber session, encrypted at rest.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"

	"labelmail/models"
	"labelmail/utils"
)

const (
	authKey  = "auth"
	stateKey = "oauth_state"
)

// ErrNoSession is returned when the request carries no usable session.
var ErrNoSession = errors.New("no active session")

// Session is what the app remembers about a signed-in user.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user,omitempty"`
	AccountID    string       `json:"account_id,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Manager reads and writes Sessions through a fiber session store.
type Manager struct {
	store      *session.Store
	key        []byte
	expiration time.Duration
	now        func() time.Time
	onIssue    func()
	onClear    func()
}

// NewManager derives the token key from secret. expiration bounds tokens
// that carry no exp claim.
func NewManager(store *session.Store, secret string, expiration time.Duration) (*Manager, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &Manager{
		store:      store,
		key:        key,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// OnChange registers hooks called after a session is issued or cleared.
func (m *Manager) OnChange(issued, cleared func()) {
	m.onIssue = issued
	m.onClear = cleared
}

// Issue starts a fresh session for auth working in accountID, which may be
// empty. The session id is regenerated, so the new session can only be
// loaded by the next request.
func (m *Manager) Issue(c *fiber.Ctx, auth *models.AuthResponse, accountID string) (*Session, error) {
	token := auth.Token()
	if token == "" {
		return nil, errors.New("auth response carried no token")
	}

	s := &Session{
		AccessToken:  token,
		RefreshToken: auth.RefreshToken,
		TokenType:    auth.TokenType,
		ExpiresAt:    m.expiryOf(token),
		User:         auth.User,
		AccountID:    accountID,
	}

	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return nil, fmt.Errorf("regenerate session: %w", err)
	}
	if err := m.write(sess, s); err != nil {
		return nil, err
	}
	if m.onIssue != nil {
		m.onIssue()
	}
	return s, nil
}

// Load returns the session of the request, or ErrNoSession when there is
// none, it cannot be decrypted, or its token expired.
func (m *Manager) Load(c *fiber.Ctx) (*Session, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	raw, ok := sess.Get(authKey).(string)
	if !ok || raw == "" {
		return nil, ErrNoSession
	}

	plain, err := decrypt(raw, m.key)
	if err != nil {
		utils.Log.Warn("Dropping undecryptable session: %v", err)
		_ = sess.Destroy()
		return nil, ErrNoSession
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		_ = sess.Destroy()
		return nil, ErrNoSession
	}

	if s.Expired(m.now()) {
		utils.Log.Debug("Session token expired at %s", s.ExpiresAt.Format(time.RFC3339))
		_ = sess.Destroy()
		return nil, ErrNoSession
	}

	return &s, nil
}

// SetAccount records the Gmail account the user works in.
func (m *Manager) SetAccount(c *fiber.Ctx, accountID string) error {
	s, err := m.Load(c)
	if err != nil {
		return err
	}
	if s.AccountID == accountID {
		return nil
	}
	s.AccountID = accountID

	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	return m.write(sess, s)
}

// Clear destroys the session of the request.
func (m *Manager) Clear(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	if m.onClear != nil {
		m.onClear()
	}
	return nil
}

// SetState stores the OAuth state of a pending sign-in.
func (m *Manager) SetState(c *fiber.Ctx, state string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	sess.Set(stateKey, state)
	return sess.Save()
}

// TakeState returns and forgets the pending OAuth state.
func (m *Manager) TakeState(c *fiber.Ctx) (string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	state, _ := sess.Get(stateKey).(string)
	sess.Delete(stateKey)
	return state, sess.Save()
}

func (m *Manager) write(sess *session.Session, s *Session) error {
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := encrypt(plain, m.key)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}
	sess.Set(authKey, sealed)
	if ttl := s.ExpiresAt.Sub(m.now()); ttl > 0 {
		sess.SetExpiry(ttl)
	}
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// expiryOf reads the exp claim of a JWT without verifying it; the backend
// verifies its own tokens. Opaque tokens get the configured expiration.
func (m *Manager) expiryOf(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return m.now().Add(m.expiration)
}
