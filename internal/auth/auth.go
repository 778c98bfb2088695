// Package auth guards the admin console with one shared password.
//
// A successful login creates a server-side session row and hands out an HS256
// token that only carries the session ID. Every request re-checks the row, so
// logging out or expiring a session takes effect immediately.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tally-backend/config"
	"tally-backend/internal/model"
	"tally-backend/internal/store"
)

// CookieName is the cookie the admin console keeps its token in.
const CookieName = "admin-auth"

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidSession  = errors.New("invalid or expired session")
)

// SessionStore persists admin sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	RevokeSession(ctx context.Context, id string) error
}

// Claims is the token payload. The registered ID claim holds the session ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and checks admin sessions.
type Manager struct {
	sessions SessionStore
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewManager builds a Manager from the admin configuration. A configured
// password hash wins over a plaintext password.
func NewManager(sessions SessionStore, cfg *config.AdminConfig) (*Manager, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, errors.New("admin password is not configured")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is not configured")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		sessions: sessions,
		hash:     hash,
		secret:   []byte(cfg.SessionSecret),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// TTL is how long a new session stays valid.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Login checks password and opens a session for clientIP.
func (m *Manager) Login(ctx context.Context, password, clientIP string) (string, model.Session, error) {
	if err := bcrypt.CompareHashAndPassword(m.hash, []byte(password)); err != nil {
		return "", model.Session{}, ErrInvalidPassword
	}

	now := m.now()
	session := model.Session{
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		ClientIP:  clientIP,
	}
	if err := m.sessions.CreateSession(ctx, &session); err != nil {
		return "", model.Session{}, err
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", model.Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, session, nil
}

// Verify returns the active session behind token. Bad signatures, expired
// tokens and revoked or missing sessions all yield ErrInvalidSession; a store
// failure is returned as is.
func (m *Manager) Verify(ctx context.Context, token string) (model.Session, error) {
	if token == "" {
		return model.Session{}, ErrInvalidSession
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || claims.ID == "" {
		return model.Session{}, ErrInvalidSession
	}

	session, err := m.sessions.GetSession(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Session{}, ErrInvalidSession
	}
	if err != nil {
		return model.Session{}, err
	}
	if !session.Active(m.now()) {
		return model.Session{}, ErrInvalidSession
	}
	return session, nil
}

// Logout revokes the session behind token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	session, err := m.Verify(ctx, token)
	if err != nil {
		return err
	}
	return m.sessions.RevokeSession(ctx, session.ID)
}

// TokenFromRequest returns the bearer token, falling back to the admin cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(model.Session)
	return session, ok
}
