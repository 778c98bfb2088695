package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tally-backend/config"
	"tally-backend/internal/model"
	"tally-backend/internal/store"
	"tally-backend/internal/testutil"
)

func newManager(t *testing.T) (*Manager, store.Store) {
	t.Helper()
	s := store.NewGormStore(testutil.NewTestDB(t))
	m, err := NewManager(s, &config.AdminConfig{
		Password:      "letmein",
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	})
	require.NoError(t, err)
	return m, s
}

func TestManager_LoginAndVerify(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	token, session, err := m.Login(ctx, "letmein", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "10.0.0.1", session.ClientIP)
	assert.WithinDuration(t, session.IssuedAt.Add(time.Hour), session.ExpiresAt, time.Second)

	got, err := m.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestManager_LoginWrongPassword(t *testing.T) {
	m, _ := newManager(t)

	_, _, err := m.Login(context.Background(), "guess", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestManager_VerifyRejects(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()
	token, session, err := m.Login(ctx, "letmein", "")
	require.NoError(t, err)

	other, err := NewManager(s, &config.AdminConfig{Password: "letmein", SessionSecret: "another-secret"})
	require.NoError(t, err)

	testCases := []struct {
		name  string
		check func() error
	}{
		{
			name: "empty token",
			check: func() error {
				_, err := m.Verify(ctx, "")
				return err
			},
		},
		{
			name: "garbage",
			check: func() error {
				_, err := m.Verify(ctx, "not.a.token")
				return err
			},
		},
		{
			name: "signed with another secret",
			check: func() error {
				_, err := other.Verify(ctx, token)
				return err
			},
		},
		{
			name: "expired",
			check: func() error {
				later := *m
				later.now = func() time.Time { return session.ExpiresAt.Add(time.Minute) }
				_, err := later.Verify(ctx, token)
				return err
			},
		},
		{
			name: "missing session row",
			check: func() error {
				forged, _, err := m.Login(ctx, "letmein", "")
				require.NoError(t, err)
				require.NoError(t, s.DB().Where("1 = 1").Delete(&model.Session{}).Error)
				_, err = m.Verify(ctx, forged)
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.check(), ErrInvalidSession)
		})
	}
}

func TestManager_Logout(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	token, _, err := m.Login(ctx, "letmein", "")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, token))

	_, err = m.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, m.Logout(ctx, token), ErrInvalidSession)
}

func TestNewManager(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	require.NoError(t, err)

	m, err := NewManager(nil, &config.AdminConfig{PasswordHash: string(hash), SessionSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, m.TTL())
	assert.NoError(t, bcrypt.CompareHashAndPassword(m.hash, []byte("hashed")))

	_, err = NewManager(nil, &config.AdminConfig{SessionSecret: "s"})
	assert.Error(t, err)
	_, err = NewManager(nil, &config.AdminConfig{Password: "p"})
	assert.Error(t, err)
	_, err = NewManager(nil, &config.AdminConfig{PasswordHash: "plain", SessionSecret: "s"})
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "cookie", cookie: "xyz", want: "xyz"},
		{name: "header wins", header: "Bearer abc", cookie: "xyz", want: "abc"},
		{name: "other scheme", header: "Basic abc", want: ""},
		{name: "nothing", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			assert.Equal(t, tc.want, TokenFromRequest(req))
		})
	}
}

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), model.Session{ID: "s1"})
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)
}

func TestVerify_StoreFailure(t *testing.T) {
	m, _ := newManager(t)
	token, _, err := m.Login(context.Background(), "letmein", "")
	require.NoError(t, err)

	broken := *m
	broken.sessions = brokenSessions{}
	_, err = broken.Verify(context.Background(), token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSession))
}

type brokenSessions struct{}

func (brokenSessions) CreateSession(context.Context, *model.Session) error { return nil }

func (brokenSessions) GetSession(context.Context, string) (model.Session, error) {
	return model.Session{}, errors.New("disk I/O error")
}

func (brokenSessions) RevokeSession(context.Context, string) error { return nil }
