package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/suite-service/internal/auth/testutil"
	"github.com/testforge/suite-service/internal/domain"
)

func testutilUser() domain.User {
	return domain.User{
		ID:        testutil.TestUUID1,
		Email:     testutil.Ada.Email,
		FirstName: testutil.Ada.FirstName,
		LastName:  testutil.Ada.LastName,
	}
}

func sessionStores(t *testing.T) map[string]SessionStore {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("127.0.0.1:%s", server.Port()),
	})
	t.Cleanup(func() { client.Close() })

	return map[string]SessionStore{
		"memory": NewMemorySessionStore(time.Hour),
		"redis":  NewRedisSessionStore(client, time.Hour),
	}
}

func TestSessionStores(t *testing.T) {
	for name, sessions := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s, err := sessions.Create(ctx, testutilUser())
			require.NoError(t, err)
			assert.NotEmpty(t, s.ID)
			assert.True(t, s.ExpiresAt.After(s.CreatedAt))

			got, err := sessions.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, s.ID, got.ID)
			assert.Equal(t, testutilUser(), got.User)

			require.NoError(t, sessions.Delete(ctx, s.ID))
			_, err = sessions.Get(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)

			_, err = sessions.Get(ctx, "unknown")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestMemorySessionExpiry(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	s, err := sessions.Create(ctx, testutilUser())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = sessions.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionTTL(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("127.0.0.1:%s", server.Port())})
	defer client.Close()

	sessions := NewRedisSessionStore(client, time.Minute)
	s, err := sessions.Create(context.Background(), testutilUser())
	require.NoError(t, err)

	assert.Equal(t, time.Minute, server.TTL(SessionKeyPrefix+s.ID))

	server.FastForward(2 * time.Minute)
	_, err = sessions.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func newAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	store, _ := newFileStore(t, testutil.Ada)
	return NewAuthenticator(store, NewMemorySessionStore(time.Hour))
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t)

	_, err := a.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, err := a.Login(ctx, "ada@example.com", testutil.Ada.Password)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestUUID1, s.User.ID)

	got, err := a.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, a.Logout(ctx, s.ID))
	_, err = a.Session(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t)

	tests := []struct {
		name, email, first, password string
		wantErr                      error
	}{
		{name: "bad email", email: "not-an-email", first: "X", password: "password-123", wantErr: ErrInvalidSignup},
		{name: "display name email", email: "X <x@example.com>", first: "X", password: "password-123", wantErr: ErrInvalidSignup},
		{name: "no first name", email: "x@example.com", first: " ", password: "password-123", wantErr: ErrInvalidSignup},
		{name: "short password", email: "x@example.com", first: "X", password: "short", wantErr: ErrInvalidSignup},
		{name: "taken email", email: "ada@example.com", first: "Ada", password: "password-123", wantErr: ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Signup(ctx, tt.email, tt.first, "", tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	s, err := a.Signup(ctx, "linus@example.com", "Linus", "Torvalds", "penguin-power")
	require.NoError(t, err)
	assert.Equal(t, "Linus", s.User.FirstName)

	_, err = a.Login(ctx, "linus@example.com", "penguin-power")
	assert.NoError(t, err)
}

func TestSessionOfRemovedUser(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessionStore(time.Hour)
	a := NewAuthenticator(NewInMemoryStore(bcryptCost), sessions)

	s, err := sessions.Create(ctx, domain.User{ID: uuid.New(), Email: "gone@example.com"})
	require.NoError(t, err)

	_, err = a.Session(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t)
	s, err := a.Login(ctx, "ada@example.com", testutil.Ada.Password)
	require.NoError(t, err)

	handler := Middleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		session, _ := SessionFromContext(r.Context())
		w.Write([]byte(user.FirstName + ":" + session.ID))
	}))

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{name: "no session", prepare: func(r *http.Request) {}, want: "anonymous"},
		{name: "cookie", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: s.ID})
		}, want: "Ada:" + s.ID},
		{name: "bearer token", prepare: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+s.ID)
		}, want: "Ada:" + s.ID},
		{name: "unknown session", prepare: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"})
		}, want: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), Session{ID: "s", User: testutilUser()}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)}, CookieOptions{Secure: true})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, CookieOptions{})
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc": "abc",
		"bearer abc": "abc",
		"Basic abc":  "",
		"Bearer ":    "",
		"":           "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, ExtractBearerToken(req), header)
	}
}
