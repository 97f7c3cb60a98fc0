package shell

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/suite-service/internal/localstore"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		redirect      string
		authenticated bool
		want          Decision
	}{
		{
			name:          "auth page signed in with redirect",
			path:          PathLogin,
			redirect:      "/dashboard?tab=recent",
			authenticated: true,
			want:          Decision{Action: Navigate, Target: "/dashboard?tab=recent"},
		},
		{
			name:          "callback signed in without redirect",
			path:          PathCallback,
			authenticated: true,
			want:          Decision{Action: Navigate, Target: PathDashboard},
		},
		{
			name:          "non-auth page signed in",
			path:          PathDashboard,
			authenticated: true,
			want:          Decision{Action: Stay},
		},
		{
			name:          "unknown page signed in",
			path:          "/nowhere",
			authenticated: true,
			want:          Decision{Action: Stay},
		},
		{
			name: "non-auth page anonymous",
			path: PathDashboard,
			want: Decision{Action: Navigate, Target: "/login?redirect=%2Fdashboard"},
		},
		{
			name: "landing page anonymous",
			path: PathHome,
			want: Decision{Action: Stay},
		},
		{
			name:     "signup anonymous with redirect",
			path:     PathSignup,
			redirect: "/dashboard",
			want:     Decision{Action: Navigate, Target: "/login?redirect=%2Fdashboard"},
		},
		{
			name:     "error page anonymous redirect to auth page",
			path:     PathError,
			redirect: "/signup",
			want:     Decision{Action: Stay},
		},
		{
			name:     "login anonymous with redirect",
			path:     PathLogin,
			redirect: "/dashboard",
			want:     Decision{Action: Stay},
		},
		{
			name: "auth page anonymous without redirect",
			path: PathSignup,
			want: Decision{Action: Stay},
		},
		{
			name:          "external redirect is ignored",
			path:          PathLogin,
			redirect:      "https://evil.example/",
			authenticated: true,
			want:          Decision{Action: Navigate, Target: PathDashboard},
		},
		{
			name:          "scheme-relative redirect is ignored",
			path:          PathCallback,
			redirect:      "//evil.example",
			authenticated: true,
			want:          Decision{Action: Navigate, Target: PathDashboard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.path, tt.redirect, tt.authenticated))
		})
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]bool{
		"/dashboard":           true,
		"/dashboard?x=1#top":   true,
		"":                     false,
		"dashboard":            false,
		"//evil.example":       false,
		"/\\evil.example":      false,
		"https://evil.example": false,
		"javascript:alert(1)":  false,
		"/ok\r\nSet-Cookie: x": false,
	}

	for target, want := range tests {
		assert.Equal(t, want, SafeRedirect(target), target)
	}
}

func TestIsAuthPath(t *testing.T) {
	for _, p := range []string{PathLogin, PathSignup, PathCallback, PathError, "/login/"} {
		assert.True(t, IsAuthPath(p), p)
	}
	for _, p := range []string{PathHome, PathDashboard, "/loginx"} {
		assert.False(t, IsAuthPath(p), p)
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "stay", Stay.String())
	assert.Equal(t, "navigate", Navigate.String())
}

func TestPrefersDark(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, PrefersDark(r))

	r.Header.Set(ColorSchemeHint, `"dark"`)
	assert.True(t, PrefersDark(r))

	r.Header.Set(ColorSchemeHint, "light")
	assert.False(t, PrefersDark(r))
}

func TestDarkModePreference(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	prefs := NewPreferences(store)
	user := uuid.New()

	enabled, err := prefs.DarkMode(ctx, user, true)
	require.NoError(t, err)
	assert.True(t, enabled, "unset flag follows the system default")

	enabled, err = prefs.ToggleDarkMode(ctx, user, true)
	require.NoError(t, err)
	assert.False(t, enabled)

	raw, err := store.Get(ctx, user, DarkModeKey)
	require.NoError(t, err)
	assert.Equal(t, "false", raw)

	enabled, err = prefs.DarkMode(ctx, user, true)
	require.NoError(t, err)
	assert.False(t, enabled, "stored flag wins over the system default")

	enabled, err = prefs.ToggleDarkMode(ctx, user, false)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func BenchmarkDecide(b *testing.B) {
	paths := []string{PathHome, PathLogin, PathDashboard, "/missing/page"}
	for i := 0; i < b.N; i++ {
		Decide(paths[i%len(paths)], "/dashboard", i%2 == 0)
	}
}
