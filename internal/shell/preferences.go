package shell

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/testforge/suite-service/internal/localstore"
)

// DarkModeKey is the local store key of the dark mode flag
const DarkModeKey = "darkMode"

// ColorSchemeHint is the client hint header carrying the preferred color
// scheme of the browser
const ColorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

// Preferences reads and writes display preferences of users
type Preferences struct {
	store localstore.Store
}

// NewPreferences keeps preferences in the given local store
func NewPreferences(store localstore.Store) *Preferences {
	return &Preferences{store: store}
}

// PrefersDark reports whether the request's client hint asks for a dark
// color scheme
func PrefersDark(r *http.Request) bool {
	return strings.EqualFold(strings.Trim(r.Header.Get(ColorSchemeHint), `"`), "dark")
}

// DarkMode returns the stored flag, or systemDefault when none is stored
func (p *Preferences) DarkMode(ctx context.Context, userID uuid.UUID, systemDefault bool) (bool, error) {
	var enabled bool
	found, err := localstore.GetJSON(ctx, p.store, userID, DarkModeKey, &enabled)
	if err != nil {
		return systemDefault, err
	}
	if !found {
		return systemDefault, nil
	}
	return enabled, nil
}

// SetDarkMode stores the flag
func (p *Preferences) SetDarkMode(ctx context.Context, userID uuid.UUID, enabled bool) error {
	return localstore.SetJSON(ctx, p.store, userID, DarkModeKey, enabled)
}

// ToggleDarkMode flips the effective flag, stores it and returns the new
// value
func (p *Preferences) ToggleDarkMode(ctx context.Context, userID uuid.UUID, systemDefault bool) (bool, error) {
	current, err := p.DarkMode(ctx, userID, systemDefault)
	if err != nil {
		return current, err
	}
	if err := p.SetDarkMode(ctx, userID, !current); err != nil {
		return current, err
	}
	return !current, nil
}
