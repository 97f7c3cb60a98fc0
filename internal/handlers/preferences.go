package handlers

import (
	"log"
	"net/http"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/notify"
	"github.com/testforge/suite-service/internal/shell"
)

// PreferencesHandler serves display preferences, the toast queue and the
// session profile
type PreferencesHandler struct {
	prefs *shell.Preferences
	pages *Pages
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefs *shell.Preferences, pages *Pages) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, pages: pages}
}

// PreferencesResponse holds the display preferences of a user
type PreferencesResponse struct {
	DarkMode bool `json:"darkMode"`
}

// SessionResponse describes the signed-in user
type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          domain.User `json:"user"`
	Greeting      string      `json:"greeting"`
}

// Get returns the preferences. Unset dark mode follows the client hint.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	dark, err := h.prefs.DarkMode(r.Context(), user.ID, shell.PrefersDark(r))
	if err != nil {
		log.Printf("WARNING: Failed to read preferences of %s: %v", user.ID, err)
	}
	writeJSON(w, http.StatusOK, PreferencesResponse{DarkMode: dark})
}

// ToggleDarkMode flips and stores the dark mode flag
func (h *PreferencesHandler) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	dark, err := h.prefs.ToggleDarkMode(r.Context(), user.ID, shell.PrefersDark(r))
	if err != nil {
		log.Printf("ERROR: Failed to store preferences of %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, PreferencesResponse{DarkMode: dark})
}

// Notifications drains the toast queue of the session's page
func (h *PreferencesHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}

	var toasts []notify.Toast
	p.Do(func(p *Page) {
		toasts = p.Toasts.Drain()
	})
	writeJSON(w, http.StatusOK, toasts)
}

// Session returns the signed-in user
func (h *PreferencesHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		User:          user,
		Greeting:      "Welcome, " + user.DisplayName(),
	})
}
