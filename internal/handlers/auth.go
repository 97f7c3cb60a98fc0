package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/shell"
)

// maxFormSize limits sign-in and sign-up form bodies
const maxFormSize = 64 << 10

// AuthHandler handles the sign-in, sign-up and sign-out forms. Outcomes
// are reported by redirecting to /callback or /error.
type AuthHandler struct {
	auth   *auth.Authenticator
	pages  *Pages
	cookie auth.CookieOptions
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(a *auth.Authenticator, pages *Pages, cookie auth.CookieOptions) *AuthHandler {
	return &AuthHandler{auth: a, pages: pages, cookie: cookie}
}

// withRedirect appends a safe redirect target to page
func withRedirect(page, redirect string, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if shell.SafeRedirect(redirect) {
		q.Set(shell.RedirectParam, redirect)
	}
	if len(q) == 0 {
		return page
	}
	return page + "?" + q.Encode()
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, message, redirect string) {
	target := withRedirect(shell.PathError, redirect, url.Values{"message": {message}})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) succeed(w http.ResponseWriter, r *http.Request, s auth.Session, redirect string) {
	auth.SetSessionCookie(w, s, h.cookie)
	http.Redirect(w, r, withRedirect(shell.PathCallback, redirect, nil), http.StatusSeeOther)
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "Invalid sign-in request", "")
		return
	}
	redirect := r.PostFormValue(shell.RedirectParam)

	s, err := h.auth.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("ERROR: Failed to open session: %v", err)
			h.fail(w, r, "Sign-in is temporarily unavailable", redirect)
			return
		}
		h.fail(w, r, "Invalid email or password", redirect)
		return
	}
	h.succeed(w, r, s, redirect)
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "Invalid sign-up request", "")
		return
	}
	redirect := r.PostFormValue(shell.RedirectParam)

	s, err := h.auth.Signup(r.Context(),
		r.PostFormValue("email"),
		r.PostFormValue("first_name"),
		r.PostFormValue("last_name"),
		r.PostFormValue("password"))
	switch {
	case err == nil:
		h.succeed(w, r, s, redirect)
	case errors.Is(err, auth.ErrInvalidSignup), errors.Is(err, auth.ErrEmailTaken):
		h.fail(w, r, err.Error(), redirect)
	default:
		log.Printf("ERROR: Failed to sign up: %v", err)
		h.fail(w, r, "Sign-up is temporarily unavailable", redirect)
	}
}

// Logout handles POST /logout. The page state of the session is dropped.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r); id != "" {
		if err := h.auth.Logout(r.Context(), id); err != nil {
			log.Printf("ERROR: Failed to end session: %v", err)
		}
		h.pages.Remove(id)
	}
	auth.ClearSessionCookie(w, h.cookie)
	http.Redirect(w, r, shell.PathHome, http.StatusSeeOther)
}
