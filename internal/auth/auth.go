// Package auth signs users in and out and keeps their sessions.
//
// Accounts come from a UserStore (an INI users file in production),
// sessions from a SessionStore (memory or Redis). The HTTP side is a cookie
// middleware that puts the session's user into the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/testforge/suite-service/internal/domain"
)

// ErrInvalidSignup is returned when signup fields are malformed
var ErrInvalidSignup = errors.New("invalid signup")

// MinPasswordLength is the shortest password Signup accepts
const MinPasswordLength = 8

// Authenticator ties the user store to the session store
type Authenticator struct {
	users    UserStore
	sessions SessionStore
}

// NewAuthenticator signs users in against users and keeps them in sessions
func NewAuthenticator(users UserStore, sessions SessionStore) *Authenticator {
	return &Authenticator{users: users, sessions: sessions}
}

// Login checks the credentials and opens a session
func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := a.users.Authenticate(email, password)
	if err != nil {
		log.Printf("SECURITY: Failed login for %q", normalizeEmail(email))
		return Session{}, err
	}
	return a.sessions.Create(ctx, user)
}

// Signup registers a new account and opens a session for it
func (a *Authenticator) Signup(ctx context.Context, email, firstName, lastName, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return Session{}, fmt.Errorf("%w: email address is not valid", ErrInvalidSignup)
	}
	if strings.TrimSpace(firstName) == "" {
		return Session{}, fmt.Errorf("%w: first name is required", ErrInvalidSignup)
	}
	if len(password) < MinPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, MinPasswordLength)
	}

	user, err := a.users.Register(email, strings.TrimSpace(firstName), strings.TrimSpace(lastName), password)
	if err != nil {
		return Session{}, err
	}
	log.Printf("DATA: User %s signed up", user.ID)
	return a.sessions.Create(ctx, user)
}

// Logout ends a session. Unknown sessions are not an error.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

// Session returns the open session with id
func (a *Authenticator) Session(ctx context.Context, id string) (Session, error) {
	s, err := a.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	// accounts removed from the users file lose their sessions
	if _, ok := a.users.Lookup(s.User.ID); !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// User returns the profile of the session's user as currently stored
func (a *Authenticator) User(s Session) domain.User {
	if u, ok := a.users.Lookup(s.User.ID); ok {
		return u
	}
	return s.User
}
