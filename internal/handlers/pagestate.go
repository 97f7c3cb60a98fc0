package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/dashboard"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/localstore"
	"github.com/testforge/suite-service/internal/notify"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/wizard"
)

// SourceFactory builds the dashboard source of a user
type SourceFactory func(user domain.User) dashboard.Source

// NetworkSources keeps every user's suites on the backend
func NetworkSources(suites *service.Suites) SourceFactory {
	return func(user domain.User) dashboard.Source {
		return dashboard.NewNetworkSource(suites, user.ID.String())
	}
}

// LocalSources keeps every user's suites in the local store
func LocalSources(store localstore.Store) SourceFactory {
	return func(user domain.User) dashboard.Source {
		return dashboard.NewLocalSource(store, user.ID)
	}
}

// Page is the dashboard page of one browser session. The wizard hands
// submitted suites to the dashboard; both report through the same toast
// queue.
type Page struct {
	mu        sync.Mutex
	User      domain.User
	Wizard    *wizard.Wizard
	Dashboard *dashboard.Dashboard
	Toasts    *notify.Queue

	// outcome of the last wizard submit
	submitted domain.TestSuite
	submitErr error
}

func newPage(user domain.User, source dashboard.Source) *Page {
	toasts := notify.NewQueue()
	p := &Page{
		User:      user,
		Wizard:    wizard.New(user.ID.String(), toasts),
		Dashboard: dashboard.New(source, toasts),
		Toasts:    toasts,
	}
	p.Wizard.OnSubmit = func(ctx context.Context, suite domain.TestSuite) {
		p.submitted, p.submitErr = p.Dashboard.Add(ctx, suite)
	}
	return p
}

// Do runs fn with the page locked
func (p *Page) Do(fn func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// pageSweepInterval is how often pages of expired sessions are dropped
const pageSweepInterval = 5 * time.Minute

type openPage struct {
	page      *Page
	expiresAt time.Time
}

// Pages keeps one Page per session until the session logs out or expires
type Pages struct {
	mu     sync.Mutex
	pages  map[string]openPage
	source SourceFactory
	now    func() time.Time

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	stopOnce    sync.Once
}

// NewPages creates the page registry and starts the sweep of expired
// sessions. Call Stop to end it.
func NewPages(source SourceFactory) *Pages {
	ps := &Pages{
		pages:       make(map[string]openPage),
		source:      source,
		now:         time.Now,
		sweepTicker: time.NewTicker(pageSweepInterval),
		stopSweep:   make(chan struct{}),
	}
	go ps.sweepRoutine()
	return ps
}

func (ps *Pages) sweepRoutine() {
	for {
		select {
		case <-ps.sweepTicker.C:
			ps.Sweep()
		case <-ps.stopSweep:
			return
		}
	}
}

// Sweep drops the pages of sessions that have expired and returns how many
// were dropped
func (ps *Pages) Sweep() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.now()
	dropped := 0
	for id, open := range ps.pages {
		if !open.expiresAt.IsZero() && !now.Before(open.expiresAt) {
			delete(ps.pages, id)
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("Dropped %d page(s) of expired sessions", dropped)
	}
	return dropped
}

// Stop ends the sweep goroutine
func (ps *Pages) Stop() {
	ps.stopOnce.Do(func() {
		ps.sweepTicker.Stop()
		close(ps.stopSweep)
	})
}

// Get returns the page of the session, creating it on first use
func (ps *Pages) Get(s auth.Session, user domain.User) *Page {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	open, ok := ps.pages[s.ID]
	if !ok {
		open.page = newPage(user, ps.source(user))
	}
	open.expiresAt = s.ExpiresAt
	ps.pages[s.ID] = open
	return open.page
}

// Remove drops the page of a session
func (ps *Pages) Remove(sessionID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.pages, sessionID)
}

// Len returns the number of open pages
func (ps *Pages) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pages)
}

// pageOf answers 401 when the request has no page
func pageOf(ps *Pages, w http.ResponseWriter, r *http.Request) (*Page, bool) {
	p, ok := ps.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
	}
	return p, ok
}

// FromRequest returns the page of the request's session. It is only valid
// behind auth.RequireUser.
func (ps *Pages) FromRequest(r *http.Request) (*Page, bool) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return nil, false
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return ps.Get(s, user), true
}
