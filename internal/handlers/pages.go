package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/notify"
	"github.com/testforge/suite-service/internal/shell"
	"github.com/testforge/suite-service/internal/validation"
	"github.com/testforge/suite-service/internal/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = map[string]*template.Template{}

func init() {
	for _, name := range []string{"home", "login", "signup", "callback", "error", "dashboard", "notfound"} {
		pageTemplates[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

type pageData struct {
	Title     string
	Dark      bool
	User      *domain.User
	Redirect  string
	Message   string
	Greeting  string
	Dashboard *DashboardResponse
	Wizard    *wizard.State
	Toasts    []notify.Toast
}

// PageHandler renders the HTML pages. Every page goes through the redirect
// policy of the shell first.
type PageHandler struct {
	prefs *shell.Preferences
	pages *Pages
}

// NewPageHandler creates a new page handler
func NewPageHandler(prefs *shell.Preferences, pages *Pages) *PageHandler {
	return &PageHandler{prefs: prefs, pages: pages}
}

// guard applies the redirect policy and reports whether the page should
// render
func (h *PageHandler) guard(w http.ResponseWriter, r *http.Request) bool {
	_, authenticated := auth.UserFromContext(r.Context())
	redirect := r.URL.Query().Get(shell.RedirectParam)
	if redirect != "" && !shell.SafeRedirect(redirect) {
		log.Printf("SECURITY: Ignored unsafe redirect %q from %s", redirect, r.RemoteAddr)
	}

	decision := shell.Decide(r.URL.Path, redirect, authenticated)
	if decision.Action == shell.Navigate {
		http.Redirect(w, r, decision.Target, http.StatusFound)
		return false
	}
	return true
}

func (h *PageHandler) data(r *http.Request, title string) pageData {
	d := pageData{
		Title: title,
		Dark:  shell.PrefersDark(r),
	}
	if redirect := r.URL.Query().Get(shell.RedirectParam); shell.SafeRedirect(redirect) {
		d.Redirect = redirect
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return d
	}
	d.User = &user
	d.Greeting = "Welcome, " + user.DisplayName()

	dark, err := h.prefs.DarkMode(r.Context(), user.ID, d.Dark)
	if err != nil {
		log.Printf("WARNING: Failed to read preferences of %s: %v", user.ID, err)
	}
	d.Dark = dark
	return d
}

func render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("ERROR: Failed to render %s page: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) simple(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.guard(w, r) {
			return
		}
		render(w, http.StatusOK, name, h.data(r, title))
	}
}

// Home renders the public landing page
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.simple("home", "Home")(w, r)
}

// Login renders the sign-in form
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.simple("login", "Sign in")(w, r)
}

// Signup renders the registration form
func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.simple("signup", "Sign up")(w, r)
}

// Callback finishes a sign-in. Signed-in users are sent on by the redirect
// policy; anyone left here has no valid session.
func (h *PageHandler) Callback(w http.ResponseWriter, r *http.Request) {
	h.simple("callback", "Signing in")(w, r)
}

// Error shows an authentication failure from the message parameter
func (h *PageHandler) Error(w http.ResponseWriter, r *http.Request) {
	if !h.guard(w, r) {
		return
	}
	d := h.data(r, "Error")
	d.Message = r.URL.Query().Get("message")
	if d.Message == "" {
		d.Message = "Something went wrong while signing you in."
	}
	render(w, http.StatusOK, "error", d)
}

// Dashboard renders the suite list and the form of the session's page.
// Pending toasts are shown once.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if !h.guard(w, r) {
		return
	}
	d := h.data(r, "Dashboard")

	p, ok := h.pages.FromRequest(r)
	if !ok {
		http.Redirect(w, r, shell.PathLogin, http.StatusFound)
		return
	}
	p.Do(func(p *Page) {
		p.Dashboard.EnsureLoaded(r.Context())
		list := dashboardResponse(p)
		form := p.Wizard.Snapshot()
		d.Dashboard = &list
		d.Wizard = &form
		d.Toasts = p.Toasts.Drain()
	})
	render(w, http.StatusOK, "dashboard", d)
}

// ToggleDarkMode handles the header toggle form and returns to the dashboard
func (h *PageHandler) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, shell.PathLogin, http.StatusSeeOther)
		return
	}

	if _, err := h.prefs.ToggleDarkMode(r.Context(), user.ID, shell.PrefersDark(r)); err != nil {
		log.Printf("ERROR: Failed to store preferences of %s: %v", user.ID, err)
	}
	http.Redirect(w, r, shell.PathDashboard, http.StatusSeeOther)
}

// DeleteSuite handles the delete button of a suite card. The outcome is
// shown as a toast on the dashboard it returns to.
func (h *PageHandler) DeleteSuite(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pages.FromRequest(r)
	if !ok {
		http.Redirect(w, r, shell.PathLogin, http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	if err := validation.ValidateID(id); err != nil {
		log.Printf("SECURITY: Rejected suite id %q from %s: %v", id, r.RemoteAddr, err)
		http.Redirect(w, r, shell.PathDashboard, http.StatusSeeOther)
		return
	}

	p.Do(func(p *Page) {
		p.Dashboard.Delete(r.Context(), id)
	})
	http.Redirect(w, r, shell.PathDashboard, http.StatusSeeOther)
}

// NotFound renders the 404 page for signed-in users. Anonymous users are
// sent to sign in first.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if !h.guard(w, r) {
		return
	}
	render(w, http.StatusNotFound, "notfound", h.data(r, "Page Not Found"))
}
