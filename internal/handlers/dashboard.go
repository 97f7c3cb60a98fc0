package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testforge/suite-service/internal/dashboard"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/validation"
)

// DashboardHandler serves the suite list of the session's page
type DashboardHandler struct {
	pages *Pages
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(pages *Pages) *DashboardHandler {
	return &DashboardHandler{pages: pages}
}

// DashboardResponse is the list state of a page
type DashboardResponse struct {
	Greeting string             `json:"greeting"`
	Loading  bool               `json:"loading"`
	Empty    bool               `json:"empty"`
	Suites   []domain.TestSuite `json:"suites"`
}

func dashboardResponse(p *Page) DashboardResponse {
	return DashboardResponse{
		Greeting: "Welcome, " + p.User.DisplayName(),
		Loading:  p.Dashboard.Loading(),
		Empty:    p.Dashboard.Empty(),
		Suites:   p.Dashboard.Suites(),
	}
}

// Get returns the list, loading it on first access. A failed load still
// answers 200 with the previous list; the toast reports the failure.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		p.Dashboard.EnsureLoaded(r.Context())
		writeJSON(w, http.StatusOK, dashboardResponse(p))
	})
}

// Reload fetches the list again
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		if err := p.Dashboard.Load(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, dashboard.MsgLoadFailed+service.Message(err))
			return
		}
		writeJSON(w, http.StatusOK, dashboardResponse(p))
	})
}

// Delete removes a suite. The list is unchanged when the source refuses.
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := validation.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p.Do(func(p *Page) {
		if err := p.Dashboard.Delete(r.Context(), id); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, service.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, dashboard.MsgDeleteFailed+service.Message(err))
			return
		}
		writeJSON(w, http.StatusOK, dashboardResponse(p))
	})
}
