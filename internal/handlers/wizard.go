package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testforge/suite-service/internal/dashboard"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/wizard"
)

// WizardHandler drives the suite creation form of the session's page
type WizardHandler struct {
	pages *Pages
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(pages *Pages) *WizardHandler {
	return &WizardHandler{pages: pages}
}

// WizardUpdate sets suite fields of the form. Absent fields are unchanged.
type WizardUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Environment *string `json:"environment"`
	Priority    *string `json:"priority"`
}

// CaseUpdate sets fields of a draft test case. Absent fields are unchanged.
type CaseUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// SubmitResponse is returned by a successful submit
type SubmitResponse struct {
	Suite  domain.TestSuite `json:"suite"`
	Wizard wizard.State     `json:"wizard"`
}

// writeWizardError maps wizard errors to status codes. Refusals carry
// their toast text.
func writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wizard.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, wizard.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "Test case not found")
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// Get returns the form state
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// Update sets suite fields of the form
func (h *WizardHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}

	var update WizardUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// check every field before touching the form so a refused update
	// leaves it unchanged
	if update.Environment != nil {
		if _, err := domain.ParseEnvironment(*update.Environment); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if update.Priority != nil {
		if _, err := domain.ParsePriority(*update.Priority); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	p.Do(func(p *Page) {
		if update.Environment != nil {
			p.Wizard.SetEnvironment(*update.Environment)
		}
		if update.Priority != nil {
			p.Wizard.SetPriority(*update.Priority)
		}
		if update.Name != nil {
			p.Wizard.SetName(*update.Name)
		}
		if update.Description != nil {
			p.Wizard.SetDescription(*update.Description)
		}
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// Next moves to the test case step
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		if err := p.Wizard.NextStep(); err != nil {
			writeWizardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// Previous returns to the suite step
func (h *WizardHandler) Previous(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		p.Wizard.PreviousStep()
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// AddCase appends an empty draft case
func (h *WizardHandler) AddCase(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	p.Do(func(p *Page) {
		p.Wizard.AddTestCase()
		writeJSON(w, http.StatusCreated, p.Wizard.Snapshot())
	})
}

// UpdateCase sets the name or description of a draft case
func (h *WizardHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var update CaseUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p.Do(func(p *Page) {
		if update.Name != nil {
			if err := p.Wizard.UpdateTestCase(id, wizard.FieldName, *update.Name); err != nil {
				writeWizardError(w, err)
				return
			}
		}
		if update.Description != nil {
			if err := p.Wizard.UpdateTestCase(id, wizard.FieldDescription, *update.Description); err != nil {
				writeWizardError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// RemoveCase deletes a draft case
func (h *WizardHandler) RemoveCase(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	p.Do(func(p *Page) {
		if err := p.Wizard.RemoveTestCase(id); err != nil {
			writeWizardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p.Wizard.Snapshot())
	})
}

// RunCase queues the info toast for running a draft case
func (h *WizardHandler) RunCase(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	p.Do(func(p *Page) {
		if err := p.Wizard.RunTestCase(id); err != nil {
			writeWizardError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, p.Wizard.Snapshot())
	})
}

// Submit hands the finished suite to the dashboard. The form resets even
// when the dashboard fails to persist the suite.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := pageOf(h.pages, w, r)
	if !ok {
		return
	}

	p.Do(func(p *Page) {
		p.submitted, p.submitErr = domain.TestSuite{}, nil
		if _, err := p.Wizard.Submit(r.Context()); err != nil {
			writeWizardError(w, err)
			return
		}
		if p.submitErr != nil {
			writeError(w, http.StatusBadGateway, dashboard.MsgCreateFailed+service.Message(p.submitErr))
			return
		}
		writeJSON(w, http.StatusCreated, SubmitResponse{
			Suite:  p.submitted,
			Wizard: p.Wizard.Snapshot(),
		})
	})
}
