package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/domain"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/validation"
)

// SuitesHandler exposes the service layer as a REST API. Every user sees
// only the suites they own.
type SuitesHandler struct {
	suites *service.Suites
	cases  *service.Cases
}

// NewSuitesHandler creates a new suites handler
func NewSuitesHandler(suites *service.Suites, cases *service.Cases) *SuitesHandler {
	return &SuitesHandler{suites: suites, cases: cases}
}

func ownerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return user.ID.String(), true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// ownedSuite loads a suite and answers 404 when it belongs to someone else
func (h *SuitesHandler) ownedSuite(w http.ResponseWriter, r *http.Request, owner, id string) (domain.TestSuite, bool) {
	suite, err := h.suites.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return domain.TestSuite{}, false
	}
	if suite.CreatedBy != owner {
		log.Printf("SECURITY: User %s requested test suite %s of another user", owner, id)
		writeError(w, http.StatusNotFound, "Test suite not found")
		return domain.TestSuite{}, false
	}
	return suite, true
}

// List returns the caller's suites, newest first
func (h *SuitesHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}

	suites, err := h.suites.ListOwnedBy(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suites)
}

// Create stores a new suite owned by the caller
func (h *SuitesHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}

	var suite domain.TestSuite
	if err := decodeJSON(r, &suite); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	suite.ApplyDefaults()
	if err := validation.ValidateSuite(suite); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	suite.CreatedBy = owner
	for i := range suite.TestCases {
		suite.TestCases[i].CreatedBy = owner
	}

	created, err := h.suites.Create(r.Context(), suite)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("DATA: Test suite %s created by %s", created.ID, owner)
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one suite
func (h *SuitesHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if suite, ok := h.ownedSuite(w, r, owner, id); ok {
		writeJSON(w, http.StatusOK, suite)
	}
}

// Update replaces the fields of a suite
func (h *SuitesHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var suite domain.TestSuite
	if err := decodeJSON(r, &suite); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	suite.ApplyDefaults()
	if err := validation.ValidateSuite(suite); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if _, ok := h.ownedSuite(w, r, owner, id); !ok {
		return
	}
	suite.CreatedBy = owner

	updated, err := h.suites.Update(r.Context(), id, suite)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a suite
func (h *SuitesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, ok := h.ownedSuite(w, r, owner, id); !ok {
		return
	}
	if _, err := h.suites.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("DATA: Test suite %s deleted by %s", id, owner)
	w.WriteHeader(http.StatusNoContent)
}

// ListCases returns the cases of a suite
func (h *SuitesHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, ok := h.ownedSuite(w, r, owner, id); !ok {
		return
	}
	cases, err := h.cases.ListForSuite(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// CreateCase adds a case to a suite. Priority and tags default to the
// suite's.
func (h *SuitesHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var tc domain.TestCase
	if err := decodeJSON(r, &tc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suite, ok := h.ownedSuite(w, r, owner, id)
	if !ok {
		return
	}
	tc.InheritFrom(suite)
	if err := validation.ValidateCase(tc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tc.SuiteID = suite.ID
	tc.CreatedBy = owner

	created, err := h.cases.Create(r.Context(), tc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ownedCase loads a case and checks that its suite belongs to owner
func (h *SuitesHandler) ownedCase(w http.ResponseWriter, r *http.Request, owner, id string) (domain.TestCase, domain.TestSuite, bool) {
	tc, err := h.cases.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return domain.TestCase{}, domain.TestSuite{}, false
	}
	suite, ok := h.ownedSuite(w, r, owner, tc.SuiteID)
	if !ok {
		return domain.TestCase{}, domain.TestSuite{}, false
	}
	return tc, suite, true
}

// GetCase returns one case
func (h *SuitesHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if tc, _, ok := h.ownedCase(w, r, owner, id); ok {
		writeJSON(w, http.StatusOK, tc)
	}
}

// UpdateCase replaces the fields of a case. The case stays in its suite.
func (h *SuitesHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var tc domain.TestCase
	if err := decodeJSON(r, &tc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, suite, ok := h.ownedCase(w, r, owner, id)
	if !ok {
		return
	}
	tc.InheritFrom(suite)
	if err := validation.ValidateCase(tc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tc.SuiteID = existing.SuiteID
	tc.CreatedBy = existing.CreatedBy

	updated, err := h.cases.Update(r.Context(), id, tc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCase removes a case
func (h *SuitesHandler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, _, ok := h.ownedCase(w, r, owner, id); !ok {
		return
	}
	if _, err := h.cases.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
