package handlers

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Service string `json:"service"`
	Variant string `json:"variant"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version string
	variant string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, variant string) *HealthHandler {
	return &HealthHandler{
		version: version,
		variant: variant,
	}
}

// Check handles GET requests for health checks
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Service: "testforge-suite-service",
		Variant: h.variant,
	})
}
