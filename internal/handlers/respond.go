package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/validation"
)

const (
	// maxBodySize limits JSON request bodies
	maxBodySize = 1 << 20
	// maxJSONDepth limits nesting of JSON request bodies
	maxJSONDepth = 10
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError answers 404 for missing records and 502 for every other
// backend failure
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, service.Message(err))
		return
	}
	writeError(w, http.StatusBadGateway, service.Message(err))
}

// decodeJSON reads a size and depth checked JSON body into v
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return fmt.Errorf("failed to read request body")
	}
	defer r.Body.Close()

	if err := validation.ValidateJSONBody(body, maxBodySize, maxJSONDepth); err != nil {
		log.Printf("SECURITY: Rejected JSON body from %s: %v", r.RemoteAddr, err)
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode request body")
	}
	return nil
}
