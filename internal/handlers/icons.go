package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/testforge/suite-service/internal/icons"
)

// Icon serves /icons/{name}.svg. Unknown names get the fallback icon and
// a 404 status so the page still renders something.
func Icon(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(chi.URLParam(r, "name"), ".svg")

	svg, ok := icons.Get(name)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
	}
	fmt.Fprint(w, svg)
}
