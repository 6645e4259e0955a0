// Package health exposes a readiness endpoint so the host scheduler can
// probe capability availability without dispatching a job.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Status is the readiness report returned by /healthz.
type Status struct {
	Status                string          `json:"status"`
	ModelsPresent         bool            `json:"models_present"`
	Strategies            map[string]bool `json:"strategies"`
	CredentialsConfigured bool            `json:"credentials_configured"`
}

// NewRouter builds the health router around a report callback, evaluated
// per request so probes reflect the live filesystem and configuration.
func NewRouter(report func() Status) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := report()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	})

	return r
}
