package dispatch

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cflux-app/actiond/internal/triggers"
)

// RegisterRoutes mounts the manual dispatch endpoint under /api/dispatch.
// This is the operator-facing entry; business code calls Raise directly.
func RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Route("/api/dispatch", func(r chi.Router) {
		r.Post("/{actionKey}", handleRaise(d))
	})
}

type raiseRequest struct {
	Context map[string]any  `json:"context"`
	Timing  triggers.Timing `json:"timing"`
}

func handleRaise(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req raiseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Timing != "" && !req.Timing.Valid() {
			http.Error(w, "invalid timing", http.StatusBadRequest)
			return
		}
		if req.Context == nil {
			req.Context = map[string]any{}
		}

		result := d.Raise(r.Context(), chi.URLParam(r, "actionKey"), req.Context, req.Timing)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}
