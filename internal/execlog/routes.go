package execlog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts log query endpoints under /api/logs. The hub may be
// nil when live streaming is not wanted (e.g. in tests).
func RegisterRoutes(r chi.Router, store *Store, hub *Hub) {
	r.Route("/api/logs", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/statistics", handleStatistics(store))
		if hub != nil {
			r.Get("/stream", hub.HandleStream)
		}
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := ListFilter{
			ActionKey: q.Get("action_key"),
			UserID:    q.Get("user_id"),
		}
		if v := q.Get("success"); v != "" {
			success := v == "true"
			filter.Success = &success
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		page, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleStatistics(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Statistics(r.Context(), r.URL.Query().Get("action_key"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
