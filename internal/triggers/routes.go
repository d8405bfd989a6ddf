package triggers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts trigger registry endpoints under /api/triggers.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/triggers", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleCreate(store))
		r.Get("/{id}", handleGet(store))
		r.Put("/{id}", handleUpdate(store))
		r.Delete("/{id}", handleDelete(store))
		r.Patch("/{id}/toggle", handleToggle(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			bindings []Binding
			err      error
		)
		switch {
		case q.Get("action_key") != "":
			bindings, err = store.ListByAction(r.Context(), q.Get("action_key"))
		case q.Get("workflow_id") != "":
			bindings, err = store.ListByWorkflow(r.Context(), q.Get("workflow_id"))
		default:
			http.Error(w, "action_key or workflow_id query parameter required", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, bindings)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b Binding
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		created, err := store.Create(r.Context(), b)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// updateRequest distinguishes an absent condition field from an explicit
// null (which removes the condition).
type updateRequest struct {
	Timing    *Timing         `json:"timing"`
	Priority  *int            `json:"priority"`
	Condition json.RawMessage `json:"condition"`
}

func handleUpdate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		upd := Update{Timing: req.Timing, Priority: req.Priority}
		if req.Condition != nil {
			upd.SetCondition = true
			if !bytes.Equal(bytes.TrimSpace(req.Condition), []byte("null")) {
				var cond Condition
				if err := json.Unmarshal(req.Condition, &cond); err != nil {
					http.Error(w, "invalid condition", http.StatusBadRequest)
					return
				}
				upd.Condition = &cond
			}
		}

		b, err := store.Update(r.Context(), chi.URLParam(r, "id"), upd)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleToggle(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		b, err := store.SetActive(r.Context(), chi.URLParam(r, "id"), req.IsActive)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnknownWorkflow), errors.Is(err, ErrUnknownAction):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrInvalidTiming):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
