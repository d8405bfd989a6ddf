package execlog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store, nil)
	return r, store
}

func TestRoutesList(t *testing.T) {
	r, store := setupRouter(t)
	seedEntries(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/?action_key=invoice.paid&limit=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var page Page
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Total)
	}
	if len(page.Entries) != 1 {
		t.Errorf("entries = %d, want 1 (limit)", len(page.Entries))
	}
	if page.Limit != 1 {
		t.Errorf("Limit = %d, want 1", page.Limit)
	}
}

func TestRoutesListSuccessFilter(t *testing.T) {
	r, store := setupRouter(t)
	seedEntries(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/?success=false", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var page Page
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("Total = %d, want 1", page.Total)
	}
	if page.Entries[0].Success {
		t.Error("success=false filter returned a successful entry")
	}
}

func TestRoutesStatistics(t *testing.T) {
	r, store := setupRouter(t)
	seedEntries(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/statistics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats Statistics
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.Total != 4 || stats.Successful != 3 {
		t.Errorf("stats = %+v, want total 4, successful 3", stats)
	}
}

func TestRoutesStatisticsPerAction(t *testing.T) {
	r, store := setupRouter(t)
	seedEntries(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/statistics?action_key=user.login", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats Statistics
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.Total != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want total 2, failed 0", stats)
	}
}

func TestRoutesStreamAbsentWithoutHub(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/logs/stream", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no hub is configured", rec.Code)
	}
}
