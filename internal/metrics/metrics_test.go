package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/papers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/papers/{id}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/papers/2401.00001", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/papers/{id}", "418"))
	if after-before != 1 {
		t.Errorf("request counter moved by %v, want 1", after-before)
	}
}

func TestStatusWriter_DefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &StatusWriter{ResponseWriter: rec, Status: http.StatusOK}
	w.Write([]byte("x"))
	w.WriteHeader(http.StatusInternalServerError)
	if w.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200 once the body has been written", w.Status)
	}
}
