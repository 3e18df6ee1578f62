package obs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                         "/",
		"/metrics":                 "/metrics",
		"/v1/clients":              "/v1/clients",
		"/v1/clients/01HX":         "/v1/clients/:id",
		"/v1/projects/01HX":        "/v1/projects/:id",
		"/v1/projects/01HX/status": "/v1/projects/:id/status",
		"/v1/projects/01HX/extra":  "/v1/projects/01HX/extra",
		"/v1/clients/01HX/status":  "/v1/clients/01HX/status",
		"/v1/projects?limit=10":    "/v1/projects",
		"/v1/auth/login":           "/v1/auth/login",
		"/v1/admin/accounts":       "/v1/admin/accounts",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsCanonicalPath(t *testing.T) {
	Init()
	Init()

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/clients/:id", "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/clients/abc", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/clients/:id", "404"))
	if after-before != 1 {
		t.Fatalf("expected one counted request, got %v", after-before)
	}
}

func TestRecordMutationOutcomeLabels(t *testing.T) {
	before := testutil.ToFloat64(recordMutations.WithLabelValues("client", "create", "error"))
	RecordMutation("client", "create", errors.New("boom"))
	if got := testutil.ToFloat64(recordMutations.WithLabelValues("client", "create", "error")); got-before != 1 {
		t.Fatalf("expected error outcome to be counted")
	}
}
