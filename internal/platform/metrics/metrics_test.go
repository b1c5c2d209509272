package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/bucketlists/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/bucketlists/1", "/bucketlists/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("/bucketlists/{id}", http.MethodGet, "404"))
	assert.Equal(t, float64(2), got)
}

func TestIncrementUsersCreated(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementUsersCreated()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UsersCreated))
}
