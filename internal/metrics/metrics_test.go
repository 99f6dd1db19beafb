package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(JobsProcessed.WithLabelValues("visit-recorded", OutcomeOK))
	JobsProcessed.WithLabelValues("visit-recorded", OutcomeOK).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(JobsProcessed.WithLabelValues("visit-recorded", OutcomeOK)))

	SearchLatency.WithLabelValues("ALL").Observe(0.01)
	JobDuration.WithLabelValues("like-changed").Observe(0.002)
}

func TestHandler(t *testing.T) {
	IndexUpserts.WithLabelValues("product", OutcomeOK).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketsearch_index_upserts_total")
}

func TestResult(t *testing.T) {
	assert.Equal(t, OutcomeOK, Result(nil))
	assert.Equal(t, OutcomeError, Result(errors.New("x")))
}
