package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/":                                 "/",
		"/status":                           "/status",
		"/randomness":                       "/randomness",
		"/randomness/preview":               "/randomness/preview",
		"/randomness/history":               "/randomness/history",
		"/randomness/history/abc-123":       "/randomness/history/:id",
		"/randomness/generations/7/numbers": "/randomness/generations/:id/numbers",
		"/admin/vrf-coordinator":            "/admin/vrf-coordinator",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalPath(in), in)
	}
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/randomness/history/:id", "418"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/randomness/history/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/randomness/history/:id", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(submissions.WithLabelValues("devnet", "success"))
	RecordSubmission("devnet", "success", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues("devnet", "success")))

	before = testutil.ToFloat64(submissionErrors.WithLabelValues("unknown"))
	RecordErrorCategory("")
	assert.Equal(t, before+1, testutil.ToFloat64(submissionErrors.WithLabelValues("unknown")))

	before = testutil.ToFloat64(confirmations.WithLabelValues("confirmed"))
	RecordConfirmation("confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(confirmations.WithLabelValues("confirmed")))
}

func TestHandler(t *testing.T) {
	RecordSubmission("production-safe", "failure", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "starknet_randomness_randomness_submissions_total"))
}
