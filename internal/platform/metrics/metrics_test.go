package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(assignmentsCreated.WithLabelValues("auto"))
	AssignmentCreated("auto")
	AssignmentCreated("auto")
	assert.Equal(t, before+2, testutil.ToFloat64(assignmentsCreated.WithLabelValues("auto")))

	failed := testutil.ToFloat64(notificationsEnqueued.WithLabelValues("assignment_created", "error"))
	NotificationEnqueued("assignment_created", errors.New("redis down"))
	assert.Equal(t, failed+1, testutil.ToFloat64(notificationsEnqueued.WithLabelValues("assignment_created", "error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordHTTP(http.MethodGet, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "evalhub_http_requests_total"))
}
