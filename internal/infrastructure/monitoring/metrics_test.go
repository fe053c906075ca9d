package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/resilience"
)

var _ terminal.Recorder = (*Metrics)(nil)

func TestNewMetricsUsesPrivateRegistry(t *testing.T) {
	// Two collectors would panic on a shared default registry.
	a := NewMetrics()
	b := NewMetrics()

	a.SessionStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsCreated))
}

func TestSessionRecorder(t *testing.T) {
	m := NewMetrics()

	m.SessionStarted()
	m.SessionStarted()
	m.OutputRead(4096)
	m.OutputRead(10)
	m.LogFlushed("size", 32768)
	m.LogFlushed("close", 10)
	m.UsageRecorded("claude")
	m.PersistFailed("log")
	m.SessionEnded("exited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("exited")))
	assert.Equal(t, 4106.0, testutil.ToFloat64(m.OutputBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogFlushes.WithLabelValues("size")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogFlushes.WithLabelValues("close")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsageRecords.WithLabelValues("claude")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures.WithLabelValues("log")))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ActiveSessions)
	assert.Equal(t, int64(4106), snap.BytesStreamed)
	assert.Equal(t, int64(2), snap.LogFlushes)
	assert.Equal(t, int64(1), snap.UsageRecords)
	assert.Equal(t, int64(1), snap.PersistFailures)
}

func TestBreakerAndWSMetrics(t *testing.T) {
	m := NewMetrics()

	m.SetBreakerState(resilience.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("in", "write")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("in", "write")))
	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)

	m.IncSessionsSaved()
	m.IncSessionsRestored()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsRestored))
}

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})

	for _, path := range []string{"/sessions/a", "/sessions/b", "/nowhere"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.SessionStarted()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "agentdesk_sessions_created_total 1")
	assert.Contains(t, string(body), "agentdesk_uptime_seconds")
	assert.Contains(t, string(body), "go_goroutines")
}
