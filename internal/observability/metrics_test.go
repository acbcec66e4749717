package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/danmuck/dicewire/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordCommand("GET", "ok", 3*time.Millisecond)
	RecordRetry("GET")
	RecordReconnect("command")
	RecordWireError("watch", "terminated")
	RecordWatchUpdate("ZRANGE.WATCH")
	RecordHTTPRequest("leaderboard", "GET", "/health", 200, 12*time.Millisecond)

	if got := testutil.ToFloat64(reconnects.WithLabelValues("command")); got < 1 {
		t.Fatalf("expected reconnect counter to advance, got %v", got)
	}
}

func TestRequestMiddlewareRecordsRoute(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()), RequestMetricsMiddleware("test"))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/items/:id", "204"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/items/:id", "204"))
	if after != before+1 {
		t.Fatalf("expected route-labelled request count to advance, before=%v after=%v", before, after)
	}
}
