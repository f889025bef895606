package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/deadlink-patrol/internal/metrics"
	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

var _ webscraper.Recorder = (*metrics.Recorder)(nil)

func TestRecorder_Counters(t *testing.T) {
	r := metrics.New()

	r.PageFetched("ok")
	r.PageFetched("ok")
	r.PageFetched("failed")
	r.LinkChecked(true)
	r.LinkChecked(false)
	r.FindingRecorded("404")
	r.RunFinished("completed", 3*time.Second)
	r.RunCommitted(4, 3, 5)
	r.NotificationSent(nil)
	r.NotificationSent(errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(r.PagesFetched.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.PagesFetched.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.LinksChecked.WithLabelValues("true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.FindingsTotal.WithLabelValues("404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.RunsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(r.LastRunFindings), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.StoredLinks.WithLabelValues("unresolved")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.StoredLinks.WithLabelValues("resolved")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.NotificationsOK), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.NotificationsKO), 0)
}

func TestRecorder_Handler(t *testing.T) {
	r := metrics.New()
	r.FindingRecorded("error: timeout")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `deadlink_crawl_findings_total{status="error: timeout"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
