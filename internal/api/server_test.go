package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/deadlink-patrol/internal/api"
	"github.com/yingtu35/deadlink-patrol/internal/app"
	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/internal/metrics"
	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

const (
	pageA = "https://site.test/media/column/"
	pageB = "https://site.test/media/column/b"
	gone  = "https://external.test/gone"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLedger(t *testing.T, findings ...webscraper.Finding) *ledger.Ledger {
	t.Helper()

	dir := t.TempDir()
	l := ledger.New(filepath.Join(dir, "broken_links.csv"), filepath.Join(dir, "resolved_links.json"))
	if findings != nil {
		_, err := l.Commit(findings)
		require.NoError(t, err)
	}
	return l
}

func seeded(t *testing.T) *ledger.Ledger {
	return newLedger(t,
		webscraper.Finding{Source: pageA, Target: gone, Status: webscraper.Status{Code: 404}},
		webscraper.Finding{Source: pageB, Target: gone, Status: webscraper.Status{Code: 404}},
	)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Filter string          `json:"filter"`
	Total  int             `json:"total"`
	Links  []ledger.Record `json:"links"`
}

func TestHealth(t *testing.T) {
	srv := api.NewServer(api.Params{Links: newLedger(t), Logger: logger.NewNop()})

	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListLinks_NoData(t *testing.T) {
	srv := api.NewServer(api.Params{Links: newLedger(t), Logger: logger.NewNop()})

	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/links", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"no data available"}`, w.Body.String())
}

func TestListLinks_Filters(t *testing.T) {
	l := seeded(t)
	_, err := l.SetResolved(ledger.Key{Source: pageB, URL: gone}, true)
	require.NoError(t, err)
	srv := api.NewServer(api.Params{Links: l, Logger: logger.NewNop()})

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{pageA, pageB}},
		{query: "?filter=unresolved", want: []string{pageA}},
		{query: "?filter=resolved", want: []string{pageB}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodGet, "/api/v1/links"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp listResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, len(tt.want), resp.Total)
			var sources []string
			for _, r := range resp.Links {
				sources = append(sources, r.Source)
			}
			assert.Equal(t, tt.want, sources)
		})
	}

	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/links?filter=open", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetResolution(t *testing.T) {
	l := seeded(t)
	srv := api.NewServer(api.Params{Links: l, Logger: logger.NewNop()})

	w := do(t, srv.Handler(), http.MethodPatch, "/api/v1/links/resolution",
		map[string]any{"source": pageA, "url": gone, "resolved": true})
	require.Equal(t, http.StatusOK, w.Code)

	var rec ledger.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Resolved)
	assert.NotEmpty(t, rec.ResolvedDate)

	unresolved, err := l.View(ledger.FilterUnresolved)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, pageB, unresolved[0].Source)

	w = do(t, srv.Handler(), http.MethodPatch, "/api/v1/links/resolution",
		map[string]any{"source": pageA, "url": gone, "resolved": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.False(t, rec.Resolved)
	assert.Empty(t, rec.ResolvedDate)
}

func TestSetResolution_Errors(t *testing.T) {
	srv := api.NewServer(api.Params{Links: seeded(t), Logger: logger.NewNop()})

	w := do(t, srv.Handler(), http.MethodPatch, "/api/v1/links/resolution",
		map[string]any{"source": pageA, "url": gone})
	assert.Equal(t, http.StatusBadRequest, w.Code, "resolved is required")

	w = do(t, srv.Handler(), http.MethodPatch, "/api/v1/links/resolution",
		map[string]any{"source": pageA, "url": "https://unknown.test/", "resolved": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"link not found"}`, w.Body.String())

	empty := api.NewServer(api.Params{Links: newLedger(t), Logger: logger.NewNop()})
	w = do(t, empty.Handler(), http.MethodPatch, "/api/v1/links/resolution",
		map[string]any{"source": pageA, "url": gone, "resolved": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"no data available"}`, w.Body.String())
}

func TestTriggerRun_ConcurrentTriggersShareOneRun(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	run := func(context.Context) (*app.Report, error) {
		calls.Add(1)
		<-release
		return &app.Report{
			Result: &webscraper.Result{RunID: "run-1", State: webscraper.StateCompleted},
		}, nil
	}
	srv := api.NewServer(api.Params{Links: newLedger(t), Run: run, Logger: logger.NewNop()})

	const triggers = 3
	var wg sync.WaitGroup
	codes := make([]int, triggers)
	bodies := make([][]byte, triggers)
	for i := range triggers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := do(t, srv.Handler(), http.MethodPost, "/api/v1/runs", nil)
			codes[i] = w.Code
			bodies[i] = w.Body.Bytes()
		}()
	}

	// Let every trigger join the in-flight run before it finishes.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i := range triggers {
		assert.Equal(t, http.StatusOK, codes[i])
		var resp map[string]any
		require.NoError(t, json.Unmarshal(bodies[i], &resp))
		assert.Equal(t, "run-1", resp["run_id"])
		assert.Equal(t, "completed", resp["state"])
	}
}

func TestMetricsRoute(t *testing.T) {
	rec := metrics.New()
	rec.RunFinished("completed", time.Second)
	srv := api.NewServer(api.Params{Links: newLedger(t), Metrics: rec.Handler(), Logger: logger.NewNop()})

	w := do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `deadlink_crawl_runs_total{state="completed"} 1`)
}
