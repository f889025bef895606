package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
)

const (
	pageA = "https://site.test/media/column/"
	pageB = "https://site.test/media/column/b"
	gone  = "https://external.test/gone"
)

var (
	runN  = time.Date(2026, 10, 5, 9, 0, 0, 0, time.Local)
	runN1 = time.Date(2026, 10, 12, 9, 0, 0, 0, time.Local)
)

func finding(source, target string, code int) webscraper.Finding {
	return webscraper.Finding{Source: source, Target: target, Status: webscraper.Status{Code: code}}
}

func TestReconcile_NewKeysAreStamped(t *testing.T) {
	got := ledger.Reconcile(nil, []webscraper.Finding{finding(pageA, gone, 404)}, runN)

	assert.Equal(t, map[ledger.Key]ledger.Record{
		{Source: pageA, URL: gone}: {
			Source:       pageA,
			URL:          gone,
			Status:       "404",
			DetectedDate: "2026-10-05 09:00:00",
		},
	}, got)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	findings := []webscraper.Finding{finding(pageA, gone, 404), finding(pageB, gone, 404)}

	first := ledger.Reconcile(nil, findings, runN)
	second := ledger.Reconcile(first, findings, runN1)
	third := ledger.Reconcile(second, findings, runN1.Add(time.Hour))

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestReconcile_CarriesDetectionAndResolution(t *testing.T) {
	key := ledger.Key{Source: pageA, URL: gone}
	prev := ledger.Reconcile(nil, []webscraper.Finding{finding(pageA, gone, 404)}, runN)
	_, err := ledger.SetResolved(prev, key, true, runN.Add(time.Hour))
	require.NoError(t, err)

	next := ledger.Reconcile(prev, []webscraper.Finding{
		{Source: pageA, Target: gone, Status: webscraper.Status{Kind: webscraper.KindTimeout}},
	}, runN1)

	rec := next[key]
	assert.Equal(t, prev[key].DetectedDate, rec.DetectedDate)
	assert.True(t, rec.Resolved)
	assert.Equal(t, "2026-10-05 10:00:00", rec.ResolvedDate)
	assert.Equal(t, "error: timeout", rec.Status)
}

func TestReconcile_DropsFixedLinks(t *testing.T) {
	prev := ledger.Reconcile(nil, []webscraper.Finding{
		finding(pageA, gone, 404),
		finding(pageB, gone, 404),
	}, runN)

	next := ledger.Reconcile(prev, []webscraper.Finding{finding(pageB, gone, 404)}, runN1)

	assert.NotContains(t, next, ledger.Key{Source: pageA, URL: gone})
	assert.Contains(t, next, ledger.Key{Source: pageB, URL: gone})
	assert.Empty(t, ledger.Reconcile(prev, nil, runN1))
}

func TestReconcile_LastWriteWinsWithinRun(t *testing.T) {
	got := ledger.Reconcile(nil, []webscraper.Finding{
		{Source: pageA, Target: gone, Status: webscraper.Status{Kind: webscraper.KindDNS}},
		finding(pageA, gone, 404),
	}, runN)

	require.Len(t, got, 1)
	assert.Equal(t, "404", got[ledger.Key{Source: pageA, URL: gone}].Status)
}

func TestSetResolved_Transitions(t *testing.T) {
	key := ledger.Key{Source: pageA, URL: gone}
	records := ledger.Reconcile(nil, []webscraper.Finding{finding(pageA, gone, 404)}, runN)

	rec, err := ledger.SetResolved(records, key, true, runN1)
	require.NoError(t, err)
	assert.True(t, rec.Resolved)
	assert.Equal(t, "2026-10-12 09:00:00", rec.ResolvedDate)

	rec, err = ledger.SetResolved(records, key, true, runN1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12 09:00:00", rec.ResolvedDate, "re-resolving keeps the first date")

	rec, err = ledger.SetResolved(records, key, false, runN1)
	require.NoError(t, err)
	assert.False(t, rec.Resolved)
	assert.Empty(t, rec.ResolvedDate)
	assert.Equal(t, rec, records[key])

	_, err = ledger.SetResolved(records, ledger.Key{Source: pageB, URL: gone}, true, runN1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSelect_Filters(t *testing.T) {
	records := ledger.Reconcile(nil, []webscraper.Finding{
		finding(pageB, gone, 404),
		finding(pageA, gone, 404),
	}, runN)
	_, err := ledger.SetResolved(records, ledger.Key{Source: pageB, URL: gone}, true, runN1)
	require.NoError(t, err)

	all := ledger.Select(records, ledger.FilterAll)
	require.Len(t, all, 2)
	assert.Equal(t, pageA, all[0].Source, "sorted by source")

	unresolved := ledger.Select(records, ledger.FilterUnresolved)
	require.Len(t, unresolved, 1)
	assert.Equal(t, pageA, unresolved[0].Source)

	resolved := ledger.Select(records, ledger.FilterResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, pageB, resolved[0].Source)

	assert.Equal(t, 1, ledger.CountUnresolved(records))
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]ledger.Filter{
		"":           ledger.FilterAll,
		"all":        ledger.FilterAll,
		"unresolved": ledger.FilterUnresolved,
		"resolved":   ledger.FilterResolved,
	} {
		got, err := ledger.ParseFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ledger.ParseFilter("open")
	assert.Error(t, err)
}
