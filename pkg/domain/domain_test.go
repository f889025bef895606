package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/deadlink-patrol/pkg/domain"
)

func newTestClassifier() *domain.Classifier {
	return domain.NewClassifier(
		"site.test",
		[]string{"twitter.com", "facebook.com"},
		[]string{"https://site.test/media/column/", "https://site.test/blog/"},
	)
}

func TestClassifier_IsInternal(t *testing.T) {
	c := newTestClassifier()

	testCases := []struct {
		name string
		url  string
		want bool
	}{
		{"exact base domain", "https://site.test/about", true},
		{"www host", "https://www.site.test/x", true},
		{"surrounding whitespace", "  https://site.test/x  ", true},
		{"subdomain", "https://foo.site.test/x", true},
		{"uppercase host with port", "https://WWW.Site.Test:8443/x", true},
		{"relative path", "/media/column/a", true},
		{"external host", "https://external.test/gone", false},
		{"label boundary", "https://notsite.test/", false},
		{"unparseable", "http://[::1", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsInternal(tc.url))
		})
	}
}

func TestClassifier_IsExcludedDomain(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsExcludedDomain("https://twitter.com/share"))
	assert.True(t, c.IsExcludedDomain("https://m.facebook.com/page"))
	assert.False(t, c.IsExcludedDomain("https://external.test/gone"))
	assert.False(t, c.IsExcludedDomain("/relative"))
}

func TestClassifier_IsAllowedSource(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.IsAllowedSource("https://site.test/media/column/"))
	assert.True(t, c.IsAllowedSource("https://site.test/blog/post-1"))
	assert.False(t, c.IsAllowedSource("https://site.test/shop/"))
	assert.False(t, c.IsAllowedSource(""))
	assert.Equal(t, []string{"https://site.test/media/column/", "https://site.test/blog/"}, c.AllowedPrefixes())
}

func TestClassifier_EmptyListsIgnored(t *testing.T) {
	c := domain.NewClassifier("", []string{"", "  "}, []string{""})

	assert.False(t, c.IsInternal("https://site.test/"))
	assert.True(t, c.IsInternal("/x"))
	assert.False(t, c.IsExcludedDomain("https://site.test/"))
	assert.False(t, c.IsAllowedSource("https://site.test/"))
}

func TestGetDomain(t *testing.T) {
	d, err := domain.GetDomain("https://www.Example.com:443/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d)

	p, err := domain.GetProtocol("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "http", p)

	assert.True(t, domain.IsSameDomain("example.com", "https://www.example.com/a"))
	assert.False(t, domain.IsSameDomain("example.com", "https://sub.example.com/a"))
}

func TestIsBinaryFileURL(t *testing.T) {
	assert.True(t, domain.IsBinaryFileURL("https://site.test/files/report.PDF"))
	assert.True(t, domain.IsBinaryFileURL("https://site.test/img/logo.png?v=2"))
	assert.False(t, domain.IsBinaryFileURL("https://site.test/media/column/"))
	assert.False(t, domain.IsBinaryFileURL("https://site.test/page.html"))
}
