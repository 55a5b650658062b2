package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Lisbon Coffee Market Report</title></head>
<body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article>
<h1>Lisbon Coffee Market Report</h1>
<p>Specialty coffee consumption in Lisbon has grown steadily over the past
five years, driven by tourism and a younger local demographic. Independent
cafes now account for a substantial share of the market.</p>
<p>Rents in central districts remain the largest cost driver for new
openings, followed by staffing and equipment.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestService_Distill(t *testing.T) {
	s := NewService()

	src, err := s.distill("https://example.com/report", []byte(articleHTML))
	require.NoError(t, err)

	assert.Equal(t, "Lisbon Coffee Market Report", src.Title)
	assert.Equal(t, "https://example.com/report", src.URL)
	assert.Contains(t, src.Markdown, "Specialty coffee consumption")
	// Navigation chrome does not survive extraction.
	assert.NotContains(t, src.Markdown, "About")
}

func TestService_Distill_EmptyBody(t *testing.T) {
	s := NewService()

	_, err := s.distill("https://example.com/empty", []byte("<html><body></body></html>"))
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com/page",
		"http://example.com",
	}
	for _, u := range valid {
		assert.NoError(t, validateURL(u), "url %s", u)
	}

	invalid := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"https://localhost/admin",
		"http://127.0.0.1:8080/",
		"http://[::1]/",
		"http://10.0.0.5/internal",
		"http://192.168.1.1/router",
		"https://",
		"not a url at all ://",
	}
	for _, u := range invalid {
		assert.Error(t, validateURL(u), "url %s", u)
	}
}

func TestFetcher_RejectsPrivateTargetsBeforeDialing(t *testing.T) {
	f := NewFetcher(0, "test-agent")

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:9999/secret")
	assert.Error(t, err)
}

func TestService_Gather_SkipsFailedSources(t *testing.T) {
	s := NewService()

	// Both URLs are rejected by validation; Gather degrades to empty
	// context instead of failing the analysis.
	out := s.Gather(context.Background(), []string{
		"http://localhost/one",
		"ftp://example.com/two",
	})
	assert.Empty(t, out)
}

func TestService_Gather_NoURLs(t *testing.T) {
	s := NewService()
	assert.Empty(t, s.Gather(context.Background(), nil))
}

func TestMainContent(t *testing.T) {
	title, content, err := mainContent([]byte(articleHTML))
	require.NoError(t, err)
	assert.Equal(t, "Lisbon Coffee Market Report", title)
	assert.Contains(t, content, "Specialty coffee consumption")
	// The article region wins, so navigation is excluded.
	assert.NotContains(t, content, "About")
}

func TestMainContent_BodyFallbackStripsChrome(t *testing.T) {
	page := `<html><head><title>Plain Page</title></head><body>
<nav><a href="/">Home</a></nav>
<p>Useful body text.</p>
<script>alert(1)</script>
</body></html>`

	title, content, err := mainContent([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Plain Page", title)
	assert.Contains(t, content, "Useful body text.")
	assert.NotContains(t, content, "alert(1)")
	assert.NotContains(t, content, "Home")
}
