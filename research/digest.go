package research

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
)

// maxDigestRunes bounds how much markdown a single source contributes to a
// prompt.
const maxDigestRunes = 12000

// Source is a distilled reference page.
type Source struct {
	URL      string
	Title    string
	Markdown string
}

// Service turns reference URLs into markdown context for analysis prompts.
type Service struct {
	fetcher   *Fetcher
	converter *md.Converter
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger used for fetch diagnostics.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFetcher replaces the default fetcher.
func WithFetcher(f *Fetcher) ServiceOption {
	return func(s *Service) {
		s.fetcher = f
	}
}

// NewService creates a research service with sensible fetch defaults.
func NewService(opts ...ServiceOption) *Service {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	s := &Service{
		fetcher:   NewFetcher(30*time.Second, "planforge-research/1.0"),
		converter: converter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Digest fetches a single URL and returns its readable content as markdown.
func (s *Service) Digest(ctx context.Context, rawURL string) (*Source, error) {
	result, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.distill(result.URL, result.Body)
}

// distill runs readability extraction and markdown conversion on a fetched
// page body.
func (s *Service) distill(pageURL string, body []byte) (*Source, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL %q: %w", pageURL, err)
	}

	title := ""
	content := ""
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		// Not every page is article-shaped. Fall back to the raw main
		// content region.
		s.logger.Debug("readability extraction failed, using main content fallback",
			"url", pageURL, "error", err)
		title, content, err = mainContent(body)
		if err != nil {
			return nil, fmt.Errorf("extract content from %s: %w", pageURL, err)
		}
	} else {
		title = article.Title
		content = article.Content
	}

	markdown, err := s.converter.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", pageURL, err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no readable content at %s", pageURL)
	}
	if runes := []rune(markdown); len(runes) > maxDigestRunes {
		markdown = string(runes[:maxDigestRunes]) + "\n\n[truncated]"
	}

	return &Source{
		URL:      pageURL,
		Title:    title,
		Markdown: markdown,
	}, nil
}

// Gather digests every URL and formats the successes as a single context
// block. Individual fetch failures are logged and skipped so one dead link
// does not starve an analysis of its remaining sources.
func (s *Service) Gather(ctx context.Context, urls []string) string {
	if len(urls) == 0 {
		return ""
	}

	var b strings.Builder
	for _, u := range urls {
		src, err := s.Digest(ctx, u)
		if err != nil {
			s.logger.Warn("skipping research source", "url", u, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		title := src.Title
		if title == "" {
			title = src.URL
		}
		fmt.Fprintf(&b, "## %s\nSource: %s\n\n%s", title, src.URL, src.Markdown)
	}
	return b.String()
}
