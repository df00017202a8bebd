// Package crawler fetches job posting pages and reduces them to readable
// text for the job structurer.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRPS       = 2.0
	defaultUserAgent = "cv-rank-agent"

	acceptHeader = "text/html, text/markdown;q=0.9, text/plain;q=0.8"
)

// FetchError reports a failed page fetch: either a transport failure or an
// unexpected HTTP status.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config holds the crawler settings.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type Crawler struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Crawler{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch downloads the page at url and returns its readable text. HTML is
// stripped down to visible content; markdown and plain text pass through
// unchanged.
func (c *Crawler) Fetch(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)

	c.logger.Debug("fetching page", zap.String("url", url))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if strings.Contains(contentType, "text/html") || looksLikeHTML(text) {
		text = htmlToText(text)
	}

	text = strings.TrimSpace(text)
	c.logger.Debug("page fetched",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.Int("characters", len(text)),
	)

	return text, nil
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// htmlToText tokenizes the page and keeps only visible text. Script,
// style and head content is dropped; block elements become line breaks so
// list items and paragraphs stay separated for the LLM.
func htmlToText(page string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(page))

	var builder strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseBlankLines(builder.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
				continue
			}
			if blockTag(string(name)) {
				builder.WriteString("\n")
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTag(string(name)) {
				builder.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
				continue
			}
			if blockTag(string(name)) {
				builder.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				builder.WriteString(text)
				builder.WriteString(" ")
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "head", "iframe", "svg":
		return true
	}
	return false
}

func blockTag(name string) bool {
	switch name {
	case "p", "div", "br", "li", "ul", "ol", "tr", "table",
		"h1", "h2", "h3", "h4", "h5", "h6", "section", "article", "header", "footer":
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
