package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/logger"
	"github.com/newslens-hq/newslens-backend/internal/textutil"
	"github.com/newslens-hq/newslens-backend/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxContentChars  = 2000

	defaultScrapeTimeout = 8 * time.Second
)

// Scraper downloads article pages and extracts their main text and
// lead image. Results, including failures, are cached by URL.
type Scraper struct {
	client  httpclient.Client
	cache   Cache
	log     logger.Logger
	timeout time.Duration
}

// NewScraper creates a Scraper. Nil dependencies are replaced with
// defaults: a resty client with the default timeout, an in-memory
// cache and a no-op logger.
func NewScraper(client httpclient.Client, cache Cache, log logger.Logger, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	if client == nil {
		client = httpclient.NewRestyClient(timeout)
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scraper{client: client, cache: cache, log: log, timeout: timeout}
}

// Scrape returns the extracted content for the page at pageURL. A
// cached result, positive or negative, short-circuits the network
// trip. Failures degrade to the zero result and are remembered so the
// host is not hammered again within the cache lifetime.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) domain.ScrapeResult {
	if cached, ok := s.cache.Get(pageURL); ok {
		return cached
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.fetchAndExtract(scrapeCtx, pageURL)
	if err != nil {
		// A caller-side cancellation says nothing about the host;
		// caching it would poison the URL for later requests.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return domain.ScrapeResult{}
		}
		// 403/404/timeout are routine for news hosts; anything else
		// is worth one log line.
		if !suppressedScrapeError(err) {
			s.log.WarnObj("article scrape failed", "scrape_error", map[string]any{
				"url":   pageURL,
				"error": err.Error(),
			})
		}
		result = domain.ScrapeResult{}
	}

	s.cache.Set(pageURL, result)
	return result
}

func (s *Scraper) fetchAndExtract(ctx context.Context, pageURL string) (domain.ScrapeResult, error) {
	resp, err := s.client.Get(ctx, pageURL, nil)
	if err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		return domain.ScrapeResult{}, fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("parse html: %w", err)
	}

	text := textutil.Truncate(extractBodyText(body), maxContentChars)

	image := extractLeadImage(doc)
	if image != "" {
		image = resolveURL(image, pageURL)
	}

	return domain.ScrapeResult{Text: text, LeadImage: image}, nil
}

// extractBodyText pulls the main article text, preferring
// go-readability and falling back to paragraph scraping when the
// readability pass yields nothing.
func extractBodyText(body []byte) string {
	if article, err := readability.FromReader(bytes.NewReader(body), nil); err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			if text := normalizeWhitespace(buf.String()); text != "" {
				return text
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return normalizeWhitespace(strings.Join(paragraphs, " "))
}

// extractLeadImage returns the representative image for the page.
func extractLeadImage(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok && strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val)
			}
		}
	}

	if node := doc.Find(`link[rel="image_src"]`).First(); node.Length() > 0 {
		if val, ok := node.Attr("href"); ok {
			return strings.TrimSpace(val)
		}
	}

	return ""
}

// suppressedScrapeError reports whether the failure is expected noise
// that should stay out of the logs.
func suppressedScrapeError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status 403") ||
		strings.Contains(msg, "status 404") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "Client.Timeout") ||
		strings.Contains(msg, "timed out")
}

// normalizeWhitespace collapses runs of whitespace to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
