package pipeline

import (
	"context"
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/logger"
	"github.com/newslens-hq/newslens-backend/internal/textutil"
)

const (
	defaultEntriesPerFeed  = 8
	defaultOverfetchFactor = 3
	defaultFeedWorkers     = 3
	defaultScrapeWorkers   = 8

	minContentChars = 50
	maxContentChars = 2000
	maxSnippetChars = 200
)

// FeedResolver maps an interest to feed source URLs.
type FeedResolver interface {
	Resolve(interest string) []string
}

// EntryFetcher retrieves entries from one feed. Implementations never
// return an error: a dead feed yields an empty slice.
type EntryFetcher interface {
	FetchEntries(ctx context.Context, sourceURL string, maxEntries int) []domain.FeedEntry
}

// ArticleScraper extracts page content for one article URL.
type ArticleScraper interface {
	Scrape(ctx context.Context, pageURL string) domain.ScrapeResult
}

// Options bounds the pipeline's fan-out and over-fetch behavior. The
// overfetch factor compensates for scrape failures downstream; it is a
// tunable, not a contract.
type Options struct {
	EntriesPerFeed  int
	OverfetchFactor int
	FeedWorkers     int
	ScrapeWorkers   int
}

func (o Options) withDefaults() Options {
	if o.EntriesPerFeed <= 0 {
		o.EntriesPerFeed = defaultEntriesPerFeed
	}
	if o.OverfetchFactor <= 0 {
		o.OverfetchFactor = defaultOverfetchFactor
	}
	if o.FeedWorkers <= 0 {
		o.FeedWorkers = defaultFeedWorkers
	}
	if o.ScrapeWorkers <= 0 {
		o.ScrapeWorkers = defaultScrapeWorkers
	}
	return o
}

// Aggregator runs the resolve → fetch → scrape → filter sequence for
// one interest at a time.
type Aggregator struct {
	resolver FeedResolver
	fetcher  EntryFetcher
	scraper  ArticleScraper
	log      logger.Logger
	opts     Options

	sanitize *bluemonday.Policy
}

// NewAggregator wires the pipeline stages together. A nil logger is
// replaced with a no-op.
func NewAggregator(resolver FeedResolver, fetcher EntryFetcher, scraper ArticleScraper, log logger.Logger, opts Options) *Aggregator {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Aggregator{
		resolver: resolver,
		fetcher:  fetcher,
		scraper:  scraper,
		log:      log,
		opts:     opts.withDefaults(),
		sanitize: bluemonday.StrictPolicy(),
	}
}

// FetchNewsForInterest produces up to numResults enriched articles for
// the interest. Articles arrive in scrape-completion order, which is
// nondeterministic across runs. Zero results is a normal outcome, not
// an error.
func (a *Aggregator) FetchNewsForInterest(ctx context.Context, interest string, numResults int) []domain.Article {
	if numResults <= 0 {
		return nil
	}

	sources := a.resolver.Resolve(interest)
	pool := a.collectEntries(ctx, sources)

	// Over-fetch so downstream scrape failures still leave enough
	// candidates, while bounding worst-case scraping cost.
	if limit := numResults * a.opts.OverfetchFactor; len(pool) > limit {
		pool = pool[:limit]
	}

	articles := a.scrapeEntries(ctx, pool, numResults)

	a.log.DebugObj("interest pipeline finished", "pipeline_done", map[string]any{
		"interest": interest,
		"sources":  len(sources),
		"entries":  len(pool),
		"articles": len(articles),
	})

	return articles
}

// collectEntries fetches all feeds with a bounded worker pool and
// flattens the results into one pool, dropping duplicate links.
func (a *Aggregator) collectEntries(ctx context.Context, sources []string) []domain.FeedEntry {
	if len(sources) == 0 {
		return nil
	}

	workerCount := min(len(sources), a.opts.FeedWorkers)

	jobCh := make(chan string)
	var (
		mu      sync.Mutex
		entries []domain.FeedEntry
		wg      sync.WaitGroup
	)

	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobCh {
				if ctx.Err() != nil {
					return
				}
				fetched := a.fetcher.FetchEntries(ctx, source, a.opts.EntriesPerFeed)
				mu.Lock()
				entries = append(entries, fetched...)
				mu.Unlock()
			}
		}()
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		jobCh <- source
	}
	close(jobCh)
	wg.Wait()

	return dedupeByLink(entries)
}

// scrapeEntries enriches pooled entries concurrently and stops
// dispatching new work once numResults articles have been produced.
// In-flight scrapes past the threshold complete silently and their
// results are discarded.
func (a *Aggregator) scrapeEntries(ctx context.Context, pool []domain.FeedEntry, numResults int) []domain.Article {
	if len(pool) == 0 {
		return nil
	}

	scrapeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := min(len(pool), a.opts.ScrapeWorkers)

	jobCh := make(chan domain.FeedEntry)
	resultCh := make(chan domain.Article)

	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobCh {
				if scrapeCtx.Err() != nil {
					return
				}
				article, ok := a.buildArticle(scrapeCtx, entry)
				if !ok {
					continue
				}
				select {
				case resultCh <- article:
				case <-scrapeCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, entry := range pool {
			select {
			case jobCh <- entry:
			case <-scrapeCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	articles := make([]domain.Article, 0, numResults)
	for article := range resultCh {
		if len(articles) < numResults {
			articles = append(articles, article)
			if len(articles) == numResults {
				cancel()
			}
		}
	}

	return articles
}

// buildArticle merges a feed entry with its scrape result. When the
// scrape yields nothing, the cleaned feed summary stands in; entries
// whose final content stays under the minimum length are dropped
// because they provide no value downstream.
func (a *Aggregator) buildArticle(ctx context.Context, entry domain.FeedEntry) (domain.Article, bool) {
	scraped := a.scraper.Scrape(ctx, entry.Link)

	content := scraped.Text
	if content == "" {
		content = a.cleanSummary(entry.Summary)
	}
	if utf8.RuneCountInString(content) < minContentChars {
		return domain.Article{}, false
	}
	content = textutil.Truncate(content, maxContentChars)

	snippet := textutil.Truncate(a.cleanSummary(entry.Summary), maxSnippetChars)

	return domain.Article{
		Title:   entry.Title,
		Link:    entry.Link,
		Source:  entry.SourceName,
		Snippet: snippet,
		Date:    entry.Published,
		Content: content,
		Image:   scraped.LeadImage,
	}, true
}

// cleanSummary strips markup, decodes entities and collapses
// whitespace in a feed-provided summary.
func (a *Aggregator) cleanSummary(summary string) string {
	if summary == "" {
		return ""
	}
	text := a.sanitize.Sanitize(summary)
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

func dedupeByLink(entries []domain.FeedEntry) []domain.FeedEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		if entry.Link == "" {
			continue
		}
		if _, dup := seen[entry.Link]; dup {
			continue
		}
		seen[entry.Link] = struct{}{}
		out = append(out, entry)
	}
	return out
}
