package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

// stubResolver maps interests to a fixed source table.
type stubResolver struct {
	table map[string][]string
}

func (r *stubResolver) Resolve(interest string) []string {
	return r.table[strings.ToLower(interest)]
}

// stubFetcher serves canned entries per source URL.
type stubFetcher struct {
	mu      sync.Mutex
	entries map[string][]domain.FeedEntry
	calls   int
}

func (f *stubFetcher) FetchEntries(_ context.Context, sourceURL string, maxEntries int) []domain.FeedEntry {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	entries := f.entries[sourceURL]
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	return entries
}

// stubScraper returns canned results per link; unknown links scrape to
// the zero result.
type stubScraper struct {
	mu      sync.Mutex
	results map[string]domain.ScrapeResult
	scraped []string
}

func (s *stubScraper) Scrape(_ context.Context, pageURL string) domain.ScrapeResult {
	s.mu.Lock()
	s.scraped = append(s.scraped, pageURL)
	s.mu.Unlock()
	return s.results[pageURL]
}

func (s *stubScraper) scrapeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scraped)
}

const longBody = "This body text is comfortably past the minimum length cutoff so the article survives filtering."

func entry(n int) domain.FeedEntry {
	return domain.FeedEntry{
		Title:      fmt.Sprintf("Story %d", n),
		Link:       fmt.Sprintf("https://news.example/story-%d", n),
		Summary:    "A short feed summary for the story.",
		Published:  "Mon, 02 Jun 2025 10:00:00 GMT",
		SourceName: "Example News",
	}
}

func TestFetchNewsForInterestReturnsEnrichedArticles(t *testing.T) {
	resolver := &stubResolver{table: map[string][]string{
		"coding": {"https://a.example/rss", "https://b.example/rss"},
	}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{
		"https://a.example/rss": {entry(1), entry(2)},
		"https://b.example/rss": {entry(3)},
	}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		"https://news.example/story-1": {Text: longBody, LeadImage: "https://img.example/1.jpg"},
		"https://news.example/story-2": {Text: longBody},
		"https://news.example/story-3": {Text: longBody},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 2)

	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.Link)
		assert.Equal(t, "Example News", a.Source)
		assert.Equal(t, longBody, a.Content)
		assert.NotEmpty(t, a.Snippet)
	}
}

func TestFetchNewsNeverExceedsRequestedCount(t *testing.T) {
	entries := make([]domain.FeedEntry, 0, 20)
	results := make(map[string]domain.ScrapeResult, 20)
	for i := range 20 {
		e := entry(i)
		entries = append(entries, e)
		results[e.Link] = domain.ScrapeResult{Text: longBody}
	}

	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{"https://a.example/rss": entries}}
	scraper := &stubScraper{results: results}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{EntriesPerFeed: 20})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 3)

	assert.Len(t, articles, 3)
}

func TestOverfetchBoundsScraping(t *testing.T) {
	entries := make([]domain.FeedEntry, 0, 30)
	for i := range 30 {
		entries = append(entries, entry(i))
	}

	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{"https://a.example/rss": entries}}
	// Every scrape fails, so the pipeline works through the whole pool.
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{EntriesPerFeed: 30, OverfetchFactor: 3})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 2)

	assert.Empty(t, articles)
	// Pool trimmed to numResults * OverfetchFactor before scraping.
	assert.LessOrEqual(t, scraper.scrapeCount(), 6)
}

func TestShortContentIsDropped(t *testing.T) {
	e := entry(1)
	e.Summary = "too short"

	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{"https://a.example/rss": {e}}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		e.Link: {Text: "tiny"},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 5)

	assert.Empty(t, articles)
}

func TestSummaryStandsInForFailedScrape(t *testing.T) {
	e := entry(1)
	e.Summary = "<p>This sanitized feed summary is long enough to pass the minimum content threshold comfortably.</p>"

	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{"https://a.example/rss": {e}}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 5)

	require.Len(t, articles, 1)
	assert.Equal(t, "This sanitized feed summary is long enough to pass the minimum content threshold comfortably.", articles[0].Content)
	assert.NotContains(t, articles[0].Content, "<p>")
}

func TestContentTruncationKeepsValidUTF8(t *testing.T) {
	e := entry(1)
	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{"https://a.example/rss": {e}}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		e.Link: {Text: strings.Repeat("日本語の記事", 400)},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 1)

	require.Len(t, articles, 1)
	assert.True(t, utf8.ValidString(articles[0].Content))
	assert.Equal(t, maxContentChars, utf8.RuneCountInString(articles[0].Content))
}

func TestDuplicateLinksCollapse(t *testing.T) {
	e := entry(1)
	resolver := &stubResolver{table: map[string][]string{"coding": {"https://a.example/rss", "https://b.example/rss"}}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{
		"https://a.example/rss": {e},
		"https://b.example/rss": {e},
	}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		e.Link: {Text: longBody},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	articles := agg.FetchNewsForInterest(context.Background(), "coding", 5)

	assert.Len(t, articles, 1)
}

func TestUnknownInterestYieldsNothing(t *testing.T) {
	resolver := &stubResolver{table: map[string][]string{}}
	agg := NewAggregator(resolver, &stubFetcher{}, &stubScraper{}, nil, Options{})

	articles := agg.FetchNewsForInterest(context.Background(), "nonexistent", 5)
	assert.Empty(t, articles)
}

func TestZeroResultsRequested(t *testing.T) {
	agg := NewAggregator(&stubResolver{}, &stubFetcher{}, &stubScraper{}, nil, Options{})
	assert.Nil(t, agg.FetchNewsForInterest(context.Background(), "coding", 0))
}

func TestFanOutCollectsPerInterest(t *testing.T) {
	e1, e2 := entry(1), entry(2)
	resolver := &stubResolver{table: map[string][]string{
		"coding":  {"https://a.example/rss"},
		"finance": {"https://b.example/rss"},
	}}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{
		"https://a.example/rss": {e1},
		"https://b.example/rss": {e2},
	}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		e1.Link: {Text: longBody},
		e2.Link: {Text: longBody},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	results := agg.FanOut(context.Background(), []string{"coding", "finance"}, 5)

	require.Len(t, results, 2)
	assert.Len(t, results["coding"], 1)
	assert.Len(t, results["finance"], 1)
}

// panickingResolver fails one interest while leaving the other healthy.
type panickingResolver struct {
	bad   string
	table map[string][]string
}

func (r *panickingResolver) Resolve(interest string) []string {
	if interest == r.bad {
		panic("resolver blew up")
	}
	return r.table[interest]
}

func TestFanOutSurvivesPanickingInterest(t *testing.T) {
	e := entry(1)
	resolver := &panickingResolver{
		bad:   "finance",
		table: map[string][]string{"coding": {"https://a.example/rss"}},
	}
	fetcher := &stubFetcher{entries: map[string][]domain.FeedEntry{
		"https://a.example/rss": {e},
	}}
	scraper := &stubScraper{results: map[string]domain.ScrapeResult{
		e.Link: {Text: longBody},
	}}

	agg := NewAggregator(resolver, fetcher, scraper, nil, Options{})
	results := agg.FanOut(context.Background(), []string{"coding", "finance"}, 5)

	require.Len(t, results, 2)
	assert.Len(t, results["coding"], 1)
	assert.NotNil(t, results["finance"])
	assert.Empty(t, results["finance"])
}

func TestFanOutCapsInterestCount(t *testing.T) {
	interests := make([]string, 15)
	for i := range interests {
		interests[i] = fmt.Sprintf("interest-%d", i)
	}

	agg := NewAggregator(&stubResolver{table: map[string][]string{}}, &stubFetcher{}, &stubScraper{}, nil, Options{})
	results := agg.FanOut(context.Background(), interests, 2)

	assert.Len(t, results, maxFanOut)
}

func TestCleanSummaryStripsMarkupAndEntities(t *testing.T) {
	agg := NewAggregator(&stubResolver{}, &stubFetcher{}, &stubScraper{}, nil, Options{})

	got := agg.cleanSummary("<b>Bold</b> &amp; <script>evil()</script> spaced\n\n  text")
	assert.Equal(t, "Bold & spaced text", got)
	assert.Empty(t, agg.cleanSummary(""))
}
