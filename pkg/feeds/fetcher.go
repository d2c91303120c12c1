package feeds

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/logger"
)

const defaultFetchTimeout = 15 * time.Second

// Fetcher retrieves and parses syndication feeds into normalized
// entries.
type Fetcher struct {
	client *http.Client
	log    logger.Logger
}

// NewFetcher creates a feed fetcher. A nil client gets a timeout-bound
// default; a nil logger is replaced with a no-op.
func NewFetcher(client *http.Client, log logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fetcher{client: client, log: log}
}

// FetchEntries parses the feed at sourceURL and returns up to
// maxEntries entries in feed-native order. Failures of any kind log
// and yield an empty slice: the pipeline fans out across several feeds
// per interest and one dead feed must not abort the batch.
func (f *Fetcher) FetchEntries(ctx context.Context, sourceURL string, maxEntries int) []domain.FeedEntry {
	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(sourceURL, ctx)
	if err != nil {
		f.log.WarnObj("feed fetch failed", "feed_fetch_error", map[string]any{
			"source": sourceURL,
			"error":  err.Error(),
		})
		return nil
	}

	sourceName := feed.Title
	if sourceName == "" {
		sourceName = "Unknown"
	}

	items := feed.Items
	if maxEntries > 0 && len(items) > maxEntries {
		items = items[:maxEntries]
	}

	entries := make([]domain.FeedEntry, 0, len(items))
	for _, item := range items {
		if item == nil || item.Link == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		entries = append(entries, domain.FeedEntry{
			Title:      item.Title,
			Link:       item.Link,
			Summary:    summary,
			Published:  item.Published,
			SourceName: sourceName,
		})
	}

	return entries
}
