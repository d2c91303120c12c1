package feeds

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackTopic is the topic every resolver table must carry; it backs
// interests that match nothing else.
const FallbackTopic = "general"

// Topic pairs a curated topic key with its feed source URLs. Tables
// are ordered: partial matching scans topics in declaration order.
type Topic struct {
	Key     string   `yaml:"key"`
	Sources []string `yaml:"sources"`
}

// TopicTable is an immutable, ordered topic-to-feeds mapping built
// once at startup.
type TopicTable struct {
	topics []Topic
	index  map[string][]string
}

// NewTopicTable builds a table from the given topics. It fails when no
// fallback topic is present, since the resolver's non-empty guarantee
// depends on it.
func NewTopicTable(topics []Topic) (*TopicTable, error) {
	t := &TopicTable{
		topics: make([]Topic, 0, len(topics)),
		index:  make(map[string][]string, len(topics)),
	}

	for _, topic := range topics {
		key := strings.ToLower(strings.TrimSpace(topic.Key))
		if key == "" || len(topic.Sources) == 0 {
			continue
		}
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("duplicate topic key %q", key)
		}
		t.topics = append(t.topics, Topic{Key: key, Sources: topic.Sources})
		t.index[key] = topic.Sources
	}

	if _, ok := t.index[FallbackTopic]; !ok {
		return nil, fmt.Errorf("topic table has no %q fallback", FallbackTopic)
	}
	return t, nil
}

// Sources returns the feed URLs for an exact topic key, nil when the
// key is unknown. Fuzzy lookups go through Resolver.
func (t *TopicTable) Sources(key string) []string {
	return t.index[strings.ToLower(strings.TrimSpace(key))]
}

// LoadTopicTable reads a YAML topics file of the form
// topics: [{key: ..., sources: [...]}, ...].
func LoadTopicTable(path string) (*TopicTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}

	var file struct {
		Topics []Topic `yaml:"topics"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode topics file: %w", err)
	}

	return NewTopicTable(file.Topics)
}

// DefaultTopicTable returns the built-in curated table.
func DefaultTopicTable() *TopicTable {
	t, err := NewTopicTable(defaultTopics)
	if err != nil {
		// The built-in table always carries the fallback topic.
		panic(err)
	}
	return t
}

var defaultTopics = []Topic{
	{Key: "coding", Sources: []string{
		"https://hnrss.org/frontpage",
		"https://www.reddit.com/r/programming/.rss",
		"https://dev.to/feed",
	}},
	{Key: "technology", Sources: []string{
		"https://techcrunch.com/feed/",
		"https://www.theverge.com/rss/index.xml",
		"https://www.wired.com/feed/rss",
	}},
	{Key: "cloud architecture", Sources: []string{
		"https://aws.amazon.com/blogs/aws/feed/",
		"https://cloud.google.com/blog/rss",
		"https://devblogs.microsoft.com/azure-sdk/feed/",
	}},
	{Key: "ai", Sources: []string{
		"https://www.artificialintelligence-news.com/feed/",
		"https://openai.com/blog/rss.xml",
	}},
	{Key: "fitness", Sources: []string{
		"https://www.menshealth.com/rss/all.xml/",
		"https://www.bodybuilding.com/rss/latest-articles.xml",
	}},
	{Key: "health", Sources: []string{
		"https://www.health.com/syndication/feed",
		"https://www.healthline.com/rss",
	}},
	{Key: "yoga", Sources: []string{
		"https://www.yogajournal.com/feed/",
	}},
	{Key: "meditation", Sources: []string{
		"https://www.mindful.org/feed/",
	}},
	{Key: "startup", Sources: []string{
		"https://techcrunch.com/tag/startups/feed/",
		"https://www.reddit.com/r/startups/.rss",
		"https://news.ycombinator.com/rss",
	}},
	{Key: "business", Sources: []string{
		"https://www.businessinsider.com/rss",
		"https://www.reddit.com/r/business/.rss",
		"https://hbr.org/feed",
	}},
	{Key: "stock trading", Sources: []string{
		"https://www.investopedia.com/feedbuilder/feed/getfeed?feedName=rss_headline",
		"https://www.marketwatch.com/rss/",
		"https://www.reddit.com/r/stocks/.rss",
	}},
	{Key: "finance", Sources: []string{
		"https://www.cnbc.com/id/100003114/device/rss/rss.html",
		"https://finance.yahoo.com/news/rssindex",
		"https://www.reddit.com/r/finance/.rss",
	}},
	{Key: "cooking", Sources: []string{
		"https://www.bonappetit.com/feed/rss",
		"https://www.seriouseats.com/rss/recipes.xml",
	}},
	{Key: "gaming", Sources: []string{
		"https://www.ign.com/feed.xml",
		"https://www.polygon.com/rss/index.xml",
	}},
	{Key: "travel", Sources: []string{
		"https://www.lonelyplanet.com/feed",
		"https://www.travelandleisure.com/rss",
	}},
	{Key: "hiking", Sources: []string{
		"https://www.outsideonline.com/rss/",
		"https://www.backpacker.com/rss/",
	}},
	{Key: FallbackTopic, Sources: []string{
		"https://news.google.com/rss",
		"https://www.reddit.com/r/news/.rss",
	}},
}
