package domain

import "time"

// Domain contains core models shared across the aggregation pipeline,
// personalization services and the HTTP layer.

// FeedEntry is a raw record extracted from one feed parse. Entries are
// transient: produced by the feed fetcher, consumed by the article
// scraper, never persisted.
type FeedEntry struct {
	Title      string
	Link       string
	Summary    string
	Published  string
	SourceName string
}

// ScrapeResult holds the extracted body text and lead image for a
// scraped page. A zero ScrapeResult marks a failed or empty scrape and
// is cached like any other result so dead hosts are not retried.
type ScrapeResult struct {
	Text      string `json:"text"`
	LeadImage string `json:"lead_image"`
}

// Empty reports whether the scrape yielded no usable text.
func (r ScrapeResult) Empty() bool { return r.Text == "" }

// Article is the externally visible unit returned by the pipeline.
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	Snippet string `json:"snippet,omitempty"`
	Date    string `json:"date,omitempty"`
	Content string `json:"content,omitempty"`
	Image   string `json:"image,omitempty"`
}

// Profile describes the user driving interest ranking and headline
// personalization.
type Profile struct {
	Age       int      `json:"age"`
	Goals     string   `json:"goals"`
	Interests []string `json:"interests"`
	K         int      `json:"k"`
}

// Notification is a personalized push item built from a high-impact
// article.
type Notification struct {
	ID            string  `json:"id"`
	Headline      string  `json:"headline"`
	OriginalTitle string  `json:"original_title"`
	Summary       string  `json:"summary"`
	Source        string  `json:"source"`
	Link          string  `json:"link"`
	Image         string  `json:"image,omitempty"`
	Interest      string  `json:"interest"`
	ImpactScore   float64 `json:"impact_score"`
	ImpactLevel   string  `json:"impact_level"`
	Timestamp     string  `json:"timestamp"`
}

// User is a stored account.
type User struct {
	ID             string    `json:"id" firestore:"-"`
	Email          string    `json:"email" firestore:"email"`
	HashedPassword string    `json:"-" firestore:"hashed_password"`
	Age            int       `json:"age" firestore:"age"`
	Goals          string    `json:"goals" firestore:"goals"`
	Interests      []string  `json:"interests" firestore:"interests"`
	K              int       `json:"k" firestore:"k"`
	CreatedAt      time.Time `json:"created_at" firestore:"created_at"`
	LastLogin      time.Time `json:"last_login" firestore:"last_login"`
}

// Profile returns the ranking profile embedded in the account.
func (u User) Profile() Profile {
	return Profile{Age: u.Age, Goals: u.Goals, Interests: u.Interests, K: u.K}
}
