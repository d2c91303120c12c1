package headline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return f.Generate(ctx, prompt)
}

func testProfile() domain.Profile {
	return domain.Profile{Age: 28, Goals: "grow my savings", Interests: []string{"finance"}}
}

func testArticle() domain.Article {
	return domain.Article{
		Title:   "Gold prices expected to rise next month",
		Link:    "https://news.example/gold",
		Source:  "Example Finance",
		Snippet: "Analysts expect gold to climb.",
		Date:    "Mon, 02 Jun 2025 10:00:00 GMT",
		Content: strings.Repeat("Gold market analysis. ", 30),
		Image:   "https://img.example/gold.jpg",
	}
}

func TestPersonalizeRewritesTitle(t *testing.T) {
	gen := &fakeGenerator{response: " Invest in gold now - potential profit next month "}
	p := New(gen, nil)

	got := p.Personalize(context.Background(), testProfile(), "finance", testArticle())

	assert.Equal(t, "Invest in gold now - potential profit next month", got.Title)
	assert.Equal(t, "https://news.example/gold", got.Link)
}

func TestPersonalizeKeepsOriginalOnFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := New(gen, nil)

	got := p.Personalize(context.Background(), testProfile(), "finance", testArticle())
	assert.Equal(t, "Gold prices expected to rise next month", got.Title)
}

func TestPersonalizePromptCarriesProfileAndArticle(t *testing.T) {
	gen := &fakeGenerator{response: "headline"}
	p := New(gen, nil)

	p.Personalize(context.Background(), testProfile(), "finance", testArticle())

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Age: 28")
	assert.Contains(t, prompt, "grow my savings")
	assert.Contains(t, prompt, "Interest: finance")
	assert.Contains(t, prompt, "Gold prices expected to rise next month")
}

func TestPersonalizeAllCoversEveryArticle(t *testing.T) {
	gen := &fakeGenerator{response: "personalized"}
	p := New(gen, nil)

	news := map[string][]domain.Article{
		"finance": {testArticle(), testArticle()},
		"coding":  {testArticle()},
	}

	out := p.PersonalizeAll(context.Background(), testProfile(), news)

	require.Len(t, out, 2)
	assert.Len(t, out["finance"], 2)
	assert.Len(t, out["coding"], 1)
	for _, articles := range out {
		for _, a := range articles {
			assert.Equal(t, "personalized", a.Title)
		}
	}
}

func TestNotificationsBuildFromArticles(t *testing.T) {
	gen := &fakeGenerator{response: "Buy gold now - your savings goal just got closer"}
	p := New(gen, nil)

	news := map[string][]domain.Article{"finance": {testArticle()}}
	got := p.Notifications(context.Background(), testProfile(), news)

	require.Len(t, got, 1)
	n := got[0]
	assert.Equal(t, "notif-1", n.ID)
	assert.Equal(t, "Buy gold now - your savings goal just got closer", n.Headline)
	assert.Equal(t, "Gold prices expected to rise next month", n.OriginalTitle)
	assert.Equal(t, "finance", n.Interest)
	assert.Equal(t, "Example Finance", n.Source)
	assert.Equal(t, "Mon, 02 Jun 2025 10:00:00 GMT", n.Timestamp)
	assert.LessOrEqual(t, len(n.Summary), summaryChars)
	assert.GreaterOrEqual(t, n.ImpactScore, 7.0)
	assert.LessOrEqual(t, n.ImpactScore, 9.0)
	assert.Contains(t, []string{"Low", "Medium", "High"}, n.ImpactLevel)
}

func TestNotificationsCapAtFive(t *testing.T) {
	gen := &fakeGenerator{response: "headline"}
	p := New(gen, nil)

	articles := make([]domain.Article, 8)
	for i := range articles {
		articles[i] = testArticle()
	}
	news := map[string][]domain.Article{"finance": articles}

	got := p.Notifications(context.Background(), testProfile(), news)
	assert.Len(t, got, maxNotifications)
}

func TestNotificationFailureKeepsOriginalTitle(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := New(gen, nil)

	news := map[string][]domain.Article{"finance": {testArticle()}}
	got := p.Notifications(context.Background(), testProfile(), news)

	require.Len(t, got, 1)
	assert.Equal(t, "Gold prices expected to rise next month", got[0].Headline)
	assert.Equal(t, 7.0, got[0].ImpactScore)
}

func TestImpactScore(t *testing.T) {
	assert.Equal(t, 7.0, impactScore(""))
	assert.Equal(t, 8.0, impactScore(strings.Repeat("a", 500)))
	assert.Equal(t, 9.0, impactScore(strings.Repeat("a", 5000)))
}

func TestImpactLevel(t *testing.T) {
	assert.Equal(t, "High", impactLevel(8.4))
	assert.Equal(t, "Medium", impactLevel(7.0))
	assert.Equal(t, "Low", impactLevel(5.9))
}

func TestTimestampFallback(t *testing.T) {
	a := testArticle()
	a.Date = ""
	assert.Equal(t, "Recently", timestamp(a))
}

func TestNotificationSummaryKeepsValidUTF8(t *testing.T) {
	a := testArticle()
	a.Content = strings.Repeat("ニュース速報", 100)

	got := notificationSummary(a)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, summaryChars, utf8.RuneCountInString(got))
}

func TestNotificationSummaryPrefersContent(t *testing.T) {
	a := testArticle()
	assert.True(t, strings.HasPrefix(a.Content, notificationSummary(a)))

	a.Content = ""
	assert.Equal(t, a.Snippet, notificationSummary(a))
}
