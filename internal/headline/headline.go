package headline

import (
	"context"
	"fmt"
	"strings"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/llm"
	"github.com/newslens-hq/newslens-backend/internal/logger"
	"github.com/newslens-hq/newslens-backend/internal/textutil"
)

const (
	promptContentChars = 500
	maxNotifications   = 5
	summaryChars       = 200
)

// Personalizer rewrites article headlines to show direct personal
// impact for a specific user.
type Personalizer struct {
	gen llm.Generator
	log logger.Logger
}

// New creates a Personalizer. A nil logger is replaced with a no-op.
func New(gen llm.Generator, log logger.Logger) *Personalizer {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Personalizer{gen: gen, log: log}
}

// Personalize returns the article with an impact-oriented headline. A
// generation failure keeps the original title; one bad headline must
// not sink a whole batch.
func (p *Personalizer) Personalize(ctx context.Context, profile domain.Profile, interest string, article domain.Article) domain.Article {
	headline, err := p.gen.Generate(ctx, impactPrompt(profile, interest, article, 120))
	if err != nil {
		p.log.WarnObj("headline personalization failed", "headline_error", map[string]any{
			"link":  article.Link,
			"error": err.Error(),
		})
		return article
	}

	article.Title = strings.TrimSpace(headline)
	return article
}

// PersonalizeAll rewrites every article in the mapping, interest by
// interest.
func (p *Personalizer) PersonalizeAll(ctx context.Context, profile domain.Profile, newsByInterest map[string][]domain.Article) map[string][]domain.Article {
	out := make(map[string][]domain.Article, len(newsByInterest))
	for interest, articles := range newsByInterest {
		personalized := make([]domain.Article, 0, len(articles))
		for _, article := range articles {
			personalized = append(personalized, p.Personalize(ctx, profile, interest, article))
		}
		out[interest] = personalized
	}
	return out
}

// Notifications flattens the fetched news, caps it and turns each
// article into a personalized push notification with an impact score.
func (p *Personalizer) Notifications(ctx context.Context, profile domain.Profile, newsByInterest map[string][]domain.Article) []domain.Notification {
	type flat struct {
		interest string
		article  domain.Article
	}

	var all []flat
	for interest, articles := range newsByInterest {
		for _, article := range articles {
			all = append(all, flat{interest: interest, article: article})
		}
	}
	if len(all) > maxNotifications {
		all = all[:maxNotifications]
	}

	notifications := make([]domain.Notification, 0, len(all))
	for _, item := range all {
		article := item.article

		headline := article.Title
		score := 7.0
		if generated, err := p.gen.Generate(ctx, impactPrompt(profile, item.interest, article, 100)); err == nil {
			headline = strings.TrimSpace(generated)
			score = impactScore(article.Content)
		} else {
			p.log.WarnObj("notification headline failed", "notification_headline_error", map[string]any{
				"link":  article.Link,
				"error": err.Error(),
			})
		}

		notifications = append(notifications, domain.Notification{
			ID:            fmt.Sprintf("notif-%d", len(notifications)+1),
			Headline:      headline,
			OriginalTitle: article.Title,
			Summary:       notificationSummary(article),
			Source:        article.Source,
			Link:          article.Link,
			Image:         article.Image,
			Interest:      item.interest,
			ImpactScore:   score,
			ImpactLevel:   impactLevel(score),
			Timestamp:     timestamp(article),
		})
	}

	return notifications
}

// impactScore is a simple content-length heuristic in the 7-9 range.
func impactScore(content string) float64 {
	score := 7 + float64(len(content))/500
	if score > 9 {
		score = 9
	}
	// One decimal, matching the wire format.
	return float64(int(score*10+0.5)) / 10
}

func impactLevel(score float64) string {
	switch {
	case score >= 8:
		return "High"
	case score >= 6:
		return "Medium"
	default:
		return "Low"
	}
}

func notificationSummary(article domain.Article) string {
	if article.Content != "" {
		return textutil.Truncate(article.Content, summaryChars)
	}
	return article.Snippet
}

func timestamp(article domain.Article) string {
	if article.Date != "" {
		return article.Date
	}
	return "Recently"
}

func impactPrompt(profile domain.Profile, interest string, article domain.Article, maxChars int) string {
	content := textutil.Truncate(article.Content, promptContentChars)

	var b strings.Builder
	fmt.Fprintf(&b, "User Profile:\n- Age: %d\n- Goals: %s\n- Interest: %s\n\n", profile.Age, profile.Goals, interest)
	fmt.Fprintf(&b, "News Article:\nTitle: %s\nContent: %s\n\n", article.Title, content)
	b.WriteString("Task: Generate a personalized headline that shows the DIRECT PERSONAL IMPACT on the user.\n\n")
	b.WriteString("Examples:\n")
	b.WriteString("- Instead of \"Gold prices expected to rise next month\"\n")
	b.WriteString("- Say: \"Invest in gold now - potential profit if you sell next month\"\n\n")
	b.WriteString("- Instead of \"Tech hiring slowdown expected\"\n")
	b.WriteString("- Say: \"Upskill now - tech job market tightening for mid-level roles\"\n\n")
	fmt.Fprintf(&b, "Generate ONE concise, actionable headline (max %d characters) that:\n", maxChars)
	b.WriteString("1. Shows direct personal impact with numbers if possible\n")
	b.WriteString("2. Uses \"you/your\" language\n")
	b.WriteString("3. Is actionable and specific\n")
	fmt.Fprintf(&b, "4. Relates to their goals: %s\n\n", profile.Goals)
	b.WriteString("Return ONLY the headline text, nothing else.")
	return b.String()
}
