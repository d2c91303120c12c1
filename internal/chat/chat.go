package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/llm"
	"github.com/newslens-hq/newslens-backend/internal/textutil"
)

const (
	historyWindow       = 10
	contextContentChars = 500
)

type message struct {
	role    string
	content string
}

// Service holds a conversation about the articles the user is
// currently viewing. State is per-process and mutex-guarded.
type Service struct {
	gen llm.Generator

	mu      sync.Mutex
	history []message
	context []domain.Article
}

// NewService creates a chat service over the given generator.
func NewService(gen llm.Generator) *Service {
	return &Service{gen: gen}
}

// Response is one assistant turn.
type Response struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// Chat answers the user's message with article and profile context.
// Passing articles replaces the remembered news context.
func (s *Service) Chat(ctx context.Context, msg string, articles []domain.Article, profile *domain.Profile) (Response, error) {
	s.mu.Lock()
	if len(articles) > 0 {
		s.context = articles
	}
	s.history = append(s.history, message{role: "user", content: msg})

	prompt := buildPrompt(s.context, profile, recentHistory(s.history))
	s.mu.Unlock()

	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("generate chat response: %w", err)
	}
	reply = strings.TrimSpace(reply)

	s.mu.Lock()
	s.history = append(s.history, message{role: "assistant", content: reply})
	s.mu.Unlock()

	return Response{
		Response:  reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Reset clears the conversation history and the remembered articles.
func (s *Service) Reset() {
	s.mu.Lock()
	s.history = nil
	s.context = nil
	s.mu.Unlock()
}

func recentHistory(history []message) []message {
	if len(history) > historyWindow {
		return history[len(history)-historyWindow:]
	}
	return history
}

func buildPrompt(articles []domain.Article, profile *domain.Profile, history []message) string {
	var b strings.Builder

	b.WriteString("You are a PERSONALIZED news impact assistant. You MUST analyze news specifically for the user based on their profile.\n\n")

	if profile != nil {
		fmt.Fprintf(&b, "USER PROFILE (THIS IS THE PERSON YOU'RE TALKING TO):\n")
		fmt.Fprintf(&b, "- Age: %d years old\n- Goals: %s\n- Interests: %s\n\n", profile.Age, profile.Goals, strings.Join(profile.Interests, ", "))
		b.WriteString("When they ask how the news affects them, analyze the impact for this specific person and recommend concrete actions.\n\n")
	}

	b.WriteString(articleContext(articles))

	b.WriteString("\nCRITICAL INSTRUCTIONS:\n")
	b.WriteString("1. Speak directly to the user as their personal news advisor; use \"you\" and \"your\".\n")
	b.WriteString("2. Do not give generic responses; ground every answer in their profile and the articles above.\n")
	b.WriteString("3. Give actionable, specific advice; if the news does not affect them, explain why based on their profile.\n\n")

	for _, msg := range history {
		role := "User"
		if msg.role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, msg.content)
	}

	return b.String()
}

func articleContext(articles []domain.Article) string {
	if len(articles) == 0 {
		return "No news articles are currently loaded.\n"
	}

	var b strings.Builder
	b.WriteString("Here are the current news articles the user is viewing:\n\n")
	for i, article := range articles {
		content := article.Content
		if content == "" {
			content = article.Snippet
		}
		if truncated := textutil.Truncate(content, contextContentChars); len(truncated) < len(content) {
			content = truncated + "..."
		}

		fmt.Fprintf(&b, "Article %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", article.Title)
		fmt.Fprintf(&b, "Source: %s\n", article.Source)
		fmt.Fprintf(&b, "Content: %s\n", content)
		fmt.Fprintf(&b, "Link: %s\n\n", article.Link)
	}
	return b.String()
}
