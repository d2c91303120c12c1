package store

import (
	"context"
	"errors"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

// ErrNotFound marks a lookup that matched no document.
var ErrNotFound = errors.New("not found")

// Store is the profile and read-state persistence surface. Handlers
// depend on this interface so tests can substitute fakes.
type Store interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	UpdateUser(ctx context.Context, id string, updates map[string]any) (domain.User, error)
	TouchLastLogin(ctx context.Context, id string) error

	MarkRead(ctx context.Context, userID, articleURL string) error
	ReadURLs(ctx context.Context, userID string) ([]string, error)
}

// FilterUnread drops articles whose link is in the user's read set.
func FilterUnread(articles []domain.Article, readURLs []string) []domain.Article {
	if len(readURLs) == 0 {
		return articles
	}

	read := make(map[string]struct{}, len(readURLs))
	for _, u := range readURLs {
		read[u] = struct{}{}
	}

	out := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if _, seen := read[article.Link]; seen {
			continue
		}
		out = append(out, article)
	}
	return out
}
