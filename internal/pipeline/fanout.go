package pipeline

import (
	"context"
	"sync"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

// maxFanOut caps how many interest pipelines run at once.
const maxFanOut = 10

// FanOut runs one pipeline per interest concurrently and collects the
// results by interest name. A failing interest maps to an empty list;
// it never disturbs its siblings or the overall call.
func (a *Aggregator) FanOut(ctx context.Context, interests []string, perInterest int) map[string][]domain.Article {
	if len(interests) > maxFanOut {
		interests = interests[:maxFanOut]
	}

	results := make(map[string][]domain.Article, len(interests))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, interest := range interests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles := a.fetchGuarded(ctx, interest, perInterest)
			mu.Lock()
			results[interest] = articles
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// fetchGuarded shields the fan-out from an unexpected panic in one
// interest's pipeline, mapping it to an empty article list.
func (a *Aggregator) fetchGuarded(ctx context.Context, interest string, perInterest int) (articles []domain.Article) {
	defer func() {
		if r := recover(); r != nil {
			a.log.ErrorObj("interest pipeline panicked", "pipeline_panic", map[string]any{
				"interest": interest,
				"panic":    r,
			})
			articles = []domain.Article{}
		}
	}()

	articles = a.FetchNewsForInterest(ctx, interest, perInterest)
	if articles == nil {
		articles = []domain.Article{}
	}
	return articles
}
