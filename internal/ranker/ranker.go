package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/llm"
)

// Ranker asks the model to pick the interests that best align with a
// user's age and goals. Ranking failures are hard failures: without a
// recommended interest list there is nothing to aggregate.
type Ranker struct {
	gen llm.Generator
}

// New creates a Ranker over the given generator.
func New(gen llm.Generator) *Ranker {
	return &Ranker{gen: gen}
}

type rankResponse struct {
	RecommendedInterests []string `json:"recommended_interests"`
}

// Rank returns the top-k interests for the profile in model-preferred
// order.
func (r *Ranker) Rank(ctx context.Context, profile domain.Profile) ([]string, error) {
	k := profile.K
	if k <= 0 {
		k = 3
	}

	raw, err := r.gen.GenerateJSON(ctx, rankPrompt(profile, k))
	if err != nil {
		return nil, fmt.Errorf("rank interests: %w", err)
	}

	var parsed rankResponse
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse rank response: %w", err)
	}
	if len(parsed.RecommendedInterests) == 0 {
		return nil, fmt.Errorf("rank response contained no interests")
	}

	if len(parsed.RecommendedInterests) > k {
		parsed.RecommendedInterests = parsed.RecommendedInterests[:k]
	}
	return parsed.RecommendedInterests, nil
}

func rankPrompt(profile domain.Profile, k int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Profile:\n- Age: %d\n- Goals: %s\n\n", profile.Age, profile.Goals)
	fmt.Fprintf(&b, "Interests to evaluate: %v\n\n", profile.Interests)
	fmt.Fprintf(&b, "Task: Pick the top %d interests that best align with the user's age and goals based on the intensity of alignment.\n\n", k)
	b.WriteString("Return ONLY a JSON object in the following format:\n")
	b.WriteString(`{"recommended_interests": ["interest1", "interest2", ...]}`)
	return b.String()
}
