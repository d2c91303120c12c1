package ranker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

// fakeGenerator records prompts and serves a canned completion.
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

func testProfile(k int) domain.Profile {
	return domain.Profile{
		Age:       28,
		Goals:     "become a senior engineer",
		Interests: []string{"coding", "finance", "sports", "music"},
		K:         k,
	}
}

func TestRankReturnsRecommendedInterests(t *testing.T) {
	gen := &fakeGenerator{response: `{"recommended_interests": ["coding", "finance", "music"]}`}

	got, err := New(gen).Rank(context.Background(), testProfile(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"coding", "finance", "music"}, got)
}

func TestRankStripsCodeFences(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n{\"recommended_interests\": [\"coding\"]}\n```"}

	got, err := New(gen).Rank(context.Background(), testProfile(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"coding"}, got)
}

func TestRankTruncatesToK(t *testing.T) {
	gen := &fakeGenerator{response: `{"recommended_interests": ["coding", "finance", "sports", "music"]}`}

	got, err := New(gen).Rank(context.Background(), testProfile(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"coding", "finance"}, got)
}

func TestRankDefaultsKToThree(t *testing.T) {
	gen := &fakeGenerator{response: `{"recommended_interests": ["coding", "finance", "sports", "music"]}`}

	got, err := New(gen).Rank(context.Background(), testProfile(0))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	assert.Contains(t, gen.prompts[0], "top 3 interests")
}

func TestRankPromptCarriesProfile(t *testing.T) {
	gen := &fakeGenerator{response: `{"recommended_interests": ["coding"]}`}

	_, err := New(gen).Rank(context.Background(), testProfile(1))
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Age: 28")
	assert.Contains(t, gen.prompts[0], "become a senior engineer")
	assert.Contains(t, gen.prompts[0], "coding")
}

func TestRankGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}

	_, err := New(gen).Rank(context.Background(), testProfile(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank interests")
}

func TestRankMalformedResponse(t *testing.T) {
	gen := &fakeGenerator{response: "I think you should read about coding."}

	_, err := New(gen).Rank(context.Background(), testProfile(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rank response")
}

func TestRankEmptyInterestList(t *testing.T) {
	gen := &fakeGenerator{response: `{"recommended_interests": []}`}

	_, err := New(gen).Rank(context.Background(), testProfile(3))
	require.Error(t, err)
}
