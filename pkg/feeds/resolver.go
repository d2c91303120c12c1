package feeds

import "strings"

// Resolver maps a free-text interest to an ordered set of feed source
// URLs.
type Resolver struct {
	table *TopicTable
}

// NewResolver builds a resolver over the given table, defaulting to
// the built-in table when nil.
func NewResolver(table *TopicTable) *Resolver {
	if table == nil {
		table = DefaultTopicTable()
	}
	return &Resolver{table: table}
}

// Resolve returns feed sources for the interest. Matching is fuzzy by
// design: user interests are free text and rarely hit a curated key
// exactly. The fallback topic guarantees a non-empty result.
func (r *Resolver) Resolve(interest string) []string {
	interest = strings.ToLower(strings.TrimSpace(interest))

	if sources, ok := r.table.index[interest]; ok {
		return sources
	}

	if interest != "" {
		for _, topic := range r.table.topics {
			if strings.Contains(interest, topic.Key) || strings.Contains(topic.Key, interest) {
				return topic.Sources
			}
		}
	}

	return r.table.index[FallbackTopic]
}
