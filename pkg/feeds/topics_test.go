package feeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTopicTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
topics:
  - key: Coding
    sources:
      - https://hnrss.org/frontpage
  - key: general
    sources:
      - https://news.google.com/rss
`), 0o600))

	table, err := LoadTopicTable(path)
	require.NoError(t, err)

	// Keys are lowercased on load.
	sources := table.Sources("coding")
	assert.Equal(t, []string{"https://hnrss.org/frontpage"}, sources)
}

func TestLoadTopicTableMissingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
topics:
  - key: coding
    sources:
      - https://hnrss.org/frontpage
`), 0o600))

	_, err := LoadTopicTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "general")
}

func TestLoadTopicTableMissingFile(t *testing.T) {
	_, err := LoadTopicTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadTopicTableBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics: [not closed"), 0o600))

	_, err := LoadTopicTable(path)
	assert.Error(t, err)
}

func TestNewTopicTableSkipsEmptyEntries(t *testing.T) {
	table, err := NewTopicTable([]Topic{
		{Key: "  ", Sources: []string{"https://x.example"}},
		{Key: "empty", Sources: nil},
		{Key: FallbackTopic, Sources: []string{"https://news.google.com/rss"}},
	})
	require.NoError(t, err)

	assert.Nil(t, table.Sources("empty"))
	assert.NotEmpty(t, table.Sources(FallbackTopic))
}

func TestDefaultTopicTableCarriesFallback(t *testing.T) {
	table := DefaultTopicTable()
	assert.NotEmpty(t, table.Sources(FallbackTopic))
	assert.NotEmpty(t, table.Sources("coding"))
}
