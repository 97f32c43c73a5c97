package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/contra/internal/common"
)

func openIndex(t *testing.T) *DocumentIndex {
	t.Helper()
	idx, err := NewDocumentIndex(filepath.Join(t.TempDir(), "index"), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSplitText(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := SplitText("hello world", 1000, 200)
		assert.Equal(t, []string{"hello world"}, chunks)
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		assert.Empty(t, SplitText("   ", 1000, 200))
	})

	t.Run("prefers paragraph boundaries", func(t *testing.T) {
		text := strings.Repeat("a", 700) + "\n\n" + strings.Repeat("b", 700)
		chunks := SplitText(text, 1000, 100)
		require.GreaterOrEqual(t, len(chunks), 2)
		assert.NotContains(t, chunks[0], "b", "first chunk should break at the paragraph boundary")
	})

	t.Run("covers all content", func(t *testing.T) {
		text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 100)
		chunks := SplitText(text, 500, 100)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 500)
		}
		joined := strings.Join(chunks, "")
		assert.Contains(t, joined, "quick brown fox")
	})
}

func TestIngestAndQuery(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()

	text := "Revenue for the year grew 20 percent driven by commercial vehicles. " +
		"The board declared a dividend of 6 rupees per share. " +
		"Management expects margin expansion from operating leverage."
	require.NoError(t, idx.Ingest(ctx, text, "Tata Motors", "annual", "doc-1"))

	got, err := idx.Query(ctx, "What happened to revenue and margins?", "Tata Motors", 3)
	require.NoError(t, err)
	assert.Contains(t, got, "Revenue")
}

func TestQueryScopedByCompany(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Ingest(ctx, "Tata revenue grew strongly this year.", "Tata Motors", "annual", "doc-1"))
	require.NoError(t, idx.Ingest(ctx, "Infosys revenue was flat this year.", "Infosys", "annual", "doc-2"))

	got, err := idx.Query(ctx, "revenue this year", "Infosys", 5)
	require.NoError(t, err)
	assert.Contains(t, got, "Infosys")
	assert.NotContains(t, got, "Tata")
}

func TestQueryNoMatchReturnsEmpty(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Ingest(ctx, "Some unrelated filing text.", "Tata Motors", "annual", "doc-1"))

	got, err := idx.Query(ctx, "cryptocurrency exposure", "Tata Motors", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = idx.Query(ctx, "anything", "Unknown Co", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClearCompany(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Ingest(ctx, "Annual revenue details here.", "Tata Motors", "annual", "doc-1"))
	require.NoError(t, idx.ClearCompany(ctx, "Tata Motors"))

	got, err := idx.Query(ctx, "revenue details", "Tata Motors", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIngestReplacesOnClear(t *testing.T) {
	idx := openIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Ingest(ctx, "Old quarterly numbers.", "Tata Motors", "quarterly", "doc-1"))
	require.NoError(t, idx.ClearCompany(ctx, "Tata Motors"))
	require.NoError(t, idx.Ingest(ctx, "New annual numbers.", "Tata Motors", "annual", "doc-2"))

	got, err := idx.Query(ctx, "annual numbers", "Tata Motors", 5)
	require.NoError(t, err)
	assert.Contains(t, got, "New annual")
	assert.NotContains(t, got, "Old quarterly")
}
