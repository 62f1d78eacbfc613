package llm

import (
	"context"
	"testing"

	"github.com/raphaelgruber/docforge/internal/extract"
	"github.com/raphaelgruber/docforge/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder_SatisfiesEveryExtractor(t *testing.T) {
	p := NewPlaceholder()
	ctx := context.Background()

	first, err := p.Complete(ctx, "m", textTurns("frame"))
	require.NoError(t, err)

	doc, err := extract.Markdown(first.Text)
	require.NoError(t, err)
	assert.Equal(t, "Draft Document 1", doc.Title)

	for _, kind := range schema.Kinds() {
		s, err := schema.Lookup(kind)
		require.NoError(t, err)
		_, err = extract.JSON(first.Text, s.Validate)
		assert.NoError(t, err, kind)
	}

	page, err := extract.HTML(first.Text)
	require.NoError(t, err)
	assert.Contains(t, page, "<!DOCTYPE html>")

	second, err := p.Complete(ctx, "m", textTurns("again"))
	require.NoError(t, err)
	doc, err = extract.Markdown(second.Text)
	require.NoError(t, err)
	assert.Equal(t, "Draft Document 2", doc.Title, "titles differ between calls")
}

func TestPlaceholder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPlaceholder().Complete(ctx, "m", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
