package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newTestServer(t *testing.T) (*Server, *snippet.Snippet) {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	c := snippet.New().Content
	c.Name = "Signature"
	c.Abbreviation = ";sig"
	c.ContentText = "Regards, {{name}}"
	c.Tags = []string{"email"}
	c.Variables = []snippet.Variable{{Key: "name", Type: snippet.VariableText, Required: true}}
	created, err := services.NewSnippetService(dbCtx).Create(context.Background(), c)
	require.NoError(t, err)

	return NewServer(dbCtx, "test", nil), created
}

func TestToolHandlers(t *testing.T) {
	s, created := newTestServer(t)
	ctx := context.Background()

	_, found, err := s.handleSearch(ctx, nil, SearchInput{Query: "sig"})
	require.NoError(t, err)
	require.Len(t, found.Snippets, 1)
	assert.Equal(t, created.ID, found.Snippets[0].ID)

	_, got, err := s.handleGet(ctx, nil, GetInput{Abbreviation: ";sig"})
	require.NoError(t, err)
	assert.Equal(t, "Regards, {{name}}", got.Content)
	assert.Equal(t, "global", got.Scope)
	require.Len(t, got.Variables, 1)
	assert.True(t, got.Variables[0].Required)

	_, _, err = s.handleGet(ctx, nil, GetInput{})
	require.Error(t, err)

	_, expanded, err := s.handleExpand(ctx, nil, ExpandInput{ID: created.ID, Variables: map[string]any{"name": "Lee"}})
	require.NoError(t, err)
	assert.Equal(t, "Regards, Lee", expanded.Content)
	assert.Equal(t, -1, expanded.CursorPosition)

	_, stats, err := s.handleStats(ctx, nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUses)
	assert.Equal(t, int64(1), stats.TotalSnippets)

	_, versions, err := s.handleVersions(ctx, nil, VersionsInput{ID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, versions.Versions)

	_, got, err = s.handleGet(ctx, nil, GetInput{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LoggedUses)
	assert.Equal(t, int64(0), got.VersionCount)
}
