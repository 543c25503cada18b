package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
)

func setup(t *testing.T) (*database.Context, *services.SnippetService, *Expander) {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	clock := func() time.Time { return time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC) }
	parser := template.NewParser(template.WithClock(clock))
	return dbCtx, services.NewSnippetService(dbCtx), NewExpander(dbCtx, parser)
}

func create(t *testing.T, svc *services.SnippetService, mutate func(*snippet.Content)) *snippet.Snippet {
	t.Helper()
	c := snippet.New().Content
	c.Name = "Greeting"
	c.Abbreviation = ";hi"
	c.ContentText = "Hi {{n}}{{|}}!"
	c.Variables = []snippet.Variable{{Key: "n", Type: snippet.VariableText}}
	if mutate != nil {
		mutate(&c)
	}
	s, err := svc.Create(context.Background(), c)
	require.NoError(t, err)
	return s
}

func TestExpandByAbbreviation(t *testing.T) {
	dbCtx, svc, expander := setup(t)
	ctx := context.Background()
	created := create(t, svc, nil)

	result, err := expander.Expand(ctx, ";hi", ExpandInput{Values: map[string]any{"n": "Sam"}, Source: snippet.SourceDesktop})
	require.NoError(t, err)
	assert.Equal(t, "Hi Sam!", result.Content)
	assert.Equal(t, 6, result.Cursor)
	assert.Equal(t, created.ID, result.SnippetID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)

	entries, err := database.NewUsageRepository(dbCtx).List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, snippet.SourceDesktop, entries[0].Source)
}

func TestExpandUnknownAbbreviation(t *testing.T) {
	_, _, expander := setup(t)

	_, err := expander.Expand(context.Background(), ";nope", ExpandInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestExpandRichUsesHTMLAndFunctions(t *testing.T) {
	_, svc, expander := setup(t)
	create(t, svc, func(c *snippet.Content) {
		c.IsRich = true
		c.ContentHTML = "<b>{{date:%d/%m/%Y}}</b>"
	})

	result, err := expander.Expand(context.Background(), ";hi", ExpandInput{})
	require.NoError(t, err)
	assert.Equal(t, "<b>29/02/2024</b>", result.Content)
	assert.Equal(t, -1, result.Cursor)
	assert.True(t, result.IsRich)
}

func TestExpandHonoursScope(t *testing.T) {
	_, svc, expander := setup(t)
	ctx := context.Background()
	created := create(t, svc, func(c *snippet.Content) {
		c.ScopeType = scope.ScopeDomains
		c.ScopeValues = []string{"google.com"}
	})

	_, err := expander.Expand(ctx, ";hi", ExpandInput{TargetDomain: "mail.google.com"})
	require.NoError(t, err)

	_, err = expander.ExpandByID(ctx, created.ID, ExpandInput{TargetDomain: "example.org"})
	require.ErrorIs(t, err, services.ErrNotFound)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
}

func TestExpandByIDSkipsDisabled(t *testing.T) {
	_, svc, expander := setup(t)
	created := create(t, svc, func(c *snippet.Content) { c.Enabled = false })

	_, err := expander.ExpandByID(context.Background(), created.ID, ExpandInput{})
	require.ErrorIs(t, err, services.ErrNotFound)
}
