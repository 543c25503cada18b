package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/snippet"
)

func setupServiceDB(t *testing.T) *database.Context {
	t.Helper()
	ctx, err := database.CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}

	t.Cleanup(func() {
		if err := database.CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

// steppingClock advances one minute per call so timestamps are distinct.
func steppingClock() func() time.Time {
	current := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestService(t *testing.T) (*SnippetService, *database.Context) {
	t.Helper()
	dbCtx := setupServiceDB(t)
	return NewSnippetService(dbCtx, WithClock(steppingClock())), dbCtx
}

func greeting() snippet.Content {
	c := snippet.New().Content
	c.Name = "Greeting"
	c.Abbreviation = ";hi"
	c.ContentText = "Hi {{n}}{{|}}!"
	c.Tags = []string{"work", "email"}
	c.Variables = []snippet.Variable{{Key: "n", Type: snippet.VariableText}}
	return c
}

func TestSnippetServiceCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.Len(t, created.Variables, 1)
	assert.NotEmpty(t, created.Variables[0].ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hi {{n}}{{|}}!", got.ContentText)
	assert.Equal(t, []string{"work", "email"}, got.Tags)
	assert.True(t, got.Enabled)

	missing, err := svc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnippetServiceCreateRejectsInvalidContent(t *testing.T) {
	svc, dbCtx := newTestService(t)
	ctx := context.Background()

	c := greeting()
	c.Variables = append(c.Variables, snippet.Variable{Key: "bad key", Type: snippet.VariableText})

	_, err := svc.Create(ctx, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, snippet.ErrInvalid))

	total, _, err := database.NewSnippetRepository(dbCtx).Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSnippetServiceExpansionScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	found, err := svc.GetByAbbreviation(ctx, ";hi")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Greeting", found.Name)
}

func TestSnippetServiceUpdateSnapshotsEveryCall(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	next := created.Content
	next.Name = "Greeting v2"
	next.Variables = []snippet.Variable{{Key: "who", Type: snippet.VariableText}}

	for i := 0; i < 2; i++ {
		updated, err := svc.Update(ctx, created.ID, next, "")
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Greeting v2", updated.Name)
		require.Len(t, updated.Variables, 1)
		assert.Equal(t, "who", updated.Variables[0].Key)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	}

	versions, err := svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(2), versions[0].VersionNumber)
	assert.Equal(t, "Greeting v2", versions[0].Name)
	assert.Equal(t, int64(1), versions[1].VersionNumber)
	assert.Equal(t, "Greeting", versions[1].Name)
	assert.Equal(t, DefaultChangeReason, versions[1].ChangeReason)
	require.Len(t, versions[1].Variables, 1)
	assert.Equal(t, "n", versions[1].Variables[0].Key)
}

func TestSnippetServiceUpdateMissingAndInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "missing", greeting(), "")
	require.NoError(t, err)
	assert.Nil(t, updated)

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	bad := created.Content
	bad.Abbreviation = "has space"
	_, err = svc.Update(ctx, created.ID, bad, "")
	require.ErrorIs(t, err, snippet.ErrInvalid)

	versions, err := svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSnippetServiceVersionRoundTripAndRestore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	const updates = 4
	for i := 1; i <= updates; i++ {
		next := created.Content
		next.ContentText = "Body " + string(rune('0'+i))
		_, err := svc.Update(ctx, created.ID, next, "edit")
		require.NoError(t, err)
	}

	versions, err := svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, updates)
	for i, v := range versions {
		assert.Equal(t, int64(updates-i), v.VersionNumber)
	}

	// Version 2 captured the state written by the first update.
	var target snippet.Version
	for _, v := range versions {
		if v.VersionNumber == 2 {
			target = v
		}
	}
	assert.Equal(t, "Body 1", target.ContentText)

	restored, err := svc.RestoreVersion(ctx, created.ID, target.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, target.ContentText, restored.ContentText)
	assert.Equal(t, target.Name, restored.Name)
	require.Len(t, restored.Variables, len(target.Variables))
	assert.Equal(t, target.Variables[0].Key, restored.Variables[0].Key)

	versions, err = svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, updates+1)
	assert.Equal(t, int64(updates+1), versions[0].VersionNumber)
	assert.Equal(t, "Body 4", versions[0].ContentText)
	assert.Equal(t, "restored to version 2", versions[0].ChangeReason)

	missing, err := svc.RestoreVersion(ctx, created.ID, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnippetServiceGetAndDiffVersions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	next := created.Content
	next.Name = "Renamed"
	_, err = svc.Update(ctx, created.ID, next, "rename")
	require.NoError(t, err)
	next.ContentText = "Changed"
	_, err = svc.Update(ctx, created.ID, next, "body")
	require.NoError(t, err)

	versions, err := svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	first, second := versions[1], versions[0]

	got, err := svc.GetVersion(ctx, created.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Greeting", got.Name)

	patch, err := svc.DiffVersions(ctx, created.ID, first.ID, second.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Renamed"}`, string(patch))

	patch, err = svc.DiffVersions(ctx, created.ID, second.ID, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content_text":"Changed"}`, string(patch))

	patch, err = svc.DiffVersions(ctx, created.ID, "missing", "")
	require.NoError(t, err)
	assert.Nil(t, patch)
}

func TestSnippetServiceDeleteCascadesAndKeepsUsage(t *testing.T) {
	svc, dbCtx := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)
	_, err = svc.Update(ctx, created.ID, created.Content, "")
	require.NoError(t, err)
	require.NoError(t, svc.LogUsage(ctx, created.ID, UsageEvent{Source: snippet.SourceDesktop}))

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	for table, expected := range map[string]int{
		"snippets":                  0,
		"snippet_variables":         0,
		"snippet_versions":          0,
		"snippet_version_variables": 0,
		"usage_log":                 1,
	} {
		var count int
		require.NoError(t, dbCtx.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, expected, count, table)
	}

	again, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestSnippetServiceSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mk := func(name, abbreviation string, tags []string, enabled bool, sc scope.Scope) {
		c := snippet.New().Content
		c.Name = name
		c.Abbreviation = abbreviation
		c.ContentText = "body"
		c.Tags = tags
		c.Enabled = enabled
		c.ScopeType = sc.Type
		c.ScopeValues = sc.Values
		_, err := svc.Create(ctx, c)
		require.NoError(t, err)
	}
	mk("Email Signature", ";sig", []string{"work", "email"}, true, scope.NewGlobal())
	mk("Address", ";addr", []string{"home"}, true, scope.NewDomains("example.com"))
	mk("Old Reply", ";old", []string{"email"}, false, scope.NewGlobal())

	names := func(results []snippet.Snippet) []string {
		out := make([]string, 0, len(results))
		for _, r := range results {
			out = append(out, r.Name)
		}
		return out
	}

	results, err := svc.Search(ctx, SearchOptions{Query: "SIGNATURE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Email Signature"}, names(results))

	results, err = svc.Search(ctx, SearchOptions{Query: ";ad"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Address"}, names(results))

	// The stored tag string is "work,email", so a query spanning both tags matches.
	results, err = svc.Search(ctx, SearchOptions{Query: "k,em"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Email Signature"}, names(results))

	results, err = svc.Search(ctx, SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Search(ctx, SearchOptions{IncludeDisabled: true, Tags: []string{"email"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Email Signature", "Old Reply"}, names(results))

	results, err = svc.Search(ctx, SearchOptions{ScopeType: "domains"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Address"}, names(results))
}

func TestSnippetServiceLogUsage(t *testing.T) {
	svc, dbCtx := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	require.NoError(t, svc.LogUsage(ctx, created.ID, UsageEvent{Source: snippet.SourceExtension, TargetDomain: "mail.google.com"}))
	require.NoError(t, svc.LogUsage(ctx, created.ID, UsageEvent{}))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UsageCount)

	entries, err := database.NewUsageRepository(dbCtx).List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, snippet.SourceExtension, entries[0].Source)
	assert.Equal(t, "mail.google.com", entries[0].TargetDomain)

	err = svc.LogUsage(ctx, created.ID, UsageEvent{Source: "fax"})
	require.ErrorIs(t, err, snippet.ErrInvalid)

	require.NoError(t, svc.IncrementUsage(ctx, "missing"))
}

func countRows(t *testing.T, dbCtx *database.Context, table string) int {
	t.Helper()
	var n int
	require.NoError(t, dbCtx.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSnippetServiceVersionNumbersAsReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)
	next := created.Content
	next.ContentText = "Second"
	_, err = svc.Update(ctx, created.ID, next, "")
	require.NoError(t, err)
	next.ContentText = "Third"
	_, err = svc.Update(ctx, created.ID, next, "")
	require.NoError(t, err)

	v2, err := svc.GetVersion(ctx, created.ID, "2")
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.Equal(t, int64(2), v2.VersionNumber)
	assert.Equal(t, "Second", v2.ContentText)

	for _, ref := range []string{"0", "-1", "9", "two"} {
		missing, err := svc.GetVersion(ctx, created.ID, ref)
		require.NoError(t, err)
		assert.Nil(t, missing, ref)
	}

	patch, err := svc.DiffVersions(ctx, created.ID, "1", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content_text":"Second"}`, string(patch))

	restored, err := svc.RestoreVersion(ctx, created.ID, "1")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "Hi {{n}}{{|}}!", restored.ContentText)

	versions, err := svc.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "restored to version 1", versions[0].ChangeReason)
}

func TestSnippetServiceActivity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)
	for range 2 {
		_, err := svc.Update(ctx, created.ID, created.Content, "")
		require.NoError(t, err)
	}
	require.NoError(t, svc.LogUsage(ctx, created.ID, UsageEvent{Source: snippet.SourceDesktop}))

	activity, err := svc.Activity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, Activity{Versions: 2, LoggedUses: 1}, activity)

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	activity, err = svc.Activity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, Activity{Versions: 0, LoggedUses: 1}, activity)
}

func TestSnippetServiceUpdateRollsBackOnFailedWrite(t *testing.T) {
	svc, dbCtx := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, greeting())
	require.NoError(t, err)

	// Two variables sharing an id fail on the second insert, after the
	// snapshot and the row update have been written.
	next := created.Content
	next.ContentText = "{{a}} {{b}}"
	next.Variables = []snippet.Variable{
		{ID: "shared", Key: "a", Type: snippet.VariableText},
		{ID: "shared", Key: "b", Type: snippet.VariableText},
	}
	updated, err := svc.Update(ctx, created.ID, next, "broken")
	require.Error(t, err)
	assert.Nil(t, updated)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ContentText, got.ContentText)
	require.Len(t, got.Variables, 1)
	assert.Equal(t, created.Variables[0].ID, got.Variables[0].ID)

	assert.Equal(t, 0, countRows(t, dbCtx, "snippet_versions"))
	assert.Equal(t, 0, countRows(t, dbCtx, "snippet_version_variables"))
	assert.Equal(t, 1, countRows(t, dbCtx, "snippet_variables"))
}
