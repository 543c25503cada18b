package database

import (
	"context"
	"database/sql"
	"errors"

	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/snippet"
)

// LoadSnippet reads a snippet and its variables through q. It returns
// (nil, nil) when the id does not exist.
func LoadSnippet(ctx context.Context, q *sqldb.Queries, id string) (*snippet.Snippet, error) {
	row, err := q.GetSnippet(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hydrateSnippet(ctx, q, row)
}

// LoadSnippets hydrates rows with their variables, keeping row order.
func LoadSnippets(ctx context.Context, q *sqldb.Queries, rows []sqldb.Snippet) ([]snippet.Snippet, error) {
	result := make([]snippet.Snippet, 0, len(rows))
	for _, row := range rows {
		s, err := hydrateSnippet(ctx, q, row)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, nil
}

func hydrateSnippet(ctx context.Context, q *sqldb.Queries, row sqldb.Snippet) (*snippet.Snippet, error) {
	vars, err := q.ListSnippetVariables(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	s, err := SnippetFromRow(row, vars)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SnippetRepository provides read access to snippets outside a transaction.
type SnippetRepository struct {
	ctx *Context
}

func NewSnippetRepository(dbCtx *Context) *SnippetRepository {
	return &SnippetRepository{ctx: dbCtx}
}

func (r *SnippetRepository) FindByID(ctx context.Context, id string) (*snippet.Snippet, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}
	return LoadSnippet(ctx, queries, id)
}

// FindByAbbreviation returns the enabled snippet with the exact abbreviation.
func (r *SnippetRepository) FindByAbbreviation(ctx context.Context, abbreviation string) (*snippet.Snippet, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	row, err := queries.GetEnabledSnippetByAbbreviation(ctx, abbreviation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hydrateSnippet(ctx, queries, row)
}

func (r *SnippetRepository) List(ctx context.Context, enabledOnly bool) ([]snippet.Snippet, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.ListSnippets(ctx, enabledOnly)
	if err != nil {
		return nil, err
	}
	return LoadSnippets(ctx, queries, rows)
}

// ListFiltered lists snippets, optionally restricted to one scope type.
func (r *SnippetRepository) ListFiltered(ctx context.Context, enabledOnly bool, scopeType string) ([]snippet.Snippet, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.ListSnippetsFiltered(ctx, sqldb.ListSnippetsFilteredParams{
		EnabledOnly: enabledOnly,
		ScopeType:   nullString(scopeType),
	})
	if err != nil {
		return nil, err
	}
	return LoadSnippets(ctx, queries, rows)
}

// Counts returns the total and enabled snippet counts.
func (r *SnippetRepository) Counts(ctx context.Context) (total, enabled int64, err error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, 0, ErrMissingContext
	}

	row, err := queries.CountSnippets(ctx)
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Enabled, nil
}

// CategoryCount is the number of snippets sharing a category. An empty
// Category means the snippet has none.
type CategoryCount struct {
	Category string
	Count    int64
}

func (r *SnippetRepository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.CountSnippetsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]CategoryCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, CategoryCount{Category: row.Category, Count: row.Count})
	}
	return result, nil
}
