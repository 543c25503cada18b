package database

import (
	"context"
	"database/sql"
	"errors"

	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/snippet"
)

// LoadVersion reads one version of a snippet with its variables. It returns
// (nil, nil) when the version does not belong to the snippet or is absent.
func LoadVersion(ctx context.Context, q *sqldb.Queries, snippetID, versionID string) (*snippet.Version, error) {
	row, err := q.GetSnippetVersion(ctx, sqldb.GetSnippetVersionParams{SnippetID: snippetID, ID: versionID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hydrateVersion(ctx, q, row)
}

func hydrateVersion(ctx context.Context, q *sqldb.Queries, row sqldb.SnippetVersion) (*snippet.Version, error) {
	vars, err := q.ListVersionVariables(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	v, err := VersionFromRow(row, vars)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type VersionRepository struct {
	ctx *Context
}

func NewVersionRepository(dbCtx *Context) *VersionRepository {
	return &VersionRepository{ctx: dbCtx}
}

func (r *VersionRepository) FindByID(ctx context.Context, snippetID, versionID string) (*snippet.Version, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}
	return LoadVersion(ctx, queries, snippetID, versionID)
}

func (r *VersionRepository) FindBySnippetAndNumber(ctx context.Context, snippetID string, number int64) (*snippet.Version, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	row, err := queries.GetSnippetVersionByNumber(ctx, sqldb.GetSnippetVersionByNumberParams{SnippetID: snippetID, VersionNumber: number})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hydrateVersion(ctx, queries, row)
}

// ListBySnippet returns versions most recent first.
func (r *VersionRepository) ListBySnippet(ctx context.Context, snippetID string) ([]snippet.Version, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.ListSnippetVersions(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	result := make([]snippet.Version, 0, len(rows))
	for _, row := range rows {
		v, err := hydrateVersion(ctx, queries, row)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, nil
}

func (r *VersionRepository) CountAll(ctx context.Context) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, ErrMissingContext
	}
	return queries.CountVersions(ctx)
}

func (r *VersionRepository) CountBySnippet(ctx context.Context, snippetID string) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, ErrMissingContext
	}
	return queries.CountVersionsBySnippet(ctx, snippetID)
}
