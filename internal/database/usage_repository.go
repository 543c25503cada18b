package database

import (
	"context"

	"github.com/aparetext/aparetext/internal/snippet"
)

// UsageRepository reads the usage log.
type UsageRepository struct {
	ctx *Context
}

func NewUsageRepository(dbCtx *Context) *UsageRepository {
	return &UsageRepository{ctx: dbCtx}
}

// List returns log entries in insertion order. An empty snippetID lists the
// whole log.
func (r *UsageRepository) List(ctx context.Context, snippetID string) ([]snippet.UsageLogEntry, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.ListUsageLogs(ctx, nullString(snippetID))
	if err != nil {
		return nil, err
	}

	result := make([]snippet.UsageLogEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, UsageEntryFromRow(row))
	}
	return result, nil
}

// TopSnippet is a snippet ranked by its number of log entries.
type TopSnippet struct {
	ID           string
	Name         string
	Abbreviation string
	Category     string
	Uses         int64
}

// Top ranks existing snippets by log count, most used first. Log rows of
// deleted snippets are not ranked.
func (r *UsageRepository) Top(ctx context.Context, limit int) ([]TopSnippet, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.TopSnippetsByUsage(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]TopSnippet, 0, len(rows))
	for _, row := range rows {
		result = append(result, TopSnippet{
			ID:           row.ID,
			Name:         row.Name,
			Abbreviation: optionalString(row.Abbreviation),
			Category:     optionalString(row.Category),
			Uses:         row.Uses,
		})
	}
	return result, nil
}

func (r *UsageRepository) CountBySnippet(ctx context.Context, snippetID string) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, ErrMissingContext
	}
	return queries.CountUsageLogsBySnippet(ctx, snippetID)
}
