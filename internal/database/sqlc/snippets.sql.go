package sqldb

import (
	"context"
	"database/sql"
)

const snippetColumns = `id, name, abbreviation, snippet_type, tags, category, content_text, content_html,
       is_rich, image_data, thumbnail, scope_type, scope_values, caret_marker, usage_count, enabled,
       created_at, updated_at`

func scanSnippet(row interface{ Scan(...any) error }) (Snippet, error) {
	var i Snippet
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Abbreviation,
		&i.SnippetType,
		&i.Tags,
		&i.Category,
		&i.ContentText,
		&i.ContentHtml,
		&i.IsRich,
		&i.ImageData,
		&i.Thumbnail,
		&i.ScopeType,
		&i.ScopeValues,
		&i.CaretMarker,
		&i.UsageCount,
		&i.Enabled,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) querySnippets(ctx context.Context, query string, args ...any) ([]Snippet, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Snippet
	for rows.Next() {
		i, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertSnippet = `INSERT INTO snippets (
    id, name, abbreviation, snippet_type, tags, category, content_text, content_html,
    is_rich, image_data, thumbnail, scope_type, scope_values, caret_marker, usage_count, enabled,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnippet(ctx context.Context, arg Snippet) error {
	_, err := q.db.ExecContext(ctx, insertSnippet,
		arg.ID,
		arg.Name,
		arg.Abbreviation,
		arg.SnippetType,
		arg.Tags,
		arg.Category,
		arg.ContentText,
		arg.ContentHtml,
		arg.IsRich,
		arg.ImageData,
		arg.Thumbnail,
		arg.ScopeType,
		arg.ScopeValues,
		arg.CaretMarker,
		arg.UsageCount,
		arg.Enabled,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getSnippet = `SELECT ` + snippetColumns + ` FROM snippets WHERE id = ?`

func (q *Queries) GetSnippet(ctx context.Context, id string) (Snippet, error) {
	return scanSnippet(q.db.QueryRowContext(ctx, getSnippet, id))
}

const getEnabledSnippetByAbbreviation = `SELECT ` + snippetColumns + ` FROM snippets
WHERE abbreviation = ? AND enabled = 1
ORDER BY rowid
LIMIT 1`

func (q *Queries) GetEnabledSnippetByAbbreviation(ctx context.Context, abbreviation string) (Snippet, error) {
	return scanSnippet(q.db.QueryRowContext(ctx, getEnabledSnippetByAbbreviation, abbreviation))
}

const listSnippets = `SELECT ` + snippetColumns + ` FROM snippets
WHERE (?1 = 0 OR enabled = 1)
ORDER BY rowid`

func (q *Queries) ListSnippets(ctx context.Context, enabledOnly bool) ([]Snippet, error) {
	return q.querySnippets(ctx, listSnippets, enabledOnly)
}

type ListSnippetsFilteredParams struct {
	EnabledOnly bool
	ScopeType   sql.NullString
}

const listSnippetsFiltered = `SELECT ` + snippetColumns + ` FROM snippets
WHERE (?1 = 0 OR enabled = 1)
  AND (?2 IS NULL OR scope_type = ?2)
ORDER BY rowid`

func (q *Queries) ListSnippetsFiltered(ctx context.Context, arg ListSnippetsFilteredParams) ([]Snippet, error) {
	return q.querySnippets(ctx, listSnippetsFiltered, arg.EnabledOnly, arg.ScopeType)
}

const listSnippetIDsByAbbreviation = `SELECT id FROM snippets WHERE abbreviation = ?`

func (q *Queries) ListSnippetIDsByAbbreviation(ctx context.Context, abbreviation string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSnippetIDsByAbbreviation, abbreviation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const snippetExists = `SELECT EXISTS(SELECT 1 FROM snippets WHERE id = ?)`

func (q *Queries) SnippetExists(ctx context.Context, id string) (bool, error) {
	var exists int64
	err := q.db.QueryRowContext(ctx, snippetExists, id).Scan(&exists)
	return exists != 0, err
}

const updateSnippet = `UPDATE snippets SET
    name = ?, abbreviation = ?, snippet_type = ?, tags = ?, category = ?, content_text = ?,
    content_html = ?, is_rich = ?, image_data = ?, thumbnail = ?, scope_type = ?, scope_values = ?,
    caret_marker = ?, enabled = ?, updated_at = ?
WHERE id = ?`

// UpdateSnippet overwrites the mutable columns. usage_count and created_at are kept.
func (q *Queries) UpdateSnippet(ctx context.Context, arg Snippet) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSnippet,
		arg.Name,
		arg.Abbreviation,
		arg.SnippetType,
		arg.Tags,
		arg.Category,
		arg.ContentText,
		arg.ContentHtml,
		arg.IsRich,
		arg.ImageData,
		arg.Thumbnail,
		arg.ScopeType,
		arg.ScopeValues,
		arg.CaretMarker,
		arg.Enabled,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSnippet = `DELETE FROM snippets WHERE id = ?`

func (q *Queries) DeleteSnippet(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSnippet, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementUsage = `UPDATE snippets SET usage_count = usage_count + 1 WHERE id = ?`

func (q *Queries) IncrementUsage(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementUsage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countSnippets = `SELECT COUNT(*), COALESCE(SUM(enabled), 0) FROM snippets`

type CountSnippetsRow struct {
	Total   int64
	Enabled int64
}

func (q *Queries) CountSnippets(ctx context.Context) (CountSnippetsRow, error) {
	var i CountSnippetsRow
	err := q.db.QueryRowContext(ctx, countSnippets).Scan(&i.Total, &i.Enabled)
	return i, err
}

const countSnippetsByCategory = `SELECT COALESCE(category, ''), COUNT(*) FROM snippets
GROUP BY category
ORDER BY MIN(rowid)`

type CountSnippetsByCategoryRow struct {
	Category string
	Count    int64
}

func (q *Queries) CountSnippetsByCategory(ctx context.Context) ([]CountSnippetsByCategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, countSnippetsByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountSnippetsByCategoryRow
	for rows.Next() {
		var i CountSnippetsByCategoryRow
		if err := rows.Scan(&i.Category, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
