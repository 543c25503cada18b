package sqldb

import "context"

const versionColumns = `id, snippet_id, version_number, name, abbreviation, snippet_type, tags, category,
       content_text, content_html, is_rich, image_data, thumbnail, scope_type, scope_values,
       caret_marker, enabled, change_reason, created_at`

func scanVersion(row interface{ Scan(...any) error }) (SnippetVersion, error) {
	var i SnippetVersion
	err := row.Scan(
		&i.ID,
		&i.SnippetID,
		&i.VersionNumber,
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
		&i.Enabled,
		&i.ChangeReason,
		&i.CreatedAt,
	)
	return i, err
}

const maxVersionForSnippet = `SELECT COALESCE(MAX(version_number), 0) FROM snippet_versions WHERE snippet_id = ?`

func (q *Queries) MaxVersionForSnippet(ctx context.Context, snippetID string) (int64, error) {
	var maxVersion int64
	err := q.db.QueryRowContext(ctx, maxVersionForSnippet, snippetID).Scan(&maxVersion)
	return maxVersion, err
}

const insertSnippetVersion = `INSERT INTO snippet_versions (
    id, snippet_id, version_number, name, abbreviation, snippet_type, tags, category,
    content_text, content_html, is_rich, image_data, thumbnail, scope_type, scope_values,
    caret_marker, enabled, change_reason, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnippetVersion(ctx context.Context, arg SnippetVersion) error {
	_, err := q.db.ExecContext(ctx, insertSnippetVersion,
		arg.ID,
		arg.SnippetID,
		arg.VersionNumber,
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
		arg.ChangeReason,
		arg.CreatedAt,
	)
	return err
}

const listSnippetVersions = `SELECT ` + versionColumns + ` FROM snippet_versions
WHERE snippet_id = ?
ORDER BY version_number DESC`

func (q *Queries) ListSnippetVersions(ctx context.Context, snippetID string) ([]SnippetVersion, error) {
	rows, err := q.db.QueryContext(ctx, listSnippetVersions, snippetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnippetVersion
	for rows.Next() {
		i, err := scanVersion(rows)
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

type GetSnippetVersionParams struct {
	SnippetID string
	ID        string
}

const getSnippetVersion = `SELECT ` + versionColumns + ` FROM snippet_versions
WHERE snippet_id = ? AND id = ?`

func (q *Queries) GetSnippetVersion(ctx context.Context, arg GetSnippetVersionParams) (SnippetVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx, getSnippetVersion, arg.SnippetID, arg.ID))
}

type GetSnippetVersionByNumberParams struct {
	SnippetID     string
	VersionNumber int64
}

const getSnippetVersionByNumber = `SELECT ` + versionColumns + ` FROM snippet_versions
WHERE snippet_id = ? AND version_number = ?`

func (q *Queries) GetSnippetVersionByNumber(ctx context.Context, arg GetSnippetVersionByNumberParams) (SnippetVersion, error) {
	return scanVersion(q.db.QueryRowContext(ctx, getSnippetVersionByNumber, arg.SnippetID, arg.VersionNumber))
}

const insertVersionVariable = `INSERT INTO snippet_version_variables (
    id, version_id, position, key, label, type, placeholder, default_value, required, regex, options
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertVersionVariable(ctx context.Context, arg SnippetVersionVariable) error {
	_, err := q.db.ExecContext(ctx, insertVersionVariable,
		arg.ID,
		arg.VersionID,
		arg.Position,
		arg.Key,
		arg.Label,
		arg.Type,
		arg.Placeholder,
		arg.DefaultValue,
		arg.Required,
		arg.Regex,
		arg.Options,
	)
	return err
}

const listVersionVariables = `SELECT id, version_id, position, key, label, type, placeholder, default_value, required, regex, options
FROM snippet_version_variables
WHERE version_id = ?
ORDER BY position, rowid`

func (q *Queries) ListVersionVariables(ctx context.Context, versionID string) ([]SnippetVersionVariable, error) {
	rows, err := q.db.QueryContext(ctx, listVersionVariables, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnippetVersionVariable
	for rows.Next() {
		var i SnippetVersionVariable
		if err := rows.Scan(
			&i.ID,
			&i.VersionID,
			&i.Position,
			&i.Key,
			&i.Label,
			&i.Type,
			&i.Placeholder,
			&i.DefaultValue,
			&i.Required,
			&i.Regex,
			&i.Options,
		); err != nil {
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

const deleteVersionVariablesBySnippet = `DELETE FROM snippet_version_variables
WHERE version_id IN (SELECT id FROM snippet_versions WHERE snippet_id = ?)`

func (q *Queries) DeleteVersionVariablesBySnippet(ctx context.Context, snippetID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteVersionVariablesBySnippet, snippetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteVersionsBySnippet = `DELETE FROM snippet_versions WHERE snippet_id = ?`

func (q *Queries) DeleteVersionsBySnippet(ctx context.Context, snippetID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteVersionsBySnippet, snippetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countVersions = `SELECT COUNT(*) FROM snippet_versions`

func (q *Queries) CountVersions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countVersions).Scan(&count)
	return count, err
}

const countVersionsBySnippet = `SELECT COUNT(*) FROM snippet_versions WHERE snippet_id = ?`

func (q *Queries) CountVersionsBySnippet(ctx context.Context, snippetID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countVersionsBySnippet, snippetID).Scan(&count)
	return count, err
}
