package sqldb

import "context"

const insertSnippetVariable = `INSERT INTO snippet_variables (
    id, snippet_id, position, key, label, type, placeholder, default_value, required, regex, options
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnippetVariable(ctx context.Context, arg SnippetVariable) error {
	_, err := q.db.ExecContext(ctx, insertSnippetVariable,
		arg.ID,
		arg.SnippetID,
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

const listSnippetVariables = `SELECT id, snippet_id, position, key, label, type, placeholder, default_value, required, regex, options
FROM snippet_variables
WHERE snippet_id = ?
ORDER BY position, rowid`

func (q *Queries) ListSnippetVariables(ctx context.Context, snippetID string) ([]SnippetVariable, error) {
	rows, err := q.db.QueryContext(ctx, listSnippetVariables, snippetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnippetVariable
	for rows.Next() {
		var i SnippetVariable
		if err := rows.Scan(
			&i.ID,
			&i.SnippetID,
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

const deleteSnippetVariables = `DELETE FROM snippet_variables WHERE snippet_id = ?`

func (q *Queries) DeleteSnippetVariables(ctx context.Context, snippetID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSnippetVariables, snippetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
