package sqldb

import (
	"context"
	"database/sql"
	"time"
)

type InsertUsageLogParams struct {
	SnippetID    string
	Timestamp    time.Time
	Source       sql.NullString
	TargetApp    sql.NullString
	TargetDomain sql.NullString
}

const insertUsageLog = `INSERT INTO usage_log (snippet_id, timestamp, source, target_app, target_domain)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertUsageLog(ctx context.Context, arg InsertUsageLogParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertUsageLog,
		arg.SnippetID,
		arg.Timestamp,
		arg.Source,
		arg.TargetApp,
		arg.TargetDomain,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listUsageLogs = `SELECT id, snippet_id, timestamp, source, target_app, target_domain
FROM usage_log
WHERE (?1 IS NULL OR snippet_id = ?1)
ORDER BY id`

// ListUsageLogs returns log rows in insertion order, restricted to one
// snippet when snippetID is valid.
func (q *Queries) ListUsageLogs(ctx context.Context, snippetID sql.NullString) ([]UsageLog, error) {
	rows, err := q.db.QueryContext(ctx, listUsageLogs, snippetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UsageLog
	for rows.Next() {
		var i UsageLog
		if err := rows.Scan(
			&i.ID,
			&i.SnippetID,
			&i.Timestamp,
			&i.Source,
			&i.TargetApp,
			&i.TargetDomain,
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

const topSnippetsByUsage = `SELECT s.id, s.name, s.abbreviation, s.category, COUNT(u.id) AS uses
FROM usage_log u
JOIN snippets s ON s.id = u.snippet_id
GROUP BY s.id
ORDER BY uses DESC, MIN(u.id)
LIMIT ?`

type TopSnippetsByUsageRow struct {
	ID           string
	Name         string
	Abbreviation sql.NullString
	Category     sql.NullString
	Uses         int64
}

func (q *Queries) TopSnippetsByUsage(ctx context.Context, limit int64) ([]TopSnippetsByUsageRow, error) {
	rows, err := q.db.QueryContext(ctx, topSnippetsByUsage, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopSnippetsByUsageRow
	for rows.Next() {
		var i TopSnippetsByUsageRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Abbreviation,
			&i.Category,
			&i.Uses,
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

const countUsageLogsBySnippet = `SELECT COUNT(*) FROM usage_log WHERE snippet_id = ?`

func (q *Queries) CountUsageLogsBySnippet(ctx context.Context, snippetID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsageLogsBySnippet, snippetID).Scan(&count)
	return count, err
}
