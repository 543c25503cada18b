package sqldb

import (
	"context"
	"database/sql"
)

const listSettings = `SELECT key, value FROM settings ORDER BY key`

func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.QueryContext(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Setting
	for rows.Next() {
		var i Setting
		if err := rows.Scan(&i.Key, &i.Value); err != nil {
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

type UpsertSettingParams struct {
	Key   string
	Value sql.NullString
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, arg.Key, arg.Value)
	return err
}

const insertSettingIfMissing = `INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`

func (q *Queries) InsertSettingIfMissing(ctx context.Context, arg UpsertSettingParams) error {
	_, err := q.db.ExecContext(ctx, insertSettingIfMissing, arg.Key, arg.Value)
	return err
}

const deleteAllSettings = `DELETE FROM settings`

func (q *Queries) DeleteAllSettings(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllSettings)
	return err
}
