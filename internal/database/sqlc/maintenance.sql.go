package sqldb

import "context"

const deleteAllVersionVariables = `DELETE FROM snippet_version_variables`

func (q *Queries) DeleteAllVersionVariables(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllVersionVariables)
	return err
}

const deleteAllVersions = `DELETE FROM snippet_versions`

func (q *Queries) DeleteAllVersions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllVersions)
	return err
}

const deleteAllVariables = `DELETE FROM snippet_variables`

func (q *Queries) DeleteAllVariables(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllVariables)
	return err
}

const deleteAllSnippets = `DELETE FROM snippets`

func (q *Queries) DeleteAllSnippets(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllSnippets)
	return err
}

const deleteAllUsageLogs = `DELETE FROM usage_log`

func (q *Queries) DeleteAllUsageLogs(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllUsageLogs)
	return err
}

const integrityCheck = `PRAGMA integrity_check`

// IntegrityCheck returns the first line reported by SQLite, "ok" when healthy.
func (q *Queries) IntegrityCheck(ctx context.Context) (string, error) {
	var result string
	err := q.db.QueryRowContext(ctx, integrityCheck).Scan(&result)
	return result, err
}

const vacuumInto = `VACUUM INTO ?`

// VacuumInto writes a consistent copy of the database to path.
func (q *Queries) VacuumInto(ctx context.Context, path string) error {
	_, err := q.db.ExecContext(ctx, vacuumInto, path)
	return err
}
