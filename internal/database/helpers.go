package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
)

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func optionalString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func boolToInt64(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

// utc normalises timestamps before they are written so text ordering in
// SQLite matches time ordering.
func utc(t time.Time) time.Time {
	return t.UTC()
}

// encodeList stores a string list as a JSON array, or NULL when empty.
func encodeList(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeList(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(ns.String), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list %q: %w", ns.String, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func queriesFromContext(ctx *Context) *sqldb.Queries {
	if ctx == nil {
		return nil
	}
	if ctx.Queries != nil {
		return ctx.Queries
	}
	if ctx.DB == nil {
		return nil
	}
	return sqldb.New(ctx.DB)
}
