package database

import (
	"context"
	"fmt"

	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
)

// DefaultSettings are written on first initialisation.
var DefaultSettings = map[string]string{
	"global_hotkey":        "ctrl+space",
	"abbreviation_trigger": "tab",
	"insertion_method":     "auto",
	"restore_clipboard":    "true",
	"typing_speed":         "50",
	"theme":                "dark",
	"language":             "es",
	"fuzzy_search":         "true",
	"auto_start":           "false",
	"show_notifications":   "true",
	"log_usage":            "false",
	"backup_enabled":       "false",
	"backup_frequency":     "7",
}

// SeedDefaultSettings inserts every default key that is not present yet.
// Existing values are never overwritten.
func SeedDefaultSettings(ctx context.Context, q *sqldb.Queries) error {
	for key, value := range DefaultSettings {
		if err := q.InsertSettingIfMissing(ctx, sqldb.UpsertSettingParams{Key: key, Value: nullString(value)}); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}

// SettingsRepository reads the settings table.
type SettingsRepository struct {
	ctx *Context
}

func NewSettingsRepository(dbCtx *Context) *SettingsRepository {
	return &SettingsRepository{ctx: dbCtx}
}

// All returns every setting. NULL values map to empty strings.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, ErrMissingContext
	}

	rows, err := queries.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.Key] = optionalString(row.Value)
	}
	return result, nil
}
