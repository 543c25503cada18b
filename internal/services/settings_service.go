package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/aparetext/aparetext/internal/database"
	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
)

// SettingsService reads and replaces user preferences.
type SettingsService struct {
	ctx *database.Context
}

func NewSettingsService(ctx *database.Context) *SettingsService {
	return &SettingsService{ctx: ctx}
}

// Get returns every stored preference.
func (s *SettingsService) Get(ctx context.Context) (map[string]string, error) {
	return database.NewSettingsRepository(s.ctx).All(ctx)
}

// Replace swaps the whole settings table for values.
func (s *SettingsService) Replace(ctx context.Context, values map[string]string) error {
	if s.ctx == nil || s.ctx.DB == nil {
		return fmt.Errorf("settings service: missing database context")
	}

	tx, err := s.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := sqldb.New(tx)

	if err := q.DeleteAllSettings(ctx); err != nil {
		_ = tx.Rollback()
		return err
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := q.UpsertSetting(ctx, sqldb.UpsertSettingParams{Key: key, Value: optionalParam(values[key])}); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to store setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Set changes one preference, keeping the others.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	current, err := s.Get(ctx)
	if err != nil {
		return err
	}
	current[key] = value
	return s.Replace(ctx, current)
}
