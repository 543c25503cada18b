package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aparetext/aparetext/internal/config"
)

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("APARETEXT_DIR", tmp)

	ctx, err := CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}

	t.Cleanup(func() {
		if err := CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

func TestDatabaseCreationAndMigration(t *testing.T) {
	ctx := setupTestDB(t)

	dbPath := filepath.Join(config.GetDataDir(), "aparetext.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to exist at %s: %v", dbPath, err)
	}
	if ctx.Path != dbPath {
		t.Fatalf("expected context path %s, got %s", dbPath, ctx.Path)
	}

	tables := []string{"snippets", "snippet_variables", "snippet_versions", "snippet_version_variables", "usage_log", "settings"}
	for _, table := range tables {
		if !tableExists(t, ctx.DB, table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	if err := CheckIntegrity(context.Background(), ctx); err != nil {
		t.Fatalf("CheckIntegrity returned error: %v", err)
	}
}

func TestCreateDatabaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	first, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("first CreateDatabase failed: %v", err)
	}
	if _, err := first.DB.Exec(`UPDATE settings SET value = 'light' WHERE key = 'theme'`); err != nil {
		t.Fatalf("update setting failed: %v", err)
	}
	if err := CloseDatabase(first); err != nil {
		t.Fatalf("CloseDatabase failed: %v", err)
	}

	second, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("second CreateDatabase failed: %v", err)
	}
	defer CloseDatabase(second)

	settings, err := NewSettingsRepository(second).All(context.Background())
	if err != nil {
		t.Fatalf("All settings failed: %v", err)
	}
	if settings["theme"] != "light" {
		t.Fatalf("expected seeded value to be kept, got %q", settings["theme"])
	}
	if len(settings) != len(DefaultSettings) {
		t.Fatalf("expected %d settings, got %d", len(DefaultSettings), len(settings))
	}
}

func TestInMemoryDatabase(t *testing.T) {
	ctx, err := CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase(:memory:) failed: %v", err)
	}
	defer CloseDatabase(ctx)

	assertCount(t, ctx.DB, "settings", len(DefaultSettings))
}

func TestClearDatabaseRemovesAllRows(t *testing.T) {
	ctx := setupTestDB(t)

	insertSnippet(t, ctx.DB, "s1", "Greeting", ";hi")
	insertVariable(t, ctx.DB, "v1", "s1", "name")
	insertVersion(t, ctx.DB, "ver1", "s1", 1)
	insertUsage(t, ctx.DB, "s1")

	assertCount(t, ctx.DB, "snippets", 1)
	assertCount(t, ctx.DB, "snippet_variables", 1)
	assertCount(t, ctx.DB, "snippet_versions", 1)
	assertCount(t, ctx.DB, "usage_log", 1)

	if err := ClearDatabase(ctx); err != nil {
		t.Fatalf("ClearDatabase returned error: %v", err)
	}

	assertCount(t, ctx.DB, "snippets", 0)
	assertCount(t, ctx.DB, "snippet_variables", 0)
	assertCount(t, ctx.DB, "snippet_versions", 0)
	assertCount(t, ctx.DB, "usage_log", 0)
	assertCount(t, ctx.DB, "settings", len(DefaultSettings))
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("tableExists query failed for %s: %v", table, err)
	}
	return true
}

func insertSnippet(t *testing.T, db *sql.DB, id, name, abbreviation string) {
	t.Helper()
	now := time.Now().UTC()
	if _, err := db.Exec(`INSERT INTO snippets(id, name, abbreviation, content_text, created_at, updated_at) VALUES(?, ?, ?, 'text', ?, ?)`, id, name, abbreviation, now, now); err != nil {
		t.Fatalf("insertSnippet failed: %v", err)
	}
}

func insertVariable(t *testing.T, db *sql.DB, id, snippetID, key string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO snippet_variables(id, snippet_id, key) VALUES(?, ?, ?)`, id, snippetID, key); err != nil {
		t.Fatalf("insertVariable failed: %v", err)
	}
}

func insertVersion(t *testing.T, db *sql.DB, id, snippetID string, number int) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO snippet_versions(id, snippet_id, version_number, name, created_at) VALUES(?, ?, ?, 'old', ?)`, id, snippetID, number, time.Now().UTC()); err != nil {
		t.Fatalf("insertVersion failed: %v", err)
	}
}

func insertUsage(t *testing.T, db *sql.DB, snippetID string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO usage_log(snippet_id, timestamp, source) VALUES(?, ?, 'desktop')`, snippetID, time.Now().UTC()); err != nil {
		t.Fatalf("insertUsage failed: %v", err)
	}
}

func assertCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("count query failed for %s: %v", table, err)
	}
	if count != expected {
		t.Fatalf("expected %s to have %d rows, got %d", table, expected, count)
	}
}
