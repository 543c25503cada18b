package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aparetext/aparetext/internal/database"
)

func setupEnv(t *testing.T) (string, *database.Context) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("APARETEXT_DIR", tmp)

	dbCtx, err := database.CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })
	return tmp, dbCtx
}

func TestCreateAndVerify(t *testing.T) {
	tmp, dbCtx := setupEnv(t)
	ctx := context.Background()

	info, err := Create(ctx, dbCtx, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if filepath.Dir(info.Path) != filepath.Join(tmp, "backups") {
		t.Fatalf("expected backup under the backups dir, got %s", info.Path)
	}
	if len(info.Hash) != 64 || info.Size == 0 {
		t.Fatalf("unexpected backup info: %#v", info)
	}

	ok, err := Verify(info.Path)
	if err != nil || !ok {
		t.Fatalf("Verify expected true, got %v (%v)", ok, err)
	}

	if _, err := Create(ctx, dbCtx, info.Path); err == nil {
		t.Fatalf("expected error when the destination exists")
	}

	if err := os.WriteFile(info.Path, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	ok, err = Verify(info.Path)
	if err != nil || ok {
		t.Fatalf("Verify expected false after tampering, got %v (%v)", ok, err)
	}
}

func TestRestoreReplacesDatabase(t *testing.T) {
	tmp, dbCtx := setupEnv(t)
	ctx := context.Background()

	if _, err := dbCtx.DB.Exec(`UPDATE settings SET value = 'light' WHERE key = 'theme'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	dest := filepath.Join(tmp, "manual", "copy.db")
	if _, err := Create(ctx, dbCtx, dest); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := dbCtx.DB.Exec(`UPDATE settings SET value = 'dark' WHERE key = 'theme'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	dbPath := dbCtx.Path
	if err := database.CloseDatabase(dbCtx); err != nil {
		t.Fatalf("CloseDatabase error: %v", err)
	}

	restored, err := Restore(ctx, dest, dbPath)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	defer database.CloseDatabase(restored)

	settings, err := database.NewSettingsRepository(restored).All(ctx)
	if err != nil {
		t.Fatalf("All settings failed: %v", err)
	}
	if settings["theme"] != "light" {
		t.Fatalf("expected restored theme light, got %q", settings["theme"])
	}
}

func TestRestoreRejectsTamperedBackup(t *testing.T) {
	tmp, dbCtx := setupEnv(t)
	ctx := context.Background()

	dest := filepath.Join(tmp, "copy.db")
	if _, err := Create(ctx, dbCtx, dest); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := os.WriteFile(dest+".sha256", []byte("deadbeef  copy.db\n"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	_, err := Restore(ctx, dest, filepath.Join(tmp, "other.db"))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestListAndPrune(t *testing.T) {
	tmp, dbCtx := setupEnv(t)
	ctx := context.Background()
	dir := filepath.Join(tmp, "set")

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.db", "b.db", "c.db"} {
		path := filepath.Join(dir, name)
		if _, err := Create(ctx, dbCtx, path); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		stamp := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("Chtimes error: %v", err)
		}
	}

	backups, err := List(dir)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(backups) != 3 || filepath.Base(backups[0].Path) != "c.db" {
		t.Fatalf("expected newest first, got %#v", backups)
	}

	removed, err := Prune(dir, 1)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d (%v)", removed, err)
	}
	if FileExists(filepath.Join(dir, "a.db.sha256")) {
		t.Fatalf("expected checksum file to be removed")
	}

	missing, err := List(filepath.Join(tmp, "nowhere"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing dir, got %#v (%v)", missing, err)
	}
}
