// Package backup writes checksummed copies of the snippet database and
// restores them.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aparetext/aparetext/internal/config"
	"github.com/aparetext/aparetext/internal/database"
	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
)

const (
	filePrefix     = "aparetext-"
	fileExt        = ".db"
	checksumExt    = ".sha256"
	timestampLayout = "20060102-150405"
)

// ErrChecksumMismatch is returned when a backup no longer matches its
// recorded checksum.
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// Info describes one backup file.
type Info struct {
	Path      string    `json:"path"`
	Hash      string    `json:"sha256"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultPath returns the backup file name used for a backup taken at now.
func DefaultPath(now time.Time) string {
	return filepath.Join(config.GetBackupDir(), filePrefix+now.UTC().Format(timestampLayout)+fileExt)
}

// Create writes a consistent copy of the open database to dest and records
// its SHA-256 next to it. An empty dest uses DefaultPath. dest must not exist.
func Create(ctx context.Context, dbCtx *database.Context, dest string) (*Info, error) {
	if dbCtx == nil || dbCtx.DB == nil {
		return nil, fmt.Errorf("backup: missing database context")
	}
	now := time.Now()
	if dest == "" {
		dest = DefaultPath(now)
	}
	if FileExists(dest) {
		return nil, fmt.Errorf("backup: %s already exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return nil, err
	}

	if err := sqldb.New(dbCtx.DB).VacuumInto(ctx, dest); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	hash, err := hashFile(dest)
	if err != nil {
		return nil, err
	}
	line := hash + "  " + filepath.Base(dest) + "\n"
	if err := os.WriteFile(dest+checksumExt, []byte(line), 0o600); err != nil {
		return nil, err
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	return &Info{Path: dest, Hash: hash, Size: stat.Size(), CreatedAt: now.UTC()}, nil
}

// Verify reports whether path matches its recorded checksum. A backup
// without a checksum file cannot be verified and reports false.
func Verify(path string) (bool, error) {
	if !FileExists(path) {
		return false, nil
	}
	expected, err := readChecksum(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	actual, err := hashFile(path)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// Restore replaces the database at dbPath with the backup after checking
// its checksum, then opens the restored database and checks its integrity.
// The database at dbPath must be closed by the caller beforehand.
func Restore(ctx context.Context, backupPath, dbPath string) (*database.Context, error) {
	if !FileExists(backupPath) {
		return nil, fmt.Errorf("backup file not found: %s", backupPath)
	}
	if _, err := readChecksum(backupPath); err == nil {
		ok, err := Verify(backupPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, backupPath)
		}
	}

	if err := copyFile(backupPath, dbPath); err != nil {
		return nil, fmt.Errorf("failed to restore backup: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := DeleteFile(dbPath + suffix); err != nil {
			return nil, err
		}
	}

	dbCtx, err := database.CreateDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	if err := database.CheckIntegrity(ctx, dbCtx); err != nil {
		_ = database.CloseDatabase(dbCtx)
		return nil, err
	}
	return dbCtx, nil
}

// List returns the backups in dir, newest first. An empty dir uses the
// default backup directory.
func List(dir string) ([]Info, error) {
	if dir == "" {
		dir = config.GetBackupDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		hash, _ := readChecksum(path)
		result = append(result, Info{Path: path, Hash: hash, Size: stat.Size(), CreatedAt: stat.ModTime().UTC()})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Prune keeps the newest keep backups in dir and removes the rest with their
// checksum files. It returns the number of removed backups.
func Prune(dir string, keep int) (int, error) {
	backups, err := List(dir)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	count := 0
	for i := keep; i < len(backups); i++ {
		if err := DeleteFile(backups[i].Path); err != nil {
			return count, err
		}
		if err := DeleteFile(backups[i].Path + checksumExt); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// FileExists reports whether the given path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DeleteFile removes a file if it exists.
func DeleteFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}

func readChecksum(path string) (string, error) {
	//nolint:gosec // G304: checksum path derives from the backup path chosen by the user
	data, err := os.ReadFile(path + checksumExt)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file for %s", path)
	}
	return fields[0], nil
}

func hashFile(path string) (string, error) {
	//nolint:gosec // G304: path is a backup file chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile writes src to a temporary file beside dst and renames it into
// place.
func copyFile(src, dst string) error {
	//nolint:gosec // G304: path is a backup file chosen by the user
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
