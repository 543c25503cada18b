// Package config resolves storage locations and loads runtime configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "aparetext"

// GetDataDir resolves the base directory for all storage. It checks
// APARETEXT_DIR first, then XDG paths, and finally falls back to the
// user's home directory.
func GetDataDir() string {
	if explicit := os.Getenv("APARETEXT_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// GetDBPath returns the absolute path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), appName+".db")
}

// GetBackupDir returns the directory that stores database backups.
func GetBackupDir() string {
	return filepath.Join(GetDataDir(), "backups")
}

// GetConfigFile returns the default location of the optional config file.
func GetConfigFile() string {
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}
