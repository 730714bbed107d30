// ABOUTME: Backend kinds for the data gateway and the once-per-process selection rule
// ABOUTME: Resolves the default embedded database path under the per-user app-data directory

package db

import (
	"os"
	"path/filepath"
	"strings"
)

// Backend identifies which storage engine the Gateway talks to.
type Backend string

const (
	// BackendMySQL is the relational-server backend (the default).
	BackendMySQL Backend = "mysql"
	// BackendSQLite is the embedded single-file backend used by the desktop build.
	BackendSQLite Backend = "sqlite"
)

// appDirName is the per-user application directory shared with the desktop shell.
const appDirName = "wedding-horoscope"

// SelectBackend decides the backend from the explicit type flag and the embedded
// file path setting. A SQLite path on its own is enough to pick the embedded backend.
func SelectBackend(kind, sqlitePath string) Backend {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "sqlite", "sqlite3":
		return BackendSQLite
	}
	if strings.TrimSpace(sqlitePath) != "" {
		return BackendSQLite
	}
	return BackendMySQL
}

// AppDataDir returns the per-user application data directory.
// Priority: APPDATA > LOCALAPPDATA > XDG_DATA_HOME > ~/.local/share
func AppDataDir() string {
	for _, env := range []string{"APPDATA", "LOCALAPPDATA", "XDG_DATA_HOME"} {
		if base := os.Getenv(env); base != "" {
			return filepath.Join(base, appDirName)
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return appDirName // fallback, relative to cwd
	}
	return filepath.Join(homeDir, ".local", "share", appDirName)
}

// DefaultSQLitePath returns where the embedded database lives when no explicit
// path is configured.
func DefaultSQLitePath() string {
	return filepath.Join(AppDataDir(), "data", "horoscope.db")
}
