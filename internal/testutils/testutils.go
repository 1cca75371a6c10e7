package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nfrund/amruno/internal/config"
)

// ConfigForTests returns a validated config backed by a throwaway sqlite file
// and upload directory. Values from .env.test at the project root fill in
// anything not set here; the environment always wins.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "amruno.db"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("PUBLIC_BASE_URL", "http://chat.example")
	t.Setenv("JWT_SECRET", "integration-secret-0123")
	t.Setenv("LOGIN_RATE_LIMIT", "1000")

	cfg, err := config.Load(filepath.Join(projectRoot(t), ".env.test"))
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	return cfg
}

// projectRoot finds the directory holding go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}
}
