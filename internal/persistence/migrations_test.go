package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestMigrationFilesAreSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_late.sql", "002_sessions.sql", "001_init.sql", "README.md"} {
		gt.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600)).Required()
	}
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700)).Required()

	files, err := migrationFiles(dir)
	gt.NoError(t, err).Required()
	gt.Value(t, files).Equal([]string{"001_init.sql", "002_sessions.sql", "010_late.sql"})
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := migrationFiles(filepath.Join(t.TempDir(), "absent"))
	gt.Error(t, err)
}
