package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"data/auth.db", "data/auth.db"},
		{"file:data/auth.db?_pragma=busy_timeout(5000)", "data/auth.db"},
		{":memory:", ""},
		{"file::memory:?cache=shared", ""},
		{"file:test?mode=memory&cache=shared", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			require.Equal(t, tt.want, SQLitePath(tt.dsn))
		})
	}
}

func TestEnsureParentDir_CreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "var", "lib", "auth.db")

	require.NoError(t, EnsureParentDir(file))

	fi, err := os.Stat(filepath.Dir(file))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "db", "auth.db")

	require.NoError(t, EnsureParentDir(file))
	require.NoError(t, EnsureParentDir(file))
}

func TestEnsureParentDir_BareFileName(t *testing.T) {
	require.NoError(t, EnsureParentDir("auth.db"))
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "db")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o660))

	require.Error(t, EnsureParentDir(filepath.Join(blocker, "auth.db")))
}
