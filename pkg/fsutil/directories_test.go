package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "newdir")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "parent", "child", "nested")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			path := testCase.setup(t)

			require.NoError(t, EnsureDir(path))
			assert.DirExists(t, path)

			if runtime.GOOS != "windows" {
				info, err := os.Stat(path)
				require.NoError(t, err)
				// umask may only remove bits
				assert.Zero(t, info.Mode().Perm()&^os.FileMode(DirModeDefault))
			}
		})
	}
}

func TestEnsureDir_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, EnsureDir(dir))
	assert.NoError(t, EnsureDir(dir))
}

func TestEnsureFileDir(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "nested", "parent", "file.txt")
	require.NoError(t, EnsureFileDir(filePath))
	assert.DirExists(t, filepath.Dir(filePath))
	assert.NoFileExists(t, filePath)
}

func TestEnsureFileDir_EmptyPath(t *testing.T) {
	assert.NoError(t, EnsureFileDir(""))
}

func TestAppDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on Linux")
	}
	t.Setenv("XDG_STATE_HOME", "/tmp/state-home")
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")

	state, err := GetStateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/state-home", AppName), state)

	cache, err := GetCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cache-home", AppName), cache)
}
