package tool

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo merged")
	require.NoError(t, err)
	assert.Equal(t, "merged\n", string(out))

	_, err = Exec{}.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestExec_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	start := time.Now()
	_, err := Exec{Timeout: 50 * time.Millisecond}.Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	r := RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte("ok"), nil
	})
	out, err := r.Run(context.Background(), "java", "-jar", "x.jar")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, []string{"java", "-jar", "x.jar"}, got)
}

func TestFindAndFileExists(t *testing.T) {
	_, ok := Find("")
	assert.False(t, ok)
	_, ok = Find("definitely-not-an-installed-program-3f1a")
	assert.False(t, ok)

	dir := t.TempDir()
	f := filepath.Join(dir, "APKEditor.jar")
	require.NoError(t, os.WriteFile(f, []byte("jar"), 0o600))
	assert.True(t, FileExists(f))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.False(t, FileExists(""))
}
