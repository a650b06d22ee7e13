package hooks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookManager_AddHook(t *testing.T) {
	tests := []struct {
		name    string
		hook    hooks.Hook
		wantErr error
	}{
		{
			name: "valid hook",
			hook: hooks.Hook{Type: hooks.PostResolve, Content: `// noop`},
		},
		{
			name:    "empty hook type",
			hook:    hooks.Hook{Type: "", Content: "x := 1"},
			wantErr: hooks.ErrHookTypeEmpty,
		},
		{
			name:    "unsupported hook type",
			hook:    hooks.Hook{Type: "pre-install", Content: "x := 1"},
			wantErr: errors.ErrUnsupportedHookEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := hooks.NewHookManager()
			err := manager.AddHook(tt.hook)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, manager.HasHook(tt.hook.Type))
		})
	}
}

func TestHookManager_ExecuteAndRemove(t *testing.T) {
	manager := hooks.NewHookManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PostDownload, Content: `err := "stop"`}))

	err := manager.Execute(hooks.PostDownload, hooks.HookContext{PackageName: "com.example.app"})
	assert.ErrorIs(t, err, hooks.ErrHookScript)

	require.NoError(t, manager.RemoveHook(hooks.PostDownload))
	assert.False(t, manager.HasHook(hooks.PostDownload))
	assert.NoError(t, manager.Execute(hooks.PostDownload, hooks.HookContext{}))
	assert.ErrorIs(t, manager.RemoveHook(""), hooks.ErrHookTypeEmpty)
}

func TestLoadHooks(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "post-resolve.tengo")
	require.NoError(t, os.WriteFile(script, []byte(`x := packageName`), 0o600))

	manager := hooks.NewHookManager()
	require.NoError(t, hooks.LoadHooks(manager, map[string]string{"post-resolve": script}))
	assert.True(t, manager.HasHook(hooks.PostResolve))
	assert.False(t, manager.HasHook(hooks.PostDownload))

	err := hooks.LoadHooks(manager, map[string]string{"post-download": filepath.Join(dir, "missing.tengo")})
	assert.ErrorIs(t, err, hooks.ErrHookLoad)

	err = hooks.LoadHooks(manager, map[string]string{"pre-install": script})
	assert.ErrorIs(t, err, errors.ErrUnsupportedHookEvent)
}

func TestHookTemplate(t *testing.T) {
	assert.Contains(t, hooks.HookTemplate(hooks.PostResolve), "versionCode")
	assert.Contains(t, hooks.HookTemplate(hooks.PostDownload), "filename")
	assert.Contains(t, hooks.HookTemplate("other"), "Unknown")
}
