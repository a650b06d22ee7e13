package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEnv = "APKFETCH_TEST_CREDENTIAL"

func newTestStore(t *testing.T) (*CredentialStore, map[string]string) {
	t.Helper()
	env := map[string]string{}
	s := NewCredentialStore(t.TempDir(), testEnv)
	s.getenv = func(k string) string { return env[k] }
	return s, env
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	cred := &auth.Credential{AuthToken: "tok", GSFID: "3f1a", DFECookie: "ck", UserAgent: "UA/1"}

	s.Save("arm64-v8a_il", cred)

	got, ok := s.Load("arm64-v8a_il")
	require.True(t, ok)
	assert.Equal(t, cred, got)

	info, err := os.Stat(filepath.Join(s.Directory(), "arm64-v8a_il.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCredentialStore_KeysAreIndependent(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save("arm64-v8a_il", &auth.Credential{AuthToken: "il", GSFID: "1"})
	s.Save("arm64-v8a_us", &auth.Credential{AuthToken: "us", GSFID: "2"})

	il, ok := s.Load("arm64-v8a_il")
	require.True(t, ok)
	assert.Equal(t, "il", il.AuthToken)

	us, ok := s.Load("arm64-v8a_us")
	require.True(t, ok)
	assert.Equal(t, "us", us.AuthToken)

	_, ok = s.Load("armeabi-v7a_il")
	assert.False(t, ok)
}

func TestCredentialStore_MalformedIsMiss(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not json at all"},
		{"truncated", `{"authToken":"tok",`},
		{"missing device id", `{"authToken":"tok"}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			require.NoError(t, os.WriteFile(filepath.Join(s.Directory(), "k.json"), []byte(tt.content), 0o600))

			cred, ok := s.Load("k")
			assert.False(t, ok)
			assert.Nil(t, cred)
		})
	}
}

func TestCredentialStore_OverrideWins(t *testing.T) {
	s, env := newTestStore(t)
	s.Save("k", &auth.Credential{AuthToken: "file", GSFID: "1"})

	env[testEnv] = `{"authToken":"pinned","gsfId":"9"}`
	got, ok := s.Load("k")
	require.True(t, ok)
	assert.Equal(t, "pinned", got.AuthToken)

	// the override applies to every key
	got, ok = s.Load("other")
	require.True(t, ok)
	assert.Equal(t, "pinned", got.AuthToken)
}

func TestCredentialStore_OverrideReadOnEveryCall(t *testing.T) {
	s, env := newTestStore(t)
	s.Save("k", &auth.Credential{AuthToken: "file", GSFID: "1"})

	env[testEnv] = `{"authToken":"first","gsfId":"9"}`
	got, _ := s.Load("k")
	assert.Equal(t, "first", got.AuthToken)

	env[testEnv] = `{"authToken":"second","gsfId":"9"}`
	got, _ = s.Load("k")
	assert.Equal(t, "second", got.AuthToken)

	delete(env, testEnv)
	got, _ = s.Load("k")
	assert.Equal(t, "file", got.AuthToken)
}

func TestCredentialStore_UnparsableOverrideIgnored(t *testing.T) {
	s, env := newTestStore(t)
	s.Save("k", &auth.Credential{AuthToken: "file", GSFID: "1"})

	env[testEnv] = "{broken"
	got, ok := s.Load("k")
	require.True(t, ok)
	assert.Equal(t, "file", got.AuthToken)
}

func TestCredentialStore_OverrideDisabled(t *testing.T) {
	s := NewCredentialStore(t.TempDir(), "")
	s.getenv = func(string) string { return `{"authToken":"pinned","gsfId":"9"}` }
	_, ok := s.Load("k")
	assert.False(t, ok)
}

func TestCredentialStore_SaveFailureSwallowed(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// the store directory is a regular file, so every write fails
	s := NewCredentialStore(blocker, "")
	assert.NotPanics(t, func() {
		s.Save("k", &auth.Credential{AuthToken: "tok", GSFID: "1"})
	})
	_, ok := s.Load("k")
	assert.False(t, ok)
}

func TestCredentialStore_ConcurrentSave(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Save("k", &auth.Credential{AuthToken: fmt.Sprintf("tok-%d", i), GSFID: "1"})
		}(i)
	}
	wg.Wait()

	got, ok := s.Load("k")
	require.True(t, ok, "record must never be corrupted by concurrent writers")
	assert.Regexp(t, `^tok-\d+$`, got.AuthToken)
}

func TestCredentialStore_Remove(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save("k", &auth.Credential{AuthToken: "tok", GSFID: "1"})
	require.NoError(t, s.Remove("k"))
	_, ok := s.Load("k")
	assert.False(t, ok)
	require.NoError(t, s.Remove("k"))
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "arm64-v8a_il_0123", sanitizeKey("arm64-v8a_il_0123"))
	assert.Equal(t, "_etc_passwd", sanitizeKey("../etc/passwd"))
	assert.Equal(t, "default", sanitizeKey(""))
	assert.NotContains(t, sanitizeKey("a/b\\c"), "/")
}
