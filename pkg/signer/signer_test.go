package signer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/apkfetch/pkg/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	in := []byte("archive")
	assert.Equal(t, in, Noop{}.Sign(context.Background(), in))
	assert.Equal(t, "unsigned", Noop{}.Name())
}

func TestAPKSigner_Sign(t *testing.T) {
	var workDir string
	runner := tool.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "/sdk/apksigner", name)
		require.Len(t, args, 10)
		assert.Equal(t, []string{"sign", "--ks", "/keys/debug.keystore", "--ks-pass", "pass:android", "--key-pass", "pass:android", "--out"}, args[:8])

		out, in := args[8], args[9]
		workDir = filepath.Dir(in)
		data, err := os.ReadFile(in)
		require.NoError(t, err)
		return nil, os.WriteFile(out, append([]byte("signed:"), data...), 0o600)
	})

	s := &APKSigner{Tool: "/sdk/apksigner", Keystore: "/keys/debug.keystore", Runner: runner}
	got := s.Sign(context.Background(), []byte("archive"))
	assert.Equal(t, "signed:archive", string(got))

	_, err := os.Stat(workDir)
	assert.True(t, os.IsNotExist(err), "scratch directory must be removed")
}

func TestAPKSigner_FailureReturnsInput(t *testing.T) {
	tests := []struct {
		name   string
		runner tool.RunnerFunc
	}{
		{
			name: "tool error",
			runner: func(context.Context, string, ...string) ([]byte, error) {
				return nil, errors.New("exit status 1")
			},
		},
		{
			name: "no output",
			runner: func(context.Context, string, ...string) ([]byte, error) {
				return nil, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var workDir string
			runner := tool.RunnerFunc(func(ctx context.Context, name string, args ...string) ([]byte, error) {
				workDir = filepath.Dir(args[len(args)-1])
				return tt.runner(ctx, name, args...)
			})
			s := &APKSigner{Tool: "apksigner", Keystore: "ks", Passphrase: "secret", Runner: runner}

			in := []byte("archive")
			assert.Equal(t, in, s.Sign(context.Background(), in))

			_, err := os.Stat(workDir)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestAPKSigner_CustomPassphrase(t *testing.T) {
	var args []string
	runner := tool.RunnerFunc(func(_ context.Context, _ string, a ...string) ([]byte, error) {
		args = a
		return nil, errors.New("stop")
	})
	s := &APKSigner{Tool: "apksigner", Keystore: "ks", Passphrase: "secret", Runner: runner}
	s.Sign(context.Background(), []byte("x"))
	assert.Contains(t, args, "pass:secret")
}

func TestProbe(t *testing.T) {
	assert.Equal(t, "unsigned", Probe(ProbeOptions{Tool: "no-such-apksigner-3f1a", Keystore: "/nonexistent"}).Name())

	ks := filepath.Join(t.TempDir(), "debug.keystore")
	require.NoError(t, os.WriteFile(ks, []byte("ks"), 0o600))
	assert.Equal(t, "unsigned", Probe(ProbeOptions{Tool: "no-such-apksigner-3f1a", Keystore: ks}).Name())

	if _, ok := tool.Find("sh"); ok {
		assert.Equal(t, "apksigner", Probe(ProbeOptions{Tool: "sh", Keystore: ks}).Name())
		assert.Equal(t, "unsigned", Probe(ProbeOptions{Tool: "sh", Keystore: ks + ".missing"}).Name())
	}
}
