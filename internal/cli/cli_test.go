package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// setupConfig writes a config pointing at backend and returns its path.
func setupConfig(t *testing.T, backend *testutil.Backend) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`settings:
  cache_dir: %s
  state_dir: %s
  dispenser_url: %s
  api_base_url: %s
  credential_env: APKFETCH_TEST_UNSET_TOKEN
  issuance_backoff: 1ms
  retry_backoff: 1ms
  issuance_rate: 1000
  max_attempts: 5
merge:
  java_path: apkfetch-test-no-java
sign:
  apksigner_path: apkfetch-test-no-apksigner
`, filepath.Join(dir, "cache"), filepath.Join(dir, "state"), backend.DispenserURL(), backend.APIBaseURL())

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func exampleApp(t *testing.T, splits ...testutil.Split) testutil.App {
	return testutil.App{
		Package:       "com.example.app",
		Title:         "Example",
		VersionCode:   42,
		VersionString: "1.4.2",
		Primary: testutil.BuildAPK(t, map[string]string{
			"AndroidManifest.xml": "manifest",
			"classes.dex":         "dex",
			"META-INF/CERT.RSA":   "sig",
		}),
		Secondaries: splits,
	}
}

func TestResolve_RetriesThenUsesCache(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t, testutil.Split{Name: "config.arm64_v8a", Data: []byte("split")}))
	backend.AcceptTokensFrom(2)
	cfgPath := setupConfig(t, backend)

	out, err := execute(t, "--config", cfgPath, "-o", "json", "resolve", "com.example.app")
	require.NoError(t, err)

	var plan model.DownloadPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "com.example.app", plan.Package)
	assert.Equal(t, int64(42), plan.VersionCode)
	assert.Equal(t, "1.4.2", plan.VersionString)
	require.Len(t, plan.Secondaries, 1)
	assert.Equal(t, "config.arm64_v8a", plan.Secondaries[0].Name)
	assert.Equal(t, []model.Cookie{{Name: testutil.CookieName, Value: testutil.CookieValue}}, plan.Cookies)
	assert.Equal(t, 2, backend.Counts().Issued)

	// The accepted credential is cached for the profile.
	_, err = execute(t, "--config", cfgPath, "resolve", "com.example.app")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Counts().Issued)
}

func TestResolve_TextOutput(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t))
	cfgPath := setupConfig(t, backend)

	out, err := execute(t, "--config", cfgPath, "resolve", "com.example.app", "--region", "us")
	require.NoError(t, err)
	assert.Contains(t, out, "Example (com.example.app)")
	assert.Contains(t, out, "Version: 1.4.2 (42)")
	assert.Contains(t, out, "com.example.app-42.apk")
	assert.Contains(t, out, "Cookie: DRM=test-session")
}

func TestResolve_NotFound(t *testing.T) {
	backend := testutil.NewBackend(t)
	cfgPath := setupConfig(t, backend)

	_, err := execute(t, "--config", cfgPath, "resolve", "com.missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), string(model.KindNotFound))
}

func TestResolve_IssuanceExhausted(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t))
	backend.FailIssuance(100)
	cfgPath := setupConfig(t, backend)

	_, err := execute(t, "--config", cfgPath, "resolve", "com.example.app")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExhausted)
	assert.Equal(t, model.KindNoCredential, model.KindOf(err))
}

func TestResolve_VersionConstraint(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t))
	cfgPath := setupConfig(t, backend)

	_, err := execute(t, "--config", cfgPath, "resolve", "com.example.app", "--version", ">= 2.0")
	require.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "resolve", "com.example.app", "--version", ">= 1.0, < 2.0")
	require.NoError(t, err)
}

func TestDownload_PrimaryOnly(t *testing.T) {
	backend := testutil.NewBackend(t)
	app := exampleApp(t)
	backend.AddApp(app)
	cfgPath := setupConfig(t, backend)
	outDir := t.TempDir()

	out, err := execute(t, "--config", cfgPath, "-o", "json", "download", "com.example.app", "--dir", outDir)
	require.NoError(t, err)

	var res downloadResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Original)
	assert.Equal(t, "com.example.app-42.apk", res.Filename)
	assert.Equal(t, filepath.Join(outDir, res.Filename), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, app.Primary, data)
}

func TestDownload_MergesSecondaries(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t,
		testutil.Split{Name: "config.arm64_v8a", Data: testutil.BuildAPK(t, map[string]string{
			"AndroidManifest.xml":        "split manifest",
			"lib/arm64-v8a/libnative.so": "elf",
		})},
		testutil.Split{Name: "config.he", Data: testutil.BuildAPK(t, map[string]string{
			"res/values-he/strings.xml": "shalom",
		})},
	))
	cfgPath := setupConfig(t, backend)
	outDir := t.TempDir()

	out, err := execute(t, "--config", cfgPath, "download", "com.example.app", "--dir", outDir)
	require.NoError(t, err)

	path := filepath.Join(outDir, "com.example.app-42-merged.apk")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	files := testutil.ReadAPK(t, data)
	assert.Equal(t, map[string]string{
		"AndroidManifest.xml":        "manifest",
		"classes.dex":                "dex",
		"lib/arm64-v8a/libnative.so": "elf",
		"res/values-he/strings.xml":  "shalom",
	}, files)
	assert.Equal(t, 3, backend.Counts().Artifacts)
}

func TestDevices_JSON(t *testing.T) {
	cfgPath := setupConfig(t, testutil.NewBackend(t))

	out, err := execute(t, "--config", cfgPath, "-o", "json", "devices")
	require.NoError(t, err)

	var listing struct {
		Devices []deviceInfo `json:"devices"`
		Regions []regionInfo `json:"regions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.NotEmpty(t, listing.Devices)
	assert.Equal(t, "arm64-v8a", listing.Devices[0].Key)
	assert.True(t, listing.Devices[0].Default)

	keys := []string{}
	for _, r := range listing.Regions {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"il", "us"}, keys)
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, cfgPath)

	_, err = execute(t, "--config", cfgPath, "config", "init")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "config", "set", "max_attempts", "3")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "config", "get", "max_attempts")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	_, err = execute(t, "--config", cfgPath, "config", "set", "max_attempts", "99")
	assert.Error(t, err)

	out, err = execute(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_attempts")
	assert.Contains(t, out, "dispenser_url")
}

func TestCacheCommands(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddApp(exampleApp(t))
	cfgPath := setupConfig(t, backend)

	_, err := execute(t, "--config", cfgPath, "resolve", "com.example.app")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "cache", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Credentials:")
	assert.Contains(t, out, "(1 files)")

	out, err = execute(t, "--config", cfgPath, "cache", "clean", "--credentials")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully cleaned cache")

	// Without a cached credential a new one is issued.
	_, err = execute(t, "--config", cfgPath, "resolve", "com.example.app")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Counts().Issued)

	out, err = execute(t, "--config", cfgPath, "cache", "dir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "cache")+"\n", out)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apkfetch version "+Version)
}

func TestHooksTemplate(t *testing.T) {
	out, err := execute(t, "hooks", "template", "post-download")
	require.NoError(t, err)
	assert.Contains(t, out, "artifactPath")

	_, err = execute(t, "hooks", "template", "pre-install")
	assert.ErrorIs(t, err, errors.ErrUnsupportedHookEvent)
}
