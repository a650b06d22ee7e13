package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/glorpus-work/apkfetch/pkg/archive"
	"github.com/glorpus-work/apkfetch/pkg/cache"
	"github.com/glorpus-work/apkfetch/pkg/catalog"
	"github.com/glorpus-work/apkfetch/pkg/config"
	"github.com/glorpus-work/apkfetch/pkg/dispenser"
	"github.com/glorpus-work/apkfetch/pkg/download"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	apkhttp "github.com/glorpus-work/apkfetch/pkg/http"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/orchestrator"
	"github.com/glorpus-work/apkfetch/pkg/signer"
	"github.com/glorpus-work/apkfetch/pkg/tool"
	"github.com/sirupsen/logrus"
)

// loadConfig loads the configuration, applies the global flags and
// initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with CLI flags if provided
	if OutputFormat != "" {
		cfg.Settings.OutputFormat = OutputFormat
	}
	level := cfg.Settings.LogLevel
	if Verbose {
		level = "debug"
	}
	logger.InitLogger(level, NoColor)

	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path fails with a descriptive error when the file is used.
		logger.Warn("Failed to get default config path, using empty path", logrus.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// newOrchestrator wires the engine from the configuration.
func newOrchestrator(cfg *config.Config, onEvent func(orchestrator.Event)) (*orchestrator.Orchestrator, error) {
	s := cfg.Settings

	scripts := hooks.NewHookManager()
	if err := hooks.LoadHooks(scripts, cfg.Hooks); err != nil {
		return nil, err
	}

	issuer := dispenser.NewClient(s.DispenserURL, apkhttp.NewClient(s.IssuanceTimeout),
		dispenser.WithRateLimit(s.IssuanceRate, s.IssuanceBurst))

	return &orchestrator.Orchestrator{
		Store:   cache.NewCredentialStore(cfg.GetCredentialDir(), s.CredentialEnv),
		Issuer:  issuer,
		Catalog: catalog.NewClient(s.APIBaseURL, apkhttp.NewClient(s.HTTPTimeout)),
		DL:      download.NewManager(s.DownloadTimeout, download.DefaultUserAgent),
		Merger: archive.Probe(archive.ProbeOptions{
			Java:   cfg.Merge.JavaPath,
			Jar:    cfg.Merge.JarPath,
			Runner: tool.Exec{Timeout: cfg.Merge.Timeout},
		}),
		Signer: signer.Probe(signer.ProbeOptions{
			Tool:       cfg.Sign.APKSignerPath,
			Keystore:   cfg.Sign.Keystore,
			Passphrase: cfg.Sign.Passphrase,
			Runner:     tool.Exec{Timeout: cfg.Sign.Timeout},
		}),
		Scripts: scripts,
		Config: orchestrator.Config{
			MaxAttempts:     s.MaxAttempts,
			IssuanceBackoff: s.IssuanceBackoff,
			RetryBackoff:    s.RetryBackoff,
		},
		Hooks: orchestrator.Hooks{OnEvent: onEvent},
	}, nil
}

// newCacheManager returns the cache manager with credentials kept in the
// state directory.
func newCacheManager(cfg *config.Config) (*cache.DefaultManager, error) {
	manager := cache.NewManager(cfg.GetCacheDir())
	if err := manager.SetCredentialDirectory(cfg.GetCredentialDir()); err != nil {
		return nil, err
	}
	return manager, nil
}

// progressPrinter renders progress events as plain lines.
func progressPrinter(w io.Writer) func(orchestrator.Event) {
	return func(e orchestrator.Event) {
		if e.Type != orchestrator.EventProgress || e.Message == "" {
			return
		}
		if e.Total > 0 {
			_, _ = fmt.Fprintf(w, "[%d/%d] %s\n", e.Current, e.Total, e.Message)
			return
		}
		_, _ = fmt.Fprintln(w, e.Message)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
