// Package config provides configuration management for apkfetch.
// It handles loading, validating and saving the YAML configuration file and
// provides defaults for every setting.
package config

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/device"
	"github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/fsutil"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// General settings
	Settings Settings `yaml:"settings"`

	// Artifact assembly
	Merge MergeConfig `yaml:"merge"`
	Sign  SignConfig  `yaml:"sign"`

	// HTTP front-end
	Server ServerConfig `yaml:"server"`

	// Hook type -> script path
	Hooks map[string]string `yaml:"hooks,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Directory settings
	CacheDir string `yaml:"cache_dir,omitempty"`
	StateDir string `yaml:"state_dir,omitempty"` // persisted credentials

	// Identity defaults
	DefaultDevice string `yaml:"default_device"`
	DefaultRegion string `yaml:"default_region"`

	// Endpoints
	DispenserURL  string `yaml:"dispenser_url"`
	APIBaseURL    string `yaml:"api_base_url"`
	CredentialEnv string `yaml:"credential_env"` // environment variable holding a pinned credential

	// Network settings
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	DownloadTimeout     time.Duration `yaml:"download_timeout"`
	IssuanceTimeout     time.Duration `yaml:"issuance_timeout"`
	DownloadConcurrency int           `yaml:"download_concurrency"`

	// Retry settings
	MaxAttempts     int           `yaml:"max_attempts"`
	IssuanceBackoff time.Duration `yaml:"issuance_backoff"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	IssuanceRate    float64       `yaml:"issuance_rate"` // requests per second, shared by all resolutions
	IssuanceBurst   int           `yaml:"issuance_burst"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// MergeConfig locates the external merge tool.
type MergeConfig struct {
	JavaPath string        `yaml:"java_path,omitempty"`
	JarPath  string        `yaml:"jar_path,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SignConfig locates the signing tool and identity.
type SignConfig struct {
	APKSignerPath string        `yaml:"apksigner_path,omitempty"`
	Keystore      string        `yaml:"keystore,omitempty"`
	Passphrase    string        `yaml:"passphrase,omitempty"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Listen           string        `yaml:"listen"`
	ArtifactTTL      time.Duration `yaml:"artifact_ttl"`
	ArtifactCapacity int           `yaml:"artifact_capacity"`
	EventBuffer      int           `yaml:"event_buffer"`
}

// Default configuration values.
const (
	DefaultDispenserURL        = "https://auroraoss.com/api/auth"
	DefaultAPIBaseURL          = "https://android.clients.google.com/fdfe"
	DefaultCredentialEnv       = "GPLAY_AUTH_TOKEN"
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultDownloadTimeout     = 120 * time.Second
	DefaultIssuanceTimeout     = 30 * time.Second
	DefaultDownloadConcurrency = 4
	DefaultMaxAttempts         = 10
	MaxAttemptsLimit           = 50
	DefaultIssuanceBackoff     = time.Second
	DefaultRetryBackoff        = 500 * time.Millisecond
	DefaultIssuanceRate        = 2.0
	DefaultIssuanceBurst       = 4
	DefaultToolTimeout         = 5 * time.Minute
	DefaultListen              = "127.0.0.1:8080"
	DefaultArtifactTTL         = 15 * time.Minute
	DefaultArtifactCapacity    = 32
	DefaultEventBuffer         = 16

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName, "cache")
	}
	stateDir, err := fsutil.GetStateDir()
	if err != nil {
		stateDir = filepath.Join(os.TempDir(), fsutil.AppName, "state")
	}

	return &Config{
		Settings: Settings{
			CacheDir:            cacheDir,
			StateDir:            stateDir,
			DefaultDevice:       device.DefaultDevice,
			DefaultRegion:       device.DefaultRegion,
			DispenserURL:        DefaultDispenserURL,
			APIBaseURL:          DefaultAPIBaseURL,
			CredentialEnv:       DefaultCredentialEnv,
			HTTPTimeout:         DefaultHTTPTimeout,
			DownloadTimeout:     DefaultDownloadTimeout,
			IssuanceTimeout:     DefaultIssuanceTimeout,
			DownloadConcurrency: DefaultDownloadConcurrency,
			MaxAttempts:         DefaultMaxAttempts,
			IssuanceBackoff:     DefaultIssuanceBackoff,
			RetryBackoff:        DefaultRetryBackoff,
			IssuanceRate:        DefaultIssuanceRate,
			IssuanceBurst:       DefaultIssuanceBurst,
			OutputFormat:        "text",
			LogLevel:            "info",
		},
		Merge: MergeConfig{
			JavaPath: "java",
			Timeout:  DefaultToolTimeout,
		},
		Sign: SignConfig{
			APKSignerPath: "apksigner",
			Timeout:       DefaultToolTimeout,
		},
		Server: ServerConfig{
			Listen:           DefaultListen,
			ArtifactTTL:      DefaultArtifactTTL,
			ArtifactCapacity: DefaultArtifactCapacity,
			EventBuffer:      DefaultEventBuffer,
		},
		Hooks: map[string]string{},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	// Atomically replace the config file
	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	// The file may carry a signing passphrase.
	if err := os.Chmod(absPath, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(errors.ErrConfigFileChmod, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	if err := validateServer(c.Server); err != nil {
		return err
	}
	return validateHooks(c.Hooks)
}

func validateSettings(s Settings) error {
	for _, d := range []time.Duration{s.HTTPTimeout, s.DownloadTimeout, s.IssuanceTimeout} {
		if d < 0 {
			return errors.ErrHTTPTimeoutNegative
		}
	}
	if s.IssuanceBackoff < 0 || s.RetryBackoff < 0 {
		return errors.ErrBackoffNegative
	}
	if s.MaxAttempts < 1 || s.MaxAttempts > MaxAttemptsLimit {
		return errors.Wrapf(errors.ErrMaxAttemptsInvalid, "got %d", s.MaxAttempts)
	}
	if s.IssuanceRate <= 0 {
		return errors.ErrIssuanceRateInvalid
	}
	for _, raw := range []string{s.DispenserURL, s.APIBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.Wrapf(errors.ErrEndpointURLInvalid, "%q", raw)
		}
	}
	if !device.HasHardware(s.DefaultDevice) {
		return errors.ErrUnknownDeviceWithName(s.DefaultDevice)
	}
	if !device.HasRegion(s.DefaultRegion) {
		return errors.ErrUnknownRegionWithName(s.DefaultRegion)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.ErrInvalidOutputFormatWithDetails(s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.ArtifactCapacity < 1 {
		return errors.ErrArtifactCapacity
	}
	if s.ArtifactTTL < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	return nil
}

func validateHooks(scripts map[string]string) error {
	for t := range scripts {
		if !hooks.HookType(t).IsValid() {
			return hooks.ErrUnsupportedHookEvent(t)
		}
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetCacheDir returns the base cache directory from settings.
func (c *Config) GetCacheDir() string {
	return c.Settings.CacheDir
}

// GetStateDir returns the base state directory from settings.
func (c *Config) GetStateDir() string {
	return c.Settings.StateDir
}

// GetCredentialDir returns where credentials are persisted.
func (c *Config) GetCredentialDir() string {
	return filepath.Join(c.Settings.StateDir, "credentials")
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	s := &c.Settings

	setString(&s.CacheDir, d.Settings.CacheDir)
	setString(&s.StateDir, d.Settings.StateDir)
	setString(&s.DefaultDevice, d.Settings.DefaultDevice)
	setString(&s.DefaultRegion, d.Settings.DefaultRegion)
	setString(&s.DispenserURL, d.Settings.DispenserURL)
	setString(&s.APIBaseURL, d.Settings.APIBaseURL)
	setString(&s.CredentialEnv, d.Settings.CredentialEnv)
	setString(&s.OutputFormat, d.Settings.OutputFormat)
	setString(&s.LogLevel, d.Settings.LogLevel)
	setDuration(&s.HTTPTimeout, d.Settings.HTTPTimeout)
	setDuration(&s.DownloadTimeout, d.Settings.DownloadTimeout)
	setDuration(&s.IssuanceTimeout, d.Settings.IssuanceTimeout)
	setDuration(&s.IssuanceBackoff, d.Settings.IssuanceBackoff)
	setDuration(&s.RetryBackoff, d.Settings.RetryBackoff)
	setInt(&s.DownloadConcurrency, d.Settings.DownloadConcurrency)
	setInt(&s.MaxAttempts, d.Settings.MaxAttempts)
	setInt(&s.IssuanceBurst, d.Settings.IssuanceBurst)
	if s.IssuanceRate == 0 {
		s.IssuanceRate = d.Settings.IssuanceRate
	}

	setString(&c.Merge.JavaPath, d.Merge.JavaPath)
	setDuration(&c.Merge.Timeout, d.Merge.Timeout)
	setString(&c.Sign.APKSignerPath, d.Sign.APKSignerPath)
	setDuration(&c.Sign.Timeout, d.Sign.Timeout)

	setString(&c.Server.Listen, d.Server.Listen)
	setDuration(&c.Server.ArtifactTTL, d.Server.ArtifactTTL)
	setInt(&c.Server.ArtifactCapacity, d.Server.ArtifactCapacity)
	setInt(&c.Server.EventBuffer, d.Server.EventBuffer)

	if c.Hooks == nil {
		c.Hooks = map[string]string{}
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
