package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileChmod   = fmt.Errorf("failed to set config file permissions")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")

	// Settings validation errors.
	ErrHTTPTimeoutNegative  = fmt.Errorf("timeouts cannot be negative")
	ErrBackoffNegative      = fmt.Errorf("backoff durations cannot be negative")
	ErrMaxAttemptsInvalid   = fmt.Errorf("max_attempts must be between 1 and 50")
	ErrIssuanceRateInvalid  = fmt.Errorf("issuance_rate must be positive")
	ErrEndpointURLInvalid   = fmt.Errorf("invalid endpoint URL")
	ErrUnknownDevice        = fmt.Errorf("unknown device profile")
	ErrUnknownRegion        = fmt.Errorf("unknown region")
	ErrArtifactCapacity     = fmt.Errorf("server.artifact_capacity must be positive")
	ErrInvalidOutputFormat  = fmt.Errorf("invalid output format")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrUnsupportedHookEvent = fmt.Errorf("unsupported hook type")

	// Cache errors.
	ErrCacheClean     = fmt.Errorf("failed to clean cache")
	ErrCacheInfo      = fmt.Errorf("failed to get cache info")
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")

	// Download errors.
	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrFileHashMismatch = fmt.Errorf("file hash mismatch")

	// Hook errors.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")

	// Artifact errors.
	ErrArtifactNotFound = fmt.Errorf("artifact not found or expired")
	ErrMergeFailed      = fmt.Errorf("failed to merge artifacts")
	ErrVersionMismatch  = fmt.Errorf("resolved version does not satisfy constraint")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidOutputFormatWithDetails reports an unsupported output format.
func ErrInvalidOutputFormatWithDetails(format string) error {
	return Wrapf(ErrInvalidOutputFormat, "%q (valid: text, json)", format)
}

// ErrInvalidLogLevelWithDetails reports an unsupported log level.
func ErrInvalidLogLevelWithDetails(level string) error {
	return Wrapf(ErrInvalidLogLevel, "%q (valid: debug, info, warn, error)", level)
}

// ErrUnknownDeviceWithName reports a device key that is not in the catalog.
func ErrUnknownDeviceWithName(name string) error {
	return Wrapf(ErrUnknownDevice, "%q", name)
}

// ErrUnknownRegionWithName reports a region key that is not in the catalog.
func ErrUnknownRegionWithName(name string) error {
	return Wrapf(ErrUnknownRegion, "%q", name)
}
