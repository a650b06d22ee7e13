package cache

import (
	"fmt"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/sirupsen/logrus"
)

// Operation wraps a Manager with human-readable reporting for the CLI.
type Operation struct {
	manager Manager
}

// NewOperation creates a new cache operation instance.
func NewOperation(manager Manager) *Operation {
	return &Operation{
		manager: manager,
	}
}

// Clean cleans the cache based on the provided options.
func (op *Operation) Clean(all, credentials, artifacts bool) (string, error) {
	options := CleanOptions{
		All:         all,
		Credentials: credentials,
		Artifacts:   artifacts,
	}

	logger.Debug("Cleaning cache", logrus.Fields{
		"all":         options.All,
		"credentials": options.Credentials,
		"artifacts":   options.Artifacts,
	})

	result, err := op.manager.Clean(options)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCacheClean, err)
	}

	if result.TotalFreed == 0 {
		return "No files were removed from the cache.", nil
	}

	msg := fmt.Sprintf("Successfully cleaned cache. Freed %s of disk space.", formatBytes(result.TotalFreed))
	if result.CredentialFreed > 0 {
		msg += fmt.Sprintf("\n- Credentials: %s", formatBytes(result.CredentialFreed))
	}
	if result.ArtifactFreed > 0 {
		msg += fmt.Sprintf("\n- Artifacts: %s", formatBytes(result.ArtifactFreed))
	}
	return msg, nil
}

// GetInfo returns information about the cache.
func (op *Operation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCacheInfo, err)
	}

	lastModified := "never"
	if !info.LastModified.IsZero() {
		lastModified = info.LastModified.Format(time.RFC1123)
	}

	return fmt.Sprintf(`Cache Information:
  Directory:     %s
  Total Size:    %s
  Credentials:   %s (%d files)
  Artifacts:     %s (%d files)
  Last Modified: %s`,
		info.Directory,
		formatBytes(info.TotalSize),
		formatBytes(info.CredentialSize),
		info.CredentialFiles,
		formatBytes(info.ArtifactSize),
		info.ArtifactFiles,
		lastModified,
	), nil
}

// GetDirectory returns the cache directory path.
func (op *Operation) GetDirectory() string {
	return op.manager.GetDirectory()
}

// SetDirectory sets a new cache directory.
func (op *Operation) SetDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("cache directory cannot be empty")
	}

	logger.Debug("Setting cache directory", logrus.Fields{"directory": dir})
	return op.manager.SetDirectory(dir)
}

func formatBytes(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	return model.FormatSize(bytes)
}
