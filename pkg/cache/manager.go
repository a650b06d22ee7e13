package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/fsutil"
)

// DefaultManager implements the Manager interface for cache operations.
type DefaultManager struct {
	directory     string
	credentialDir string
}

// NewManager creates a new cache manager. Credentials live in the
// credentials subdirectory unless overridden with SetCredentialDirectory.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory:     directory,
		credentialDir: filepath.Join(directory, CredentialsDir),
	}
}

// NewDefaultManager creates a new cache manager with default directory.
func NewDefaultManager() (*DefaultManager, error) {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get user cache directory")
	}

	if err := os.MkdirAll(cacheDir, CacheDirPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory")
	}

	return NewManager(cacheDir), nil
}

// Clean removes cached files according to the specified options.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}

	// Default to cleaning all if no specific flags are set
	if !options.Credentials && !options.Artifacts {
		options.All = true
	}

	if options.All || options.Credentials {
		size, err := cleanDirectory(cm.credentialDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to clean credential cache")
		}
		result.CredentialFreed = size
		result.TotalFreed += size
	}

	if options.All || options.Artifacts {
		size, err := cleanDirectory(cm.ArtifactDirectory())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to clean artifact cache")
		}
		result.ArtifactFreed = size
		result.TotalFreed += size
	}

	return result, nil
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.directory}

	credSize, credFiles, credMod, err := getDirSizeAndFiles(cm.credentialDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get credential cache info")
	}
	info.CredentialSize = credSize
	info.CredentialFiles = credFiles

	artSize, artFiles, artMod, err := getDirSizeAndFiles(cm.ArtifactDirectory())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get artifact cache info")
	}
	info.ArtifactSize = artSize
	info.ArtifactFiles = artFiles

	info.TotalSize = info.CredentialSize + info.ArtifactSize
	info.LastModified = credMod
	if artMod.After(credMod) {
		info.LastModified = artMod
	}

	return info, nil
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	if cm.credentialDir == filepath.Join(cm.directory, CredentialsDir) {
		cm.credentialDir = filepath.Join(dir, CredentialsDir)
	}
	cm.directory = dir
	return nil
}

// CredentialDirectory returns where credential records are kept.
func (cm *DefaultManager) CredentialDirectory() string {
	return cm.credentialDir
}

// SetCredentialDirectory moves credential records out of the cache directory.
func (cm *DefaultManager) SetCredentialDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	cm.credentialDir = dir
	return nil
}

// ArtifactDirectory returns where downloaded artifacts are kept.
func (cm *DefaultManager) ArtifactDirectory() string {
	return filepath.Join(cm.directory, ArtifactsDir)
}

// cleanDirectory removes a directory and returns bytes freed.
func cleanDirectory(dir string) (int64, error) {
	var totalSize int64

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "error walking directory %s", dir)
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, errors.Wrapf(err, "failed to remove directory %s", dir)
	}

	if err := os.MkdirAll(dir, CacheDirPerm); err != nil {
		return totalSize, errors.Wrapf(err, "failed to recreate directory %s", dir)
	}

	return totalSize, nil
}

// getDirSizeAndFiles calculates directory size, file count and the newest
// modification time. A missing directory is empty.
func getDirSizeAndFiles(dir string) (size int64, count int, newest time.Time, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, time.Time{}, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, newest, err
}
