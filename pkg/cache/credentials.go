package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/fsutil"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/sirupsen/logrus"
)

// CredentialStore persists credentials, one file per key. An operator
// supplied override in the environment takes precedence over every file and
// is re-read on each Load.
type CredentialStore struct {
	dir    string
	envVar string
	getenv func(string) string
}

// NewCredentialStore creates a store rooted at dir. An empty envVar disables
// the override.
func NewCredentialStore(dir, envVar string) *CredentialStore {
	return &CredentialStore{
		dir:    dir,
		envVar: envVar,
		getenv: os.Getenv,
	}
}

// Directory returns the directory holding credential files.
func (s *CredentialStore) Directory() string {
	return s.dir
}

// Load returns the credential for key. Malformed records are misses.
func (s *CredentialStore) Load(key string) (*auth.Credential, bool) {
	if cred, ok := s.loadOverride(); ok {
		return cred, true
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("Credential cache unreadable", logrus.Fields{"key": key, "error": err})
		}
		return nil, false
	}

	cred, err := auth.ParseCredential(data)
	if err != nil {
		logger.Debug("Ignoring malformed cached credential", logrus.Fields{"key": key, "error": err})
		return nil, false
	}
	return cred, true
}

// Save writes the credential for key. Failures are logged and swallowed.
func (s *CredentialStore) Save(key string, cred *auth.Credential) {
	if cred == nil {
		return
	}
	data, err := cred.Marshal()
	if err != nil {
		logger.Warn("Failed to encode credential", logrus.Fields{"key": key, "error": err})
		return
	}
	if err := fsutil.WriteFileAtomic(s.path(key), data, fsutil.FileModeSecure); err != nil {
		logger.Warn("Failed to persist credential", logrus.Fields{"key": key, "error": err})
		return
	}
	logger.Debug("Credential persisted", logrus.Fields{"key": key})
}

// Remove deletes the record for key.
func (s *CredentialStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *CredentialStore) loadOverride() (*auth.Credential, bool) {
	if s.envVar == "" {
		return nil, false
	}
	raw := strings.TrimSpace(s.getenv(s.envVar))
	if raw == "" {
		return nil, false
	}
	cred, err := auth.ParseCredential([]byte(raw))
	if err != nil {
		logger.Warn("Ignoring unparsable credential override", logrus.Fields{"env": s.envVar, "error": err})
		return nil, false
	}
	return cred, true
}

func (s *CredentialStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	key = strings.TrimLeft(key, ".")
	if key == "" {
		return "default"
	}
	return key
}
