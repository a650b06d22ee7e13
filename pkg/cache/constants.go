package cache

import "github.com/glorpus-work/apkfetch/pkg/fsutil"

// CacheDirPerm is the default permission mode for cache directories (rwx------).
const CacheDirPerm = fsutil.DirModePrivate

// Subdirectories of the cache directory.
const (
	CredentialsDir = "credentials"
	ArtifactsDir   = "artifacts"
)

// DefaultCredentialEnv is the environment variable holding a pinned credential.
const DefaultCredentialEnv = "GPLAY_AUTH_TOKEN"
