//go:generate mockgen -destination=./mocks/orchestrator.go . CredentialStore,CredentialIssuer,CatalogResolver,Downloader,ArtifactStore,HookRunner

package orchestrator

import (
	"context"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/archive"
	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/device"
	"github.com/glorpus-work/apkfetch/pkg/download"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/signer"
)

// Defaults applied to a zero Config.
const (
	DefaultMaxAttempts     = 10
	DefaultIssuanceBackoff = time.Second
	DefaultRetryBackoff    = 500 * time.Millisecond
)

// CredentialStore is the subset of the credential cache used by the orchestrator.
type CredentialStore interface {
	Load(key string) (*auth.Credential, bool)
	Save(key string, cred *auth.Credential)
}

// CredentialIssuer exchanges a device profile for a fresh credential.
type CredentialIssuer interface {
	Issue(ctx context.Context, profile device.Profile) (*auth.Credential, error)
}

// CatalogResolver turns a package id into a download plan.
type CatalogResolver interface {
	Resolve(ctx context.Context, pkg string, cred *auth.Credential, region device.Region) (*model.DownloadPlan, error)
}

// Downloader handles artifact downloading.
type Downloader interface {
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) (map[string]string, error)
}

// ArtifactStore keeps assembled artifacts for later pickup.
type ArtifactStore interface {
	Put(filename string, data []byte) (string, error)
}

// HookRunner runs user scripts at fixed points of a fetch.
type HookRunner interface {
	Execute(hookType hooks.HookType, ctx hooks.HookContext) error
}

// Orchestrator ties the credential cache, the issuance endpoint and the
// catalog together, and assembles fetched artifacts.
type Orchestrator struct {
	Store     CredentialStore
	Issuer    CredentialIssuer
	Catalog   CatalogResolver
	DL        Downloader
	Merger    archive.Merger
	Signer    signer.Signer
	Artifacts ArtifactStore
	Scripts   HookRunner
	Config    Config
	Hooks     Hooks // Hooks for progress and event notifications
}

// Config bounds the fresh credential loop.
type Config struct {
	MaxAttempts     int
	IssuanceBackoff time.Duration // wait after a failed issuance
	RetryBackoff    time.Duration // wait after a credential was rejected by the catalog
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.IssuanceBackoff < 0 {
		c.IssuanceBackoff = 0
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	return c
}

// Request names the package and the identity to resolve it with. Unknown
// device or region keys fall back to the defaults.
type Request struct {
	Package string
	Device  string
	Region  string
	// Version is an optional constraint on the resolved version label.
	Version string
}

// EventType tags an Event.
type EventType string

// Event types. Success and error are terminal.
const (
	EventProgress EventType = "progress"
	EventSuccess  EventType = "success"
	EventError    EventType = "error"
)

// Phases reported in progress events.
const (
	PhaseCached   = "cached"
	PhaseIssue    = "issue"
	PhaseDownload = "download"
	PhaseMerge    = "merge"
	PhaseSign     = "sign"
	PhaseDone     = "done"
)

// Event represents a progress notification. It is observational only.
type Event struct {
	Type       EventType           `json:"type"`
	Phase      string              `json:"step,omitempty"`
	Attempt    int                 `json:"attempt,omitempty"`
	Message    string              `json:"message,omitempty"`
	Kind       model.Kind          `json:"kind,omitempty"`
	Current    int                 `json:"current,omitempty"`
	Total      int                 `json:"total,omitempty"`
	Plan       *model.DownloadPlan `json:"data,omitempty"`
	DownloadID string              `json:"download_id,omitempty"`
	Filename   string              `json:"filename,omitempty"`
	Size       int64               `json:"size,omitempty"`
	Original   bool                `json:"original,omitempty"`
}

// Terminal reports whether e ends a stream.
func (e Event) Terminal() bool { return e.Type != EventProgress }

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// FetchOptions control artifact retrieval.
type FetchOptions struct {
	// WorkDir receives the downloaded parts. Empty means a temporary
	// directory removed after the fetch.
	WorkDir     string
	Concurrency int
	// OutputDir, when set, receives the assembled artifact.
	OutputDir string
}

// FetchResult is an assembled artifact.
type FetchResult struct {
	Plan       *model.DownloadPlan
	Data       []byte
	Filename   string
	Original   bool   // true when the primary was returned without merging
	DownloadID string // set when an ArtifactStore is configured
	Path       string // set when OutputDir was given
}
