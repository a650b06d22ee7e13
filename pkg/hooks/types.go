// Package hooks runs user supplied Tengo scripts after a package was
// resolved or its artifact was assembled.
package hooks

// HookType represents the type of hooks.
type HookType string

// Supported hooks types.
const (
	PostResolve  HookType = "post-resolve"
	PostDownload HookType = "post-download"
)

// IsValid reports whether t is a supported hook type.
func (t HookType) IsValid() bool {
	return t == PostResolve || t == PostDownload
}

// Hook represents a hooks script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext contains information passed to hooks.
type HookContext struct {
	PackageName   string
	VersionCode   int64
	VersionString string
	Title         string
	// ArtifactPath is set for post-download hooks when the artifact was written to disk.
	ArtifactPath string
	Filename     string
	Secondaries  []string
	Vars         map[string]interface{}
}

// HookManager defines the interface for managing hooks.
type HookManager interface {
	// Execute runs the specified hooks type with the given context
	Execute(hookType HookType, ctx HookContext) error

	// AddHook adds a new hooks
	AddHook(hook Hook) error

	// RemoveHook removes a hooks of the specified type
	RemoveHook(hookType HookType) error

	// HasHook checks if a hooks of the specified type exists
	HasHook(hookType HookType) bool
}
