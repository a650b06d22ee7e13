package hooks

import (
	"os"
	"sort"

	"github.com/glorpus-work/apkfetch/pkg/errors"
)

// HookFileExtensions lists the supported hooks file extensions.
var HookFileExtensions = map[string]bool{
	".tengo": true,
}

// LoadHooks reads every script named in scripts (hook type -> file path) and
// registers it with manager. Unknown hook types are rejected.
func LoadHooks(manager HookManager, scripts map[string]string) error {
	types := make([]string, 0, len(scripts))
	for t := range scripts {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		hookType := HookType(t)
		if !hookType.IsValid() {
			return ErrUnsupportedHookEvent(t)
		}

		path := scripts[t]
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(ErrHookLoad, "error reading hooks file %s: %v", path, err)
		}

		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return errors.Wrapf(err, "error adding hooks %s", t)
		}
	}
	return nil
}

// HookTemplate generates a template for a hooks script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PostResolve:
		return `// Post-resolve hook
// Runs after a package was resolved, before any artifact is fetched.
// Available variables:
// - packageName: string
// - versionCode: int
// - versionString: string
// - title: string
// - secondaries: array of secondary artifact names
//
// Set err to abort the download:
/*
if versionCode < 100 {
    err := "refusing old build"
}
*/`

	case PostDownload:
		return `// Post-download hook
// Runs after the artifact was assembled.
// Available variables: same as post-resolve plus
// - filename: string - name of the assembled artifact
// - artifactPath: string - path on disk when the artifact was written out
//
// Example:
/*
fmt := import("fmt")
fmt.println("fetched ", filename)
*/`

	default:
		return "// Unknown hooks type: " + string(hookType)
	}
}
