package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/apkfetch/pkg/fsutil"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/tool"
	"github.com/sirupsen/logrus"
)

// Part is a named secondary archive.
type Part struct {
	Name string
	Data []byte
}

// Merger combines a primary archive and its secondaries into one archive.
type Merger interface {
	Merge(ctx context.Context, primary []byte, secondaries []Part) ([]byte, error)
	Name() string
}

const (
	manifestPath  = "AndroidManifest.xml"
	signingPrefix = "META-INF/"
	nativePrefix  = "lib/"
)

var signingExtensions = []string{".SF", ".RSA", ".DSA", ".EC", ".MF"}

// IsSigningMetadata reports whether name is a signature file of the archive.
func IsSigningMetadata(name string) bool {
	if !strings.HasPrefix(name, signingPrefix) {
		return false
	}
	for _, ext := range signingExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// NaiveMerger overlays secondaries on the primary entry by entry. The result
// is an approximation of a proper merge: resource tables and manifests of the
// secondaries are not combined.
type NaiveMerger struct{}

// Name returns the strategy name.
func (NaiveMerger) Name() string { return "naive" }

// Merge keeps every primary entry except signing metadata, then adds each
// secondary's entries in order. Native libraries always take the secondary's
// copy; other existing entries are kept. Output entries are sorted by path.
func (NaiveMerger) Merge(ctx context.Context, primary []byte, secondaries []Part) ([]byte, error) {
	base, err := ReadEntries(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	merged := make(map[string]Entry, len(base))
	for _, e := range base {
		if IsSigningMetadata(e.Name) {
			continue
		}
		merged[e.Name] = e
	}

	for _, part := range secondaries {
		entries, err := ReadEntries(ctx, part.Data)
		if err != nil {
			return nil, fmt.Errorf("secondary %s: %w", part.Name, err)
		}
		for _, e := range entries {
			if IsSigningMetadata(e.Name) || e.Name == manifestPath {
				continue
			}
			if _, exists := merged[e.Name]; exists && !strings.HasPrefix(e.Name, nativePrefix) {
				continue
			}
			merged[e.Name] = e
		}
	}

	out := make([]Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}

	var buf bytes.Buffer
	if err := WriteEntries(ctx, &buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExternalMerger runs APKEditor (java -jar APKEditor.jar m) in a scratch
// directory and falls back to Fallback when the tool fails.
type ExternalMerger struct {
	Java     string
	Jar      string
	Runner   tool.Runner
	Fallback Merger
}

// Name returns the strategy name.
func (m *ExternalMerger) Name() string { return "apkeditor" }

// Merge runs the external tool; any tool failure is logged and the fallback is used.
func (m *ExternalMerger) Merge(ctx context.Context, primary []byte, secondaries []Part) ([]byte, error) {
	out, err := m.run(ctx, primary, secondaries)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := m.Fallback
	if fallback == nil {
		fallback = NaiveMerger{}
	}
	logger.Warn("External merge failed, using fallback", logrus.Fields{
		"tool":     m.Name(),
		"fallback": fallback.Name(),
		"error":    err,
	})
	return fallback.Merge(ctx, primary, secondaries)
}

func (m *ExternalMerger) run(ctx context.Context, primary []byte, secondaries []Part) ([]byte, error) {
	work, err := os.MkdirTemp("", "apk_merge_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(work) }()

	inDir := filepath.Join(work, "in")
	if err := os.MkdirAll(inDir, fsutil.DirModePrivate); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(inDir, "base.apk"), primary, fsutil.FileModeSecure); err != nil {
		return nil, err
	}
	for i, part := range secondaries {
		name := fmt.Sprintf("split%d.apk", i)
		if err := os.WriteFile(filepath.Join(inDir, name), part.Data, fsutil.FileModeSecure); err != nil {
			return nil, err
		}
	}

	output := filepath.Join(work, "merged.apk")
	if _, err := m.Runner.Run(ctx, m.Java, "-jar", m.Jar, "m", "-i", inDir, "-o", output); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("merge tool produced no output: %w", err)
	}
	return data, nil
}

// ProbeOptions locates the external merge tool.
type ProbeOptions struct {
	Java   string
	Jar    string
	Runner tool.Runner
}

// Probe selects the merge strategy once: the external tool when both java
// and the jar are present, the naive merger otherwise.
func Probe(opts ProbeOptions) Merger {
	java := opts.Java
	if java == "" {
		java = "java"
	}
	javaPath, ok := tool.Find(java)
	if !ok || !tool.FileExists(opts.Jar) {
		logger.Debug("Merge tool unavailable, using naive merge", logrus.Fields{"java": java, "jar": opts.Jar})
		return NaiveMerger{}
	}

	runner := opts.Runner
	if runner == nil {
		runner = tool.Exec{}
	}
	return &ExternalMerger{
		Java:     javaPath,
		Jar:      opts.Jar,
		Runner:   runner,
		Fallback: NaiveMerger{},
	}
}
