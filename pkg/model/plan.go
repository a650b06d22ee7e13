// Package model provides the data structures shared by the resolution engine,
// the catalog client and the artifact pipeline.
package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"
)

// ArtifactDescriptor references one downloadable artifact.
type ArtifactDescriptor struct {
	Name string `json:"name"`
	URL  string `json:"downloadUrl"`
	Size int64  `json:"downloadSize,omitempty"`
}

// GetURL returns the parsed URL of this artifact.
func (a ArtifactDescriptor) GetURL() *url.URL {
	parse, err := url.Parse(a.URL)
	if err != nil {
		return nil
	}
	return parse
}

// Cookie is a session cookie required to retrieve artifacts.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DownloadPlan is a resolved application: version metadata plus the artifacts
// to fetch. A plan never has an empty primary URL nor a zero version code.
type DownloadPlan struct {
	Package       string               `json:"docid"`
	Title         string               `json:"title"`
	VersionCode   int64                `json:"versionCode"`
	VersionString string               `json:"versionString"`
	Primary       ArtifactDescriptor   `json:"primary"`
	Secondaries   []ArtifactDescriptor `json:"splits"`
	Cookies       []Cookie             `json:"cookies"`
}

// Validate checks the plan invariants.
func (p *DownloadPlan) Validate() error {
	if p.Primary.URL == "" {
		return NewFailure(KindProtocol, "no download url")
	}
	if p.VersionCode == 0 {
		return NewFailure(KindRegionRestricted, "version code is zero")
	}
	return nil
}

// Artifacts returns the primary followed by the secondaries in order.
func (p *DownloadPlan) Artifacts() []ArtifactDescriptor {
	out := make([]ArtifactDescriptor, 0, 1+len(p.Secondaries))
	out = append(out, p.Primary)
	return append(out, p.Secondaries...)
}

// HasSecondaries reports whether the plan needs merging.
func (p *DownloadPlan) HasSecondaries() bool { return len(p.Secondaries) > 0 }

// CookieHeader renders the cookies as a Cookie request header value.
func (p *DownloadPlan) CookieHeader() string {
	parts := make([]string, 0, len(p.Cookies))
	for _, c := range p.Cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Filename is the name of the primary artifact on disk.
func (p *DownloadPlan) Filename() string {
	return fmt.Sprintf("%s-%d.apk", p.Package, p.VersionCode)
}

// MergedFilename is the name of the merged artifact on disk.
func (p *DownloadPlan) MergedFilename() string {
	return fmt.Sprintf("%s-%d-merged.apk", p.Package, p.VersionCode)
}

// GetVersion returns the parsed version label, or nil if it is not a version.
func (p *DownloadPlan) GetVersion() *version.Version {
	v, err := version.NewVersion(p.VersionString)
	if err != nil {
		return nil
	}
	return v
}

// MatchVersion checks if the version label satisfies the given constraint.
// An empty constraint always matches.
func (p *DownloadPlan) MatchVersion(versionConstraint string) bool {
	if strings.TrimSpace(versionConstraint) == "" {
		return true
	}
	constraint, err := version.NewConstraint(versionConstraint)
	if err != nil {
		return false
	}
	v := p.GetVersion()
	if v == nil {
		return false
	}
	return constraint.Check(v)
}

// FormatSize renders a byte count for humans.
func FormatSize(size int64) string {
	if size <= 0 {
		return "Unknown"
	}
	f := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if f < 1024 {
			return fmt.Sprintf("%.2f %s", f, unit)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.2f TB", f)
}
