package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *DownloadPlan {
	return &DownloadPlan{
		Package:       "com.example.app",
		Title:         "Example",
		VersionCode:   5,
		VersionString: "1.4.2",
		Primary:       ArtifactDescriptor{Name: "base", URL: "https://cdn.example/base"},
		Secondaries: []ArtifactDescriptor{
			{Name: "config.arm64_v8a", URL: "https://cdn.example/arm64"},
			{Name: "config.he", URL: "https://cdn.example/he"},
		},
		Cookies: []Cookie{{Name: "DRM", Value: "abc"}, {Name: "NID", Value: "42"}},
	}
}

func TestDownloadPlan_Validate(t *testing.T) {
	p := testPlan()
	require.NoError(t, p.Validate())

	p.Primary.URL = ""
	assert.ErrorIs(t, p.Validate(), ErrProtocol)

	p = testPlan()
	p.VersionCode = 0
	assert.ErrorIs(t, p.Validate(), ErrRegionRestricted)
}

func TestDownloadPlan_Artifacts(t *testing.T) {
	p := testPlan()
	names := []string{}
	for _, a := range p.Artifacts() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"base", "config.arm64_v8a", "config.he"}, names)
	assert.True(t, p.HasSecondaries())
	assert.Equal(t, "cdn.example", p.Primary.GetURL().Host)
}

func TestDownloadPlan_CookieHeader(t *testing.T) {
	assert.Equal(t, "DRM=abc; NID=42", testPlan().CookieHeader())
	assert.Empty(t, (&DownloadPlan{}).CookieHeader())
}

func TestDownloadPlan_Filenames(t *testing.T) {
	p := testPlan()
	assert.Equal(t, "com.example.app-5.apk", p.Filename())
	assert.Equal(t, "com.example.app-5-merged.apk", p.MergedFilename())
}

func TestDownloadPlan_MatchVersion(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		constraint string
		expected   bool
	}{
		{"empty constraint matches", "1.4.2", "", true},
		{"exact match", "1.4.2", "= 1.4.2", true},
		{"range match", "1.4.2", ">= 1.0, < 2.0", true},
		{"range miss", "2.1.0", ">= 1.0, < 2.0", false},
		{"unparsable label", "build-2024", ">= 1.0", false},
		{"invalid constraint", "1.4.2", "not a constraint", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlan()
			p.VersionString = tt.label
			assert.Equal(t, tt.expected, p.MatchVersion(tt.constraint))
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "Unknown"},
		{512, "512.00 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.00 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSize(tt.size))
	}
}
