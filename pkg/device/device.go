// Package device builds the hardware and locale identities presented to the
// credential issuance endpoint.
//
// A Profile is the total merge of three layers: a baseline shared by all
// hardware, a named hardware definition, and a region overlay. Region overlays
// are typed and can only contribute locale, timezone, carrier and roaming
// properties, so they never clobber hardware fields.
package device

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/glorpus-work/apkfetch/pkg/platform"
	"github.com/hashicorp/go-version"
)

// RoamingHome is the roaming flag every profile reports.
const RoamingHome = "mobile-notroaming"

// Property is a single name/value pair of a device description.
type Property struct {
	Key   string
	Value string
}

// Hardware is a named hardware and software base.
type Hardware struct {
	Key        string
	Name       string
	ABIs       []string
	Properties []Property
}

// Release returns the Android release string of the hardware, if declared.
func (h Hardware) Release() string {
	for _, p := range h.Properties {
		if p.Key == "Build.VERSION.RELEASE" {
			return p.Value
		}
	}
	return ""
}

// Region is a locale and carrier overlay.
type Region struct {
	Key          string
	Country      string
	Language     string // e.g. he_IL
	TimeZone     string
	SimOperator  string
	CellOperator string
}

// LocaleTag returns the BCP 47 style tag of the region language (he_IL -> he-IL).
func (r Region) LocaleTag() string {
	return strings.ReplaceAll(r.Language, "_", "-")
}

// Profile is an immutable, fully merged device identity.
type Profile struct {
	name       string
	hardware   string
	region     Region
	abis       []string
	properties []Property
}

// BuildProfile merges the baseline, the hardware named by deviceKey and the
// region named by regionKey. Unknown keys fall back to DefaultDevice and
// DefaultRegion. The result depends only on its inputs.
func BuildProfile(deviceKey, regionKey string) Profile {
	hw := LookupHardware(deviceKey)
	rg := LookupRegion(regionKey)

	props := make([]Property, 0, len(baseline)+len(hw.Properties)+8)
	props = append(props, Property{"UserReadableName", hw.Name})
	props = append(props, baseline...)
	for _, p := range hw.Properties {
		props = setProperty(props, p)
	}
	props = setProperty(props, Property{"Platforms", strings.Join(hw.ABIs, ",")})

	props = append(props,
		Property{"Locales", rg.Language + ",en_US"},
		Property{"TimeZone", rg.TimeZone},
		Property{"SimOperator", rg.SimOperator},
		Property{"CellOperator", rg.CellOperator},
		Property{"Roaming", RoamingHome},
	)

	return Profile{
		name:       hw.Name,
		hardware:   hw.Key,
		region:     rg,
		abis:       slices.Clone(hw.ABIs),
		properties: props,
	}
}

func setProperty(props []Property, p Property) []Property {
	for i := range props {
		if props[i].Key == p.Key {
			props[i].Value = p.Value
			return props
		}
	}
	return append(props, p)
}

// LookupHardware returns the hardware for key, or the default hardware.
func LookupHardware(key string) Hardware {
	if hw, ok := hardware[platform.NormalizeABI(key)]; ok {
		return hw
	}
	return hardware[DefaultDevice]
}

// LookupRegion returns the region for key, or the default region.
func LookupRegion(key string) Region {
	if rg, ok := regions[strings.ToLower(strings.TrimSpace(key))]; ok {
		return rg
	}
	return regions[DefaultRegion]
}

// HasHardware reports whether key names a catalog hardware entry.
func HasHardware(key string) bool {
	_, ok := hardware[platform.NormalizeABI(key)]
	return ok
}

// HasRegion reports whether key names a catalog region.
func HasRegion(key string) bool {
	_, ok := regions[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Devices returns all hardware definitions, newest Android release first.
func Devices() []Hardware {
	out := make([]Hardware, 0, len(hardware))
	for _, hw := range hardware {
		out = append(out, hw)
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, erri := version.NewVersion(out[i].Release())
		vj, errj := version.NewVersion(out[j].Release())
		if erri != nil || errj != nil {
			return out[i].Key < out[j].Key
		}
		if vi.Equal(vj) {
			return out[i].Key < out[j].Key
		}
		return vi.GreaterThan(vj)
	})
	return out
}

// Regions returns all regions sorted by key.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for _, rg := range regions {
		out = append(out, rg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Name returns the human readable device name.
func (p Profile) Name() string { return p.name }

// HardwareKey returns the catalog key of the hardware layer.
func (p Profile) HardwareKey() string { return p.hardware }

// Region returns the region overlay.
func (p Profile) Region() Region { return p.region }

// ABIs returns the supported instruction sets.
func (p Profile) ABIs() []string { return slices.Clone(p.abis) }

// Properties returns the ordered property list.
func (p Profile) Properties() []Property { return slices.Clone(p.properties) }

// Get returns a single property value.
func (p Profile) Get(key string) (string, bool) {
	for _, prop := range p.properties {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// Equal reports whether every merged field of p and o matches.
func (p Profile) Equal(o Profile) bool {
	return p.name == o.name &&
		p.hardware == o.hardware &&
		p.region == o.region &&
		slices.Equal(p.abis, o.abis) &&
		slices.Equal(p.properties, o.properties)
}

// Fingerprint is a stable digest over every merged property.
func (p Profile) Fingerprint() string {
	h := sha256.New()
	for _, prop := range p.properties {
		_, _ = fmt.Fprintf(h, "%s=%s\n", prop.Key, prop.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey identifies the profile for credential persistence.
func (p Profile) CacheKey() string {
	return fmt.Sprintf("%s_%s_%s", p.hardware, p.region.Key, p.Fingerprint()[:12])
}

// MarshalJSON renders the property list as a JSON object, preserving order.
// This is the payload sent to the issuance endpoint.
func (p Profile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p.properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(prop.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
