package platform

import (
	"runtime"
	"slices"
	"strings"
)

// NormalizeABI maps common architecture spellings to their Android ABI name.
// Unknown values are returned lower-cased and trimmed.
func NormalizeABI(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "arm64", "aarch64", "arm64-v8a", "armv8", "armv8a":
		return ABIArm64
	case "arm", "armv7", "armv7a", "armv7l", "armeabi-v7a":
		return ABIArmV7
	case "armeabi", "armv5", "armv6":
		return ABIArm
	case "386", "i386", "i686", "x86":
		return ABIX86
	case "amd64", "x64", "x86-64", "x86_64":
		return ABIX86_64
	default:
		return arch
	}
}

// IsSupportedABI reports whether arch normalizes to an ABI with a hardware profile.
func IsSupportedABI(arch string) bool {
	return slices.Contains(SupportedABIs(), NormalizeABI(arch))
}

// HostABI returns the ABI matching the running Go architecture.
func HostABI() string {
	return NormalizeABI(runtime.GOARCH)
}
