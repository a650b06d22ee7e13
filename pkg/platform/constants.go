// Package platform provides constants and utilities for Android instruction-set
// architectures (ABIs) used to pick a hardware profile.
package platform

const (
	// ABIArm64 is the 64-bit ARM ABI.
	ABIArm64 = "arm64-v8a"
	// ABIArmV7 is the 32-bit ARMv7 ABI.
	ABIArmV7 = "armeabi-v7a"
	// ABIArm is the legacy 32-bit ARM ABI.
	ABIArm = "armeabi"
	// ABIX86 is the 32-bit x86 ABI.
	ABIX86 = "x86"
	// ABIX86_64 is the 64-bit x86 ABI.
	ABIX86_64 = "x86_64"
)

// SupportedABIs returns the ABIs that have a hardware profile, in preference order.
func SupportedABIs() []string {
	return []string{ABIArm64, ABIArmV7}
}
