package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeABI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"arm64", ABIArm64},
		{"AArch64", ABIArm64},
		{" arm64-v8a ", ABIArm64},
		{"armv7", ABIArmV7},
		{"arm", ABIArmV7},
		{"armeabi-v7a", ABIArmV7},
		{"armeabi", ABIArm},
		{"i686", ABIX86},
		{"amd64", ABIX86_64},
		{"mips", "mips"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeABI(tt.in))
		})
	}
}

func TestIsSupportedABI(t *testing.T) {
	assert.True(t, IsSupportedABI("arm64"))
	assert.True(t, IsSupportedABI("armeabi-v7a"))
	assert.False(t, IsSupportedABI("x86_64"))
	assert.False(t, IsSupportedABI(""))
}

func TestHostABI(t *testing.T) {
	assert.NotEmpty(t, HostABI())
}
