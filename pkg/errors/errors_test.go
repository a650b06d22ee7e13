package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{
			name:     "wrap nil error",
			err:      nil,
			msg:      "resolving",
			expected: "",
		},
		{
			name:     "wrap standard error",
			err:      errors.New("connection reset"),
			msg:      "details request",
			expected: "details request: connection reset",
		},
		{
			name:     "wrap with empty message",
			err:      errors.New("connection reset"),
			msg:      "",
			expected: ": connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				assert.NoError(t, result)
				return
			}
			assert.Equal(t, tt.expected, result.Error())
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestWrapf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "wrapf nil error",
			err:      nil,
			format:   "formatted: %s",
			args:     []interface{}{"test"},
			expected: "",
		},
		{
			name:     "wrapf with multiple args",
			err:      errors.New("timeout"),
			format:   "attempt %d for %s",
			args:     []interface{}{3, "com.example.app"},
			expected: "attempt 3 for com.example.app: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrapf(tt.err, tt.format, tt.args...)
			if tt.err == nil {
				assert.NoError(t, result)
				return
			}
			assert.Equal(t, tt.expected, result.Error())
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestDetailHelpers(t *testing.T) {
	assert.ErrorIs(t, ErrUnknownDeviceWithName("x86"), ErrUnknownDevice)
	assert.Contains(t, ErrUnknownDeviceWithName("x86").Error(), `"x86"`)
	assert.ErrorIs(t, ErrUnknownRegionWithName("fr"), ErrUnknownRegion)
	assert.ErrorIs(t, ErrInvalidLogLevelWithDetails("loud"), ErrInvalidLogLevel)
	assert.ErrorIs(t, ErrInvalidOutputFormatWithDetails("xml"), ErrInvalidOutputFormat)
}
