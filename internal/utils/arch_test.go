package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x64", "x64"},
		{"amd64", "x64"},
		{"x86", "x86"},
		{"386", "x86"},
		{"arm64", "arm64"},
		{"ia64", ""},
		{"sparc", ""},
	}

	for _, test := range tests {
		result := NormalizeArch(test.input)
		assert.Equal(t, test.expected, result, "NormalizeArch(%q)", test.input)
	}
}

func TestNormalizeArch_HostDefault(t *testing.T) {
	// Empty input resolves from the host; whatever the host is, the
	// result must be one of the identifiers candle accepts.
	result := NormalizeArch("")
	assert.Contains(t, []string{"x86", "x64", "arm64"}, result)
}
