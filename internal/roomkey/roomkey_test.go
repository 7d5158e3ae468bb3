package roomkey

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var format = regexp.MustCompile(`^[ACDEFGHJKMNPQRTUVWXYZ234679]{3}-[ACDEFGHJKMNPQRTUVWXYZ234679]{3}-[ACDEFGHJKMNPQRTUVWXYZ234679]{3}$`)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := Generate()
		require.Regexp(t, format, key)

		for _, c := range "0158OILSB" {
			assert.NotContains(t, key, string(c))
		}
	}
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		key := Generate()
		require.False(t, seen[key], "duplicate key %s after %d generations", key, i)
		seen[key] = true
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"ACD-EFG-HJK", true},
		{"acd-efg-hjk", true},
		{"  ACD-EFG-HJK  ", true},
		{"234-679-ZZZ", true},
		{"", false},
		{"ACD-EFG", false},
		{"ACDEFGHJK", false},
		{"AB1-EFG-HJK", false}, // B and 1 are excluded
		{"AC0-EFG-HJK", false},
		{"ACD-EFG-HJKX", false},
		{"ZZZ-ZZZ-ZZ", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValid(tt.key), "key %q", tt.key)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ACD-EFG-HJK", Normalize(" acd-efg-hjk\n"))
	assert.Equal(t, "ACD-EFG-HJK", Normalize("ACD-EFG-HJK"))
}

func TestValidatorIdempotence(t *testing.T) {
	inputs := []string{"acd-efg-hjk", " QWU-RTV-XYZ ", "nope", "", "acd-efg-hjk extra"}
	for _, in := range inputs {
		assert.Equal(t, IsValid(in), IsValid(Normalize(in)), "input %q", in)
	}
}

func TestGeneratedKeysAreValid(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := Generate()
		assert.True(t, IsValid(key))
		assert.Equal(t, key, Normalize(key))
		assert.True(t, strings.Count(key, "-") == 2)
	}
}
