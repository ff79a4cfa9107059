package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"High Park Pool", "high-park-pool"},
		{"Norseman Community School and Pool", "norseman-community-school-and-pool"},
		{"St. Lawrence C.C.", "st-lawrence-c-c"},
		{"  Leading & Trailing  ", "leading-trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.in))
		})
	}
}

func TestNormalizePostal(t *testing.T) {
	assert.Equal(t, "M6P1B7", NormalizePostal("m6p 1b7"))
	assert.Equal(t, "M6P1B7", NormalizePostal(" M6P 1B7 "))
	assert.Equal(t, "", NormalizePostal(""))
}
