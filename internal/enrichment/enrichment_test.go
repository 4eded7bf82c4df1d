package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "D12345678", Clean("D12.345.678"))
	assert.Equal(t, "D12345678", Clean("D12-345-678"))
	assert.Equal(t, "D12345678", Clean(" D12345678 "))

	// Cleaning is idempotent: re-running normalization is safe.
	assert.Equal(t, Clean("D12.345.678"), Clean(Clean("D12.345.678")))
}

func TestRequired(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"D12.345.678", true},
		{"D12345678", true},
		{"ORD12345678", false},
		{"A123", false},
		{"D1234567", false},   // too short after cleaning
		{"D123456789", false}, // too long
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Required(tc.id), "id %q", tc.id)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("D12345678"))

	err := Validate("")
	require.Error(t, err)

	err = Validate("X12345678")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `must start with "D"`)

	err = Validate("D1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "9 characters")
}
