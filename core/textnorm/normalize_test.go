package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Normalize Tests
// =============================================================================

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only wrapping", " [ '' ] ", ""},
		{"python list", "  ['x', 'y']  ", "x, y"},
		{"brace group kept whole", "{a, b}, c", "{a, b}, c"},
		{"nested braces", "{a, {b, c}}, d", "{a, {b, c}}, d"},
		{"double quotes", `["alpha", "beta"]`, "alpha, beta"},
		{"drops empty elements", "a,, ,b", "a, b"},
		{"drops duplicates keeping first", "b, a, b, a", "b, a"},
		{"plain scalar", "value", "value"},
		{"inner brackets survive", "[a], b", "a], b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"{a, b}, c",
		"  ['x', 'y']  ",
		"['self', 'x', 'self']",
		"{k: {v, w}}, 'q', \"r\"",
		"a], [b",
		"x, ]",
		"a],",
		",['a']",
		"[['a'], '']",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_StripsExposedBrackets(t *testing.T) {
	assert.Equal(t, "a", Normalize("a],"))
	assert.Equal(t, "a", Normalize(",['a']"))
	assert.Equal(t, "a", Normalize("[['a'], '']"))
}

func TestSplitTopLevel(t *testing.T) {
	assert.Equal(t, []string{"{a, b}", " c"}, SplitTopLevel("{a, b}, c"))
	assert.Equal(t, []string{"a"}, SplitTopLevel("a"))
	assert.Equal(t, []string{"", ""}, SplitTopLevel(","))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "x, y, z", Join("['x', 'y']", "", "y, z"))
	assert.Equal(t, "", Join("", " [] "))
}

// =============================================================================
// InfoString Tests
// =============================================================================

func TestInfoString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string list", []any{"a", " b ", ""}, "a, b"},
		{"typed list", []string{"x", "y"}, "x, y"},
		{"comma string", "a,b , c,", "a, b, c"},
		{"number", 42, "42"},
		{"mapping", map[string]any{"b": []any{"x"}, "a": 1}, `{"a":1, "b":["x"]}`},
		{"marshaler", orderedPair{}, `{"z":1, "a":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InfoString(tt.value))
		})
	}
}

// orderedPair marshals with a fixed, non-alphabetical key order.
type orderedPair struct{}

func (orderedPair) MarshalJSON() ([]byte, error) { return []byte(`{"z":1,"a":2}`), nil }
