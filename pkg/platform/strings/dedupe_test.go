package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDedupeTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  a  ", "b  "}, expected: []string{"a", "b"}},
		{name: "splits comma lists", input: []string{"http://a,http://b", "http://c"}, expected: []string{"http://a", "http://b", "http://c"}},
		{name: "drops repeats across entries", input: []string{"a, b", "b", "a"}, expected: []string{"a", "b"}},
		{name: "drops empties", input: []string{",", " ", "a,,"}, expected: []string{"a"}},
		{name: "preserves case", input: []string{"Foo", "foo"}, expected: []string{"Foo", "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitDedupeTrim(tt.input))
		})
	}
}
