package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesAlgebra(t *testing.T) {
	cases := []struct {
		topic, filter string
		want          bool
	}{
		{"a", "#", true},
		{"a/b/c", "#", true},
		{"a/b", "a/b", true},
		{"a/b", "a/+", true},
		{"a/b/c", "a/#", true},
		{"a", "a/#", true},
		{"a/b", "a/b/c", false},
		{"a/b/c", "a/+", false},
		{"a/b/c", "a/+/c", true},
		{"sport/tennis/player1", "sport/tennis/player1/#", true},
		{"sport/tennis/player1/ranking", "sport/tennis/player1/#", true},
		{"sport", "sport/#", true},
		{"/finance", "+/+", true},
		{"/finance", "/+", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Matches(c.topic, c.filter), "Matches(%q, %q)", c.topic, c.filter)
	}
}

func TestSplit(t *testing.T) {
	got := Split("a/b/c")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
