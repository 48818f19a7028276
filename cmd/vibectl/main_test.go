package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickPick(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want int
		ok   bool
	}{
		{"1", 3, 0, true},
		{" 3 ", 3, 2, true},
		{"4", 3, 0, false},
		{"0", 3, 0, false},
		{"12", 3, 0, false},
		{"hello", 3, 0, false},
	}
	for _, tc := range cases {
		got, ok := quickPick(tc.in, tc.n)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("VIBECTL_TEST_KEY", "")
	assert.Equal(t, "fallback", envOr("VIBECTL_TEST_KEY", "fallback"))
	t.Setenv("VIBECTL_TEST_KEY", "set")
	assert.Equal(t, "set", envOr("VIBECTL_TEST_KEY", "fallback"))
}
