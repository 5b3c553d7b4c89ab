package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "short string unchanged", input: "Net Income", limit: 34, want: "Net Income"},
		{name: "exact length unchanged", input: "abcde", limit: 5, want: "abcde"},
		{name: "long string gets ellipsis", input: "Deferred Consideration Payable", limit: 12, want: "Deferred ..."},
		{name: "tiny limit hard cut", input: "abcdef", limit: 3, want: "abc"},
		{name: "multibyte counted per rune", input: "Förutbetalda kostnader", limit: 10, want: "Förutbe..."},
		{name: "multibyte hard cut", input: "收入合计金额", limit: 3, want: "收入合"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
