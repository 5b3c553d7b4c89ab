package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text lowercased",
			input: "Total Revenue",
			want:  "total revenue",
		},
		{
			name:  "numeric account code stripped",
			input: "40050 - Trade Sales",
			want:  "trade sales",
		},
		{
			name:  "alphanumeric account code stripped",
			input: "A1200 - Trade Receivables",
			want:  "trade receivables",
		},
		{
			name:  "leading word before dash is not a code",
			input: "Trade - Sales",
			want:  "trade sales",
		},
		{
			name:  "intercompany prefix stripped",
			input: "IC_Loans to Group Companies",
			want:  "loans to group companies",
		},
		{
			name:  "punctuation removed",
			input: "Property, Plant & Equipment",
			want:  "property plant equipment",
		},
		{
			name:  "hyphenated words become separate tokens",
			input: "Short-term Borrowings",
			want:  "short term borrowings",
		},
		{
			name:  "whitespace collapsed",
			input: "  Cash   and\tEquivalents ",
			want:  "cash and equivalents",
		},
		{
			name:  "parentheses removed",
			input: "Interest (net)",
			want:  "interest net",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
		{
			name:  "digits inside name preserved",
			input: "Reserve 2024",
			want:  "reserve 2024",
		},
		{
			name:  "code without dash preserved",
			input: "40050 Trade Sales",
			want:  "40050 trade sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"40050 - Trade Sales",
		"12 - 34 - Deferred Tax",
		"IC_Receivables",
		"Property, Plant & Equipment",
		"Short-term Borrowings",
		"",
		"plain already normal",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", input)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"trade", "sales"}, Tokens("trade sales"))
	assert.Nil(t, Tokens(""))
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("total total revenue")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "total")
	assert.Contains(t, set, "revenue")
	assert.Nil(t, TokenSet(""))
}
