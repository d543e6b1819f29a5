package rendering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLaTeX_EmptyString(t *testing.T) {
	assert.Equal(t, "", EscapeLaTeX(""))
}

func TestEscapeLaTeX_NoSpecialCharacters(t *testing.T) {
	text := "This is normal text with no special characters"
	assert.Equal(t, text, EscapeLaTeX(text))
}

func TestEscapeLaTeX_SingleCharacters(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A & B", `A \& B`},
		{"100% complete", `100\% complete`},
		{"cost $100", `cost \$100`},
		{"issue #123", `issue \#123`},
		{"variable_name", `variable\_name`},
		{"text{with}braces", `text\{with\}braces`},
		{"approx ~5", `approx \~{}5`},
		{"x^2", `x\^{}2`},
		{`C:\path`, `C:\textbackslash{}path`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeLaTeX(tt.in))
		})
	}
}

func TestEscapeLaTeX_EachSpecialPrecededByOneBackslash(t *testing.T) {
	input := "& % $ # _ { } ~ ^"
	result := EscapeLaTeX(input)

	for _, special := range []string{"&", "%", "$", "#", "_", "{", "}", "~", "^"} {
		idx := strings.Index(result, special)
		if !assert.Positive(t, idx, special) {
			continue
		}
		assert.Equal(t, byte('\\'), result[idx-1], "%q should be escaped", special)
		if idx >= 2 {
			assert.NotEqual(t, byte('\\'), result[idx-2], "%q escaped twice", special)
		}
	}
}

func TestEscapeLaTeX_Unicode(t *testing.T) {
	assert.Equal(t, `Café \& Crème`, EscapeLaTeX("Café & Crème"))
}

func TestEscapeURL(t *testing.T) {
	assert.Equal(t, "", EscapeURL(""))
	assert.Equal(t, "https://example.com/a_b~c", EscapeURL("https://example.com/a_b~c"))
	assert.Equal(t, `https://example.com/\#top`, EscapeURL("https://example.com/#top"))
	assert.Equal(t, `https://x.io/?q=a\%20b\&r=1`, EscapeURL("https://x.io/?q=a%20b&r=1"))
	assert.Equal(t, `https://x.io/\%7Bid\%7D`, EscapeURL("https://x.io/{id}"))
}

func TestDisplayURL(t *testing.T) {
	assert.Equal(t, "github.com/ada", displayURL("https://github.com/ada/"))
	assert.Equal(t, "ada@example.com", displayURL("mailto:ada@example.com"))
}
