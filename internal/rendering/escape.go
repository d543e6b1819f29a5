// Package rendering renders career profiles into LaTeX resumes.
package rendering

import "strings"

// EscapeLaTeX escapes special LaTeX characters in user-supplied text.
// Special characters: & % $ # _ { } ~ ^ \
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\':
			// A doubled backslash is a line break inside tabular rows, so use the text glyph.
			result.WriteString(`\textbackslash{}`)
		case '{', '}', '$', '&', '%', '#', '_':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '~':
			result.WriteString(`\~{}`)
		case '^':
			result.WriteString(`\^{}`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// EscapeURL makes a URL safe to use as the first argument of \href.
// hyperref reads _ and ~ verbatim, so only characters that break argument parsing are touched.
func EscapeURL(url string) string {
	if url == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(url) + 8)

	for _, r := range url {
		switch r {
		case '%', '#', '&':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '{':
			result.WriteString(`\%7B`)
		case '}':
			result.WriteString(`\%7D`)
		case '\\':
			result.WriteString(`\%5C`)
		case '$':
			result.WriteString(`\%24`)
		case '^':
			result.WriteString(`\%5E`)
		case ' ':
			result.WriteString(`\%20`)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// displayURL strips the scheme and trailing slash for link text.
func displayURL(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "mailto:")
	return strings.TrimSuffix(url, "/")
}
