// Package ingestion normalizes imported job descriptions before they reach a prompt.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	multiSpace  = regexp.MustCompile(`[ \t]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	htmlTagLike = regexp.MustCompile(`(?i)<(p|div|br|li|ul|ol|h[1-6]|span|strong|b|em|i|a|table|section|article|body|html)[\s>/]`)
)

// CleanText normalizes line endings and whitespace while keeping bullet structure.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := strings.Join(cleaned, "\n")
	// At most one blank line between paragraphs
	result = blankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	for _, bullet := range []string{"• ", "* ", "· "} {
		if strings.HasPrefix(trimmed, bullet) {
			trimmed = "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, bullet))
			break
		}
	}
	return multiSpace.ReplaceAllString(trimmed, " ")
}

// LooksLikeHTML reports whether content contains common HTML markup.
func LooksLikeHTML(content string) bool {
	return htmlTagLike.MatchString(content)
}

// NormalizeJobDescription converts HTML descriptions to text and cleans the result.
// Plain text is only cleaned.
func NormalizeJobDescription(content string) (string, error) {
	if LooksLikeHTML(content) {
		text, err := HTMLToText(content)
		if err != nil {
			return "", err
		}
		return CleanText(text), nil
	}
	return CleanText(content), nil
}
