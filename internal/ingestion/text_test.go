package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "We build Go services", CleanText("  We   build\tGo  services  "))
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", CleanText("a\r\nb\rc"))
}

func TestCleanText_CollapsesBlankLines(t *testing.T) {
	assert.Equal(t, "Intro\n\nDetails", CleanText("Intro\n\n\n\n\nDetails"))
}

func TestCleanText_NormalizesBullets(t *testing.T) {
	in := "Requirements:\n• 5 years Go\n* Kubernetes\n- PostgreSQL"
	assert.Equal(t, "Requirements:\n- 5 years Go\n- Kubernetes\n- PostgreSQL", CleanText(in))
}

func TestCleanText_EmptyInput(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText(" \n\t\n "))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<p>Hello</p>"))
	assert.True(t, LooksLikeHTML("Intro<br/>more"))
	assert.False(t, LooksLikeHTML("Salary < 100k and > 50k"))
	assert.False(t, LooksLikeHTML("Plain text"))
}

func TestNormalizeJobDescription_HTML(t *testing.T) {
	html := `<html><body>
		<nav>Home | Jobs</nav>
		<main>
			<h2>Backend Engineer</h2>
			<p>Join   our team.</p>
			<ul><li>Go</li><li>PostgreSQL &amp; Redis</li></ul>
		</main>
		<footer>Acme Inc</footer>
		<script>track()</script>
	</body></html>`

	text, err := NormalizeJobDescription(html)
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer\n\nJoin our team.\n\n- Go\n\n- PostgreSQL & Redis", text)
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "track()")
}

func TestNormalizeJobDescription_PlainText(t *testing.T) {
	text, err := NormalizeJobDescription("Build   things\r\n\r\n\r\nfast")
	require.NoError(t, err)
	assert.Equal(t, "Build things\n\nfast", text)
}

func TestHTMLToText_BreaksAndBodyFallback(t *testing.T) {
	text, err := HTMLToText("<div>Line one<br>Line two</div>")
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", CleanText(text))
}
