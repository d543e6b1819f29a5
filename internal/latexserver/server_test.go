package latexserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/compilation"
	"github.com/jonathan/resume-studio/internal/server/ratelimit"
)

const (
	okEngine = `#!/bin/sh
printf '%%PDF-1.4 fake\n' > document.pdf
echo "Output written on document.pdf (1 page)."
`
	// unclosedEngine behaves like pdflatex on a document with an unclosed environment.
	unclosedEngine = `#!/bin/sh
printf '%s\n' '! LaTeX Error: \begin{itemize} on input line 1 ended by \end{document}.'
printf '%s\n' 'l.1 ...\end{document}'
exit 1
`
	slowEngine = `#!/bin/sh
exec sleep 10
`
)

const (
	minimalDocument  = `\documentclass{article}\begin{document}Hello\end{document}`
	unclosedDocument = `\documentclass{article}\begin{document}\begin{itemize}\end{document}`
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(t *testing.T, script string, timeout time.Duration) (http.Handler, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engines are shell scripts")
	}
	engine := filepath.Join(t.TempDir(), "fake-latex")
	require.NoError(t, os.WriteFile(engine, []byte(script), 0o755))

	root := t.TempDir()
	compiler := compilation.NewCompiler(compilation.Config{
		Engine:         engine,
		Timeout:        timeout,
		TempRoot:       root,
		MaxSourceBytes: 1024,
	}, quietLogger)
	return NewHandler(compiler, Options{MaxBodyBytes: 1024, Logger: quietLogger}), root
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/latex/compile", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func assertNoLeftovers(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directories must be removed")
}

func TestHealth(t *testing.T) {
	h, _ := newService(t, okEngine, time.Second)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCompile_Success(t *testing.T) {
	h, root := newService(t, okEngine, 5*time.Second)

	w := post(t, h, minimalDocument)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=document.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	assertNoLeftovers(t, root)
}

func TestCompile_MalformedLaTeX(t *testing.T) {
	h, root := newService(t, unclosedEngine, 5*time.Second)

	w := post(t, h, unclosedDocument)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Contains(t, body.Error, `\begin{itemize}`)
	assert.Contains(t, body.Details, "l.1")
	assert.Equal(t, compilation.KindCompilation, body.Kind)
	assertNoLeftovers(t, root)
}

func TestCompile_Timeout(t *testing.T) {
	h, root := newService(t, slowEngine, 200*time.Millisecond)

	start := time.Now()
	w := post(t, h, minimalDocument)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second, "the engine must be killed")
	assertNoLeftovers(t, root)
}

func TestCompile_InputErrors(t *testing.T) {
	h, root := newService(t, okEngine, time.Second)

	w := post(t, h, "   ")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeError(t, w).Error)

	w = post(t, h, strings.Repeat("x", 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "1024")
	assertNoLeftovers(t, root)
}

func TestCompile_MethodNotAllowed(t *testing.T) {
	h, _ := newService(t, okEngine, time.Second)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/latex/compile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type brokenCompiler struct{}

func (brokenCompiler) Compile(context.Context, string) ([]byte, error) {
	return nil, &compilation.Error{Message: "pdflatex not found in PATH", Cause: errors.New("exec: not found")}
}

func TestCompile_InternalError(t *testing.T) {
	h := NewHandler(brokenCompiler{}, Options{Logger: quietLogger})

	w := post(t, h, minimalDocument)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "internal compilation error", body.Error)
	assert.Equal(t, compilation.KindInternal, body.Kind)
}

func TestCompile_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: compilation.CompilePath, Method: http.MethodPost, Limit: 1, Window: time.Hour},
		},
	})
	defer limiter.Stop()
	h := NewHandler(brokenCompiler{}, Options{Limiter: limiter, Logger: quietLogger})

	assert.Equal(t, http.StatusInternalServerError, post(t, h, minimalDocument).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(t, h, minimalDocument).Code)
}

// TestClientRoundTrip drives the service through compilation.Client.
func TestClientRoundTrip(t *testing.T) {
	h, _ := newService(t, unclosedEngine, 5*time.Second)
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := compilation.NewClient(srv.URL, 5*time.Second)
	_, err := client.Compile(context.Background(), unclosedDocument)

	var compileErr *compilation.CompilationError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Message, `\begin{itemize}`)
	assert.Contains(t, compileErr.LogOutput, "l.1")
}

func TestClientRoundTrip_InternalError(t *testing.T) {
	srv := httptest.NewServer(NewHandler(brokenCompiler{}, Options{Logger: quietLogger}))
	defer srv.Close()

	_, err := compilation.NewClient(srv.URL, 5*time.Second).Compile(context.Background(), minimalDocument)

	var svcErr *compilation.Error
	require.ErrorAs(t, err, &svcErr)
	var compileErr *compilation.CompilationError
	assert.False(t, errors.As(err, &compileErr))
}

// TestCompile_RealToolchain runs the minimal round trip against an installed pdflatex.
func TestCompile_RealToolchain(t *testing.T) {
	if _, err := exec.LookPath(compilation.DefaultEngine); err != nil {
		t.Skip("pdflatex not installed")
	}
	root := t.TempDir()
	compiler := compilation.NewCompiler(compilation.Config{TempRoot: root, Timeout: time.Minute}, quietLogger)
	h := NewHandler(compiler, Options{Logger: quietLogger})

	w := post(t, h, minimalDocument)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = post(t, h, unclosedDocument)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, decodeError(t, w).Error)
	assertNoLeftovers(t, root)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", NewHandler(brokenCompiler{}, Options{Logger: quietLogger}), quietLogger)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}
