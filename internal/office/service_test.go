package office

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/resilience"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// scriptedProc simula ejecutables: los que no aparecen no están instalados
type scriptedProc map[string]func(engine.Command) error

func (p scriptedProc) Run(_ context.Context, cmd engine.Command) error {
	fn, ok := p[cmd.Name]
	if !ok {
		return fmt.Errorf("%s: %w", cmd.Name, exec.ErrNotFound)
	}
	return fn(cmd)
}

// fakeSoffice escribe <base>.<ext> en --outdir como haría LibreOffice
func fakeSoffice(cmd engine.Command) error {
	var ext, outDir string
	for i, a := range cmd.Args {
		switch a {
		case "--convert-to":
			ext = cmd.Args[i+1]
		case "--outdir":
			outDir = cmd.Args[i+1]
		}
	}
	in := cmd.Args[len(cmd.Args)-1]
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return os.WriteFile(filepath.Join(outDir, base+"."+ext), []byte("converted"), 0o644)
}

func testConfig(provider, url string) *config.Config {
	return &config.Config{
		Engines: config.EnginesConfig{Timeout: 5 * time.Second},
		Office: config.OfficeConfig{
			Enabled:      true,
			Provider:     provider,
			Candidates:   []string{"soffice", "libreoffice"},
			GotenbergURL: url,
			GotenbergRPS: 100,
		},
	}
}

func testTools(proc engine.ProcessRunner) *engine.Tools {
	runner := engine.NewRunner(proc, engine.Options{Timeout: 5 * time.Second, MaxConcurrent: 2}, logger.NewNop())
	return engine.NewTools(runner, engine.DefaultChains())
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("document"), 0o644))
	return path
}

func TestLibreOffice_FallsBackToSecondCandidate(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "report.pdf")
	outDir := filepath.Join(dir, "office-1")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	conv := NewService(testConfig("libreoffice", ""), testTools(scriptedProc{"libreoffice": fakeSoffice}), logger.NewNop())
	assert.Equal(t, "libreoffice", conv.Provider())

	out, err := conv.FromPDF(context.Background(), in, outDir, FormatWord)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "report.docx"), out)
}

func TestLibreOffice_AllCandidatesMissing(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "letter.docx")

	conv := NewService(testConfig("libreoffice", ""), testTools(scriptedProc{}), logger.NewNop())
	_, err := conv.ToPDF(context.Background(), in, dir)
	require.Error(t, err)
	assert.True(t, engine.IsToolUnavailable(err))
	assert.Equal(t, response.KindToolUnavailable, response.Classify(err))
}

func TestLibreOffice_OutputNotFound(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "letter.docx")
	outDir := filepath.Join(dir, "office-1")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	// el ejecutable termina bien pero no deja nada
	silent := scriptedProc{"soffice": func(engine.Command) error { return nil }}
	conv := NewService(testConfig("libreoffice", ""), testTools(silent), logger.NewNop())

	_, err := conv.ToPDF(context.Background(), in, outDir)
	assert.Equal(t, response.KindArtifactNotFound, response.Classify(err))
}

func TestGotenberg_ToPDF(t *testing.T) {
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/libreoffice/convert", r.URL.Path)
		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFile = header.Filename
		io.Copy(io.Discard, file)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 converted"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := writeInput(t, dir, "letter.docx")
	outDir := filepath.Join(dir, "office-1")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	conv := NewService(testConfig("gotenberg", srv.URL), testTools(scriptedProc{}), logger.NewNop())
	assert.Equal(t, "gotenberg", conv.Provider())

	out, err := conv.ToPDF(context.Background(), in, outDir)
	require.NoError(t, err)
	assert.Equal(t, "letter.docx", gotFile)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 converted", string(data))
}

func TestGotenberg_ErrorIsToolUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := writeInput(t, dir, "letter.docx")

	conv := NewService(testConfig("gotenberg", srv.URL), testTools(scriptedProc{}), logger.NewNop())
	_, err := conv.ToPDF(context.Background(), in, dir)
	require.Error(t, err)
	assert.True(t, engine.IsToolUnavailable(err))
	assert.Contains(t, err.Error(), "gotenberg")
}

func TestGotenberg_FromPDFUsesLibreOffice(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "slides.pdf")

	conv := NewService(testConfig("gotenberg", "http://127.0.0.1:1"), testTools(scriptedProc{"soffice": fakeSoffice}), logger.NewNop())
	out, err := conv.FromPDF(context.Background(), in, dir, FormatPowerPoint)
	require.NoError(t, err)
	assert.Equal(t, "slides.pptx", filepath.Base(out))
}

func TestGotenberg_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL+"/", 0, time.Second)
	assert.NoError(t, client.Health(context.Background()))

	down := NewGotenbergClient("http://127.0.0.1:1", 0, time.Second)
	a := down.Convert(context.Background(), "/nonexistent", filepath.Join(t.TempDir(), "x.pdf"))
	assert.NotEqual(t, engine.Succeeded, a.Outcome)
}

func TestGotenberg_BreakerShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := writeInput(t, dir, "letter.docx")
	client := NewGotenbergClient(srv.URL, 0, time.Second).
		WithBreaker(resilience.New("gotenberg-test", resilience.Config{MaxFailures: 1, OpenTimeout: time.Hour}, logger.NewNop()))

	first := client.Convert(context.Background(), in, filepath.Join(dir, "a.pdf"))
	assert.Equal(t, engine.Failed, first.Outcome)

	second := client.Convert(context.Background(), in, filepath.Join(dir, "b.pdf"))
	assert.Equal(t, engine.NotInstalled, second.Outcome)
	assert.ErrorIs(t, second.Err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDisabledService(t *testing.T) {
	cfg := testConfig("libreoffice", "")
	cfg.Office.Enabled = false

	conv := NewService(cfg, testTools(scriptedProc{}), logger.NewNop())
	assert.False(t, conv.IsAvailable())

	_, err := conv.ToPDF(context.Background(), "/tmp/a.docx", "/tmp")
	assert.Equal(t, response.KindToolUnavailable, response.Classify(err))
}
