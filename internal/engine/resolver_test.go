package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/pkg/response"
)

func writeAt(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestResolveOutput_ExpectedName(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeAt(t, filepath.Join(dir, "report.docx"), now.Add(-time.Hour))
	writeAt(t, filepath.Join(dir, "other.docx"), now)

	got, err := ResolveOutput(dir, "report.docx", ".docx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.docx"), got)
}

func TestResolveOutput_NewestFallback(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeAt(t, filepath.Join(dir, "old.pdf"), now.Add(-2*time.Hour))
	writeAt(t, filepath.Join(dir, "new.PDF"), now.Add(-time.Minute))
	writeAt(t, filepath.Join(dir, "newest.txt"), now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.pdf"), 0o755))

	got, err := ResolveOutput(dir, "report.pdf", "pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.PDF"), got)
}

func TestResolveOutput_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeAt(t, filepath.Join(dir, "log.txt"), time.Now())

	_, err := ResolveOutput(dir, "report.pdf", ".pdf")
	require.Error(t, err)

	var nf *ArtifactNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, response.KindArtifactNotFound, response.Classify(err))
}

func TestResolveOutput_MissingDir(t *testing.T) {
	_, err := ResolveOutput(filepath.Join(t.TempDir(), "nope"), "a.pdf", ".pdf")
	assert.Error(t, err)
}
