package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

var fakePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// newTestStorage crea un storage sobre directorios temporales
func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	return newTestStorageWith(t, func(*config.Config) {})
}

func newTestStorageWith(t *testing.T, mutate func(*config.Config)) *LocalStorage {
	t.Helper()
	return newTestStorageFull(t, nil, mutate)
}

func newTestStorageFull(t *testing.T, registry Registry, mutate func(*config.Config)) *LocalStorage {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{
		Environment: "test",
		Storage: config.StorageConfig{
			TempDir:     tmp,
			UploadDir:   filepath.Join(tmp, "uploads"),
			OutputDir:   filepath.Join(tmp, "outputs"),
			MaxUploadMB: 1,
			ArtifactTTL: time.Hour,
		},
		Security: config.SecurityConfig{EnforceArtifactOwner: true},
	}
	mutate(cfg)

	store, err := NewService(cfg, registry, logger.NewNop())
	require.NoError(t, err)
	return store
}

// fileHeader construye un *multipart.FileHeader real a partir de contenido en memoria
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSaveUpload(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-1")
	require.NoError(t, err)
	defer ws.Close()

	up, err := store.SaveUpload(ws, fileHeader(t, "My Report.pdf", fakePDF), utils.CategoryPDF)
	require.NoError(t, err)

	assert.Equal(t, "My Report.pdf", up.OriginalName)
	assert.Equal(t, "My_Report", up.BaseName())
	assert.Equal(t, "application/pdf", up.MimeType)
	assert.Equal(t, int64(len(fakePDF)), up.SizeBytes)
	assert.Len(t, up.Hash, 64)
	assert.Equal(t, store.UploadDir(), filepath.Dir(up.StoredPath))
	assert.Regexp(t, `^\d+-My_Report\.pdf$`, filepath.Base(up.StoredPath))
	assert.True(t, store.Tracker().IsInUse(up.StoredPath))

	require.NoError(t, ws.Close())
	assert.NoFileExists(t, up.StoredPath)
	assert.False(t, store.Tracker().IsInUse(up.StoredPath))
}

func TestSaveUpload_EmptyCategoryAcceptsKnownTypes(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-any")
	require.NoError(t, err)
	defer ws.Close()

	up, err := store.SaveUpload(ws, fileHeader(t, "doc.pdf", fakePDF), "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", up.MimeType)

	_, err = store.SaveUpload(ws, fileHeader(t, "notes.txt", []byte("just some text")), "")
	require.Error(t, err)
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
	assert.Contains(t, err.Error(), "not a valid any file")
}

func TestSaveUpload_RejectsWrongCategory(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-2")
	require.NoError(t, err)

	_, err = store.SaveUpload(ws, fileHeader(t, "notes.pdf", []byte("just some text")), utils.CategoryPDF)
	require.Error(t, err)
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))

	// el archivo rechazado también pertenece al workspace
	require.NoError(t, ws.Close())
	assert.Empty(t, listDir(t, store.UploadDir()))
}

func TestSaveUpload_RejectsOversized(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-3")
	require.NoError(t, err)
	defer ws.Close()

	big := append(append([]byte{}, fakePDF...), make([]byte, 2<<20)...)
	_, err = store.SaveUpload(ws, fileHeader(t, "big.pdf", big), utils.CategoryPDF)
	require.Error(t, err)
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
	assert.Empty(t, listDir(t, store.UploadDir()))
}

func TestWorkspace_CloseRemovesEverythingButPublished(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	ws, err := store.NewWorkspace("req-4")
	require.NoError(t, err)

	up, err := store.SaveUpload(ws, fileHeader(t, "a.pdf", fakePDF), utils.CategoryPDF)
	require.NoError(t, err)

	dir, err := ws.Dir("gs")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intermediate.pdf"), fakePDF, 0o644))

	out := ws.Path("result.pdf")
	require.NoError(t, os.WriteFile(out, fakePDF, 0o644))
	art, err := store.Publish(ctx, ws, out, "a_optimized_1.pdf", "user-1")
	require.NoError(t, err)

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close(), "Close must be idempotent")

	assert.NoFileExists(t, up.StoredPath)
	assert.NoDirExists(t, ws.Root())
	assert.Empty(t, listDir(t, store.UploadDir()))
	assert.FileExists(t, art.Path)
	assert.False(t, store.Tracker().IsInUse(up.StoredPath))
}

func TestWorkspace_DirIsolation(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-5")
	require.NoError(t, err)
	defer ws.Close()

	a, err := ws.Dir("office")
	require.NoError(t, err)
	b, err := ws.Dir("office")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}

func TestNewWorkspace_SameRequestID(t *testing.T) {
	store := newTestStorage(t)
	a, err := store.NewWorkspace("dup")
	require.NoError(t, err)
	defer a.Close()
	b, err := store.NewWorkspace("dup")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Root(), b.Root())
}

func TestPublishAndLocate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	ws, err := store.NewWorkspace("req-6")
	require.NoError(t, err)
	src := ws.Path("merged.pdf")
	require.NoError(t, os.WriteFile(src, fakePDF, 0o644))

	art, err := store.Publish(ctx, ws, src, "merged_1700000000000.pdf", "alice")
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	assert.Regexp(t, `^merged_1700000000000-[0-9a-f]{8}\.pdf$`, art.Name)
	assert.Equal(t, "merged_1700000000000.pdf", art.DownloadName)

	found, err := store.Locate(ctx, art.Name, "alice")
	require.NoError(t, err)
	assert.Equal(t, art.Path, found.Path)
	assert.Equal(t, int64(len(fakePDF)), found.Size)

	t.Run("other owner gets not found", func(t *testing.T) {
		_, err := store.Locate(ctx, art.Name, "mallory")
		assert.Equal(t, response.KindNotFound, response.Classify(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Locate(ctx, "nope.pdf", "alice")
		assert.Equal(t, response.KindNotFound, response.Classify(err))
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := store.Locate(ctx, "../etc/passwd", "alice")
		assert.Equal(t, response.KindInvalidInput, response.Classify(err))
	})
}

func TestLocate_WithoutOwnerEnforcement(t *testing.T) {
	store := newTestStorageWith(t, func(cfg *config.Config) {
		cfg.Security.EnforceArtifactOwner = false
	})
	path := filepath.Join(store.OutputDir(), "legacy.pdf")
	require.NoError(t, os.WriteFile(path, fakePDF, 0o644))

	art, err := store.Locate(context.Background(), "legacy.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "legacy.pdf", art.DownloadName)
}

func TestBundle(t *testing.T) {
	store := newTestStorage(t)
	ws, err := store.NewWorkspace("req-7")
	require.NoError(t, err)
	defer ws.Close()

	d1, err := ws.Dir("split")
	require.NoError(t, err)
	d2, err := ws.Dir("split")
	require.NoError(t, err)

	files := []string{
		filepath.Join(d1, "page_1.pdf"),
		filepath.Join(d2, "page_1.pdf"),
		filepath.Join(d1, "page_2.pdf"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, fakePDF, 0o644))
	}

	archive, err := Bundle(ws, "doc_split_1", files)
	require.NoError(t, err)
	assert.Equal(t, ".zip", filepath.Ext(archive))

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"page_1.pdf", "page_1 (2).pdf", "page_2.pdf"}, names)

	_, err = Bundle(ws, "empty.zip", nil)
	assert.Error(t, err)
}

func TestMemoryRegistry_Expiry(t *testing.T) {
	reg := NewMemoryRegistry(time.Minute)
	now := time.Now()
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, &Artifact{Name: "a.pdf", Owner: "u"}))
	art, err := reg.Lookup(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "u", art.Owner)

	now = now.Add(2 * time.Minute)
	_, err = reg.Lookup(ctx, "a.pdf")
	assert.ErrorIs(t, err, ErrArtifactUnknown)

	require.NoError(t, reg.Register(ctx, &Artifact{Name: "b.pdf"}))
	require.NoError(t, reg.Forget(ctx, "b.pdf"))
	_, err = reg.Lookup(ctx, "b.pdf")
	assert.ErrorIs(t, err, ErrArtifactUnknown)
}
