package pdf

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/internal/placement"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

func newTestService() *PDFCPUService {
	return NewService(logger.NewNop())
}

// blankDoc crea un PDF de n páginas de w x h puntos en dir
func blankDoc(t *testing.T, dir, name string, n int, w, h float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, WriteBlankPDF(path, n, w, h))
	return path
}

func writePNG(t *testing.T, path string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writeJPEG(t *testing.T, path string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
	return path
}

func widths(t *testing.T, s *PDFCPUService, path string) []float64 {
	t.Helper()
	dims, err := s.PageDims(path)
	require.NoError(t, err)
	out := make([]float64, len(dims))
	for i, d := range dims {
		out[i] = d.Width
	}
	return out
}

func TestWriteBlankPDF(t *testing.T) {
	s := newTestService()
	doc := blankDoc(t, t.TempDir(), "blank.pdf", 3, 300, 400)

	n, err := s.PageCount(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dims, err := s.PageDims(doc)
	require.NoError(t, err)
	assert.InDelta(t, 300, dims[0].Width, 0.01)
	assert.InDelta(t, 400, dims[0].Height, 0.01)

	assert.Error(t, WriteBlankPDF(filepath.Join(t.TempDir(), "x.pdf"), 0, 10, 10))
}

func TestMerge_PreservesOrder(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	a := blankDoc(t, dir, "a.pdf", 2, 100, 100)
	b := blankDoc(t, dir, "b.pdf", 3, 200, 200)
	out := filepath.Join(dir, "merged.pdf")

	require.NoError(t, s.Merge([]string{a, b}, out))

	n, err := s.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.InDeltaSlice(t, []float64{100, 100, 200, 200, 200}, widths(t, s, out), 0.01)
}

func TestMerge_RequiresTwoFiles(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	a := blankDoc(t, dir, "a.pdf", 1, 100, 100)

	err := s.Merge([]string{a}, filepath.Join(dir, "out.pdf"))
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
}

func TestSplit_RoundTrip(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	a := blankDoc(t, dir, "a.pdf", 1, 100, 100)
	b := blankDoc(t, dir, "b.pdf", 1, 200, 200)
	c := blankDoc(t, dir, "c.pdf", 1, 300, 300)
	doc := filepath.Join(dir, "doc.pdf")
	require.NoError(t, s.Merge([]string{a, b, c}, doc))

	splitDir := filepath.Join(dir, "split")
	require.NoError(t, os.MkdirAll(splitDir, 0o755))
	parts, err := s.Split(doc, splitDir, "doc", "")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "doc_page_1.pdf", filepath.Base(parts[0]))
	assert.Equal(t, "doc_page_3.pdf", filepath.Base(parts[2]))

	for _, p := range parts {
		n, err := s.PageCount(p)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	remerged := filepath.Join(dir, "remerged.pdf")
	require.NoError(t, s.Merge(parts, remerged))
	assert.InDeltaSlice(t, widths(t, s, doc), widths(t, s, remerged), 0.01)
}

func TestSplit_Selection(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 4, 100, 100)

	parts, err := s.Split(doc, dir, "report", "2-3,9")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "report_page_2.pdf", filepath.Base(parts[0]))
	assert.Equal(t, "report_page_3.pdf", filepath.Base(parts[1]))

	_, err = s.Split(doc, dir, "report", "abc")
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{90, 90}, {180, 180}, {270, 270},
		{-90, 270}, {-180, 180}, {-270, 90},
		{0, 0}, {45, 0}, {360, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAngle(tt.in), "angle %d", tt.in)
	}
}

func TestRotate(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 3, 100, 200)
	out := filepath.Join(dir, "rotated.pdf")

	require.NoError(t, s.Rotate(doc, out, 90, "1"))
	n, err := s.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	err = s.Rotate(doc, filepath.Join(dir, "bad.pdf"), 45, "")
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
}

func TestRemovePages(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	var parts []string
	for i, w := range []float64{100, 200, 300, 400} {
		parts = append(parts, blankDoc(t, dir, string(rune('a'+i))+".pdf", 1, w, w))
	}
	doc := filepath.Join(dir, "doc.pdf")
	require.NoError(t, s.Merge(parts, doc))

	out := filepath.Join(dir, "edited.pdf")
	require.NoError(t, s.RemovePages(doc, out, "2,3"))
	assert.InDeltaSlice(t, []float64{100, 400}, widths(t, s, out), 0.01)

	t.Run("nothing selected", func(t *testing.T) {
		err := s.RemovePages(doc, out, "")
		// spec vacía selecciona todo, y eliminarlo todo no está permitido
		assert.Equal(t, response.KindInvalidInput, response.Classify(err))

		err = s.RemovePages(doc, out, "7-9")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No pages specified to remove")
	})
}

func TestAppendBlankPage(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 1, 200, 200)
	out := filepath.Join(dir, "out.pdf")

	require.NoError(t, s.AppendBlankPage(doc, out, dir, 0, 0))

	dims, err := s.PageDims(out)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	assert.InDelta(t, LetterWidth, dims[1].Width, 0.01)
	assert.InDelta(t, LetterHeight, dims[1].Height, 0.01)
}

func TestImagesToPDF(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	images := []string{
		writePNG(t, filepath.Join(dir, "one.png"), 40, 20),
		writeJPEG(t, filepath.Join(dir, "two.jpg"), 30, 30),
		writePNG(t, filepath.Join(dir, "three.png"), 10, 50),
	}
	scratch := filepath.Join(dir, "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0o755))
	out := filepath.Join(dir, "images.pdf")

	require.NoError(t, s.ImagesToPDF(images, out, scratch))
	n, err := s.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bogus := filepath.Join(dir, "bogus.png")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o644))
	err = s.ImagesToPDF([]string{bogus}, filepath.Join(dir, "x.pdf"), scratch)
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
}

func TestWatermark(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 2, 600, 800)

	t.Run("text", func(t *testing.T) {
		out := filepath.Join(dir, "text.pdf")
		err := s.Watermark(doc, out, WatermarkOptions{
			Text:     "CONFIDENTIAL",
			FontSize: 48,
			Color:    "#ff0000",
			Opacity:  0.15,
			Rotation: -45,
			Position: placement.Center,
			Margin:   20,
		})
		require.NoError(t, err)
		n, err := s.PageCount(out)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("image mosaic under content", func(t *testing.T) {
		img := writePNG(t, filepath.Join(dir, "logo.png"), 20, 10)
		out := filepath.Join(dir, "image.pdf")
		err := s.Watermark(doc, out, WatermarkOptions{
			ImagePath: img,
			Pages:     "2",
			Opacity:   0.3,
			Scale:     0.1,
			Mosaic:    true,
		})
		require.NoError(t, err)
		assert.FileExists(t, out)
	})

	t.Run("text required", func(t *testing.T) {
		err := s.Watermark(doc, filepath.Join(dir, "none.pdf"), WatermarkOptions{Text: "   "})
		assert.Equal(t, response.KindInvalidInput, response.Classify(err))
	})
}

func TestSign(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 1, 600, 800)

	require.NoError(t, s.Sign(doc, filepath.Join(dir, "text.pdf"), SignOptions{
		Position: placement.BottomRight,
		Margin:   20,
		FontSize: 36,
	}))

	sig := writePNG(t, filepath.Join(dir, "sig.png"), 200, 100)
	require.NoError(t, s.Sign(doc, filepath.Join(dir, "image.pdf"), SignOptions{
		ImagePath: sig,
		Position:  placement.BottomRight,
		Margin:    20,
		Scale:     0.18,
	}))
}

func TestEditStamps(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 2, 612, 792)

	require.NoError(t, s.AddText(doc, filepath.Join(dir, "text.pdf"), TextOptions{
		Text: "Approved", Page: 1, X: 50, Y: 50, FontSize: 24, Color: "#000000",
	}))

	err := s.AddText(doc, filepath.Join(dir, "bad.pdf"), TextOptions{Text: "x", Page: 3})
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))

	err = s.AddText(doc, filepath.Join(dir, "bad.pdf"), TextOptions{Page: 1})
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))

	img := writePNG(t, filepath.Join(dir, "stamp.png"), 50, 25)
	require.NoError(t, s.AddImage(doc, filepath.Join(dir, "image.pdf"), ImageOptions{
		ImagePath: img, Page: 2, X: 100, Y: 100, Width: 100,
	}))

	err = s.AddImage(doc, filepath.Join(dir, "bad.pdf"), ImageOptions{Page: 1})
	assert.Equal(t, response.KindInvalidInput, response.Classify(err))
}

func TestEncryptDecrypt(t *testing.T) {
	s := newTestService()
	dir := t.TempDir()
	doc := blankDoc(t, dir, "doc.pdf", 1, 200, 200)
	locked := filepath.Join(dir, "locked.pdf")

	require.NoError(t, s.Encrypt(doc, locked, "secret", ""))

	err := s.Decrypt(locked, filepath.Join(dir, "wrong.pdf"), "nope")
	assert.Error(t, err)

	unlocked := filepath.Join(dir, "unlocked.pdf")
	require.NoError(t, s.Decrypt(locked, unlocked, "secret"))
	n, err := s.PageCount(unlocked)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, response.KindInvalidInput, response.Classify(s.Encrypt(doc, locked, "", "")))
}

func TestImageSizeAndNormalize(t *testing.T) {
	dir := t.TempDir()
	src := writeJPEG(t, filepath.Join(dir, "photo.jpg"), 64, 32)

	w, h, err := ImageSize(src)
	require.NoError(t, err)
	assert.Equal(t, 64.0, w)
	assert.Equal(t, 32.0, h)

	out, nw, nh, err := NormalizeImage(src, filepath.Join(dir, "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, 64.0, nw)
	assert.Equal(t, 32.0, nh)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestTextWidth(t *testing.T) {
	short := TextWidth("Hi", 24)
	long := TextWidth("Hello world", 24)
	assert.Greater(t, short, 0.0)
	assert.Greater(t, long, short)
	assert.InDelta(t, 2*TextWidth("Hello world", 12), long, 0.5)
}
