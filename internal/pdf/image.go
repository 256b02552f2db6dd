package pdf

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kavach/engine/pkg/response"
)

// ImageSize dimensiones nativas de la imagen en píxeles
func ImageSize(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, response.Invalid("Unsupported or corrupt image: %s", filepath.Base(path))
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, response.Invalid("Image %s has no pixels", filepath.Base(path))
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// NormalizeImage decodifica src (jpeg, png, gif, bmp, tiff, webp) y la reescribe como PNG en dst.
// Devuelve la ruta escrita y las dimensiones nativas.
func NormalizeImage(src, dst string) (string, float64, float64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return "", 0, 0, response.Invalid("Unsupported or corrupt image: %s", filepath.Base(src))
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return "", 0, 0, response.Invalid("Image %s has no pixels", filepath.Base(src))
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create image: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", 0, 0, err
	}
	return dst, float64(bounds.Dx()), float64(bounds.Dy()), nil
}
