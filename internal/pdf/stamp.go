package pdf

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/kavach/engine/internal/pages"
	"github.com/kavach/engine/internal/placement"
	"github.com/kavach/engine/pkg/response"
)

// DefaultFont fuente estándar usada en textos estampados
const DefaultFont = "Helvetica"

// WatermarkOptions marca de agua de texto o imagen
type WatermarkOptions struct {
	Text      string
	ImagePath string
	Pages     string
	FontSize  int
	Color     string
	Opacity   float64
	Rotation  float64
	Position  placement.Position
	Margin    float64
	// Scale ancho de la imagen respecto al de la página
	Scale  float64
	Mosaic bool
	// OnTop dibuja sobre el contenido (layer "over"); false lo deja debajo
	OnTop bool
}

// SignOptions firma visible: imagen escalada o texto en negro
type SignOptions struct {
	ImagePath string
	Text      string
	Pages     string
	Position  placement.Position
	Margin    float64
	Scale     float64
	FontSize  int
	Rotation  float64
}

// TextOptions texto libre en una página (edit addText)
type TextOptions struct {
	Text     string
	Page     int
	X, Y     float64
	FontSize int
	Color    string
	Rotation float64
}

// ImageOptions imagen libre en una página (edit addImage).
// Width/Height en cero usan el tamaño nativo.
type ImageOptions struct {
	ImagePath     string
	Page          int
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// overlay describe qué se estampa y su tamaño en puntos
type overlay struct {
	text      string
	imagePath string
	nativeW   float64
	nativeH   float64
	fontSize  int
	color     string
	opacity   float64
	rotation  float64
	onTop     bool
}

// TextWidth ancho de text en puntos según las métricas de la fuente estándar
func TextWidth(text string, fontSize int) float64 {
	return font.TextWidth(text, DefaultFont, fontSize)
}

// Watermark estampa texto o imagen en las páginas seleccionadas
func (s *PDFCPUService) Watermark(in, out string, opts WatermarkOptions) error {
	start := time.Now()
	s.logger.Infow("🏷️ Starting watermark",
		"input", filepath.Base(in),
		"image", opts.ImagePath != "",
		"position", opts.Position,
		"mosaic", opts.Mosaic,
		"pages", opts.Pages,
	)

	if strings.TrimSpace(opts.Text) == "" && opts.ImagePath == "" {
		return response.Invalid("Watermark text is required")
	}

	ov := overlay{
		text:     opts.Text,
		fontSize: opts.FontSize,
		color:    opts.Color,
		opacity:  opts.Opacity,
		rotation: opts.Rotation,
		onTop:    opts.OnTop,
	}
	if opts.ImagePath != "" {
		w, h, err := ImageSize(opts.ImagePath)
		if err != nil {
			return err
		}
		ov.text, ov.imagePath, ov.nativeW, ov.nativeH = "", opts.ImagePath, w, h
	}

	cfg := placement.Config{
		Position: opts.Position,
		Margin:   opts.Margin,
		Scale:    opts.Scale,
		Rotation: opts.Rotation,
		Opacity:  opts.Opacity,
		Mosaic:   opts.Mosaic,
	}
	stamped, err := s.stampPages(in, out, opts.Pages, ov, func(dim types.Dim) (float64, float64, []placement.Point) {
		w, h := ov.size(dim.Width, opts.Scale, 0)
		return w, h, placement.Points(dim.Width, dim.Height, w, h, cfg)
	})
	if err != nil {
		return err
	}

	s.logger.Infow("✅ Watermark added",
		"pages", stamped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Sign estampa la firma en las páginas seleccionadas
func (s *PDFCPUService) Sign(in, out string, opts SignOptions) error {
	start := time.Now()
	s.logger.Infow("✍️ Starting PDF sign", "input", filepath.Base(in), "image", opts.ImagePath != "", "position", opts.Position)

	ov := overlay{
		text:     opts.Text,
		fontSize: opts.FontSize,
		color:    "#000000",
		opacity:  1,
		rotation: opts.Rotation,
		onTop:    true,
	}
	if opts.ImagePath != "" {
		w, h, err := ImageSize(opts.ImagePath)
		if err != nil {
			return err
		}
		ov.text, ov.imagePath, ov.nativeW, ov.nativeH = "", opts.ImagePath, w, h
	} else if strings.TrimSpace(ov.text) == "" {
		ov.text = "Signed"
	}

	cfg := placement.Config{Position: opts.Position, Margin: opts.Margin, Rotation: opts.Rotation}
	stamped, err := s.stampPages(in, out, opts.Pages, ov, func(dim types.Dim) (float64, float64, []placement.Point) {
		w, h := ov.size(dim.Width, opts.Scale, placement.MinSignatureWidth)
		return w, h, []placement.Point{placement.Place(dim.Width, dim.Height, w, h, cfg)}
	})
	if err != nil {
		return err
	}

	s.logger.Infow("✅ PDF signed", "pages", stamped, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// AddText escribe texto en una posición absoluta de una página
func (s *PDFCPUService) AddText(in, out string, opts TextOptions) error {
	if strings.TrimSpace(opts.Text) == "" {
		return response.Invalid("Text is required")
	}
	ov := overlay{
		text:     opts.Text,
		fontSize: opts.FontSize,
		color:    opts.Color,
		opacity:  1,
		rotation: opts.Rotation,
		onTop:    true,
	}
	return s.stampAt(in, out, opts.Page, ov, 1, placement.Point{X: opts.X, Y: opts.Y})
}

// AddImage coloca una imagen en una posición absoluta de una página.
// El escalado es uniforme: manda Width y, si falta, Height.
func (s *PDFCPUService) AddImage(in, out string, opts ImageOptions) error {
	if opts.ImagePath == "" {
		return response.Invalid("Image is required")
	}
	w, h, err := ImageSize(opts.ImagePath)
	if err != nil {
		return err
	}

	scale := 1.0
	switch {
	case opts.Width > 0:
		scale = opts.Width / w
	case opts.Height > 0:
		scale = opts.Height / h
	}

	ov := overlay{
		imagePath: opts.ImagePath,
		nativeW:   w,
		nativeH:   h,
		opacity:   1,
		rotation:  opts.Rotation,
		onTop:     true,
	}
	return s.stampAt(in, out, opts.Page, ov, scale, placement.Point{X: opts.X, Y: opts.Y})
}

func (s *PDFCPUService) stampAt(in, out string, page int, ov overlay, scale float64, at placement.Point) error {
	total, err := s.PageCount(in)
	if err != nil {
		return err
	}
	if page < 1 || page > total {
		return response.Invalid("Page %d does not exist (document has %d pages)", page, total)
	}

	wm, err := ov.watermark(at, scale)
	if err != nil {
		return err
	}
	if err := api.AddWatermarksSliceMapFile(in, out, map[int][]*model.Watermark{page: {wm}}, s.conf()); err != nil {
		return fmt.Errorf("failed to stamp page %d: %w", page, err)
	}
	return nil
}

// stampPages resuelve las páginas de spec y estampa ov en los puntos que layout calcula para cada una
func (s *PDFCPUService) stampPages(in, out, spec string, ov overlay, layout func(types.Dim) (float64, float64, []placement.Point)) (int, error) {
	dims, err := s.PageDims(in)
	if err != nil {
		return 0, err
	}

	indices := pages.Resolve(spec, len(dims))
	if len(indices) == 0 {
		return 0, copyFile(in, out)
	}

	byPage := make(map[int][]*model.Watermark, len(indices))
	for _, idx := range indices {
		w, _, points := layout(dims[idx])
		scale := 1.0
		if ov.imagePath != "" && ov.nativeW > 0 {
			scale = w / ov.nativeW
		}
		for _, pt := range points {
			wm, err := ov.watermark(pt, scale)
			if err != nil {
				return 0, err
			}
			byPage[idx+1] = append(byPage[idx+1], wm)
		}
	}

	if err := api.AddWatermarksSliceMapFile(in, out, byPage, s.conf()); err != nil {
		s.logger.Errorw("❌ Stamping failed", "error", err)
		return 0, fmt.Errorf("stamp operation failed: %w", err)
	}
	return len(indices), nil
}

// size tamaño del overlay en una página de ancho pageW.
// Texto: ancho por métricas de fuente y alto igual al tamaño de fuente.
func (o overlay) size(pageW, scale, minWidth float64) (float64, float64) {
	if o.imagePath == "" {
		return TextWidth(o.text, o.points()), float64(o.points())
	}
	if scale <= 0 {
		return o.nativeW, o.nativeH
	}
	return placement.ScaledSize(pageW, o.nativeW, o.nativeH, scale, minWidth)
}

// watermark construye el watermark pdfcpu anclado en la esquina inferior izquierda en at
func (o overlay) watermark(at placement.Point, scale float64) (*model.Watermark, error) {
	parts := []string{
		"position:bl",
		fmt.Sprintf("offset:%.2f %.2f", at.X, at.Y),
		fmt.Sprintf("rotation:%.2f", o.rotation),
		fmt.Sprintf("opacity:%.2f", clampOpacity(o.opacity)),
	}

	if o.imagePath != "" {
		parts = append(parts, fmt.Sprintf("scalefactor:%.4f abs", scale))
		wm, err := api.ImageWatermark(o.imagePath, strings.Join(parts, ", "), o.onTop, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build image overlay: %w", err)
		}
		return wm, nil
	}

	parts = append(parts,
		"fontname:"+DefaultFont,
		fmt.Sprintf("points:%d", o.points()),
		"fillcolor:"+o.fillColor(),
		"scalefactor:1 abs",
	)
	wm, err := api.TextWatermark(o.text, strings.Join(parts, ", "), o.onTop, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build text overlay: %w", err)
	}
	return wm, nil
}

func (o overlay) points() int {
	if o.fontSize <= 0 {
		return 24
	}
	return o.fontSize
}

func (o overlay) fillColor() string {
	if o.color == "" {
		return "#000000"
	}
	return o.color
}

func clampOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Max(0, math.Min(1, v))
}
