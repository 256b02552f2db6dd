package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/kavach/engine/internal/pages"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// Tamaño carta, usado por addBlankPage cuando no se indica otro
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// Service operaciones sobre el modelo de documento, sin procesos externos
type Service interface {
	PageCount(path string) (int, error)
	PageDims(path string) ([]types.Dim, error)
	Merge(inputs []string, out string) error
	Split(in, outDir, base, spec string) ([]string, error)
	Rotate(in, out string, angle int, spec string) error
	RemovePages(in, out, spec string) error
	AppendBlankPage(in, out, scratchDir string, width, height float64) error
	ImagesToPDF(images []string, out, scratchDir string) error
	Watermark(in, out string, opts WatermarkOptions) error
	Sign(in, out string, opts SignOptions) error
	AddText(in, out string, opts TextOptions) error
	AddImage(in, out string, opts ImageOptions) error
	Encrypt(in, out, userPW, ownerPW string) error
	Decrypt(in, out, password string) error
}

// PDFCPUService implementación usando pdfcpu nativo
type PDFCPUService struct {
	logger *logger.Logger
}

// NewService crea una instancia del servicio PDF
func NewService(log *logger.Logger) *PDFCPUService {
	return &PDFCPUService{logger: log}
}

// conf crea una configuración nueva por operación: pdfcpu escribe en ella (conf.Cmd)
func (s *PDFCPUService) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount número de páginas del documento
func (s *PDFCPUService) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, response.Invalid("Invalid or unreadable PDF: %s", filepath.Base(path))
	}
	return n, nil
}

// PageDims dimensiones de cada página en puntos
func (s *PDFCPUService) PageDims(path string) ([]types.Dim, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, response.Invalid("Invalid or unreadable PDF: %s", filepath.Base(path))
	}
	return dims, nil
}

// Merge concatena inputs en el orden recibido
func (s *PDFCPUService) Merge(inputs []string, out string) error {
	start := time.Now()
	s.logger.Infow("🔗 Starting PDF merge", "input_count", len(inputs), "output", filepath.Base(out))

	if len(inputs) < 2 {
		return response.Invalid("At least two PDF files are required to merge")
	}

	if err := api.MergeCreateFile(inputs, out, false, s.conf()); err != nil {
		s.logger.Errorw("❌ PDF merge failed", "error", err, "inputs", len(inputs))
		return fmt.Errorf("merge operation failed: %w", err)
	}

	s.logger.Infow("✅ PDF merge completed",
		"input_files", len(inputs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Split escribe un PDF por página seleccionada como <base>_page_<n>.pdf en outDir
func (s *PDFCPUService) Split(in, outDir, base, spec string) ([]string, error) {
	start := time.Now()
	s.logger.Infow("✂️ Starting PDF split", "input", filepath.Base(in), "pages", spec)

	ctx, err := api.ReadContextFile(in)
	if err != nil {
		return nil, response.Invalid("Invalid or unreadable PDF: %s", filepath.Base(in))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	indices := pages.Resolve(spec, ctx.PageCount)
	if len(indices) == 0 {
		return nil, response.Invalid("No pages selected")
	}

	outputs := make([]string, 0, len(indices))
	for _, idx := range indices {
		pageCtx, err := pdfcpu.ExtractPages(ctx, []int{idx + 1}, false)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", idx+1, err)
		}
		out := filepath.Join(outDir, fmt.Sprintf("%s_page_%d.pdf", base, idx+1))
		if err := api.WriteContextFile(pageCtx, out); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", idx+1, err)
		}
		outputs = append(outputs, out)
	}

	s.logger.Infow("✅ PDF split completed",
		"input_pages", ctx.PageCount,
		"output_files", len(outputs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outputs, nil
}

// NormalizeAngle acepta 90/180/270 y sus negativos; devuelve 0 para cualquier otro valor
func NormalizeAngle(angle int) int {
	switch angle {
	case 90, 180, 270:
		return angle
	case -90, -180, -270:
		return angle + 360
	}
	return 0
}

// Rotate rota las páginas seleccionadas; el resto queda intacto
func (s *PDFCPUService) Rotate(in, out string, angle int, spec string) error {
	s.logger.Infow("🔄 Starting PDF rotation", "input", filepath.Base(in), "angle", angle, "pages", spec)

	normalized := NormalizeAngle(angle)
	if normalized == 0 {
		return response.Invalid("Invalid angle %d: must be 90, 180 or 270", angle)
	}

	total, err := s.PageCount(in)
	if err != nil {
		return err
	}
	indices := pages.Resolve(spec, total)
	if len(indices) == 0 {
		// selección vacía: el documento se entrega sin cambios
		return copyFile(in, out)
	}

	if err := api.RotateFile(in, out, normalized, pages.Selection(indices), s.conf()); err != nil {
		s.logger.Errorw("❌ PDF rotation failed", "error", err, "angle", normalized)
		return fmt.Errorf("rotation operation failed: %w", err)
	}

	s.logger.Infow("✅ PDF rotation completed", "angle", normalized, "pages_rotated", len(indices))
	return nil
}

// RemovePages elimina las páginas de spec y conserva el resto en un único documento
func (s *PDFCPUService) RemovePages(in, out, spec string) error {
	ctx, err := api.ReadContextFile(in)
	if err != nil {
		return response.Invalid("Invalid or unreadable PDF: %s", filepath.Base(in))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to count pages: %w", err)
	}

	remove := pages.Resolve(spec, ctx.PageCount)
	if len(remove) == 0 {
		return response.Invalid("No pages specified to remove")
	}
	keep := pages.Complement(remove, ctx.PageCount)
	if len(keep) == 0 {
		return response.Invalid("Cannot remove every page of the document")
	}

	pageNrs := make([]int, len(keep))
	for i, idx := range keep {
		pageNrs[i] = idx + 1
	}
	kept, err := pdfcpu.ExtractPages(ctx, pageNrs, false)
	if err != nil {
		return fmt.Errorf("failed to extract remaining pages: %w", err)
	}
	if err := api.WriteContextFile(kept, out); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Infow("🗑️ Pages removed", "removed", len(remove), "remaining", len(keep))
	return nil
}

// AppendBlankPage añade al final una página en blanco de width x height puntos
func (s *PDFCPUService) AppendBlankPage(in, out, scratchDir string, width, height float64) error {
	if width <= 0 {
		width = LetterWidth
	}
	if height <= 0 {
		height = LetterHeight
	}

	blank := filepath.Join(scratchDir, "blank.pdf")
	if err := WriteBlankPDF(blank, 1, width, height); err != nil {
		return fmt.Errorf("failed to create blank page: %w", err)
	}
	if err := api.MergeCreateFile([]string{in, blank}, out, false, s.conf()); err != nil {
		return fmt.Errorf("failed to append blank page: %w", err)
	}
	return nil
}

// ImagesToPDF coloca cada imagen en su propia página, en el orden recibido.
// Las imágenes se normalizan a PNG en scratchDir antes de importarlas.
func (s *PDFCPUService) ImagesToPDF(images []string, out, scratchDir string) error {
	start := time.Now()
	if len(images) == 0 {
		return response.Invalid("At least one image is required")
	}

	normalized := make([]string, 0, len(images))
	for i, img := range images {
		png, _, _, err := NormalizeImage(img, filepath.Join(scratchDir, fmt.Sprintf("image_%03d.png", i+1)))
		if err != nil {
			return err
		}
		normalized = append(normalized, png)
	}

	if err := api.ImportImagesFile(normalized, out, nil, s.conf()); err != nil {
		s.logger.Errorw("❌ Image import failed", "error", err)
		return fmt.Errorf("image to PDF failed: %w", err)
	}

	s.logger.Infow("✅ Images converted to PDF",
		"images", len(images),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Encrypt cifra con AES-256 usando pdfcpu (alternativa nativa a qpdf)
func (s *PDFCPUService) Encrypt(in, out, userPW, ownerPW string) error {
	if userPW == "" {
		return response.Invalid("Password is required")
	}
	if ownerPW == "" {
		ownerPW = userPW
	}

	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.EncryptFile(in, out, conf); err != nil {
		s.logger.Errorw("❌ PDF lock failed", "error", err)
		return fmt.Errorf("lock operation failed: %w", err)
	}
	s.logger.Infow("🔒 PDF locked natively", "output", filepath.Base(out))
	return nil
}

// Decrypt elimina el cifrado usando pdfcpu (alternativa nativa a qpdf)
func (s *PDFCPUService) Decrypt(in, out, password string) error {
	if password == "" {
		return response.Invalid("Password is required")
	}

	conf := s.conf()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.DecryptFile(in, out, conf); err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return response.Invalid("Incorrect password")
		}
		s.logger.Errorw("❌ PDF unlock failed", "error", err)
		return fmt.Errorf("unlock operation failed: %w", err)
	}
	s.logger.Infow("🔓 PDF unlocked natively", "output", filepath.Base(out))
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
