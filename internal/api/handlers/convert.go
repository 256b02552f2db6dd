package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/office"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/response"
)

// OptimizePDF handler para recomprimir con ghostscript (también /compress-pdf)
// @Summary Optimizar PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param preset formData string false "screen | ebook | printer | prepress (screen)"
// @Param jpegQuality formData int false "Calidad JPEG 1-100 (75)"
// @Success 200 {file} application/pdf
// @Router /api/pdf/optimize-pdf [post]
func (h *Handlers) OptimizePDF(c *fiber.Ctx) error {
	return h.execute(c, "optimize", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		preset := c.FormValue("preset")
		quality := utils.ParseOrDefault(c.FormValue("jpegQuality"), 75)

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		out := ws.Path(in.BaseName() + "_optimized_" + stamp() + ".pdf")

		if _, err := h.tools.Optimize(c.UserContext(), in.StoredPath, out, preset, quality); err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// ImageToPDF handler para convertir imágenes en un PDF, una por página
// @Summary Imágenes a PDF
// @Tags convert
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param files formData file true "Imágenes en orden"
// @Success 200 {file} application/pdf
// @Router /api/pdf/image-to-pdf [post]
func (h *Handlers) ImageToPDF(c *fiber.Ctx) error {
	return h.execute(c, "image_to_pdf", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		files, err := h.uploads(c, "files", "file")
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, response.Invalid("At least one image is required")
		}
		images, err := h.load(ws, files, utils.CategoryImage)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(images))
		for i, img := range images {
			paths[i] = img.StoredPath
		}

		dir, err := ws.Dir("images")
		if err != nil {
			return nil, err
		}
		out := ws.Path("images_to_pdf_" + stamp() + ".pdf")
		if err := h.pdf.ImagesToPDF(paths, out, dir); err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// PDFToWord convierte a docx
// @Summary PDF a Word
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Success 200 {file} application/octet-stream
// @Router /api/pdf/pdf-to-word [post]
func (h *Handlers) PDFToWord(c *fiber.Ctx) error {
	return h.fromPDF(c, "pdf_to_word", office.FormatWord)
}

// PDFToExcel convierte a xlsx
// @Summary PDF a Excel
// @Tags convert
// @Router /api/pdf/pdf-to-excel [post]
func (h *Handlers) PDFToExcel(c *fiber.Ctx) error {
	return h.fromPDF(c, "pdf_to_excel", office.FormatExcel)
}

// PDFToPowerPoint convierte a pptx
// @Summary PDF a PowerPoint
// @Tags convert
// @Router /api/pdf/pdf-to-ppt [post]
func (h *Handlers) PDFToPowerPoint(c *fiber.Ctx) error {
	return h.fromPDF(c, "pdf_to_ppt", office.FormatPowerPoint)
}

func (h *Handlers) fromPDF(c *fiber.Ctx, operation, format string) error {
	return h.execute(c, operation, func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		dir, err := ws.Dir("office")
		if err != nil {
			return nil, err
		}

		out, err := h.office.FromPDF(c.UserContext(), in.StoredPath, dir, format)
		if err != nil {
			return nil, err
		}
		return &output{files: []string{out}, name: in.BaseName() + "." + format}, nil
	})
}

// WordToPDF handler para documentos Office a PDF
// @Summary Office a PDF
// @Tags convert
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Documento doc/docx/odt/rtf/xls/ppt..."
// @Success 200 {file} application/pdf
// @Router /api/pdf/word-to-pdf [post]
func (h *Handlers) WordToPDF(c *fiber.Ctx) error {
	return h.execute(c, "word_to_pdf", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		in, err := h.single(c, ws, "file", utils.CategoryOffice)
		if err != nil {
			return nil, err
		}
		dir, err := ws.Dir("office")
		if err != nil {
			return nil, err
		}

		out, err := h.office.ToPDF(c.UserContext(), in.StoredPath, dir)
		if err != nil {
			return nil, err
		}
		return &output{files: []string{out}, name: in.BaseName() + ".pdf"}, nil
	})
}

// PDFToImage handler para rasterizar páginas a PNG con pdftoppm
// @Summary PDF a imágenes
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Security BearerAuth
// @Param file formData file false "Archivo PDF"
// @Param files formData file false "Varios PDFs"
// @Param dpi formData int false "Resolución (150)"
// @Success 200 {file} application/zip
// @Router /api/pdf/pdf-to-image [post]
func (h *Handlers) PDFToImage(c *fiber.Ctx) error {
	return h.execute(c, "pdf_to_image", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		dpi := int(utils.ClampFloat(float64(utils.ParseOrDefault(c.FormValue("dpi"), 150)), 36, 600))

		files, err := h.uploads(c, "file", "files")
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, response.Invalid("At least one PDF file is required")
		}
		inputs, err := h.load(ws, files, utils.CategoryPDF)
		if err != nil {
			return nil, err
		}

		var images []string
		for _, in := range inputs {
			dir, err := ws.Dir("raster")
			if err != nil {
				return nil, err
			}
			pages, _, err := h.tools.Rasterize(c.UserContext(), in.StoredPath, dir, in.BaseName(), dpi)
			if err != nil {
				return nil, err
			}
			images = append(images, pages...)
		}
		if len(images) == 0 {
			return nil, response.Unexpected("No images produced", nil)
		}

		return &output{files: images, archive: "pdf_images_" + stamp() + ".zip"}, nil
	})
}
