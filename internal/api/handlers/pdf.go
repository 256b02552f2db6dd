package handlers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/placement"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/response"
)

// MergePDF handler para fusionar PDFs
// @Summary Fusionar PDFs
// @Description Combina los PDFs en el orden de subida
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param files formData file true "Archivos PDF a fusionar (mínimo 2)"
// @Success 200 {file} application/pdf "PDF fusionado"
// @Failure 400 {object} response.ErrorBody
// @Router /api/pdf/merge-pdf [post]
func (h *Handlers) MergePDF(c *fiber.Ctx) error {
	return h.execute(c, "merge", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		files, err := h.uploads(c, "files")
		if err != nil {
			return nil, err
		}
		if len(files) < 2 {
			return nil, response.Invalid("At least two PDF files are required")
		}

		inputs, err := h.load(ws, files, utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		paths := make([]string, len(inputs))
		for i, in := range inputs {
			paths[i] = in.StoredPath
		}

		out := ws.Path("merged_" + stamp() + ".pdf")
		if err := h.pdf.Merge(paths, out); err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// SplitPDF handler para dividir un PDF en un documento por página
// @Summary Dividir PDF
// @Description Un PDF por página seleccionada; varios se entregan en zip
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param pages formData string false "Páginas (ej: 1-3,5); vacío = todas"
// @Success 200 {file} application/zip
// @Router /api/pdf/split-pdf [post]
func (h *Handlers) SplitPDF(c *fiber.Ctx) error {
	return h.execute(c, "split", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		dir, err := ws.Dir("split")
		if err != nil {
			return nil, err
		}

		parts, err := h.pdf.Split(in.StoredPath, dir, in.BaseName(), c.FormValue("pages"))
		if err != nil {
			return nil, err
		}
		return &output{files: parts, archive: in.BaseName() + "_split_" + stamp() + ".zip"}, nil
	})
}

// RotatePDF handler para rotar páginas de uno o varios PDFs
// @Summary Rotar PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file false "Archivo PDF"
// @Param files formData file false "Varios archivos PDF"
// @Param angle formData int false "90, 180 o 270 (por defecto 90)"
// @Param pages formData string false "Páginas a rotar; vacío = todas"
// @Success 200 {file} application/pdf
// @Router /api/pdf/rotate-pdf [post]
func (h *Handlers) RotatePDF(c *fiber.Ctx) error {
	return h.execute(c, "rotate", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		angle := pdf.NormalizeAngle(utils.ParseOrDefault(c.FormValue("angle"), 90))
		if angle == 0 {
			return nil, response.Invalid("Angle must be one of 90, 180 or 270")
		}

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

		ts := stamp()
		spec := c.FormValue("pages")
		outputs := make([]string, 0, len(inputs))
		for _, in := range inputs {
			// un directorio por documento: dos uploads con el mismo nombre no se pisan
			dir, err := ws.Dir("rotate")
			if err != nil {
				return nil, err
			}
			out := filepath.Join(dir, in.BaseName()+"_rotated_"+ts+".pdf")
			if err := h.pdf.Rotate(in.StoredPath, out, angle, spec); err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		}
		return &output{files: outputs, archive: "rotated_" + ts + ".zip"}, nil
	})
}

// WatermarkPDF handler para marcas de agua de texto o imagen
// @Summary Marca de agua
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param image formData file false "Imagen de marca de agua"
// @Param text formData string false "Texto (obligatorio sin imagen)"
// @Param position formData string false "top-left ... bottom-right (center)"
// @Param mosaic formData bool false "Repetir en rejilla"
// @Param layer formData string false "over | under"
// @Success 200 {file} application/pdf
// @Router /api/pdf/watermark-pdf [post]
func (h *Handlers) WatermarkPDF(c *fiber.Ctx) error {
	return h.execute(c, "watermark", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		opts := pdf.WatermarkOptions{
			Text:     c.FormValue("text"),
			Pages:    c.FormValue("pages"),
			FontSize: utils.ParseOrDefault(c.FormValue("fontSize"), 48),
			Color:    utils.HexColorOrDefault(c.FormValue("color"), "#000000"),
			Opacity:  utils.ClampFloat(utils.ParseOrDefault(c.FormValue("opacity"), 0.15), 0, 1),
			Rotation: utils.ParseOrDefault(c.FormValue("rotation"), -45.0),
			Position: placement.ParsePosition(c.FormValue("position", string(placement.Center))),
			Margin:   utils.ParseOrDefault(c.FormValue("margin"), 20.0),
			Scale:    utils.ClampFloat(utils.ParseOrDefault(c.FormValue("scale"), 0.3), 0.01, 1),
			Mosaic:   utils.ParseOrDefault(c.FormValue("mosaic"), false),
			OnTop:    c.FormValue("layer", "over") != "under",
		}
		if isBlank(opts.Text) && !h.hasUpload(c, "image") {
			return nil, response.Invalid("Watermark text is required")
		}

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		img, err := h.optionalImage(c, ws, "image")
		if err != nil {
			return nil, err
		}
		opts.ImagePath = img

		out := ws.Path(in.BaseName() + "_watermarked_" + stamp() + ".pdf")
		if err := h.pdf.Watermark(in.StoredPath, out, opts); err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// SignPDF handler para firma visible con imagen o texto
// @Summary Firmar PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param signature formData file false "Imagen de la firma"
// @Param signatureText formData string false "Texto si no hay imagen (Signed)"
// @Param position formData string false "Posición (bottom-right)"
// @Param scale formData number false "Ancho relativo a la página (0.18)"
// @Success 200 {file} application/pdf
// @Router /api/pdf/pdf-sign [post]
func (h *Handlers) SignPDF(c *fiber.Ctx) error {
	return h.execute(c, "sign", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		opts := pdf.SignOptions{
			Text:     c.FormValue("signatureText", "Signed"),
			Pages:    c.FormValue("pages"),
			Position: signPosition(c.FormValue("position")),
			Margin:   20,
			Scale:    utils.ClampFloat(utils.ParseOrDefault(c.FormValue("scale"), 0.18), 0.01, 1),
			FontSize: utils.ParseOrDefault(c.FormValue("fontSize"), 36),
			Rotation: utils.ParseOrDefault(c.FormValue("rotate"), 0.0),
		}

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		img, err := h.optionalImage(c, ws, "signature")
		if err != nil {
			return nil, err
		}
		opts.ImagePath = img

		out := ws.Path(in.BaseName() + "_signed_" + stamp() + ".pdf")
		if err := h.pdf.Sign(in.StoredPath, out, opts); err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// signPosition resuelve la posición de la firma; lo desconocido va abajo a la derecha
func signPosition(raw string) placement.Position {
	return placement.ParsePositionOr(raw, placement.BottomRight)
}

// optionalImage guarda la imagen del campo field normalizada a PNG; "" si no se envió
func (h *Handlers) optionalImage(c *fiber.Ctx, ws *storage.Workspace, field string) (string, error) {
	up, err := h.optional(c, ws, field, utils.CategoryImage)
	if err != nil || up == nil {
		return "", err
	}
	dir, err := ws.Dir(field)
	if err != nil {
		return "", err
	}
	path, _, _, err := pdf.NormalizeImage(up.StoredPath, filepath.Join(dir, field+".png"))
	return path, err
}
