package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/response"
)

// Acciones de /edit-pdf
const (
	ActionRemovePages  = "removePages"
	ActionAddText      = "addText"
	ActionAddImage     = "addImage"
	ActionAddBlankPage = "addBlankPage"
)

// editParams campo "params" de /edit-pdf. Los valores pueden llegar como número o texto.
type editParams map[string]interface{}

func parseEditParams(raw string) (editParams, error) {
	params := editParams{}
	if strings.TrimSpace(raw) == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, response.Invalid("Invalid params JSON")
	}
	return params, nil
}

// str devuelve el valor como texto; "" si falta
func (p editParams) str(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []interface{}:
		// "pages": [1, 3, "5-7"]
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = editParams{"v": item}.str("v")
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func (p editParams) number(key string, def float64) float64 {
	return utils.ParseOrDefault(p.str(key), def)
}

func (p editParams) integer(key string, def int) int {
	return int(p.number(key, float64(def)))
}

// EditPDF handler para ediciones puntuales del documento
// @Summary Editar PDF
// @Description action: removePages, addText, addImage, addBlankPage; params en JSON
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param image formData file false "Imagen para addImage"
// @Param action formData string true "Acción"
// @Param params formData string false "Parámetros JSON de la acción"
// @Success 200 {file} application/pdf
// @Router /api/pdf/edit-pdf [post]
func (h *Handlers) EditPDF(c *fiber.Ctx) error {
	return h.execute(c, "edit", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		action := strings.TrimSpace(c.FormValue("action"))
		params, err := parseEditParams(c.FormValue("params"))
		if err != nil {
			return nil, err
		}

		switch action {
		case ActionRemovePages:
			if isBlank(params.str("pages")) {
				return nil, response.Invalid("No pages specified to remove")
			}
		case ActionAddText:
			if isBlank(params.str("text")) {
				return nil, response.Invalid("Text is required for addText")
			}
		case ActionAddImage:
			if !h.hasUpload(c, "image") {
				return nil, response.Invalid("Image file is required for addImage")
			}
		case ActionAddBlankPage:
		case "":
			return nil, response.Invalid("Edit action is required")
		default:
			return nil, response.Invalid("Unknown edit action: %s", action)
		}

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		out := ws.Path(in.BaseName() + "_edited_" + stamp() + ".pdf")

		switch action {
		case ActionRemovePages:
			err = h.pdf.RemovePages(in.StoredPath, out, params.str("pages"))

		case ActionAddText:
			err = h.pdf.AddText(in.StoredPath, out, pdf.TextOptions{
				Text:     params.str("text"),
				Page:     params.integer("page", 1),
				X:        params.number("x", 50),
				Y:        params.number("y", 50),
				FontSize: params.integer("fontSize", 24),
				Color:    utils.HexColorOrDefault(params.str("color"), "#000000"),
				Rotation: params.number("rotate", 0),
			})

		case ActionAddImage:
			var img string
			img, err = h.optionalImage(c, ws, "image")
			if err == nil {
				err = h.pdf.AddImage(in.StoredPath, out, pdf.ImageOptions{
					ImagePath: img,
					Page:      params.integer("page", 1),
					X:         params.number("x", 50),
					Y:         params.number("y", 50),
					Width:     params.number("width", 0),
					Height:    params.number("height", 0),
					Rotation:  params.number("rotate", 0),
				})
			}

		case ActionAddBlankPage:
			var dir string
			dir, err = ws.Dir("blank")
			if err == nil {
				err = h.pdf.AppendBlankPage(in.StoredPath, out, dir,
					params.number("width", pdf.LetterWidth),
					params.number("height", pdf.LetterHeight))
			}
		}
		if err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
