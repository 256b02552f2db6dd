package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/response"
)

// ProtectPDF handler para cifrar un PDF con contraseña (qpdf AES-256)
// @Summary Proteger PDF
// @Tags security
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param password formData string true "Contraseña de usuario"
// @Param ownerPassword formData string false "Contraseña de propietario (por defecto la de usuario)"
// @Success 200 {file} application/pdf
// @Failure 500 {object} response.ErrorBody "qpdf no disponible"
// @Router /api/pdf/protect-pdf [post]
func (h *Handlers) ProtectPDF(c *fiber.Ctx) error {
	return h.execute(c, "lock", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		password := c.FormValue("password")
		if password == "" {
			return nil, response.Invalid("Password is required")
		}
		ownerPassword := c.FormValue("ownerPassword", password)

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		out := ws.Path(in.BaseName() + "_protected_" + stamp() + ".pdf")

		_, err = h.tools.Encrypt(c.UserContext(), in.StoredPath, out, password, ownerPassword)
		if err != nil && h.nativeFallback(err) {
			err = h.pdf.Encrypt(in.StoredPath, out, password, ownerPassword)
		}
		if err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// UnlockPDF handler para quitar la contraseña de un PDF (qpdf --decrypt)
// @Summary Desbloquear PDF
// @Tags security
// @Accept multipart/form-data
// @Produce application/pdf
// @Security BearerAuth
// @Param file formData file true "Archivo PDF"
// @Param password formData string true "Contraseña actual"
// @Success 200 {file} application/pdf
// @Router /api/pdf/unlock-pdf [post]
func (h *Handlers) UnlockPDF(c *fiber.Ctx) error {
	return h.execute(c, "unlock", func(c *fiber.Ctx, ws *storage.Workspace) (*output, error) {
		password := c.FormValue("password")
		if password == "" {
			return nil, response.Invalid("Password is required")
		}

		in, err := h.single(c, ws, "file", utils.CategoryPDF)
		if err != nil {
			return nil, err
		}
		out := ws.Path(in.BaseName() + "_unlocked_" + stamp() + ".pdf")

		_, err = h.tools.Decrypt(c.UserContext(), in.StoredPath, out, password)
		if engine.IsRejected(err) {
			h.logger.WithError(err).Warnw("🔒 qpdf rejected the document")
			return nil, response.Invalid("Incorrect password or unreadable PDF file")
		}
		if err != nil && h.nativeFallback(err) {
			err = h.pdf.Decrypt(in.StoredPath, out, password)
		}
		if err != nil {
			return nil, err
		}
		return &output{files: []string{out}}, nil
	})
}

// nativeFallback indica si, agotada la cadena qpdf, se recurre al cifrado de pdfcpu
func (h *Handlers) nativeFallback(err error) bool {
	if !h.config.Engines.LockNativeFallback || !engine.IsToolUnavailable(err) {
		return false
	}
	h.logger.Warnw("⚠️ qpdf unavailable, using native encryption", "error", err)
	return true
}
