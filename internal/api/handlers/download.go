package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/api/middleware"
)

// Download handler para recuperar un artefacto publicado
// @Summary Descargar artefacto
// @Tags files
// @Produce application/octet-stream
// @Security BearerAuth
// @Param filename path string true "Nombre devuelto en X-Artifact-Name"
// @Success 200 {file} application/octet-stream
// @Failure 404 {object} response.ErrorBody
// @Router /download/{filename} [get]
func (h *Handlers) Download(c *fiber.Ctx) error {
	start := time.Now()
	art, err := h.storage.Locate(c.UserContext(), c.Params("filename"), middleware.Owner(c))
	if err != nil {
		return h.fail(c, "download", start, err)
	}

	h.storage.Tracker().MarkInUse(art.Path)
	defer h.storage.Tracker().MarkAvailable(art.Path)

	if err := h.rm.Attachment(c, art.Path, art.DownloadName); err != nil {
		return h.fail(c, "download", start, err)
	}
	h.logger.Debugw("📥 Artifact downloaded", "artifact", art.Name, "size", art.Size)
	return nil
}
