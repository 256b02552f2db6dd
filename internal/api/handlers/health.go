package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/health"
)

// Version versión del servicio expuesta en /health y /api/v1/info
const Version = "1.0.0"

// Operations rutas de operación publicadas bajo /api/pdf
var Operations = []string{
	"merge-pdf", "split-pdf", "rotate-pdf", "watermark-pdf", "pdf-sign", "edit-pdf",
	"protect-pdf", "unlock-pdf", "optimize-pdf", "compress-pdf", "image-to-pdf",
	"pdf-to-word", "pdf-to-excel", "pdf-to-ppt", "word-to-pdf", "pdf-to-image",
}

// GetHealth health check básico para balanceadores
// @Summary Health check
// @Tags public
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handlers) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   "kavach-engine",
		"version":   Version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// GetReadiness ejecuta los checks de readiness; 503 si alguno falla
// @Summary Readiness check
// @Tags public
// @Produce json
// @Success 200 {object} health.Status
// @Failure 503 {object} health.Status
// @Router /health/ready [get]
func (h *Handlers) GetReadiness(c *fiber.Ctx) error {
	status := h.health.Readiness(c.UserContext())
	code := fiber.StatusOK
	if status.Status == health.Unhealthy {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}

// GetInfo handler para información general
// @Summary Información del motor
// @Description Operaciones disponibles y ejecutables externos detectados en PATH
// @Tags public
// @Produce json
// @Success 200 {object} response.SuccessBody
// @Router /api/v1/info [get]
func (h *Handlers) GetInfo(c *fiber.Ctx) error {
	chains := h.tools.Chains()
	info := map[string]interface{}{
		"name":        "Kavach Engine",
		"version":     Version,
		"environment": h.config.Environment,
		"operations":  Operations,
		"tools": map[string]map[string]bool{
			"ghostscript": engine.Available(chains.Ghostscript),
			"qpdf":        engine.Available(chains.Qpdf),
			"pdftoppm":    engine.Available(chains.Pdftoppm),
			"office":      engine.Available(chains.Office),
		},
		"office": map[string]interface{}{
			"provider":  h.office.Provider(),
			"available": h.office.IsAvailable(),
		},
		"lock_native_fallback": h.config.Engines.LockNativeFallback,
		"limits": map[string]interface{}{
			"max_upload_mb": h.config.Storage.MaxUploadMB,
			"max_files":     h.config.Storage.MaxFiles,
		},
	}
	return h.rm.Success(c, info)
}
