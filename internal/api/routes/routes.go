package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kavach/engine/internal/api/handlers"
)

// Setup configura todas las rutas de la API.
// guards se aplican a las rutas de operación y descarga (auth, rate limit).
func Setup(app *fiber.App, h *handlers.Handlers, guards ...fiber.Handler) {
	setupPublicRoutes(app, h)

	pdf := app.Group("/api/pdf", guards...)
	setupOperationRoutes(pdf, h)

	download := app.Group("/download", guards...)
	download.Get("/:filename", h.Download)
}

// setupPublicRoutes rutas sin autenticación
func setupPublicRoutes(app *fiber.App, h *handlers.Handlers) {
	app.Get("/health", h.GetHealth)
	app.Get("/health/ready", h.GetReadiness)
	app.Get("/api/v1/info", h.GetInfo)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// setupOperationRoutes una ruta POST por operación
func setupOperationRoutes(api fiber.Router, h *handlers.Handlers) {
	api.Post("/merge-pdf", h.MergePDF)
	api.Post("/split-pdf", h.SplitPDF)
	api.Post("/rotate-pdf", h.RotatePDF)
	api.Post("/watermark-pdf", h.WatermarkPDF)
	api.Post("/pdf-sign", h.SignPDF)
	api.Post("/edit-pdf", h.EditPDF)

	api.Post("/protect-pdf", h.ProtectPDF)
	api.Post("/unlock-pdf", h.UnlockPDF)

	api.Post("/optimize-pdf", h.OptimizePDF)
	api.Post("/compress-pdf", h.OptimizePDF)

	api.Post("/image-to-pdf", h.ImageToPDF)
	api.Post("/pdf-to-word", h.PDFToWord)
	api.Post("/pdf-to-excel", h.PDFToExcel)
	api.Post("/pdf-to-ppt", h.PDFToPowerPoint)
	api.Post("/word-to-pdf", h.WordToPDF)
	api.Post("/pdf-to-image", h.PDFToImage)
}
