package handlers

import (
	"mime/multipart"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/api/middleware"
	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/health"
	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/internal/office"
	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// ArtifactHeader cabecera con el nombre del artefacto publicado, para GET /download/:filename
const ArtifactHeader = "X-Artifact-Name"

// Handlers contiene todas las instancias de servicios
type Handlers struct {
	config  *config.Config
	logger  *logger.Logger
	storage storage.Service
	pdf     pdf.Service
	tools   *engine.Tools
	office  office.Converter
	health  *health.Checker
	rm      *response.ResponseManager
	started time.Time
}

// New crea una nueva instancia de handlers
func New(cfg *config.Config, log *logger.Logger, store storage.Service, pdfSvc pdf.Service, tools *engine.Tools, conv office.Converter) *Handlers {
	h := &Handlers{
		config:  cfg,
		logger:  log,
		storage: store,
		pdf:     pdfSvc,
		tools:   tools,
		office:  conv,
		health:  health.NewChecker(log.Named("health")),
		rm:      response.NewResponseManager(log, !cfg.IsProduction()),
		started: time.Now(),
	}

	h.health.Register("uploads", health.DirWritable(store.UploadDir()))
	h.health.Register("outputs", health.DirWritable(store.OutputDir()))
	h.health.Register("work", health.DirWritable(store.WorkDir()))
	h.health.Register("disk_space", health.DiskSpace(utils.NewDiskSpaceChecker(log), store.OutputDir(), 10))
	chains := tools.Chains()
	h.health.Register("engines", health.Engines(map[string][]string{
		"ghostscript": chains.Ghostscript,
		"qpdf":        chains.Qpdf,
		"pdftoppm":    chains.Pdftoppm,
		"office":      chains.Office,
	}))
	return h
}

// Health checker de readiness, para registrar checks adicionales (Redis)
func (h *Handlers) Health() *health.Checker { return h.health }

// output lo que una operación deja en el workspace para entregar
type output struct {
	files []string
	// name nombre de descarga con un único archivo; vacío usa el nombre del archivo
	name string
	// archive nombre del zip cuando hay varios archivos
	archive string
}

type operationFunc func(c *fiber.Ctx, ws *storage.Workspace) (*output, error)

// execute recorre Validate → Load → Transform|Invoke → Emit y limpia el workspace siempre
func (h *Handlers) execute(c *fiber.Ctx, operation string, fn operationFunc) error {
	start := time.Now()
	log := h.logger.WithRequest(response.RequestID(c), c.Method(), c.Path())

	ws, err := h.storage.NewWorkspace(response.RequestID(c))
	if err != nil {
		return h.fail(c, operation, start, response.Unexpected("failed to prepare workspace", err))
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.WithError(err).Warnw("⚠️ Workspace cleanup incomplete", "operation", operation)
		}
	}()

	out, err := fn(c, ws)
	if err != nil {
		return h.fail(c, operation, start, err)
	}

	art, err := h.emit(c, ws, out)
	if err != nil {
		return h.fail(c, operation, start, err)
	}

	metrics.OperationsTotal.WithLabelValues(operation, "success").Inc()
	metrics.OperationDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	log.Infow("✅ Operation completed",
		"operation", operation,
		"artifact", art.Name,
		"size", art.Size,
		"outputs", len(out.files),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c.Set(ArtifactHeader, art.Name)
	return h.rm.Attachment(c, art.Path, art.DownloadName)
}

// emit publica el único archivo producido o el zip con todos ellos
func (h *Handlers) emit(c *fiber.Ctx, ws *storage.Workspace, out *output) (*storage.Artifact, error) {
	if out == nil || len(out.files) == 0 {
		return nil, response.Unexpected("operation produced no output", nil)
	}

	src, name := out.files[0], out.name
	if name == "" {
		name = filepath.Base(src)
	}
	if len(out.files) > 1 {
		bundle, err := storage.Bundle(ws, out.archive, out.files)
		if err != nil {
			return nil, response.Unexpected("failed to build archive", err)
		}
		src, name = bundle, filepath.Base(bundle)
	}

	return h.storage.Publish(c.UserContext(), ws, src, name, middleware.Owner(c))
}

func (h *Handlers) fail(c *fiber.Ctx, operation string, start time.Time, err error) error {
	metrics.OperationsTotal.WithLabelValues(operation, string(response.Classify(err))).Inc()
	metrics.OperationDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return h.rm.Error(c, err)
}

// uploads reúne los archivos de los campos indicados, en orden de subida
func (h *Handlers) uploads(c *fiber.Ctx, fields ...string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, response.Invalid("Request must be multipart/form-data")
	}

	var files []*multipart.FileHeader
	for _, field := range fields {
		files = append(files, form.File[field]...)
	}
	if max := h.config.Storage.MaxFiles; max > 0 && len(files) > max {
		return nil, response.Invalid("Too many files: the maximum is %d", max)
	}
	return files, nil
}

// hasUpload indica si el campo trae algún archivo, sin guardarlo
func (h *Handlers) hasUpload(c *fiber.Ctx, field string) bool {
	files, err := h.uploads(c, field)
	return err == nil && len(files) > 0
}

// load guarda los uploads en el workspace validando su tipo por contenido
func (h *Handlers) load(ws *storage.Workspace, files []*multipart.FileHeader, category string) ([]*storage.UploadedFile, error) {
	loaded := make([]*storage.UploadedFile, 0, len(files))
	for _, fh := range files {
		up, err := h.storage.SaveUpload(ws, fh, category)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, up)
	}
	return loaded, nil
}

// single carga el primer archivo del campo field; es obligatorio
func (h *Handlers) single(c *fiber.Ctx, ws *storage.Workspace, field, category string) (*storage.UploadedFile, error) {
	files, err := h.uploads(c, field)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, response.Invalid("No file uploaded in field '%s'", field)
	}
	loaded, err := h.load(ws, files[:1], category)
	if err != nil {
		return nil, err
	}
	return loaded[0], nil
}

// optional carga el archivo del campo field si existe
func (h *Handlers) optional(c *fiber.Ctx, ws *storage.Workspace, field, category string) (*storage.UploadedFile, error) {
	if !h.hasUpload(c, field) {
		return nil, nil
	}
	return h.single(c, ws, field, category)
}

// stamp sufijo temporal de los nombres de descarga
func stamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
