package office

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/resilience"
	"github.com/kavach/engine/pkg/logger"
)

// Formatos de destino de las conversiones desde PDF
const (
	FormatWord       = "docx"
	FormatExcel      = "xlsx"
	FormatPowerPoint = "pptx"
	FormatPDF        = "pdf"
)

// Converter convierte documentos entre PDF y formatos Office.
// outDir debe ser un directorio exclusivo de la invocación.
type Converter interface {
	ToPDF(ctx context.Context, in, outDir string) (string, error)
	FromPDF(ctx context.Context, in, outDir, format string) (string, error)
	Provider() string
	IsAvailable() bool
}

// NewService crea el conversor según OFFICE_PROVIDER.
// Gotenberg solo cubre la dirección Office→PDF; la inversa siempre pasa por LibreOffice.
func NewService(cfg *config.Config, tools *engine.Tools, log *logger.Logger) Converter {
	if !cfg.Office.Enabled {
		return &DisabledService{}
	}

	lo := &LibreOfficeService{tools: tools, logger: log}
	if cfg.Office.Provider == "gotenberg" {
		return &GotenbergService{
			client: NewGotenbergClient(cfg.Office.GotenbergURL, cfg.Office.GotenbergRPS, cfg.Engines.Timeout).
				WithBreaker(resilience.New("gotenberg", resilience.DefaultConfig(), log.Named("breaker"))),
			fallback: lo,
			logger:   log,
		}
	}
	return lo
}

// LibreOfficeService conversión con la cadena soffice/libreoffice
type LibreOfficeService struct {
	tools  *engine.Tools
	logger *logger.Logger
}

func (s *LibreOfficeService) Provider() string { return "libreoffice" }

func (s *LibreOfficeService) IsAvailable() bool {
	for _, ok := range engine.Available(s.tools.Chains().Office) {
		if ok {
			return true
		}
	}
	return false
}

func (s *LibreOfficeService) ToPDF(ctx context.Context, in, outDir string) (string, error) {
	return s.convert(ctx, in, outDir, FormatPDF)
}

func (s *LibreOfficeService) FromPDF(ctx context.Context, in, outDir, format string) (string, error) {
	return s.convert(ctx, in, outDir, format)
}

func (s *LibreOfficeService) convert(ctx context.Context, in, outDir, format string) (string, error) {
	start := time.Now()
	s.logger.Infow("🔄 Starting LibreOffice conversion",
		"input", filepath.Base(in),
		"format", format,
	)

	out, res, err := s.tools.OfficeConvert(ctx, in, outDir, format)
	if err != nil {
		s.logger.Errorw("❌ LibreOffice conversion failed",
			"input", filepath.Base(in),
			"format", format,
			"error", err,
		)
		return "", err
	}

	s.logger.Infow("✅ LibreOffice conversion completed",
		"input", filepath.Base(in),
		"output", filepath.Base(out),
		"tool", res.Tool,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// GotenbergService Office→PDF sobre HTTP; PDF→Office delega en LibreOffice
type GotenbergService struct {
	client   *GotenbergClient
	fallback *LibreOfficeService
	logger   *logger.Logger
}

func (s *GotenbergService) Provider() string { return "gotenberg" }

func (s *GotenbergService) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Health(ctx) == nil
}

func (s *GotenbergService) ToPDF(ctx context.Context, in, outDir string) (string, error) {
	start := time.Now()
	s.logger.Infow("📡 Gotenberg conversion requested", "input", filepath.Base(in), "url", s.client.baseURL)

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(outDir, base+".pdf")

	attempt := s.client.Convert(ctx, in, out)
	if _, err := engine.Settle("office_pdf", []engine.Attempt{attempt}); err != nil {
		s.logger.Errorw("❌ Gotenberg conversion failed", "input", filepath.Base(in), "error", err)
		return "", err
	}

	s.logger.Infow("✅ Gotenberg conversion completed",
		"input", filepath.Base(in),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *GotenbergService) FromPDF(ctx context.Context, in, outDir, format string) (string, error) {
	return s.fallback.FromPDF(ctx, in, outDir, format)
}

// DisabledService cuando Office está deshabilitado (OFFICE_ENABLED=false)
type DisabledService struct{}

func (s *DisabledService) Provider() string  { return "disabled" }
func (s *DisabledService) IsAvailable() bool { return false }

func (s *DisabledService) ToPDF(ctx context.Context, in, outDir string) (string, error) {
	return "", disabledError("office_pdf")
}

func (s *DisabledService) FromPDF(ctx context.Context, in, outDir, format string) (string, error) {
	return "", disabledError("office_" + format)
}

func disabledError(operation string) error {
	return &engine.ToolUnavailableError{
		Operation: operation,
		Attempts: []engine.Attempt{{
			Tool:    "office",
			Outcome: engine.NotInstalled,
			Err:     fmt.Errorf("office conversion is disabled"),
		}},
	}
}
