package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Info información básica de un PDF
type Info struct {
	FilePath  string     `json:"file_path"`
	FileSize  int64      `json:"file_size_bytes"`
	PageCount int        `json:"page_count"`
	Version   string     `json:"pdf_version"`
	Encrypted bool       `json:"encrypted"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	Producer  string     `json:"producer,omitempty"`
	Pages     []PageSize `json:"pages"`
}

// PageSize dimensiones de una página en puntos
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inspect lee el documento y devuelve su información básica
func (s *PDFCPUService) Inspect(path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("archivo no encontrado: %s", path)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("error leyendo PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("error contando páginas: %w", err)
	}

	info := &Info{
		FilePath:  path,
		FileSize:  stat.Size(),
		PageCount: ctx.PageCount,
		Version:   ctx.Version().String(),
		Encrypted: ctx.Encrypt != nil,
		Title:     ctx.Title,
		Author:    ctx.Author,
		Producer:  ctx.Producer,
	}

	if dims, err := api.PageDimsFile(path); err == nil {
		for _, d := range dims {
			info.Pages = append(info.Pages, PageSize{Width: d.Width, Height: d.Height})
		}
	}

	s.logger.Debugw("PDF info extracted",
		"file", path,
		"pages", info.PageCount,
		"size_bytes", info.FileSize,
		"encrypted", info.Encrypted,
	)
	return info, nil
}
