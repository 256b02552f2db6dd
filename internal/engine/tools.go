package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kavach/engine/internal/utils"
)

// Chains candidatos configurados para cada motor
type Chains struct {
	Ghostscript []string
	Qpdf        []string
	Pdftoppm    []string
	Office      []string
}

// DefaultChains cadenas por defecto
func DefaultChains() Chains {
	return Chains{
		Ghostscript: []string{"gs", "gswin64c", "gswin32c"},
		Qpdf:        []string{"qpdf"},
		Pdftoppm:    []string{"pdftoppm"},
		Office:      []string{"soffice", "libreoffice"},
	}
}

// Presets de ghostscript admitidos
var Presets = map[string]bool{"screen": true, "ebook": true, "printer": true, "prepress": true}

// NormalizePreset devuelve screen para presets desconocidos
func NormalizePreset(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if Presets[p] {
		return p
	}
	return "screen"
}

// Tools construye las invocaciones de cada motor externo
type Tools struct {
	runner *Runner
	chains Chains
}

// NewTools crea el conjunto de herramientas sobre un runner
func NewTools(runner *Runner, chains Chains) *Tools {
	return &Tools{runner: runner, chains: chains}
}

// Chains devuelve la configuración de candidatos
func (t *Tools) Chains() Chains { return t.chains }

func checkPaths(paths ...string) error {
	for _, p := range paths {
		if !utils.IsSafeArgPath(p) {
			return fmt.Errorf("unsafe path for external engine: %q", p)
		}
	}
	return nil
}

// Optimize recomprime un PDF con ghostscript
func (t *Tools) Optimize(ctx context.Context, in, out, preset string, jpegQuality int) (*Result, error) {
	if err := checkPaths(in, out); err != nil {
		return nil, err
	}
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = 75
	}
	args := []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/" + NormalizePreset(preset),
		"-dJPEGQ=" + strconv.Itoa(jpegQuality),
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + out,
		in,
	}
	return t.runner.Run(ctx, Invocation{Operation: "optimize", Candidates: t.chains.Ghostscript, Args: args})
}

// Encrypt protege un PDF con AES-256 mediante qpdf
func (t *Tools) Encrypt(ctx context.Context, in, out, userPassword, ownerPassword string) (*Result, error) {
	if err := checkPaths(in, out); err != nil {
		return nil, err
	}
	if ownerPassword == "" {
		ownerPassword = userPassword
	}
	args := []string{"--encrypt", userPassword, ownerPassword, "256", "--", in, out}
	return t.runner.Run(ctx, Invocation{Operation: "lock", Candidates: t.chains.Qpdf, Args: args})
}

// Decrypt elimina la protección de un PDF mediante qpdf
func (t *Tools) Decrypt(ctx context.Context, in, out, password string) (*Result, error) {
	if err := checkPaths(in, out); err != nil {
		return nil, err
	}
	args := []string{"--password=" + password, "--decrypt", in, out}
	return t.runner.Run(ctx, Invocation{Operation: "unlock", Candidates: t.chains.Qpdf, Args: args})
}

// Rasterize genera un PNG por página en outDir y los devuelve en orden de página
func (t *Tools) Rasterize(ctx context.Context, in, outDir, prefix string, dpi int) ([]string, *Result, error) {
	if err := checkPaths(in, outDir); err != nil {
		return nil, nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	args := []string{"-png", "-r", strconv.Itoa(dpi), in, filepath.Join(outDir, prefix)}
	res, err := t.runner.Run(ctx, Invocation{Operation: "rasterize", Candidates: t.chains.Pdftoppm, Args: args})
	if err != nil {
		return nil, nil, err
	}

	images, err := collectPages(outDir, prefix, ".png")
	if err != nil {
		return nil, res, err
	}
	if len(images) == 0 {
		return nil, res, &ArtifactNotFoundError{Dir: outDir, ExpectedName: prefix + "-1.png", Extension: ".png"}
	}
	return images, res, nil
}

// collectPages busca "<prefix>-<n><ext>" y ordena por n (pdftoppm rellena con ceros según el total)
func collectPages(dir, prefix, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rasterize dir: %w", err)
	}

	type page struct {
		n    int
		path string
	}
	var found []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), filepath.Ext(name))
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		found = append(found, page{n, filepath.Join(dir, name)})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]string, len(found))
	for i, p := range found {
		out[i] = p.path
	}
	return out, nil
}

// OfficeConvert convierte in al formato targetExt con LibreOffice, dejando el resultado en outDir
func (t *Tools) OfficeConvert(ctx context.Context, in, outDir, targetExt string) (string, *Result, error) {
	if err := checkPaths(in, outDir); err != nil {
		return "", nil, err
	}
	targetExt = strings.TrimPrefix(targetExt, ".")
	args := []string{"--headless", "--convert-to", targetExt, "--outdir", outDir, in}

	res, err := t.runner.Run(ctx, Invocation{
		Operation:  "office_" + targetExt,
		Candidates: t.chains.Office,
		Args:       args,
		// perfil propio para no chocar con otra instancia de LibreOffice del mismo usuario
		Env: []string{"HOME=" + outDir},
	})
	if err != nil {
		return "", nil, err
	}

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out, err := ResolveOutput(outDir, base+"."+targetExt, "."+targetExt)
	if err != nil {
		return "", res, err
	}
	return out, res, nil
}
