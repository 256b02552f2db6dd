package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kavach/engine/pkg/response"
)

// ArtifactNotFoundError el motor terminó bien pero no se encontró el resultado
type ArtifactNotFoundError struct {
	Dir          string
	ExpectedName string
	Extension    string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("output not found in %s (expected %s or any *%s)", e.Dir, e.ExpectedName, e.Extension)
}

// ErrorKind clasifica el error para la capa HTTP
func (e *ArtifactNotFoundError) ErrorKind() response.Kind { return response.KindArtifactNotFound }

// ResolveOutput localiza el artefacto producido en dir: primero expectedName, después el
// archivo más reciente con extensión ext. dir debe ser exclusivo de la invocación.
func ResolveOutput(dir, expectedName, ext string) (string, error) {
	if expectedName != "" {
		expected := filepath.Join(dir, expectedName)
		if info, err := os.Stat(expected); err == nil && info.Mode().IsRegular() {
			return expected, nil
		}
	}

	matches, err := ListByExtension(dir, ext)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", &ArtifactNotFoundError{Dir: dir, ExpectedName: expectedName, Extension: ext}
	}
	return matches[0].Path, nil
}

// Entry archivo encontrado en el directorio de salida
type Entry struct {
	Path    string
	ModUnix int64
}

// ListByExtension lista los archivos regulares de dir con extensión ext,
// del más reciente al más antiguo
func ListByExtension(dir, ext string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output dir: %w", err)
	}

	ext = normalizeExt(ext)
	var out []Entry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Path: filepath.Join(dir, e.Name()), ModUnix: info.ModTime().UnixNano()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModUnix == out[j].ModUnix {
			return out[i].Path < out[j].Path
		}
		return out[i].ModUnix > out[j].ModUnix
	})
	return out, nil
}

func normalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
