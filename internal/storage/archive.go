package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Bundle empaqueta files en un zip dentro del workspace y devuelve su ruta.
// Los archivos originales siguen siendo del workspace y se eliminan en Close.
func Bundle(ws *Workspace, name string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("nothing to bundle")
	}
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		name += ".zip"
	}

	dest := ws.Path(name)
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	seen := make(map[string]int, len(files))
	for _, path := range files {
		if err := addToZip(zw, path, entryName(seen, filepath.Base(path))); err != nil {
			zw.Close()
			out.Close()
			os.Remove(dest)
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	return dest, nil
}

// entryName evita entradas duplicadas: report.pdf, report (2).pdf, ...
func entryName(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	seen[candidate]++
	return candidate
}

func addToZip(zw *zip.Writer, path, entry string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = entry
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", entry, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to write %s: %w", entry, err)
	}
	return nil
}
