package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// caracteres que no deben llegar nunca a argv de un motor externo
var dangerousChars = regexp.MustCompile("[;&|$()<>\\x00\\n\\r'\"`\\\\]")

const (
	maxFilenameLen = 120
	maxExtLen      = 16
)

var artifactNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// IsSafeArgPath verifica que un path pueda pasarse como argumento a un motor externo
func IsSafeArgPath(path string) bool {
	if path == "" || dangerousChars.MatchString(path) {
		return false
	}
	return !strings.Contains(filepath.ToSlash(path), "../")
}

// IsValidArtifactName valida nombres recibidos en /download/:filename
func IsValidArtifactName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return artifactNamePattern.MatchString(name)
}

// SanitizeFilename reduce un nombre de archivo subido a caracteres seguros.
// Devuelve "file" si no queda nada utilizable.
func SanitizeFilename(name string) string {
	base := filepath.Base(filepath.ToSlash(strings.ReplaceAll(name, "\\", "/")))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), "-_")
	if strings.Trim(out, ".-_") == "" {
		return "file"
	}
	if strings.HasPrefix(out, ".") {
		out = "file" + out
	}
	if len(out) > maxFilenameLen {
		ext := filepath.Ext(out)
		stem := strings.TrimSuffix(out, ext)
		if len(ext) > maxExtLen {
			ext = ext[:maxExtLen]
		}
		if keep := maxFilenameLen - len(ext); len(stem) > keep {
			stem = stem[:keep]
		}
		out = stem + ext
	}
	return out
}

// BaseName devuelve el nombre sin extensión, usado para nombrar artefactos
func BaseName(name string) string {
	base := SanitizeFilename(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SanitizeFilePath resuelve userPath dentro de basePath rechazando traversal
func SanitizeFilePath(basePath, userPath string) (string, error) {
	cleaned := filepath.Clean("/" + userPath)
	fullPath := filepath.Join(basePath, cleaned)

	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path outside base directory")
	}
	return fullPath, nil
}
