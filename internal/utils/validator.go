package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Categorías de archivo aceptadas por las operaciones
const (
	CategoryPDF    = "pdf"
	CategoryImage  = "image"
	CategoryOffice = "office"
	CategoryAny    = "any"
)

var (
	pdfMimeTypes = map[string]bool{
		"application/pdf": true,
	}

	imageMimeTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/tiff": true,
		"image/bmp":  true,
		"image/webp": true,
		"image/gif":  true,
	}

	officeMimeTypes = map[string]bool{
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
		"application/vnd.ms-powerpoint":                                             true,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
		"application/vnd.oasis.opendocument.text":                                   true,
		"application/vnd.oasis.opendocument.spreadsheet":                            true,
		"application/vnd.oasis.opendocument.presentation":                           true,
		"application/rtf": true,
		"text/rtf":        true,
		// los .doc/.xls antiguos se detectan como contenedor OLE genérico
		"application/x-ole-storage": true,
	}
)

// DetectMimeType detecta el MIME type por contenido
func DetectMimeType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type: %w", err)
	}
	return mt.String(), nil
}

// MimeMatchesCategory indica si mime pertenece a la categoría
func MimeMatchesCategory(mime, category string) bool {
	mime = strings.ToLower(mime)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}

	switch category {
	case CategoryPDF:
		return pdfMimeTypes[mime]
	case CategoryImage:
		return imageMimeTypes[mime]
	case CategoryOffice:
		// docx/xlsx/pptx pueden detectarse como zip si el contenedor no trae pistas
		return officeMimeTypes[mime] || mime == "application/zip"
	case CategoryAny:
		return pdfMimeTypes[mime] || imageMimeTypes[mime] || officeMimeTypes[mime] || mime == "application/zip"
	}
	return false
}

// ValidateFileCategory comprueba por contenido que el archivo pertenece a la categoría
func ValidateFileCategory(path, category string) (string, error) {
	mime, err := DetectMimeType(path)
	if err != nil {
		return "", err
	}
	if !MimeMatchesCategory(mime, category) {
		return mime, fmt.Errorf("file %s is %s, expected %s", filepath.Base(path), mime, category)
	}
	return mime, nil
}
