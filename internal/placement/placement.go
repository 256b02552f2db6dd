// Package placement calcula la posición de overlays (texto, imagen, firma, marca de agua)
// en el espacio de coordenadas PDF, con origen en la esquina inferior izquierda.
package placement

import (
	"math"
	"strings"
)

// Position es una de las nueve anclas de página
type Position string

const (
	TopLeft      Position = "top-left"
	TopCenter    Position = "top-center"
	TopRight     Position = "top-right"
	MiddleLeft   Position = "middle-left"
	Center       Position = "center"
	MiddleRight  Position = "middle-right"
	BottomLeft   Position = "bottom-left"
	BottomCenter Position = "bottom-center"
	BottomRight  Position = "bottom-right"
)

// MinSignatureWidth ancho mínimo de una firma escalada
const MinSignatureWidth = 30.0

// DefaultGutter separación entre repeticiones en modo mosaico
const DefaultGutter = 40.0

// Config describe cómo anclar un overlay. Rotation y Opacity no afectan al cálculo,
// se transmiten tal cual al renderizador.
type Config struct {
	Position Position
	Margin   float64
	Scale    float64
	Rotation float64
	Opacity  float64
	Mosaic   bool
}

// Point esquina inferior izquierda del overlay
type Point struct {
	X float64
	Y float64
}

// ParsePosition normaliza un texto de formulario. "middle-center" equivale a center;
// un valor desconocido cae en center.
func ParsePosition(raw string) Position {
	return ParsePositionOr(raw, Center)
}

// ParsePositionOr es ParsePosition con otro ancla para valores desconocidos.
// Las firmas caen en bottom-right.
func ParsePositionOr(raw string, fallback Position) Position {
	p := Position(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case TopLeft, TopCenter, TopRight, MiddleLeft, Center, MiddleRight, BottomLeft, BottomCenter, BottomRight:
		return p
	case "middle-center", "middle", "centre":
		return Center
	default:
		return fallback
	}
}

// Place calcula la esquina inferior izquierda del overlay en la página.
// No recorta contra los bordes: márgenes o escalas extremas pueden dejarlo parcialmente fuera.
func Place(pageW, pageH, overlayW, overlayH float64, cfg Config) Point {
	m := cfg.Margin
	centerX := (pageW - overlayW) / 2
	centerY := (pageH - overlayH) / 2
	left, right := m, pageW-m-overlayW
	bottom, top := m, pageH-m-overlayH

	switch ParsePosition(string(cfg.Position)) {
	case TopLeft:
		return Point{left, top}
	case TopCenter:
		return Point{centerX, top}
	case TopRight:
		return Point{right, top}
	case MiddleLeft:
		return Point{left, centerY}
	case MiddleRight:
		return Point{right, centerY}
	case BottomLeft:
		return Point{left, bottom}
	case BottomCenter:
		return Point{centerX, bottom}
	case BottomRight:
		return Point{right, bottom}
	default:
		return Point{centerX, centerY}
	}
}

// ScaledSize deriva el tamaño de un overlay escalado respecto al ancho de página,
// conservando la proporción nativa.
func ScaledSize(pageW, nativeW, nativeH, scale, minWidth float64) (w, h float64) {
	w = math.Max(minWidth, pageW*scale)
	if nativeW <= 0 {
		return w, w
	}
	return w, w * nativeH / nativeW
}

// Tile reparte el overlay en rejilla sobre toda la página (modo mosaico).
// El paso es el tamaño del overlay más gutter, empezando en (gutter/2, gutter/2).
func Tile(pageW, pageH, overlayW, overlayH, gutter float64) []Point {
	if gutter < 0 {
		gutter = 0
	}
	stepX, stepY := overlayW+gutter, overlayH+gutter
	if stepX <= 0 || stepY <= 0 {
		return []Point{Place(pageW, pageH, overlayW, overlayH, Config{Position: Center})}
	}

	var out []Point
	for y := gutter / 2; y < pageH; y += stepY {
		for x := gutter / 2; x < pageW; x += stepX {
			out = append(out, Point{x, y})
		}
	}
	return out
}

// Points devuelve las posiciones a estampar en una página según cfg
func Points(pageW, pageH, overlayW, overlayH float64, cfg Config) []Point {
	if cfg.Mosaic {
		return Tile(pageW, pageH, overlayW, overlayH, DefaultGutter)
	}
	return []Point{Place(pageW, pageH, overlayW, overlayH, cfg)}
}
