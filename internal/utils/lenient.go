package utils

import (
	"math"
	"strconv"
	"strings"
)

// Lenient son los tipos admitidos por ParseOrDefault
type Lenient interface {
	int | float64 | bool | string
}

// ParseOrDefault interpreta raw como T y devuelve def si está vacío o mal formado.
// Los campos numéricos de los formularios nunca fallan: un valor inválido equivale a omitirlo.
func ParseOrDefault[T Lenient](raw string, def T) T {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}

	var out T
	switch p := any(&out).(type) {
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			// "12.7" se trunca a 12
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return def
			}
			n = int(f)
		}
		*p = n
	case *float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
		*p = f
	case *bool:
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			*p = true
		case "0", "false", "no", "off":
			*p = false
		default:
			return def
		}
	case *string:
		*p = raw
	default:
		return def
	}
	return out
}

// HexColorOrDefault normaliza "#RRGGBB", "RRGGBB" o "#RGB" a "#rrggbb"
func HexColorOrDefault(raw, def string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def
	}
	if _, err := strconv.ParseUint(s, 16, 32); err != nil {
		return def
	}
	return "#" + strings.ToLower(s)
}

// ClampFloat limita v al intervalo [min, max]
func ClampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
