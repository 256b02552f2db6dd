// Package pages evalúa especificaciones de páginas como "1,3,5-7" o "all".
package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// All es la especificación que selecciona todas las páginas
const All = "all"

// Resolve convierte spec en índices base cero, únicos y ascendentes, dentro de [0, total).
// Los tokens mal formados o fuera de rango se ignoran.
func Resolve(spec string, total int) []int {
	indices, _ := resolve(spec, total, false)
	return indices
}

// ResolveStrict se comporta como Resolve pero falla en el primer token mal formado.
// Los tokens bien formados fuera de rango se siguen recortando.
func ResolveStrict(spec string, total int) ([]int, error) {
	return resolve(spec, total, true)
}

func resolve(spec string, total int, strict bool) ([]int, error) {
	if total < 0 {
		total = 0
	}

	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, All) {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := make(map[int]struct{})
	for _, raw := range strings.Split(spec, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		if a, b, isRange := strings.Cut(token, "-"); isRange {
			start, errA := strconv.Atoi(strings.TrimSpace(a))
			end, errB := strconv.Atoi(strings.TrimSpace(b))
			if errA != nil || errB != nil {
				if strict {
					return nil, fmt.Errorf("invalid page range %q", token)
				}
				continue
			}
			if start < 1 {
				start = 1
			}
			if end > total {
				end = total
			}
			for i := start; i <= end; i++ {
				seen[i-1] = struct{}{}
			}
			continue
		}

		idx, err := strconv.Atoi(token)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("invalid page number %q", token)
			}
			continue
		}
		if idx >= 1 && idx <= total {
			seen[idx-1] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

// Selection convierte índices base cero en selectores de página de pdfcpu ("1", "3", ...)
func Selection(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = strconv.Itoa(idx + 1)
	}
	return out
}

// Complement devuelve los índices de [0, total) que no están en indices
func Complement(indices []int, total int) []int {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	out := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if !drop[i] {
			out = append(out, i)
		}
	}
	return out
}
