package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		total int
		want  []int
	}{
		{"all", "all", 4, []int{0, 1, 2, 3}},
		{"all mayúsculas", " ALL ", 2, []int{0, 1}},
		{"vacío", "", 3, []int{0, 1, 2}},
		{"all sin páginas", "all", 0, []int{}},
		{"lista y rango", "1,3,5-7", 10, []int{0, 2, 4, 5, 6}},
		{"rango invertido", "5-3", 10, []int{}},
		{"fuera de límites", "0,99", 5, []int{}},
		{"duplicados", "2,2,1-3,3", 5, []int{0, 1, 2}},
		{"rango recortado", "0-3,4-99", 5, []int{0, 1, 2, 3, 4}},
		{"tokens inválidos", "a,2,x-y,,3", 5, []int{1, 2}},
		{"espacios", " 1 , 4 - 5 ", 6, []int{0, 3, 4}},
		{"desordenado", "9,1,5", 10, []int{0, 4, 8}},
		{"rango abierto", "3-", 5, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.spec, tt.total))
		})
	}
}

func TestResolve_AllIsIdentity(t *testing.T) {
	for n := 0; n < 50; n++ {
		got := Resolve("all", n)
		require.Len(t, got, n)
		for i, idx := range got {
			assert.Equal(t, i, idx)
		}
	}
}

func TestResolve_StaysInBounds(t *testing.T) {
	specs := []string{"1-1000", "-5,3", "0-0", "7,8,9", "2-4,1", "abc"}
	for _, spec := range specs {
		got := Resolve(spec, 6)
		for i, idx := range got {
			assert.GreaterOrEqual(t, idx, 0, spec)
			assert.Less(t, idx, 6, spec)
			if i > 0 {
				assert.Greater(t, idx, got[i-1], "ascending and unique for %q", spec)
			}
		}
	}
}

func TestResolveStrict(t *testing.T) {
	got, err := ResolveStrict("1,3-4", 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, got)

	got, err = ResolveStrict("0,99", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ResolveStrict("1,two", 5)
	assert.Error(t, err)

	_, err = ResolveStrict("1-x", 5)
	assert.Error(t, err)
}

func TestSelection(t *testing.T) {
	assert.Equal(t, []string{"1", "3", "6"}, Selection([]int{0, 2, 5}))
	assert.Empty(t, Selection(nil))
}

func TestComplement(t *testing.T) {
	assert.Equal(t, []int{1, 3}, Complement([]int{0, 2, 4}, 5))
	assert.Equal(t, []int{0, 1, 2}, Complement(nil, 3))
	assert.Empty(t, Complement([]int{0, 1}, 2))
}
