package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/pkg/logger"
)

// run ejecuta kavachctl con args y restablece los flags al terminar
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func blank(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.WriteBlankPDF(path, n, pdf.LetterWidth, pdf.LetterHeight))
	return path
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	n, err := pdf.NewService(logger.NewNop()).PageCount(path)
	require.NoError(t, err)
	return n
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kavachctl version")
}

func TestPagesCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"lenient drops bad tokens", []string{"pages", "1-3,x,5,99", "--total", "6"}, "1,2,3,5", false},
		{"empty selects all", []string{"pages", "all", "-n", "3"}, "1,2,3", false},
		{"nothing in range", []string{"pages", "9-12", "-n", "3"}, "No pages selected", false},
		{"strict rejects bad tokens", []string{"pages", "1,x", "-n", "3", "--strict"}, "", true},
		{"strict clamps ranges", []string{"pages", "2-10", "-n", "4", "--strict"}, "2,3,4", false},
		{"total required", []string{"pages", "1"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestPagesCommand_FromFile(t *testing.T) {
	in := blank(t, t.TempDir(), "doc.pdf", 4)

	out, err := run(t, "pages", "even", "--file", in)
	require.NoError(t, err)
	assert.Equal(t, "No pages selected", strings.TrimSpace(out))

	out, err = run(t, "pages", "2-4", "--file", in)
	require.NoError(t, err)
	assert.Equal(t, "2,3,4", strings.TrimSpace(out))
}

func TestMergeSplitRotate(t *testing.T) {
	dir := t.TempDir()
	a := blank(t, dir, "a.pdf", 2)
	b := blank(t, dir, "b.pdf", 3)
	merged := filepath.Join(dir, "merged.pdf")

	out, err := run(t, "merge", merged, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Merged 2 documents")
	assert.Equal(t, 5, pageCount(t, merged))

	parts := filepath.Join(dir, "parts")
	out, err = run(t, "split", merged, parts, "--pages", "1,4-5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, 1, pageCount(t, l))
	}

	rotated := filepath.Join(dir, "rotated.pdf")
	_, err = run(t, "rotate", merged, rotated, "--angle=-90")
	require.NoError(t, err)
	assert.Equal(t, 5, pageCount(t, rotated))

	_, err = run(t, "rotate", merged, rotated, "--angle", "45")
	assert.ErrorContains(t, err, "angle must be one of")
}

func TestMerge_RequiresTwoInputs(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "merge", filepath.Join(dir, "out.pdf"), blank(t, dir, "a.pdf", 1))
	assert.Error(t, err)
}

func TestWatermarkAndInfo(t *testing.T) {
	dir := t.TempDir()
	in := blank(t, dir, "doc.pdf", 2)
	out := filepath.Join(dir, "stamped.pdf")

	_, err := run(t, "watermark", in, out, "--text", "CONFIDENTIAL", "--opacity", "3", "--mosaic")
	require.NoError(t, err)
	assert.Equal(t, 2, pageCount(t, out))

	text, err := run(t, "info", out)
	require.NoError(t, err)
	assert.Contains(t, text, "Pages:     2")
	assert.Contains(t, text, "page 1: 612 x 792 pt")
}

// scripted simula ghostscript escribiendo el archivo de salida
type scripted struct{ calls []engine.Command }

func (s *scripted) Run(_ context.Context, cmd engine.Command) error {
	s.calls = append(s.calls, cmd)
	for _, a := range cmd.Args {
		if out, ok := strings.CutPrefix(a, "-sOutputFile="); ok {
			return os.WriteFile(out, []byte("%PDF-1.4"), 0o644)
		}
	}
	return nil
}

func TestOptimizeCommand(t *testing.T) {
	proc := &scripted{}
	prev := processProc
	processProc = proc
	t.Cleanup(func() { processProc = prev })

	dir := t.TempDir()
	in := blank(t, dir, "doc.pdf", 1)
	out := filepath.Join(dir, "small.pdf")

	text, err := run(t, "optimize", in, out, "--preset", "EBOOK")
	require.NoError(t, err)
	assert.Contains(t, text, "with gs")
	require.Len(t, proc.calls, 1)
	assert.Contains(t, proc.calls[0].Args, "-dPDFSETTINGS=/ebook")
	assert.FileExists(t, out)
}

func TestJanitorCommand(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("ENGINE_SECRET", "")

	outputs := filepath.Join(tmp, "outputs")
	require.NoError(t, os.MkdirAll(outputs, 0o755))
	old := filepath.Join(outputs, "old.pdf")
	fresh := filepath.Join(outputs, "fresh.pdf")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	out, err := run(t, "janitor", "--temp-dir", tmp, "--max-age", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed by age:  1")
	assert.Contains(t, out, "Retained:        1 files, 5 bytes")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-jwt-secret-0123456789abcdefghij"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("ENGINE_SECRET", "")

	out, err := run(t, "token", "user-7", "--ttl", "10m")
	require.NoError(t, err)

	owner, err := auth.NewVerifier(secret, "").VerifyToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-7", owner)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("ENGINE_SECRET", "")

	_, err := run(t, "token", "user-7")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
