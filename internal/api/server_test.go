package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach/engine/internal/api/handlers"
	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/office"
	"github.com/kavach/engine/internal/pdf"
	"github.com/kavach/engine/internal/storage"
	"github.com/kavach/engine/pkg/logger"
)

const testJWTSecret = "server-test-jwt-secret-0123456789abcdef"

func newTestServer(t *testing.T, authEnabled bool) (*Server, *auth.Verifier) {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{
		Environment: "test",
		Port:        8080,
		Storage: config.StorageConfig{
			TempDir:     tmp,
			UploadDir:   filepath.Join(tmp, "uploads"),
			OutputDir:   filepath.Join(tmp, "outputs"),
			MaxUploadMB: 5,
			MaxFiles:    4,
			ArtifactTTL: time.Hour,
		},
		Engines: config.EnginesConfig{Timeout: 5 * time.Second},
		Office:  config.OfficeConfig{Enabled: false, Provider: "libreoffice"},
		Security: config.SecurityConfig{
			AuthEnabled:          authEnabled,
			JWTSecret:            testJWTSecret,
			EnforceArtifactOwner: true,
			AllowedOrigins:       []string{"*"},
			EnableRateLimiting:   true,
			RateLimitMax:         100,
		},
	}

	log := logger.NewNop()
	store, err := storage.NewService(cfg, nil, log)
	require.NoError(t, err)
	tools := engine.NewTools(engine.NewRunner(engine.ExecRunner{}, engine.Options{Timeout: time.Second}, log), engine.DefaultChains())
	h := handlers.New(cfg, log, store, pdf.NewService(log), tools, office.NewService(cfg, tools, log))

	verifier := auth.NewVerifier(cfg.Security.JWTSecret, "")
	return NewServer(cfg, log, h, verifier), verifier
}

func mergeRequest(t *testing.T) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, pdf.WriteBlankPDF(path, 1, 100, 100))
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pdf/merge-pdf", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestServer_PublicRoutes(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for _, path := range []string{"/health", "/api/v1/info", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
		})
	}
}

func TestServer_OperationsRequireAuth(t *testing.T) {
	srv, verifier := newTestServer(t, true)

	resp, err := srv.App().Test(mergeRequest(t), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := verifier.IssueToken("user-1", time.Hour)
	require.NoError(t, err)
	req := mergeRequest(t)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	name := resp.Header.Get(handlers.ArtifactHeader)
	require.NotEmpty(t, name)

	// la descarga solo la obtiene el propietario
	other, err := verifier.IssueToken("user-2", time.Hour)
	require.NoError(t, err)
	dl := httptest.NewRequest(http.MethodGet, "/download/"+name, nil)
	dl.Header.Set(fiber.HeaderAuthorization, "Bearer "+other)
	resp, err = srv.App().Test(dl, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	dl = httptest.NewRequest(http.MethodGet, "/download/"+name, nil)
	dl.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = srv.App().Test(dl, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestServer_AuthDisabled(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := srv.App().Test(mergeRequest(t), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestServer_DisabledOfficeIsToolUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, false)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", "letter.rtf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`{\rtf1\ansi Hello}`))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pdf/word-to-pdf", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TOOL_UNAVAILABLE")
}
