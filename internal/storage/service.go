package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kavach/engine/internal/config"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// Service ciclo de vida de archivos: uploads, espacio de trabajo por request y artefactos
type Service interface {
	NewWorkspace(requestID string) (*Workspace, error)
	SaveUpload(ws *Workspace, file *multipart.FileHeader, category string) (*UploadedFile, error)
	Publish(ctx context.Context, ws *Workspace, src, downloadName, owner string) (*Artifact, error)
	Locate(ctx context.Context, name, owner string) (*Artifact, error)
	Tracker() *FileTracker
	UploadDir() string
	OutputDir() string
	WorkDir() string
}

// UploadedFile archivo recibido en la request, propiedad del workspace que lo guardó
type UploadedFile struct {
	OriginalName string `json:"original_name"`
	StoredPath   string `json:"stored_path"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
	Hash         string `json:"hash"`
}

// BaseName nombre original sin extensión, saneado
func (u *UploadedFile) BaseName() string {
	return utils.BaseName(u.OriginalName)
}

// Artifact archivo producido que sobrevive a la request para /download/:filename
type Artifact struct {
	Name         string    `json:"name"`
	Path         string    `json:"-"`
	DownloadName string    `json:"download_name"`
	Size         int64     `json:"size"`
	Owner        string    `json:"owner,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LocalStorage implementación sobre el sistema de archivos local
type LocalStorage struct {
	config    *config.Config
	logger    *logger.Logger
	uploadDir string
	outputDir string
	workDir   string
	maxUpload int64
	tracker   *FileTracker
	registry  Registry
	disk      *utils.DiskSpaceChecker
}

// NewService crea una instancia del servicio de storage y sus directorios
func NewService(cfg *config.Config, registry Registry, log *logger.Logger) (*LocalStorage, error) {
	if registry == nil {
		registry = NewMemoryRegistry(cfg.Storage.ArtifactTTL)
	}
	s := &LocalStorage{
		config:    cfg,
		logger:    log,
		uploadDir: cfg.Storage.UploadDir,
		outputDir: cfg.Storage.OutputDir,
		workDir:   filepath.Join(cfg.Storage.TempDir, "work"),
		maxUpload: int64(cfg.Storage.MaxUploadMB) << 20,
		tracker:   NewFileTracker(log),
		registry:  registry,
		disk:      utils.NewDiskSpaceChecker(log),
	}

	for _, dir := range []string{s.uploadDir, s.outputDir, s.workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *LocalStorage) UploadDir() string     { return s.uploadDir }
func (s *LocalStorage) OutputDir() string     { return s.outputDir }
func (s *LocalStorage) WorkDir() string       { return s.workDir }
func (s *LocalStorage) Tracker() *FileTracker { return s.tracker }

// NewWorkspace abre el espacio de trabajo aislado de una request
func (s *LocalStorage) NewWorkspace(requestID string) (*Workspace, error) {
	if requestID == "" || !utils.IsValidArtifactName(requestID) {
		requestID = uuid.NewString()
	}
	root := filepath.Join(s.workDir, requestID)
	if _, err := os.Stat(root); err == nil {
		root = filepath.Join(s.workDir, requestID+"-"+uuid.NewString()[:8])
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return newWorkspace(requestID, root, s.tracker, s.logger), nil
}

// SaveUpload copia el upload a UPLOAD_DIR como "<unixmillis>-<nombre>" y lo registra en ws.
// category restringe el tipo detectado por contenido; vacío equivale a utils.CategoryAny.
func (s *LocalStorage) SaveUpload(ws *Workspace, file *multipart.FileHeader, category string) (*UploadedFile, error) {
	if file.Size > s.maxUpload {
		return nil, response.Invalid("File %s exceeds the %dMB limit", file.Filename, s.maxUpload>>20)
	}
	if err := s.disk.CheckSpaceForFile(s.uploadDir, file.Size, 20); err != nil {
		return nil, response.Unexpected("insufficient disk space", err)
	}

	name := utils.SanitizeFilename(file.Filename)
	dst, destPath, err := createUnique(s.uploadDir, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name))
	if err != nil {
		return nil, response.Unexpected("failed to store upload", err)
	}
	// se registra antes de copiar: cualquier fallo posterior lo limpia el workspace
	ws.Track(destPath)

	src, err := file.Open()
	if err != nil {
		dst.Close()
		return nil, response.Unexpected("failed to open uploaded file", err)
	}
	defer src.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, response.Unexpected("failed to copy upload", err)
	}

	if category == "" {
		category = utils.CategoryAny
	}
	mime, err := utils.ValidateFileCategory(destPath, category)
	if err != nil {
		if mime == "" {
			mime = "application/octet-stream"
		}
		return nil, response.Invalid("File %s is not a valid %s file (detected %s)", file.Filename, category, mime)
	}

	s.logger.Debugw("💾 Upload stored",
		"request_id", ws.ID,
		"file", filepath.Base(destPath),
		"size", size,
		"mime_type", mime,
	)

	return &UploadedFile{
		OriginalName: file.Filename,
		StoredPath:   destPath,
		SizeBytes:    size,
		MimeType:     mime,
		Hash:         hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Publish mueve src a OUTPUT_DIR con un nombre único y lo registra como artefacto de owner
func (s *LocalStorage) Publish(ctx context.Context, ws *Workspace, src, downloadName, owner string) (*Artifact, error) {
	downloadName = utils.SanitizeFilename(downloadName)
	ext := filepath.Ext(downloadName)
	stored := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(downloadName, ext), uuid.NewString()[:8], ext)
	dest := filepath.Join(s.outputDir, stored)

	if err := moveFile(src, dest); err != nil {
		return nil, response.Unexpected("failed to publish artifact", err)
	}
	ws.Keep(dest)

	info, err := os.Stat(dest)
	if err != nil {
		return nil, response.Unexpected("failed to stat artifact", err)
	}

	art := &Artifact{
		Name:         stored,
		Path:         dest,
		DownloadName: downloadName,
		Size:         info.Size(),
		Owner:        owner,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.registry.Register(ctx, art); err != nil {
		// el artefacto ya se entrega en la respuesta; sin registro solo se pierde la descarga posterior
		s.logger.Warnw("⚠️ Failed to register artifact", "artifact", stored, "error", err)
	}

	s.logger.Infow("📦 Artifact published",
		"request_id", ws.ID,
		"artifact", stored,
		"size", art.Size,
	)
	return art, nil
}

// Locate resuelve un artefacto publicado para su descarga.
// Con ENFORCE_ARTIFACT_OWNER solo el propietario registrado puede obtenerlo.
func (s *LocalStorage) Locate(ctx context.Context, name, owner string) (*Artifact, error) {
	if !utils.IsValidArtifactName(name) {
		return nil, response.Invalid("Invalid file name")
	}

	path, err := utils.SanitizeFilePath(s.outputDir, name)
	if err != nil {
		return nil, response.Invalid("Invalid file name")
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, response.NotFound("File not found")
	}

	art, err := s.registry.Lookup(ctx, name)
	if err != nil && !errors.Is(err, ErrArtifactUnknown) {
		return nil, response.Unexpected("artifact registry unavailable", err)
	}

	if s.config.Security.EnforceArtifactOwner {
		if art == nil || art.Owner != owner {
			s.logger.Warnw("🔒 Artifact download denied", "artifact", name, "owner", owner)
			return nil, response.NotFound("File not found")
		}
	}

	if art == nil {
		art = &Artifact{Name: name, DownloadName: name, CreatedAt: info.ModTime()}
	}
	art.Path = path
	art.Size = info.Size()
	return art, nil
}

// createUnique crea dir/name en exclusiva, añadiendo un sufijo si ya existe
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; i <= 100; i++ {
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return nil, "", fmt.Errorf("could not allocate unique name for %s", name)
}

// moveFile renombra src a dst, copiando si están en dispositivos distintos
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
