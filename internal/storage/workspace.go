package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kavach/engine/pkg/logger"
)

// Workspace agrupa todo lo que una request crea en disco: uploads, intermedios y
// directorios aislados para motores externos. Close lo elimina todo salvo lo marcado con Keep.
type Workspace struct {
	ID string

	root    string
	tracker *FileTracker
	logger  *logger.Logger

	mu      sync.Mutex
	tracked []string
	kept    map[string]bool
	seq     int
	closed  bool
}

func newWorkspace(id, root string, tracker *FileTracker, log *logger.Logger) *Workspace {
	tracker.MarkInUse(root)
	return &Workspace{
		ID:      id,
		root:    root,
		tracker: tracker,
		logger:  log,
		kept:    make(map[string]bool),
	}
}

// Root directorio raíz del workspace
func (w *Workspace) Root() string { return w.root }

// Path devuelve la ruta de un archivo intermedio dentro del workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, filepath.Base(name))
}

// Dir crea un subdirectorio exclusivo (uno por invocación de motor externo)
func (w *Workspace) Dir(prefix string) (string, error) {
	w.mu.Lock()
	w.seq++
	n := w.seq
	w.mu.Unlock()

	dir := filepath.Join(w.root, fmt.Sprintf("%s-%d", prefix, n))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create isolated dir: %w", err)
	}
	return dir, nil
}

// Track registra archivos fuera del workspace (uploads) para eliminarlos en Close
func (w *Workspace) Track(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		w.tracked = append(w.tracked, p)
		w.tracker.MarkInUse(p)
	}
}

// Keep excluye de la limpieza un archivo registrado con Track.
// Lo que vive bajo Root se elimina siempre; los artefactos se publican fuera antes de Close.
func (w *Workspace) Keep(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kept[path] = true
}

// Close elimina archivos registrados y el árbol del workspace. Es idempotente.
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	tracked := w.tracked
	kept := w.kept
	w.mu.Unlock()

	var firstErr error
	removed := 0
	for _, p := range tracked {
		w.tracker.MarkAvailable(p)
		if kept[p] {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}

	if err := os.RemoveAll(w.root); err != nil && firstErr == nil {
		firstErr = err
	}
	w.tracker.MarkAvailable(w.root)

	w.logger.Debugw("🧹 Workspace cleaned", "request_id", w.ID, "files_removed", removed)
	return firstErr
}
