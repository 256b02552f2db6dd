package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/pkg/logger"
)

// FileTracker rastrea archivos en uso para que la retención no los elimine
type FileTracker struct {
	inUse  sync.Map // map[string]*int32
	logger *logger.Logger
}

// NewFileTracker crea un nuevo tracker de archivos
func NewFileTracker(log *logger.Logger) *FileTracker {
	return &FileTracker{logger: log}
}

// MarkInUse incrementa el contador de referencias de path
func (ft *FileTracker) MarkInUse(path string) {
	actual, _ := ft.inUse.LoadOrStore(path, new(int32))
	atomic.AddInt32(actual.(*int32), 1)
}

// MarkAvailable decrementa el contador y olvida path al llegar a cero
func (ft *FileTracker) MarkAvailable(path string) {
	actual, ok := ft.inUse.Load(path)
	if !ok {
		ft.logger.Warnw("Attempted to release file not in tracker", "path", path)
		return
	}
	if atomic.AddInt32(actual.(*int32), -1) <= 0 {
		ft.inUse.Delete(path)
	}
}

// IsInUse verifica si un archivo está en uso
func (ft *FileTracker) IsInUse(path string) bool {
	return ft.GetRefCount(path) > 0
}

// GetRefCount obtiene el número de referencias a un archivo
func (ft *FileTracker) GetRefCount(path string) int32 {
	actual, ok := ft.inUse.Load(path)
	if !ok {
		return 0
	}
	return atomic.LoadInt32(actual.(*int32))
}

// RetentionPolicy límites de retención de artefactos
type RetentionPolicy struct {
	MaxAge   time.Duration
	MaxBytes int64
}

// SweepReport resultado de un barrido
type SweepReport struct {
	RemovedByAge  int
	RemovedBySize int
	RemovedStale  int
	SkippedInUse  int
	RetainedBytes int64
	RetainedFiles int
	Duration      time.Duration
}

// Janitor aplica la política de retención sobre OUTPUT_DIR y elimina restos
// huérfanos en los directorios de uploads y trabajo
type Janitor struct {
	tracker   *FileTracker
	registry  Registry
	logger    *logger.Logger
	outputDir string
	staleDirs []string
	policy    RetentionPolicy
	isRunning atomic.Bool
	now       func() time.Time
}

// NewJanitor crea el janitor de retención
func NewJanitor(store *LocalStorage, policy RetentionPolicy, log *logger.Logger) *Janitor {
	return &Janitor{
		tracker:   store.tracker,
		registry:  store.registry,
		logger:    log,
		outputDir: store.outputDir,
		staleDirs: []string{store.uploadDir, store.workDir},
		policy:    policy,
		now:       time.Now,
	}
}

type fileEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// Sweep ejecuta un barrido completo (thread-safe, no reentrante)
func (j *Janitor) Sweep(ctx context.Context) (*SweepReport, error) {
	if !j.isRunning.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("sweep already running")
	}
	defer j.isRunning.Store(false)

	start := j.now()
	report := &SweepReport{}

	entries, err := os.ReadDir(j.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var files []fileEntry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{filepath.Join(j.outputDir, e.Name()), info.Size(), info.ModTime()})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].modTime.Before(files[b].modTime) })

	var kept []fileEntry
	var total int64
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if j.policy.MaxAge > 0 && start.Sub(f.modTime) > j.policy.MaxAge {
			if j.tracker.IsInUse(f.path) {
				report.SkippedInUse++
			} else if j.remove(ctx, f.path, "age") {
				report.RemovedByAge++
				continue
			}
		}
		kept = append(kept, f)
		total += f.size
	}

	// por tamaño: los más antiguos primero
	if j.policy.MaxBytes > 0 {
		remaining := kept[:0]
		for _, f := range kept {
			if total > j.policy.MaxBytes && !j.tracker.IsInUse(f.path) && j.remove(ctx, f.path, "size") {
				total -= f.size
				report.RemovedBySize++
				continue
			}
			remaining = append(remaining, f)
		}
		kept = remaining
	}

	for _, dir := range j.staleDirs {
		report.RemovedStale += j.sweepStale(ctx, dir, start)
	}

	report.RetainedBytes = total
	report.RetainedFiles = len(kept)
	report.Duration = j.now().Sub(start)
	metrics.ArtifactBytes.Set(float64(total))

	j.logger.Infow("🧹 Retention sweep completed",
		"removed_by_age", report.RemovedByAge,
		"removed_by_size", report.RemovedBySize,
		"removed_stale", report.RemovedStale,
		"skipped_in_use", report.SkippedInUse,
		"retained_bytes", report.RetainedBytes,
		"duration", report.Duration,
	)
	return report, nil
}

// sweepStale elimina entradas de uploads/trabajo más antiguas que MaxAge que nadie usa
func (j *Janitor) sweepStale(ctx context.Context, dir string, now time.Time) int {
	if j.policy.MaxAge <= 0 {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= j.policy.MaxAge || j.tracker.IsInUse(path) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warnw("Failed to remove stale entry", "path", path, "error", err)
			continue
		}
		metrics.JanitorRemovedTotal.WithLabelValues("stale").Inc()
		removed++
	}
	return removed
}

func (j *Janitor) remove(ctx context.Context, path, reason string) bool {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		j.logger.Warnw("Failed to delete artifact", "path", path, "error", err)
		return false
	}
	if err := j.registry.Forget(ctx, filepath.Base(path)); err != nil {
		j.logger.Debugw("Failed to forget artifact", "path", path, "error", err)
	}
	metrics.JanitorRemovedTotal.WithLabelValues(reason).Inc()
	return true
}

// Run ejecuta barridos periódicos hasta que ctx se cancela
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		j.logger.Debugw("Retention janitor disabled (interval <= 0)")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Infow("Starting retention janitor",
		"interval", interval,
		"max_age", j.policy.MaxAge,
		"max_bytes", j.policy.MaxBytes,
	)

	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := j.Sweep(sweepCtx); err != nil {
				j.logger.Errorw("Retention sweep failed", "error", err)
			}
			cancel()
		case <-ctx.Done():
			j.logger.Infow("Stopping retention janitor")
			return
		}
	}
}
