// Package health agrupa los checks de readiness del engine.
package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/utils"
	"github.com/kavach/engine/pkg/logger"
)

// Estados de un check y del conjunto
const (
	Pass = "pass"
	Warn = "warn"
	Fail = "fail"

	Healthy   = "healthy"
	Degraded  = "degraded"
	Unhealthy = "unhealthy"
)

// CheckResult resultado de un check individual
type CheckResult struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration_ms"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Status estado de salud agregado
type Status struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckFunc comprueba una dependencia; Timestamp y Duration los completa el Checker
type CheckFunc func(ctx context.Context) CheckResult

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Checker ejecuta los checks registrados en paralelo
type Checker struct {
	logger  *logger.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks []namedCheck
}

// NewChecker crea un checker sin checks
func NewChecker(log *logger.Logger) *Checker {
	return &Checker{logger: log, timeout: 5 * time.Second}
}

// Register añade un check; un nombre repetido reemplaza al anterior
func (hc *Checker) Register(name string, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for i := range hc.checks {
		if hc.checks[i].name == name {
			hc.checks[i].fn = fn
			return
		}
	}
	hc.checks = append(hc.checks, namedCheck{name, fn})
}

// Readiness ejecuta todos los checks. Un fail deja el estado en unhealthy, un warn en degraded.
func (hc *Checker) Readiness(ctx context.Context) *Status {
	hc.mu.RLock()
	checks := append([]namedCheck(nil), hc.checks...)
	hc.mu.RUnlock()

	status := &Status{
		Status:    Healthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, check := range checks {
		wg.Add(1)
		go func(c namedCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
			defer cancel()

			start := time.Now()
			result := c.fn(checkCtx)
			result.Timestamp = start
			result.Duration = float64(time.Since(start).Microseconds()) / 1000

			mu.Lock()
			status.Checks[c.name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	var failed []string
	for name, result := range status.Checks {
		switch result.Status {
		case Fail:
			failed = append(failed, name)
		case Warn:
			if status.Status == Healthy {
				status.Status = Degraded
			}
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		status.Status = Unhealthy
		hc.logger.Warnw("🚨 Readiness check failed", "failed_checks", failed)
	}
	return status
}

// DirWritable falla si no se puede crear un archivo en dir
func DirWritable(dir string) CheckFunc {
	return func(context.Context) CheckResult {
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return CheckResult{Status: Fail, Error: err.Error()}
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return CheckResult{Status: Pass, Message: filepath.Clean(dir)}
	}
}

// DiskSpace avisa cuando el espacio libre en path baja de minFreePercent
func DiskSpace(disk *utils.DiskSpaceChecker, path string, minFreePercent int) CheckFunc {
	return func(context.Context) CheckResult {
		available, total, err := disk.GetDiskSpace(path)
		if err != nil {
			return CheckResult{Status: Fail, Error: err.Error()}
		}
		if total == 0 {
			return CheckResult{Status: Warn, Message: "unable to determine disk size"}
		}
		free := int(available * 100 / total)
		msg := fmt.Sprintf("%d%% free (%d MB)", free, available>>20)
		if free < minFreePercent {
			return CheckResult{Status: Warn, Message: msg}
		}
		return CheckResult{Status: Pass, Message: msg}
	}
}

// RedisPing falla si Redis no responde
func RedisPing(client *redis.Client) CheckFunc {
	return func(ctx context.Context) CheckResult {
		if err := client.Ping(ctx).Err(); err != nil {
			return CheckResult{Status: Fail, Error: err.Error()}
		}
		return CheckResult{Status: Pass, Message: "pong"}
	}
}

// Engines avisa cuando algún motor no tiene ningún candidato en PATH.
// Un motor ausente solo deshabilita sus operaciones, por eso no es fail.
func Engines(chains map[string][]string) CheckFunc {
	return func(context.Context) CheckResult {
		var missing []string
		for name, candidates := range chains {
			found := false
			for _, ok := range engine.Available(candidates) {
				found = found || ok
			}
			if !found {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return CheckResult{Status: Warn, Message: "missing: " + strings.Join(missing, ", ")}
		}
		return CheckResult{Status: Pass, Message: "all engines found"}
	}
}
