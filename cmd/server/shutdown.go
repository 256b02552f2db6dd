package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kavach/engine/pkg/logger"
)

// ShutdownManager gestiona el cierre graceful del servidor
type ShutdownManager struct {
	logger          *logger.Logger
	shutdownTimeout time.Duration
	callbacks       []namedCallback
	mu              sync.Mutex
	isShuttingDown  bool
}

type namedCallback struct {
	name string
	fn   func(context.Context) error
}

// NewShutdownManager crea un nuevo gestor de shutdown
func NewShutdownManager(log *logger.Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: log, shutdownTimeout: timeout}
}

// Register registra una función a ejecutar en shutdown. Se ejecutan en orden inverso al registro.
func (sm *ShutdownManager) Register(name string, fn func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.callbacks = append(sm.callbacks, namedCallback{name: name, fn: fn})
}

// Wait bloquea hasta recibir SIGINT/SIGTERM o hasta que ctx termine
func (sm *ShutdownManager) Wait(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		sm.logger.Infow("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		sm.logger.Infow("Shutdown requested", "reason", ctx.Err())
	}
}

// Shutdown ejecuta los callbacks registrados con un timeout global
func (sm *ShutdownManager) Shutdown() error {
	sm.mu.Lock()
	if sm.isShuttingDown {
		sm.mu.Unlock()
		return errors.New("shutdown already in progress")
	}
	sm.isShuttingDown = true
	callbacks := append([]namedCallback(nil), sm.callbacks...)
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	sm.logger.Infow("🛑 Starting graceful shutdown", "callbacks", len(callbacks), "timeout", sm.shutdownTimeout)

	var errs []error
	for i := len(callbacks) - 1; i >= 0; i-- {
		cb := callbacks[i]
		if err := cb.fn(ctx); err != nil {
			sm.logger.Errorw("Shutdown step failed", "step", cb.name, "error", err)
			errs = append(errs, err)
			continue
		}
		sm.logger.Debugw("Shutdown step completed", "step", cb.name)
	}
	return errors.Join(errs...)
}
