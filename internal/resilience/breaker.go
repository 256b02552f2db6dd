// Package resilience protege dependencias remotas con un circuit breaker.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/pkg/logger"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// State estado del circuit breaker
type State int

const (
	StateClosed   State = iota // normal
	StateOpen                  // rechaza sin llamar
	StateHalfOpen              // probando recuperación
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configuración del circuit breaker
type Config struct {
	MaxFailures         int           // fallos consecutivos antes de abrir
	OpenTimeout         time.Duration // tiempo en open antes de pasar a half-open
	HalfOpenMaxRequests int           // pruebas permitidas en half-open; todas deben salir bien para cerrar
}

// DefaultConfig configuración por defecto
func DefaultConfig() Config {
	return Config{
		MaxFailures:         5,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// Breaker circuit breaker por dependencia
type Breaker struct {
	name   string
	logger *logger.Logger
	config Config
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	probes    int
	successes int
	openedAt  time.Time
}

// New crea un breaker cerrado
func New(name string, cfg Config, log *logger.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = def.HalfOpenMaxRequests
	}
	b := &Breaker{name: name, logger: log, config: cfg, now: time.Now}
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// Execute ejecuta fn si el circuito lo permite y registra el resultado.
// Con el circuito abierto devuelve ErrCircuitOpen sin llamar a fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State estado actual
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.OpenTimeout {
			return ErrCircuitOpen
		}
		b.setState(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.probes >= b.config.HalfOpenMaxRequests {
			return ErrTooManyRequests
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.config.MaxFailures {
			b.logger.Warnw("⚡ Circuit breaker opened",
				"name", b.name,
				"failures", b.failures,
				"error", err,
			)
			b.setState(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.HalfOpenMaxRequests {
			b.logger.Infow("✅ Circuit breaker closed", "name", b.name)
			b.setState(StateClosed)
		}
	}
}

// setState cambia de estado y reinicia los contadores; requiere b.mu
func (b *Breaker) setState(s State) {
	b.state = s
	b.probes = 0
	b.successes = 0
	if s == StateOpen {
		b.openedAt = b.now()
	}
	if s == StateClosed {
		b.failures = 0
	}
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(s))
}
