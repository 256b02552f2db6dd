package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kavach/engine/pkg/response"
)

// Outcome resultado de ejecutar un candidato
type Outcome int

const (
	Succeeded Outcome = iota
	NotInstalled
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case NotInstalled:
		return "not_installed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Attempt registro de un intento con un ejecutable concreto
type Attempt struct {
	Tool     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Result resultado de una cadena que terminó con éxito
type Result struct {
	Tool     string
	Attempts []Attempt
}

// ToolUnavailableError todos los candidatos de la cadena fallaron
type ToolUnavailableError struct {
	Operation string
	Attempts  []Attempt
}

func (e *ToolUnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no candidate executables configured", e.Operation)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Tool, a.Outcome))
	}
	return fmt.Sprintf("%s: all engines failed [%s]: %v", e.Operation, strings.Join(parts, ", "), e.Unwrap())
}

// Unwrap devuelve el último fallo
func (e *ToolUnavailableError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// ErrorKind clasifica el error para la capa HTTP
func (e *ToolUnavailableError) ErrorKind() response.Kind { return response.KindToolUnavailable }

// Settle decide el resultado de una cadena a partir de sus intentos.
// El primer intento exitoso gana; si no hay ninguno la cadena está agotada.
func Settle(operation string, attempts []Attempt) (*Result, error) {
	for _, a := range attempts {
		if a.Outcome == Succeeded {
			return &Result{Tool: a.Tool, Attempts: attempts}, nil
		}
	}
	return nil, &ToolUnavailableError{Operation: operation, Attempts: attempts}
}

// IsToolUnavailable indica si err proviene de una cadena agotada
func IsToolUnavailable(err error) bool {
	var tu *ToolUnavailableError
	return errors.As(err, &tu)
}

// IsRejected indica si la cadena se agotó porque los ejecutables instalados
// terminaron con error sobre la entrada. Sin ningún intento Failed, o con un
// timeout de por medio, el problema es de disponibilidad y no del documento.
func IsRejected(err error) bool {
	var tu *ToolUnavailableError
	if !errors.As(err, &tu) {
		return false
	}
	rejected := false
	for _, a := range tu.Attempts {
		switch a.Outcome {
		case Failed:
			rejected = true
		case NotInstalled:
		default:
			return false
		}
	}
	return rejected
}
