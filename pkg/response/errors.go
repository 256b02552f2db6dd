package response

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind clasifica los errores que llegan al borde HTTP
type Kind string

const (
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindToolUnavailable  Kind = "TOOL_UNAVAILABLE"
	KindArtifactNotFound Kind = "ARTIFACT_NOT_FOUND"
	KindNotFound         Kind = "NOT_FOUND"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindUnexpected       Kind = "UNEXPECTED"
)

// Status devuelve el código HTTP asociado a cada tipo
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Kinded lo implementan los errores de otros paquetes que conocen su clasificación
type Kinded interface {
	ErrorKind() Kind
}

// Error es el error tipado que devuelven handlers y servicios
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implementa Kinded
func (e *Error) ErrorKind() Kind { return e.Kind }

// Invalid crea un error de validación de entrada (400)
func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NotFound crea un error 404
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized crea un error 401
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Unexpected envuelve cualquier fallo no clasificado
func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// Classify determina el tipo de un error arbitrario
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindUnexpected
}

// PublicMessage es el texto que se devuelve al cliente
func PublicMessage(err error) string {
	switch Classify(err) {
	case KindToolUnavailable:
		return "Required conversion tool is not available on the server. Please contact the administrator."
	default:
		var e *Error
		if errors.As(err, &e) && e.Kind != KindUnexpected && e.Message != "" {
			return e.Message
		}
		return err.Error()
	}
}
