package response

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/pkg/logger"
)

// ErrorBody es el cuerpo JSON de toda respuesta fallida
type ErrorBody struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Code      Kind      `json:"code"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SuccessBody envuelve respuestas JSON exitosas
type SuccessBody struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ResponseManager escribe respuestas homogéneas y registra los errores
type ResponseManager struct {
	logger       *logger.Logger
	exposeDetail bool
}

// NewResponseManager crea nueva instancia. exposeDetail añade el error interno al cuerpo.
func NewResponseManager(log *logger.Logger, exposeDetail bool) *ResponseManager {
	return &ResponseManager{logger: log, exposeDetail: exposeDetail}
}

// Success respuesta JSON exitosa
func (rm *ResponseManager) Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(&SuccessBody{
		Success:   true,
		Data:      data,
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error traduce err a su estado HTTP y cuerpo JSON
func (rm *ResponseManager) Error(c *fiber.Ctx, err error) error {
	kind := Classify(err)
	status := kind.Status()

	fields := []interface{}{
		"request_id", RequestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"code", kind,
		"status", status,
		"error", err.Error(),
	}
	if status >= 500 {
		rm.logger.Errorw("❌ Operation failed", fields...)
	} else {
		rm.logger.Warnw("⚠️ Request rejected", fields...)
	}

	body := &ErrorBody{
		Success:   false,
		Error:     PublicMessage(err),
		Code:      kind,
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC(),
	}
	if rm.exposeDetail || kind == KindToolUnavailable {
		body.Details = err.Error()
	}
	return c.Status(status).JSON(body)
}

// Attachment envía un archivo como descarga
func (rm *ResponseManager) Attachment(c *fiber.Ctx, path, downloadName string) error {
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, downloadName))
	return c.SendFile(path, false)
}

// RequestID obtiene el id de la request (middleware requestid o cabecera)
func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
