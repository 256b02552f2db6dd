package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// RequestLogger middleware para logging de requests
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"client_ip":   c.IP(),
			"user_agent":  c.Get(fiber.HeaderUserAgent),
			"request_id":  response.RequestID(c),
		}
		if owner := Owner(c); owner != "" {
			fields["owner"] = owner
		}
		if q := c.Request().URI().QueryString(); len(q) > 0 {
			fields["query"] = string(q)
		}

		entry := log.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("❌ Request failed")
		case status >= 400:
			entry.Warn("⚠️ Request error")
		case status >= 300:
			entry.Info("➡️ Request redirect")
		default:
			entry.Info("✅ Request success")
		}

		return err
	}
}

// ErrorHandler renderiza cualquier error escapado de un handler con el cuerpo de error común
func ErrorHandler(log *logger.Logger, exposeDetail bool) fiber.ErrorHandler {
	rm := response.NewResponseManager(log, exposeDetail)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return rm.Error(c, fromFiberError(fe))
		}
		return rm.Error(c, err)
	}
}

// fromFiberError traduce los errores propios de fiber (404 de ruta, 413, ...) a la taxonomía común
func fromFiberError(fe *fiber.Error) error {
	switch {
	case fe.Code == fiber.StatusNotFound:
		return response.NotFound("Route not found")
	case fe.Code == fiber.StatusUnauthorized:
		return response.Unauthorized(fe.Message)
	case fe.Code < 500:
		return response.Invalid("%s", fe.Message)
	default:
		return response.Unexpected(fe.Message, fe)
	}
}
