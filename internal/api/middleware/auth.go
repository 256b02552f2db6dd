package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kavach/engine/internal/auth"
	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/pkg/logger"
	"github.com/kavach/engine/pkg/response"
)

// OwnerKey clave de Locals con el propietario autenticado
const OwnerKey = "owner"

// AuthMiddleware middleware de autenticación
type AuthMiddleware struct {
	verifier *auth.Verifier
	logger   *logger.Logger
	rm       *response.ResponseManager
}

// NewAuthMiddleware crear nuevo middleware de autenticación
func NewAuthMiddleware(verifier *auth.Verifier, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   log,
		rm:       response.NewResponseManager(log, false),
	}
}

// Authenticate acepta Authorization Bearer (JWT, subject = propietario) o X-ENGINE-SECRET / X-API-Key
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret := m.extractSecret(c); secret != "" {
			if !m.verifier.VerifySecret(secret) {
				return m.reject(c, "invalid_secret", "Invalid authentication credentials")
			}
			c.Locals(OwnerKey, auth.ServiceOwner)
			return c.Next()
		}

		token := extractBearer(c)
		if token == "" {
			return m.reject(c, "missing", "Missing authentication. Use Authorization Bearer or X-ENGINE-SECRET")
		}

		owner, err := m.verifier.VerifyToken(token)
		if err != nil {
			m.logger.Debugw("Token rejected", "error", err)
			return m.reject(c, "invalid_token", "Invalid authentication token")
		}

		c.Locals(OwnerKey, owner)
		return c.Next()
	}
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, reason, message string) error {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	m.logger.Warnw("🔒 Authentication failed",
		"reason", reason,
		"ip", c.IP(),
		"path", c.Path(),
	)
	return m.rm.Error(c, response.Unauthorized(message))
}

func (m *AuthMiddleware) extractSecret(c *fiber.Ctx) string {
	if s := c.Get("X-ENGINE-SECRET"); s != "" {
		return s
	}
	return c.Get("X-API-Key")
}

func extractBearer(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Anonymous asigna un propietario vacío cuando AUTH_ENABLED=false
func Anonymous() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(OwnerKey, "")
		return c.Next()
	}
}

// Owner devuelve el propietario autenticado de la request
func Owner(c *fiber.Ctx) string {
	owner, _ := c.Locals(OwnerKey).(string)
	return owner
}
