package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ServiceOwner propietario asignado a las llamadas autenticadas con ENGINE_SECRET
const ServiceOwner = "service"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
)

// Claims reclamaciones emitidas por el servicio de autenticación externo.
// El subject identifica al propietario de los artefactos.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier valida tokens HS256 y el secreto compartido entre servicios
type Verifier struct {
	jwtSecret    []byte
	engineSecret []byte
	issuer       string
	now          func() time.Time
}

// NewVerifier crea el verificador. Cualquiera de los secretos puede ir vacío para deshabilitar ese método.
func NewVerifier(jwtSecret, engineSecret string) *Verifier {
	return &Verifier{
		jwtSecret:    []byte(jwtSecret),
		engineSecret: []byte(engineSecret),
		now:          time.Now,
	}
}

// WithIssuer exige un issuer concreto en los tokens
func (v *Verifier) WithIssuer(issuer string) *Verifier {
	v.issuer = issuer
	return v
}

// VerifyToken valida un bearer token y devuelve el propietario (subject)
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrMissingToken
	}
	if len(v.jwtSecret) == 0 {
		return "", fmt.Errorf("%w: bearer tokens are not enabled", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.jwtSecret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// VerifySecret compara en tiempo constante con ENGINE_SECRET
func (v *Verifier) VerifySecret(secret string) bool {
	if len(v.engineSecret) == 0 || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), v.engineSecret) == 1
}

// IssueToken firma un token para subject. Lo usan kavachctl y los tests;
// en producción los tokens los emite el servicio de autenticación.
func (v *Verifier) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(v.jwtSecret) == 0 {
		return "", errors.New("JWT secret is not configured")
	}
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.jwtSecret)
}
