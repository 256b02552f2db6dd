package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config estructura principal de configuración
type Config struct {
	Environment  string `json:"environment"`
	Port         int    `json:"port"`
	EngineSecret string `json:"-"`

	Log      LogConfig      `json:"log"`
	Storage  StorageConfig  `json:"storage"`
	Engines  EnginesConfig  `json:"engines"`
	Office   OfficeConfig   `json:"office"`
	Security SecurityConfig `json:"security"`
	Redis    RedisConfig    `json:"redis"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// StorageConfig directorios de trabajo y política de retención de artefactos
type StorageConfig struct {
	TempDir           string        `json:"temp_dir"`
	UploadDir         string        `json:"upload_dir"`
	OutputDir         string        `json:"output_dir"`
	MaxUploadMB       int           `json:"max_upload_mb"`
	MaxFiles          int           `json:"max_files"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
	RetentionMaxAge   time.Duration `json:"retention_max_age"`
	RetentionMaxBytes int64         `json:"retention_max_bytes"`
	ArtifactTTL       time.Duration `json:"artifact_ttl"`
}

// EnginesConfig cadenas de ejecutables externos
type EnginesConfig struct {
	Timeout            time.Duration `json:"timeout"`
	MaxConcurrent      int           `json:"max_concurrent"`
	Ghostscript        []string      `json:"ghostscript"`
	Qpdf               []string      `json:"qpdf"`
	Pdftoppm           []string      `json:"pdftoppm"`
	LockNativeFallback bool          `json:"lock_native_fallback"`
}

type OfficeConfig struct {
	Enabled      bool     `json:"enabled"`
	Provider     string   `json:"provider"`
	Candidates   []string `json:"candidates"`
	GotenbergURL string   `json:"gotenberg_url"`
	GotenbergRPS float64  `json:"gotenberg_rps"`
}

type SecurityConfig struct {
	AuthEnabled          bool     `json:"auth_enabled"`
	JWTSecret            string   `json:"-"`
	EnforceArtifactOwner bool     `json:"enforce_artifact_owner"`
	AllowedOrigins       []string `json:"allowed_origins"`
	EnableRateLimiting   bool     `json:"enable_rate_limiting"`
	RateLimitMax         int      `json:"rate_limit_max"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// .env es opcional
	_ = godotenv.Load(".env")

	tempDir := getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "kavach"))

	cfg := &Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Port:         getEnvInt("PORT", 8080),
		EngineSecret: getEnv("ENGINE_SECRET", ""),

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},

		Storage: StorageConfig{
			TempDir:           tempDir,
			UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(tempDir, "uploads")),
			OutputDir:         getEnv("OUTPUT_DIR", filepath.Join(tempDir, "outputs")),
			MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 100),
			MaxFiles:          getEnvInt("MAX_FILES", 20),
			CleanupInterval:   getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute),
			RetentionMaxAge:   getEnvDuration("RETENTION_MAX_AGE", 24*time.Hour),
			RetentionMaxBytes: getEnvBytes("RETENTION_MAX_BYTES", 2<<30),
			ArtifactTTL:       getEnvDuration("ARTIFACT_TTL", 24*time.Hour),
		},

		Engines: EnginesConfig{
			Timeout:            getEnvDuration("ENGINE_TIMEOUT", 120*time.Second),
			MaxConcurrent:      getEnvInt("ENGINE_MAX_CONCURRENT", 4),
			Ghostscript:        getEnvList("GHOSTSCRIPT_CANDIDATES", []string{"gs", "gswin64c", "gswin32c"}),
			Qpdf:               getEnvList("QPDF_CANDIDATES", []string{"qpdf"}),
			Pdftoppm:           getEnvList("PDFTOPPM_CANDIDATES", []string{"pdftoppm"}),
			LockNativeFallback: getEnvBool("LOCK_NATIVE_FALLBACK", false),
		},

		Office: OfficeConfig{
			Enabled:      getEnvBool("OFFICE_ENABLED", true),
			Provider:     getEnv("OFFICE_PROVIDER", "libreoffice"),
			Candidates:   getEnvList("OFFICE_CANDIDATES", []string{"soffice", "libreoffice"}),
			GotenbergURL: getEnv("GOTENBERG_URL", "http://localhost:3000"),
			GotenbergRPS: getEnvFloat("GOTENBERG_RPS", 5),
		},

		Security: SecurityConfig{
			AuthEnabled:          getEnvBool("AUTH_ENABLED", true),
			JWTSecret:            getEnv("JWT_SECRET", ""),
			EnforceArtifactOwner: getEnvBool("ENFORCE_ARTIFACT_OWNER", true),
			AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			EnableRateLimiting:   getEnvBool("ENABLE_RATE_LIMITING", true),
			RateLimitMax:         getEnvInt("RATE_LIMIT_MAX", 60),
		},

		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate valida la configuración
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if c.Security.AuthEnabled && c.Security.JWTSecret == "" && c.EngineSecret == "" {
		return fmt.Errorf("JWT_SECRET or ENGINE_SECRET is required when AUTH_ENABLED is true")
	}

	if c.EngineSecret != "" && len(c.EngineSecret) < 32 {
		return fmt.Errorf("ENGINE_SECRET must be at least 32 characters")
	}

	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	if c.Engines.Timeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive")
	}

	switch c.Office.Provider {
	case "libreoffice", "gotenberg":
	default:
		return fmt.Errorf("OFFICE_PROVIDER must be libreoffice or gotenberg, got %q", c.Office.Provider)
	}

	return nil
}

// IsProduction indica si se ejecuta en producción
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// segundos enteros, como CLEANUP_INTERVAL=300
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvBytes acepta "512MB", "2GB" o un número de bytes
func getEnvBytes(key string, defaultValue int64) int64 {
	value := strings.ToUpper(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	if n, err := ParseByteSize(value); err == nil {
		return n
	}
	return defaultValue
}

// ParseByteSize convierte tamaños legibles (KB, MB, GB) a bytes
func ParseByteSize(value string) (int64, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(value, unit.suffix) {
			multiplier = unit.factor
			value = strings.TrimSpace(strings.TrimSuffix(value, unit.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	return n * multiplier, nil
}
