package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger envuelve zap.SugaredLogger con helpers de contexto
type Logger struct {
	*zap.SugaredLogger
}

// New crea un nuevo logger estructurado.
// format "json" usa la configuración de producción; cualquier otro valor la de desarrollo.
func New(level, format string) *Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zapLogger, err := cfg.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}

	return &Logger{SugaredLogger: zapLogger.Sugar()}
}

// NewNop devuelve un logger que descarta todo (tests y CLI silenciosa)
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Named crea un sub-logger para un componente
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}

// WithFields añade campos al contexto del log
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		kv = append(kv, key, value)
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(kv...)}
}

// WithRequest añade información de la request HTTP
func (l *Logger) WithRequest(requestID, method, path string) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(
			"request_id", requestID,
			"method", method,
			"path", path,
		),
	}
}

// WithError añade información de error
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With("error", err.Error())}
}
