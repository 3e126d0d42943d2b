package logger

// Log level names accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the zap logger built by NewLoggerClient.
type Config struct {
	// Level is one of "debug", "info", "warning", "error". Anything else is INFO.
	Level string `yaml:"level" koanf:"level"`

	// ServiceName is attached to every entry as the "service" field.
	ServiceName string `yaml:"service_name" koanf:"service_name"`

	// EnableTracing makes the *WithContext methods add trace_id and span_id
	// from the active OpenTelemetry span.
	EnableTracing bool `yaml:"enable_tracing" koanf:"enable_tracing"`

	// Development switches to console encoding with colored levels.
	Development bool `yaml:"development" koanf:"development"`
}

// DefaultConfig returns an INFO level, JSON encoded, tracing-aware config.
func DefaultConfig() Config {
	return Config{
		Level:         Info,
		ServiceName:   "vector-db-proxy",
		EnableTracing: true,
	}
}
