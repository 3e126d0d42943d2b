package tracer

// Config controls the OpenTelemetry tracer provider.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name" koanf:"service_name"`

	// AppEnv is recorded as deployment.environment.
	AppEnv string `yaml:"app_env" koanf:"app_env"`

	// EnableExport turns on the OTLP/HTTP batch exporter. Without it spans are
	// created and propagated but never leave the process.
	EnableExport bool `yaml:"enable_export" koanf:"enable_export"`

	// Endpoint is the OTLP/HTTP collector host:port. Empty uses the exporter
	// default (OTEL_EXPORTER_OTLP_ENDPOINT or localhost:4318).
	Endpoint string `yaml:"endpoint" koanf:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" koanf:"insecure"`
}
