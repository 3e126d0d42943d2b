package metrics

// DefaultMetricsAddress is used when Config.Address is empty.
const DefaultMetricsAddress = ":9090"

// Config defines how the Prometheus metrics server is exposed.
type Config struct {
	// Address is where the /metrics HTTP server listens, e.g. ":9090".
	Address string `yaml:"address" koanf:"address"`

	// EnableDefaultCollectors registers the Go runtime, process and build
	// info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" koanf:"enable_default_collectors"`

	// Namespace prefixes every metric name registered by this package.
	//
	//   Namespace: "vectorproxy"
	//   → vectorproxy_operations_total
	Namespace string `yaml:"namespace" koanf:"namespace"`

	// ServiceName is attached to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" koanf:"service_name"`
}

// DefaultConfig returns the config used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Address:                 DefaultMetricsAddress,
		EnableDefaultCollectors: true,
		Namespace:               "vectorproxy",
		ServiceName:             "vector-db-proxy",
	}
}
