package rabbit

import (
	"context"
	"time"
)

// Config defines the top-level configuration for the broker session.
type Config struct {
	// Connection contains the settings needed to reach the RabbitMQ server.
	Connection ConnectionConfig `yaml:"connection" koanf:"connection"`

	// Topology names the exchange, queue and binding declared after every connect.
	Topology Topology `yaml:"topology" koanf:"topology"`

	// Retry controls the wait between failed connection attempts.
	Retry RetryPolicy `yaml:"retry" koanf:"retry"`
}

// ConnectionConfig contains the parameters needed to establish a connection,
// including authentication and TLS settings.
type ConnectionConfig struct {
	// Host is the RabbitMQ server hostname or IP address
	Host string `yaml:"host" koanf:"host"`

	// Port is the RabbitMQ server port (typically 5672 for non-SSL, 5671 for SSL)
	Port uint `yaml:"port" koanf:"port"`

	// User is the RabbitMQ username for authentication
	User string `yaml:"user" koanf:"user"`

	// Password is the RabbitMQ password for authentication
	Password string `yaml:"password" koanf:"password"`

	// VHost defaults to "/".
	VHost string `yaml:"vhost" koanf:"vhost"`

	// Heartbeat is the AMQP heartbeat interval.
	Heartbeat time.Duration `yaml:"heartbeat" koanf:"heartbeat"`

	// IsSSLEnabled switches the scheme to amqps.
	IsSSLEnabled bool `yaml:"ssl_enabled" koanf:"ssl_enabled"`

	// UseCert sends a client certificate for mutual TLS.
	UseCert bool `yaml:"use_cert" koanf:"use_cert"`

	// CACertPath is the file path to the CA certificate for verifying the server.
	CACertPath string `yaml:"ca_cert_path" koanf:"ca_cert_path"`

	ClientCertPath string `yaml:"client_cert_path" koanf:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path" koanf:"client_key_path"`

	// ServerName must match a CN or SAN in the server's certificate.
	ServerName string `yaml:"server_name" koanf:"server_name"`
}

// Topology describes the ingestion exchange, its stream queue and the binding
// between them.
type Topology struct {
	ExchangeName string `yaml:"exchange_name" koanf:"exchange_name"`

	// ExchangeType is "direct" unless overridden.
	ExchangeType string `yaml:"exchange_type" koanf:"exchange_type"`

	// ExchangeDurable keeps the exchange across broker restarts.
	ExchangeDurable bool `yaml:"exchange_durable" koanf:"exchange_durable"`

	QueueName  string `yaml:"queue_name" koanf:"queue_name"`
	RoutingKey string `yaml:"routing_key" koanf:"routing_key"`

	// QueueType is sent as the x-queue-type argument.
	QueueType string `yaml:"queue_type" koanf:"queue_type"`

	// PrefetchCount limits unacknowledged deliveries per consumer.
	PrefetchCount int `yaml:"prefetch_count" koanf:"prefetch_count"`
}

// RetryPolicy controls reconnection. With MaxAttempts zero the supervisor
// retries until its context is cancelled. A Multiplier above one grows the
// delay exponentially up to MaxDelay.
type RetryPolicy struct {
	Delay       time.Duration `yaml:"delay" koanf:"delay"`
	MaxAttempts int           `yaml:"max_attempts" koanf:"max_attempts"`
	Multiplier  float64       `yaml:"multiplier" koanf:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay" koanf:"max_delay"`
}

// DefaultConfig returns a local broker with the ingestion stream topology and
// a fixed two second retry.
func DefaultConfig() Config {
	return Config{
		Connection: ConnectionConfig{
			Host:      "localhost",
			Port:      5672,
			User:      "guest",
			Password:  "guest",
			VHost:     "/",
			Heartbeat: 10 * time.Second,
		},
		Topology: DefaultTopology(),
		Retry:    DefaultRetryPolicy(),
	}
}

// DefaultTopology returns a direct exchange bound to a durable stream queue
// with a prefetch of one.
func DefaultTopology() Topology {
	return Topology{
		ExchangeType:  "direct",
		QueueType:     "stream",
		PrefetchCount: 1,
	}
}

// DefaultRetryPolicy waits two seconds between attempts and never gives up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: 2 * time.Second}
}

//go:generate mockgen -source=configs.go -destination=mock_logger.go -package=rabbit

// Logger is the context-aware logging surface used by this package.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
