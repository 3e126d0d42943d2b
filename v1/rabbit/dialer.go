package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 30 * time.Second

// AMQPDialer dials RabbitMQ with amqp091-go.
type AMQPDialer struct{}

// Dial connects to the broker described by cfg. The TCP connection gets a
// deadline covering the TLS and AMQP handshakes: the earlier of the context
// deadline and defaultDialTimeout. Cancelling ctx before the handshake
// completes closes the socket, so Dial returns promptly.
func (AMQPDialer) Dial(ctx context.Context, cfg ConnectionConfig) (Connection, error) {
	// stop detaches the cancellation hook once the handshake is over.
	stop := func() bool { return true }

	amqpCfg := amqp.Config{
		Vhost:     vhost(cfg),
		Heartbeat: cfg.Heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: defaultDialTimeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// amqp091 clears the deadline once the connection is open.
			if err := conn.SetDeadline(handshakeDeadline(ctx)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			stop = context.AfterFunc(ctx, func() { _ = conn.Close() })
			return conn, nil
		},
	}

	if cfg.IsSSLEnabled {
		tlsCfg, err := tlsConfig(cfg)
		if err != nil {
			return nil, err
		}
		amqpCfg.TLSClientConfig = tlsCfg
	}

	conn, err := amqp.DialConfig(connectionURL(cfg), amqpCfg)
	if !stop() {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, fmt.Errorf("rabbitmq dial aborted: %w", ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

func handshakeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(defaultDialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// connectionURL renders amqp[s]://user:pass@host:port/vhost.
func connectionURL(cfg ConnectionConfig) string {
	scheme := "amqp"
	if cfg.IsSSLEnabled {
		scheme = "amqps"
	}
	u := amqp.URI{
		Scheme:   scheme,
		Host:     cfg.Host,
		Port:     int(cfg.Port),
		Username: cfg.User,
		Password: cfg.Password,
		Vhost:    vhost(cfg),
	}
	return u.String()
}

func vhost(cfg ConnectionConfig) string {
	if cfg.VHost == "" {
		return "/"
	}
	return cfg.VHost
}

func tlsConfig(cfg ConnectionConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{ServerName: cfg.ServerName}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACertPath)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.UseCert {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// amqpConnection adapts *amqp.Connection to Connection.
type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking {
	return c.conn.NotifyBlocked(receiver)
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}
