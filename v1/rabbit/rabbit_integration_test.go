package rabbit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

const amqpPort nat.Port = "5672/tcp"

func startRabbit(ctx context.Context, t *testing.T) ConnectionConfig {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{string(amqpPort)},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "proxy",
				"RABBITMQ_DEFAULT_PASS": "proxy",
			},
			WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, amqpPort)
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return ConnectionConfig{
		Host:      host,
		Port:      uint(port),
		User:      "proxy",
		Password:  "proxy",
		VHost:     "/",
		Heartbeat: 5 * time.Second,
	}
}

func TestRabbitTopologyWithFXModule(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Connection = startRabbit(ctx, t)
	cfg.Retry.MaxAttempts = 10
	cfg.Topology.ExchangeName = "it-ingest"
	cfg.Topology.QueueName = "it-documents"
	cfg.Topology.RoutingKey = "documents"

	log := NewMockLogger(gomock.NewController(t))
	allowLogs(log)

	var session *Session
	app := fxtest.New(t,
		fx.Provide(
			func() Config { return cfg },
			func() Logger { return log },
		),
		FXModule,
		fx.Populate(&session),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.Equal(t, StateOpen, session.State())

	// Redeclaring with identical arguments fails if the broker holds different ones.
	conn, err := AMQPDialer{}.Dial(ctx, cfg.Connection)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.Topology.QueueName, true, false, false, false, amqp.Table{"x-queue-type": "stream"})
	require.NoError(t, err)
	assert.Equal(t, cfg.Topology.QueueName, q.Name)

	err = ch.ExchangeDeclare(cfg.Topology.ExchangeName, "direct", false, false, false, false, nil)
	assert.NoError(t, err)
}
