package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

//go:generate mockgen -source=interface.go -destination=mock_broker.go -package=rabbit

// Dialer opens broker connections. AMQPDialer is the production implementation.
type Dialer interface {
	Dial(ctx context.Context, cfg ConnectionConfig) (Connection, error)
}

// Connection is the subset of *amqp.Connection the supervisor relies on.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking
	Close() error
}

// Channel is the subset of *amqp.Channel used to declare topology.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	IsClosed() bool
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	NotifyCancel(receiver chan string) chan string
	Close() error
}
