package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
)

// Supervisor establishes broker connections and channels. It owns the retry
// policy and registers the default notification callbacks on every handle it
// hands out.
type Supervisor struct {
	cfg      Config
	dialer   Dialer
	logger   Logger
	observer observability.Observer

	// sleep waits d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSupervisor creates a supervisor for cfg. A nil dialer selects AMQPDialer.
func NewSupervisor(cfg Config, dialer Dialer, log Logger) *Supervisor {
	if dialer == nil {
		dialer = AMQPDialer{}
	}
	return &Supervisor{
		cfg:      cfg,
		dialer:   dialer,
		logger:   log,
		observer: observability.Nop,
		sleep:    sleepContext,
	}
}

// WithObserver sets the operation observer; nil restores the no-op observer.
func (s *Supervisor) WithObserver(o observability.Observer) *Supervisor {
	if o == nil {
		o = observability.Nop
	}
	s.observer = o
	return s
}

// Connect dials the broker until it succeeds. Between failures it waits
// according to the retry policy. Under the default policy it only returns an
// error once ctx is done; a bounded policy returns ErrConnectionUnavailable
// after MaxAttempts failures.
func (s *Supervisor) Connect(ctx context.Context) (Connection, error) {
	b := s.cfg.Retry.backOff()
	fields := map[string]interface{}{
		"host":  s.cfg.Connection.Host,
		"port":  s.cfg.Connection.Port,
		"vhost": vhost(s.cfg.Connection),
	}

	for attempt := 1; ; attempt++ {
		start := time.Now()
		conn, err := s.dialer.Dial(ctx, s.cfg.Connection)
		s.observe("connect", s.cfg.Connection.Host, time.Since(start), err)
		if err == nil {
			s.logger.InfoWithContext(ctx, "connected to rabbitmq", nil, fields)
			s.watchConnection(ctx, conn)
			return conn, nil
		}

		s.logger.WarnWithContext(ctx, "rabbitmq connection attempt failed", err, map[string]interface{}{
			"attempt": attempt,
			"kind":    TranslateError(err).Error(),
		})

		if limit := s.cfg.Retry.MaxAttempts; limit > 0 && attempt >= limit {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectionUnavailable, attempt, err)
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return nil, fmt.Errorf("%w: retry policy exhausted: %w", ErrConnectionUnavailable, err)
		}
		if err := s.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("rabbitmq connect aborted: %w", err)
		}
	}
}

// OpenChannel opens a channel on conn and registers the default channel
// callbacks. A failure is returned as ErrChannelUnavailable.
func (s *Supervisor) OpenChannel(ctx context.Context, conn Connection) (Channel, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelUnavailable, ErrNotConnected)
	}

	start := time.Now()
	ch, err := conn.Channel()
	s.observe("open_channel", s.cfg.Connection.Host, time.Since(start), err)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "failed to open rabbitmq channel", err)
		return nil, fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}

	s.watchChannel(ctx, ch)
	return ch, nil
}

// watchConnection logs close and flow-control notifications for conn.
func (s *Supervisor) watchConnection(ctx context.Context, conn Connection) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	blocked := conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	ctx = context.WithoutCancel(ctx)

	go func() {
		for e := range closed {
			s.logger.WarnWithContext(ctx, "rabbitmq connection closed", e, map[string]interface{}{
				"code":   e.Code,
				"reason": e.Reason,
			})
		}
	}()
	go func() {
		for b := range blocked {
			if b.Active {
				s.logger.WarnWithContext(ctx, "rabbitmq connection blocked", nil, map[string]interface{}{"reason": b.Reason})
				continue
			}
			s.logger.InfoWithContext(ctx, "rabbitmq connection unblocked", nil)
		}
	}()
}

// watchChannel logs close and consumer-cancel notifications for ch.
func (s *Supervisor) watchChannel(ctx context.Context, ch Channel) {
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	cancelled := ch.NotifyCancel(make(chan string, 1))
	ctx = context.WithoutCancel(ctx)

	go func() {
		for e := range closed {
			s.logger.WarnWithContext(ctx, "rabbitmq channel closed", e, map[string]interface{}{
				"code":   e.Code,
				"reason": e.Reason,
			})
		}
	}()
	go func() {
		for tag := range cancelled {
			s.logger.WarnWithContext(ctx, "rabbitmq consumer cancelled", nil, map[string]interface{}{"consumer_tag": tag})
		}
	}()
}

func (s *Supervisor) observe(operation, resource string, d time.Duration, err error) {
	s.observer.ObserveOperation(observability.OperationContext{
		Component: "rabbit",
		Operation: operation,
		Resource:  resource,
		Duration:  d,
		Error:     err,
	})
}

// backOff builds the delay sequence for p.
func (p RetryPolicy) backOff() backoff.BackOff {
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultRetryPolicy().Delay
	}
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(delay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
