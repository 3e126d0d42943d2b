package rabbit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/vector-db-proxy/v1/observability"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(op observability.OperationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recordingObserver) operations() []observability.OperationContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observability.OperationContext{}, r.ops...)
}

func testTopology() Topology {
	topo := DefaultTopology()
	topo.ExchangeName = "ingest"
	topo.QueueName = "documents"
	topo.RoutingKey = "documents.new"
	return topo
}

var streamArgs = amqp.Table{"x-queue-type": "stream"}

func TestBindReconnectsAndDeclaresInOrder(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := NewSession(ts.Supervisor)

	expectConnectionCallbacks(conn)
	expectChannelCallbacks(ch)
	ch.EXPECT().IsClosed().Return(false).AnyTimes()

	gomock.InOrder(
		ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(conn, nil),
		conn.EXPECT().Channel().Return(ch, nil),
		ch.EXPECT().ExchangeDeclare("ingest", "direct", false, false, false, false, nil).Return(nil),
		ch.EXPECT().Qos(1, 0, false).Return(nil),
		ch.EXPECT().QueueDeclare("documents", true, false, false, false, streamArgs).
			Return(amqp.Queue{Name: "documents"}, nil),
		ch.EXPECT().QueueBind("documents", "documents.new", "ingest", false, nil).Return(nil),
	)

	binder := NewBinder(ts.log)
	require.NoError(t, binder.Bind(context.Background(), session, testTopology()))

	assert.Same(t, conn, session.Connection())
	assert.Same(t, ch, session.Channel())
}

func TestBindReplacesClosedConnection(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	staleConn := NewMockConnection(ctrl)
	staleCh := NewMockChannel(ctrl)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: staleConn, ch: staleCh}

	// Both stale handles report closed, so neither is closed again.
	staleConn.EXPECT().IsClosed().Return(true).AnyTimes()
	staleCh.EXPECT().IsClosed().Return(true).AnyTimes()

	expectConnectionCallbacks(conn)
	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	expectChannelCallbacks(ch)
	ch.EXPECT().IsClosed().Return(false).AnyTimes()

	gomock.InOrder(
		ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(conn, nil),
		conn.EXPECT().Channel().Return(ch, nil),
		ch.EXPECT().ExchangeDeclare("ingest", "direct", false, false, false, false, nil).Return(nil),
		ch.EXPECT().Qos(1, 0, false).Return(nil),
		ch.EXPECT().QueueDeclare("documents", true, false, false, false, streamArgs).
			Return(amqp.Queue{Name: "documents"}, nil),
		ch.EXPECT().QueueBind("documents", "documents.new", "ingest", false, nil).Return(nil),
	)

	require.Equal(t, StateClosed, session.State())
	require.NoError(t, NewBinder(ts.log).Bind(context.Background(), session, testTopology()))

	assert.Same(t, conn, session.Connection())
	assert.Same(t, ch, session.Channel())
	assert.Equal(t, StateOpen, session.State())
}

func TestBindOpenConnectionSkipsReconnect(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch}

	ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Times(0)
	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	ch.EXPECT().IsClosed().Return(false).AnyTimes()
	ch.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	ch.EXPECT().Qos(1, 0, false).Return(nil)
	ch.EXPECT().QueueDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(amqp.Queue{Name: "documents"}, nil)
	ch.EXPECT().QueueBind(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, NewBinder(ts.log).Bind(context.Background(), session, testTopology()))
	assert.Equal(t, StateOpen, session.State())
}

func TestBindReopensClosedChannelBeforeBinding(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	stale := NewMockChannel(ctrl)
	fresh := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: stale}

	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	stale.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	stale.EXPECT().Qos(1, 0, false).Return(nil)
	stale.EXPECT().QueueDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(amqp.Queue{Name: "documents"}, nil)
	stale.EXPECT().IsClosed().Return(true).AnyTimes()
	stale.EXPECT().QueueBind(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	conn.EXPECT().Channel().Return(fresh, nil)
	expectChannelCallbacks(fresh)
	fresh.EXPECT().QueueBind("documents", "documents.new", "ingest", false, nil).Return(nil)

	require.NoError(t, NewBinder(ts.log).Bind(context.Background(), session, testTopology()))
	assert.Same(t, fresh, session.Channel())
}

func TestBindDeclareFailureIsFatal(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch}
	obs := &recordingObserver{}

	cause := &amqp.Error{Code: amqp.PreconditionFailed, Reason: "PRECONDITION_FAILED - inequivalent arg 'x-queue-type'"}
	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	ch.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	ch.EXPECT().Qos(1, 0, false).Return(nil)
	ch.EXPECT().QueueDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(amqp.Queue{}, cause)
	ch.EXPECT().QueueBind(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := NewBinder(ts.log).WithObserver(obs).Bind(context.Background(), session, testTopology())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTopologySetup)
	assert.ErrorIs(t, err, cause)
	var te *TopologyError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StepQueueDeclare, te.Step)
	assert.Equal(t, ErrPreconditionFailed, TranslateError(err))

	ops := obs.operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "bind", ops[0].Operation)
	assert.Equal(t, "ingest", ops[0].Resource)
	assert.Equal(t, "documents", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, ErrTopologySetup)
}

func TestBindExchangeFailureStopsBeforeQos(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch}

	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	ch.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"})
	ch.EXPECT().Qos(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := NewBinder(ts.log).Bind(context.Background(), session, testTopology())
	var te *TopologyError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StepExchangeDeclare, te.Step)
}

func TestBindReconnectFailureIsNotTopologyError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 1
	ts := newTestSupervisor(t, cfg)
	session := NewSession(ts.Supervisor)

	ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, errRefused)

	err := NewBinder(ts.log).Bind(context.Background(), session, testTopology())
	assert.ErrorIs(t, err, ErrConnectionUnavailable)
	assert.NotErrorIs(t, err, ErrTopologySetup)
	assert.Equal(t, StateClosed, session.State())
}

func TestWatchRebindsAfterConnectionLoss(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn1 := NewMockConnection(ctrl)
	ch1 := NewMockChannel(ctrl)
	conn2 := NewMockConnection(ctrl)
	ch2 := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn1, ch: ch1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lost atomic.Bool
	conn1.EXPECT().IsClosed().DoAndReturn(lost.Load).AnyTimes()
	ch1.EXPECT().IsClosed().Return(true).AnyTimes()
	ch1.EXPECT().NotifyClose(gomock.Any()).
		DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error { return c })
	conn1.EXPECT().NotifyClose(gomock.Any()).
		DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error {
			lost.Store(true)
			c <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED - broker restart"}
			return c
		})

	ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(conn2, nil)
	conn2.EXPECT().IsClosed().Return(false).AnyTimes()
	conn2.EXPECT().NotifyBlocked(gomock.Any()).
		DoAndReturn(func(c chan amqp.Blocking) chan amqp.Blocking { return c })
	gomock.InOrder(
		conn2.EXPECT().NotifyClose(gomock.Any()).
			DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error { return c }),
		conn2.EXPECT().NotifyClose(gomock.Any()).
			DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error {
				cancel()
				return c
			}),
	)
	conn2.EXPECT().Channel().Return(ch2, nil)
	expectChannelCallbacks(ch2)
	ch2.EXPECT().NotifyClose(gomock.Any()).
		DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error { return c })
	ch2.EXPECT().IsClosed().Return(false).AnyTimes()
	ch2.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	ch2.EXPECT().Qos(1, 0, false).Return(nil)
	ch2.EXPECT().QueueDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(amqp.Queue{Name: "documents"}, nil)
	ch2.EXPECT().QueueBind(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	done := make(chan error, 1)
	go func() { done <- NewBinder(ts.log).Watch(ctx, session, testTopology()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Same(t, conn2, session.Connection())
	assert.Same(t, ch2, session.Channel())
}

func TestWatchReopensChannelAfterChannelLoss(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch1 := NewMockChannel(ctrl)
	ch2 := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	gomock.InOrder(
		conn.EXPECT().NotifyClose(gomock.Any()).
			DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error { return c }),
		conn.EXPECT().NotifyClose(gomock.Any()).
			DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error {
				cancel()
				return c
			}),
	)

	var lost atomic.Bool
	ch1.EXPECT().IsClosed().DoAndReturn(lost.Load).AnyTimes()
	ch1.EXPECT().NotifyClose(gomock.Any()).
		DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error {
			lost.Store(true)
			c <- &amqp.Error{Code: amqp.PreconditionFailed, Reason: "PRECONDITION_FAILED - unknown delivery tag"}
			return c
		})

	conn.EXPECT().Channel().Return(ch2, nil)
	expectChannelCallbacks(ch2)
	ch2.EXPECT().NotifyClose(gomock.Any()).
		DoAndReturn(func(c chan *amqp.Error) chan *amqp.Error { return c })
	ch2.EXPECT().IsClosed().Return(false).AnyTimes()
	gomock.InOrder(
		ch2.EXPECT().ExchangeDeclare("ingest", "direct", false, false, false, false, nil).Return(nil),
		ch2.EXPECT().Qos(1, 0, false).Return(nil),
		ch2.EXPECT().QueueDeclare("documents", true, false, false, false, streamArgs).
			Return(amqp.Queue{Name: "documents"}, nil),
		ch2.EXPECT().QueueBind("documents", "documents.new", "ingest", false, nil).Return(nil),
	)

	done := make(chan error, 1)
	go func() { done <- NewBinder(ts.log).Watch(ctx, session, testTopology()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Same(t, conn, session.Connection())
	assert.Same(t, ch2, session.Channel())
}

func TestWatchReturnsTopologyError(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)

	ts.dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(conn, nil)
	expectConnectionCallbacks(conn)
	conn.EXPECT().Channel().Return(ch, nil)
	expectChannelCallbacks(ch)
	ch.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&amqp.Error{Code: amqp.NotAllowed, Reason: "NOT_ALLOWED"})

	err := NewBinder(ts.log).Watch(context.Background(), NewSession(ts.Supervisor), testTopology())
	assert.ErrorIs(t, err, ErrTopologySetup)
}

func TestSessionClose(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch}

	ch.EXPECT().IsClosed().Return(false)
	ch.EXPECT().Close().Return(nil)
	conn.EXPECT().IsClosed().Return(false)
	conn.EXPECT().Close().Return(nil)

	require.NoError(t, session.Close())
	assert.Nil(t, session.Connection())
	assert.Equal(t, StateClosed, session.State())
}

type spanTracer struct {
	tracer trace.Tracer
}

func (s spanTracer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func (s spanTracer) SetAttributes(span trace.Span, attrs map[string]interface{}) {
	for k, v := range attrs {
		span.SetAttributes(attribute.String(k, fmt.Sprint(v)))
	}
}

func (s spanTracer) RecordErrorOnSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func TestBindRecordsFailedSpan(t *testing.T) {
	ts := newTestSupervisor(t, DefaultConfig())
	ctrl := gomock.NewController(t)
	conn := NewMockConnection(ctrl)
	ch := NewMockChannel(ctrl)
	session := &Session{sup: ts.Supervisor, conn: conn, ch: ch}

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	conn.EXPECT().IsClosed().Return(false).AnyTimes()
	ch.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"})

	binder := NewBinder(ts.log).WithTracer(spanTracer{tracer: tp.Tracer("test")})
	err := binder.Bind(context.Background(), session, testTopology())
	require.ErrorIs(t, err, ErrTopologySetup)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "rabbit.bind", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("exchange", "ingest"))
}
