package rabbit

import (
	"errors"
	"net"
	"strings"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrConnectionUnavailable is returned when a bounded retry policy runs out
	// of attempts.
	ErrConnectionUnavailable = errors.New("broker connection unavailable")

	// ErrChannelUnavailable is returned when a channel cannot be opened on a
	// live connection. The caller recovers by reconnecting.
	ErrChannelUnavailable = errors.New("broker channel unavailable")

	// ErrTopologySetup marks a failed exchange, queue, qos or bind declaration.
	ErrTopologySetup = errors.New("broker topology setup failed")

	// ErrNotConnected is returned when a session has no live connection.
	ErrNotConnected = errors.New("broker session not connected")
)

// Classification sentinels returned by TranslateError.
var (
	ErrConnectionFailed     = errors.New("connection failed")
	ErrConnectionLost       = errors.New("connection lost")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrChannelClosed        = errors.New("channel closed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccessDenied         = errors.New("access denied")
	ErrVirtualHostNotFound  = errors.New("virtual host not found")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrResourceLocked       = errors.New("resource locked")
	ErrNotFound             = errors.New("not found")
	ErrNotAllowed           = errors.New("not allowed")
	ErrProtocolError        = errors.New("protocol error")
	ErrServerError          = errors.New("server error")
	ErrResourceAlarm        = errors.New("resource alarm")
	ErrTimeout              = errors.New("timeout")
	ErrNetworkError         = errors.New("network error")
	ErrTLSError             = errors.New("TLS error")
	ErrUnknownError         = errors.New("unknown error")
)

// TopologyError reports which declaration step failed.
type TopologyError struct {
	Step string
	Err  error
}

func (e *TopologyError) Error() string {
	return "broker topology setup failed at " + e.Step + ": " + e.Err.Error()
}

// Unwrap exposes both ErrTopologySetup and the cause to errors.Is.
func (e *TopologyError) Unwrap() []error {
	return []error{ErrTopologySetup, e.Err}
}

// TranslateError classifies a broker error into one of the package
// sentinels. It returns nil for nil.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return translateAMQPError(amqpErr)
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		return translateSyscallError(syscallErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkError
	}

	return translateByMessage(strings.ToLower(err.Error()))
}

func translateAMQPError(amqpErr *amqp.Error) error {
	switch amqpErr.Code {
	case amqp.ConnectionForced:
		return ErrConnectionClosed
	case amqp.InvalidPath:
		return ErrVirtualHostNotFound
	case amqp.AccessRefused:
		return ErrAccessDenied
	case amqp.NotFound:
		return ErrNotFound
	case amqp.ResourceLocked:
		return ErrResourceLocked
	case amqp.PreconditionFailed:
		return ErrPreconditionFailed
	case amqp.NotAllowed:
		return ErrNotAllowed
	case amqp.ChannelError:
		return ErrChannelClosed
	case amqp.ResourceError:
		return ErrResourceAlarm
	case amqp.InternalError, amqp.NotImplemented:
		return ErrServerError
	case amqp.SyntaxError, amqp.CommandInvalid, amqp.FrameError, amqp.UnexpectedFrame:
		return ErrProtocolError
	default:
		return translateByMessage(strings.ToLower(amqpErr.Reason))
	}
}

func translateSyscallError(errno syscall.Errno) error {
	switch errno {
	case syscall.ECONNREFUSED:
		return ErrConnectionFailed
	case syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE, syscall.ENOTCONN:
		return ErrConnectionLost
	case syscall.ETIMEDOUT:
		return ErrTimeout
	case syscall.EACCES, syscall.EPERM:
		return ErrAccessDenied
	default:
		return ErrNetworkError
	}
}

func translateByMessage(msg string) error {
	switch {
	case strings.Contains(msg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection lost"):
		return ErrConnectionLost
	case strings.Contains(msg, "connection closed"), strings.Contains(msg, "connection forced"):
		return ErrConnectionClosed
	case strings.Contains(msg, "channel closed"):
		return ErrChannelClosed
	case strings.Contains(msg, "login refused"), strings.Contains(msg, "authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(msg, "access refused"), strings.Contains(msg, "access denied"):
		return ErrAccessDenied
	case strings.Contains(msg, "vhost") && strings.Contains(msg, "not found"):
		return ErrVirtualHostNotFound
	case strings.Contains(msg, "precondition failed"):
		return ErrPreconditionFailed
	case strings.Contains(msg, "not found"):
		return ErrNotFound
	case strings.Contains(msg, "alarm"), strings.Contains(msg, "flow control"):
		return ErrResourceAlarm
	case strings.Contains(msg, "tls"), strings.Contains(msg, "certificate"), strings.Contains(msg, "handshake"):
		return ErrTLSError
	case strings.Contains(msg, "timeout"):
		return ErrTimeout
	default:
		return ErrUnknownError
	}
}
