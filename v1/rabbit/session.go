package rabbit

import (
	"context"
	"sync"
)

// ConnectionState is the observable state of a Session.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateOpen
)

func (s ConnectionState) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Session holds the current connection and channel. Handles are only
// replaced through Reconnect and ReopenChannel, which swap them atomically.
type Session struct {
	sup *Supervisor

	// reconnectMu serializes replacements so a slow Connect does not block
	// readers of the current handles.
	reconnectMu sync.Mutex

	mu   sync.RWMutex
	conn Connection
	ch   Channel
}

// NewSession returns an empty session; call Reconnect or Binder.Bind to open it.
func NewSession(sup *Supervisor) *Session {
	return &Session{sup: sup}
}

// Connection returns the current connection, or nil.
func (s *Session) Connection() Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Channel returns the current channel, or nil.
func (s *Session) Channel() Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ch
}

// State reports whether the current connection is open.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil || s.conn.IsClosed() {
		return StateClosed
	}
	return StateOpen
}

// Reconnect establishes a new connection and channel and replaces both
// handles. The previous handles are closed.
func (s *Session) Reconnect(ctx context.Context) error {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	conn, err := s.sup.Connect(ctx)
	if err != nil {
		return err
	}
	ch, err := s.sup.OpenChannel(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	s.mu.Lock()
	oldConn, oldCh := s.conn, s.ch
	s.conn, s.ch = conn, ch
	s.mu.Unlock()

	closeQuietly(oldCh, oldConn)
	return nil
}

// ReopenChannel opens a new channel on the current connection.
func (s *Session) ReopenChannel(ctx context.Context) error {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	ch, err := s.sup.OpenChannel(ctx, s.Connection())
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.ch
	s.ch = ch
	s.mu.Unlock()

	closeQuietly(old, nil)
	return nil
}

// Close closes the channel and connection and empties the session.
func (s *Session) Close() error {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	s.mu.Lock()
	conn, ch := s.conn, s.ch
	s.conn, s.ch = nil, nil
	s.mu.Unlock()

	if ch != nil && !ch.IsClosed() {
		_ = ch.Close()
	}
	if conn != nil && !conn.IsClosed() {
		return conn.Close()
	}
	return nil
}

func closeQuietly(ch Channel, conn Connection) {
	if ch != nil && !ch.IsClosed() {
		_ = ch.Close()
	}
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}
