package server

import (
	"net"
	"sync"
)

// wsConn is the slice of *websocket.Conn the session loops need. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	RemoteAddr() net.Addr
}

// Session is one open client connection. Everything another goroutine wants
// delivered to this socket goes through the bounded outbound queue; only the
// session's own write loop touches the connection's send side.
type Session struct {
	ID   uint64
	conn wsConn

	// outbound is never closed; teardown is signalled via done so a
	// concurrent Send can never panic.
	outbound chan []byte
	done     chan struct{}

	closeOnce sync.Once

	mu     sync.RWMutex
	userID string // bound by CONNECT, empty until then
}

func newSession(id uint64, conn wsConn, queueSize int) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		outbound: make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// UserID returns the account currently bound to this session, if any.
func (sess *Session) UserID() string {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.userID
}

// bindUser binds the session to an account and returns the previous binding.
func (sess *Session) bindUser(userID string) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	prev := sess.userID
	sess.userID = userID
	return prev
}

// Send enqueues data for delivery to this session's socket. It never blocks:
// when the queue is full the oldest queued envelope is dropped to admit the
// new one (a stalled peer loses its own backlog, not everyone else's
// throughput). Returns false if data could not be enqueued.
func (sess *Session) Send(data []byte) bool {
	select {
	case sess.outbound <- data:
		return true
	default:
	}

	// Queue full: drop the oldest entry and retry once. The retry can still
	// lose a race against another sender, in which case this envelope is the
	// one dropped.
	select {
	case <-sess.outbound:
	default:
	}
	select {
	case sess.outbound <- data:
		return true
	default:
		return false
	}
}

// QueueLen returns the number of envelopes waiting to be written.
func (sess *Session) QueueLen() int {
	return len(sess.outbound)
}
