package server

import (
	"io"
	"net"
	"sync"
)

// mockStore is a simple in-memory user store for testing.
type mockStore struct {
	mu    sync.RWMutex
	users map[string]bool
	err   error // forced error for every lookup, when set
}

func newMockStore(ids ...string) *mockStore {
	m := &mockStore{users: make(map[string]bool)}
	for _, id := range ids {
		m.users[id] = true
	}
	return m
}

func (m *mockStore) AddUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = true
}

func (m *mockStore) UserExists(userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return false, m.err
	}
	return m.users[userID], nil
}

func (m *mockStore) Close() error {
	return nil
}

// mockConn is an in-memory wsConn. Frames pushed via push() are returned by
// ReadMessage; writes are recorded. Close unblocks ReadMessage with io.EOF.
type mockConn struct {
	in        chan mockFrame
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

type mockFrame struct {
	messageType int
	data        []byte
}

func newMockConn() *mockConn {
	return &mockConn{in: make(chan mockFrame, 16)}
}

func (c *mockConn) push(messageType int, data []byte) {
	c.in <- mockFrame{messageType: messageType, data: data}
}

func (c *mockConn) ReadMessage() (int, []byte, error) {
	f, ok := <-c.in
	if !ok {
		return 0, nil, io.EOF
	}
	return f.messageType, f.data, nil
}

func (c *mockConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *mockConn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.in) })
	return nil
}

func (c *mockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}
