package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lobic/lobic/pkg/lobby"
	"github.com/lobic/lobic/pkg/protocol"
)

var (
	errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	HTTPPort                      int
	OutboundQueueSize             int
	MaxMessageLength              int
	DeleteLobbiesOnHostDisconnect bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:                      8080,
		OutboundQueueSize:             100,  // envelopes per connection
		MaxMessageLength:              4096, // bytes
		DeleteLobbiesOnHostDisconnect: false,
	}
}

// Server is the realtime core: the websocket endpoint, the connection
// registry, the lobby registry and the protocol handlers.
type Server struct {
	config  ServerConfig
	store   UserStore
	conns   *ConnRegistry
	lobbies *lobby.Registry
	metrics *Metrics

	httpServer *http.Server
	listener   net.Listener

	mu            sync.Mutex
	sessions      map[uint64]*Session // every open socket, bound or not
	nextSessionID uint64

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a server around the given user store.
func NewServer(store UserStore, config ServerConfig) *Server {
	return &Server{
		config:   config,
		store:    store,
		conns:    NewConnRegistry(),
		lobbies:  lobby.NewRegistry(store),
		sessions: make(map[uint64]*Session),
		shutdown: make(chan struct{}),
	}
}

// SetMetrics attaches Prometheus metrics. Must be called before Start;
// leaving metrics nil (as tests do) disables recording.
func (s *Server) SetMetrics(m *Metrics) {
	s.metrics = m
}

// EnableDebugLogging turns on per-connection debug output.
func (s *Server) EnableDebugLogging() {
	debugLog.SetOutput(os.Stderr)
}

// Handler returns the HTTP handler: the websocket upgrade endpoint plus the
// metrics endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Hello from Lobic backend")
	})
	return mux
}

// Start begins serving on the configured HTTP port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler()}
	log.Printf("HTTP server listening on %s (websocket endpoint /ws)", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errorLog.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the listen address, once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server: stop accepting, tear down every open
// session, close the user store.
func (s *Server) Stop() error {
	close(s.shutdown)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errorLog.Printf("HTTP shutdown error: %v", err)
		}
	}

	s.closeAllSessions()
	s.wg.Wait()

	return s.store.Close()
}

// addSession registers a freshly upgraded connection and starts its loops.
func (s *Server) addSession(conn wsConn) *Session {
	id := atomic.AddUint64(&s.nextSessionID, 1)
	sess := newSession(id, conn, s.config.OutboundQueueSize)

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordActiveConnections(count)
		s.metrics.RecordConnectionOpened()
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.readLoop(sess)
	}()
	go func() {
		defer s.wg.Done()
		s.writeLoop(sess)
	}()

	return sess
}

// closeSession tears a session down exactly once: signal both loops, close
// the socket, drop the connection registry binding (only if still ours) and
// optionally delete lobbies the departing user hosted.
func (s *Server) closeSession(sess *Session) {
	sess.closeOnce.Do(func() {
		close(sess.done)
		sess.conn.Close()

		s.mu.Lock()
		delete(s.sessions, sess.ID)
		count := len(s.sessions)
		s.mu.Unlock()

		userID := sess.UserID()
		if userID != "" {
			if s.conns.Unregister(userID, sess) {
				debugLog.Printf("Session %d: unregistered user %s", sess.ID, userID)
			}
			if s.config.DeleteLobbiesOnHostDisconnect {
				s.deleteHostedLobbies(userID)
			}
		}

		if s.metrics != nil {
			s.metrics.RecordActiveConnections(count)
			s.metrics.RecordConnectionClosed()
		}
		debugLog.Printf("Session %d closed", sess.ID)
	})
}

func (s *Server) closeAllSessions() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		s.closeSession(sess)
	}
}

// readLoop receives frames until the transport fails or closes. Binary
// frames are ignored; malformed text frames are reported back to the sender
// and the loop continues.
func (s *Server) readLoop(sess *Session) {
	defer s.closeSession(sess)

	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			debugLog.Printf("Session %d read error: %v", sess.ID, err)
			return
		}

		if msgType != websocket.TextMessage {
			debugLog.Printf("Session %d: ignoring non-text frame (type %d)", sess.ID, msgType)
			continue
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordDecodeError()
			}
			s.sendError(sess, err.Error())
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordEnvelopeReceived(string(env.Op))
		}
		s.dispatch(sess, env)
	}
}

// writeLoop drains the outbound queue onto the socket. A write error means
// the peer is gone; the whole session is torn down so the read loop releases
// the socket too.
func (s *Server) writeLoop(sess *Session) {
	for {
		select {
		case <-sess.done:
			return
		case data := <-sess.outbound:
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				debugLog.Printf("Session %d write error: %v", sess.ID, err)
				s.closeSession(sess)
				return
			}
		}
	}
}

// deleteHostedLobbies removes every lobby hosted by userID, notifying
// members the same way DELETE_LOBBY does.
func (s *Server) deleteHostedLobbies(userID string) {
	for _, lobbyID := range s.lobbies.HostedBy(userID) {
		snapshot, err := s.lobbies.Delete(lobbyID)
		if err != nil {
			continue
		}
		s.notifyLobbyClosed(snapshot)
		debugLog.Printf("Deleted lobby %s after host %s disconnected", lobbyID, userID)
	}
	if s.metrics != nil {
		s.metrics.RecordActiveLobbies(s.lobbies.Len())
	}
}
