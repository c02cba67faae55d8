package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS/origin policy is handled at the edge, not here.
		return true
	},
}

// HandleWebSocket upgrades an HTTP request to a websocket and hands the
// connection to the session dispatcher.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		errorLog.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sess := s.addSession(ws)
	debugLog.Printf("WebSocket connection from %s (session %d)", ws.RemoteAddr(), sess.ID)
}
