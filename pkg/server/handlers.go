package server

import (
	"fmt"

	"github.com/lobic/lobic/pkg/lobby"
	"github.com/lobic/lobic/pkg/protocol"
)

// dispatch routes a decoded envelope to its handler. Reply-only op codes
// arriving inbound are dropped, matching the protocol's tolerance for
// confused clients.
func (s *Server) dispatch(sess *Session, env *protocol.Envelope) {
	switch env.Op {
	case protocol.OpConnect:
		s.handleConnect(sess, env)
	case protocol.OpCreateLobby:
		s.handleCreateLobby(sess, env)
	case protocol.OpJoinLobby:
		s.handleJoinLobby(sess, env)
	case protocol.OpLeaveLobby:
		s.handleLeaveLobby(sess, env)
	case protocol.OpDeleteLobby:
		s.handleDeleteLobby(sess, env)
	case protocol.OpGetLobbyIDs:
		s.handleGetLobbyIDs(sess)
	case protocol.OpMessage:
		s.handleMessage(sess, env)
	default:
		debugLog.Printf("Session %d: ignoring inbound %s envelope", sess.ID, env.Op)
	}
}

// handleConnect binds the sender's account to this connection, making it a
// delivery target for relayed messages.
func (s *Server) handleConnect(sess *Session, env *protocol.Envelope) {
	var p protocol.ConnectPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	exists, err := s.store.UserExists(p.UserID)
	if err != nil {
		errorLog.Printf("Session %d: identity check failed: %v", sess.ID, err)
		s.sendError(sess, "identity check failed")
		return
	}
	if !exists {
		s.sendError(sess, fmt.Sprintf("unknown user: %s", p.UserID))
		return
	}

	// Rebinding the same socket to a new account releases the old binding,
	// but only if this session still owns it.
	if prev := sess.bindUser(p.UserID); prev != "" && prev != p.UserID {
		s.conns.Unregister(prev, sess)
	}
	s.conns.Register(p.UserID, sess)

	debugLog.Printf("Session %d: connected as %s", sess.ID, p.UserID)
	s.sendOK(sess, protocol.OpConnect, "Successfully connected")
}

// handleCreateLobby creates a lobby and pushes the refreshed lobby id list
// to every registered connection.
func (s *Server) handleCreateLobby(sess *Session, env *protocol.Envelope) {
	var p protocol.CreateLobbyPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	lobbyID, err := s.lobbies.Create(p.HostID)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	debugLog.Printf("Session %d: %s created lobby %s", sess.ID, p.HostID, lobbyID)
	s.sendOK(sess, protocol.OpCreateLobby, protocol.CreateLobbyResult{LobbyID: lobbyID})

	if s.metrics != nil {
		s.metrics.RecordActiveLobbies(s.lobbies.Len())
	}
	s.broadcastLobbyIDs()
}

func (s *Server) handleJoinLobby(sess *Session, env *protocol.Envelope) {
	var p protocol.JoinLobbyPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	if err := s.lobbies.Join(p.LobbyID, p.UserID); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	s.sendOK(sess, protocol.OpJoinLobby, protocol.JoinLobbyResult{LobbyID: p.LobbyID})
}

func (s *Server) handleLeaveLobby(sess *Session, env *protocol.Envelope) {
	var p protocol.LeaveLobbyPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	if err := s.lobbies.Leave(p.LobbyID, p.UserID); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	s.sendOK(sess, protocol.OpLeaveLobby, "Successfully left lobby")
}

// handleDeleteLobby notifies every member with a live connection that the
// lobby closed, then removes it.
func (s *Server) handleDeleteLobby(sess *Session, env *protocol.Envelope) {
	var p protocol.DeleteLobbyPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	snapshot, err := s.lobbies.Delete(p.LobbyID)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	s.notifyLobbyClosed(snapshot)
	if s.metrics != nil {
		s.metrics.RecordActiveLobbies(s.lobbies.Len())
	}
	s.sendOK(sess, protocol.OpDeleteLobby, "Successfully deleted lobby")
}

func (s *Server) handleGetLobbyIDs(sess *Session) {
	s.sendOK(sess, protocol.OpGetLobbyIDs, s.lobbies.IDs())
}

// handleMessage relays a chat message to every other member of the lobby.
// Members without a live connection are skipped; the sender receives nothing
// on success.
func (s *Server) handleMessage(sess *Session, env *protocol.Envelope) {
	var p protocol.MessagePayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	if len(p.Message) > s.config.MaxMessageLength {
		s.sendError(sess, fmt.Sprintf("message too long (max %d bytes)", s.config.MaxMessageLength))
		return
	}

	exists, err := s.store.UserExists(p.UserID)
	if err != nil {
		errorLog.Printf("Session %d: identity check failed: %v", sess.ID, err)
		s.sendError(sess, "identity check failed")
		return
	}
	if !exists {
		s.sendError(sess, fmt.Sprintf("unknown user: %s", p.UserID))
		return
	}

	l, ok := s.lobbies.Get(p.LobbyID)
	if !ok {
		s.sendError(sess, fmt.Sprintf("unknown lobby: %s", p.LobbyID))
		return
	}

	data, err := protocol.EncodeRelay(p.UserID, p.Message)
	if err != nil {
		errorLog.Printf("Session %d: failed to encode relay: %v", sess.ID, err)
		return
	}

	delivered := 0
	for _, member := range l.Clients {
		if member == p.UserID {
			continue
		}
		target, ok := s.conns.Lookup(member)
		if !ok {
			// No live connection for this member; delivery is best-effort.
			continue
		}
		if target.Send(data) {
			delivered++
		} else if s.metrics != nil {
			s.metrics.RecordEnvelopeDropped()
		}
	}

	if s.metrics != nil {
		s.metrics.RecordMessageRelayed(delivered)
	}
}

// broadcastLobbyIDs pushes the current lobby id list to every registered
// connection as an OK-for-GET_LOBBY_IDS envelope.
func (s *Server) broadcastLobbyIDs() {
	data, err := protocol.EncodeOK(protocol.OpGetLobbyIDs, s.lobbies.IDs())
	if err != nil {
		errorLog.Printf("Failed to encode lobby id list: %v", err)
		return
	}

	targets := s.conns.Sessions()
	for _, target := range targets {
		if !target.Send(data) && s.metrics != nil {
			s.metrics.RecordEnvelopeDropped()
		}
	}
	if s.metrics != nil {
		s.metrics.RecordBroadcastFanout(len(targets))
	}
}

// notifyLobbyClosed tells each member of a just-deleted lobby, at most once,
// that the lobby is gone. Members without live connections are skipped.
func (s *Server) notifyLobbyClosed(l lobby.Lobby) {
	data, err := protocol.EncodeOK(protocol.OpLeaveLobby, "Host disconnected")
	if err != nil {
		errorLog.Printf("Failed to encode lobby closure notice: %v", err)
		return
	}

	for _, member := range l.Clients {
		if target, ok := s.conns.Lookup(member); ok {
			target.Send(data)
		}
	}
}

// sendOK encodes a success reply for the given op and queues it to sess.
func (s *Server) sendOK(sess *Session, forOp protocol.OpCode, value any) {
	data, err := protocol.EncodeOK(forOp, value)
	if err != nil {
		errorLog.Printf("Session %d: failed to encode OK for %s: %v", sess.ID, forOp, err)
		return
	}
	sess.Send(data)
	if s.metrics != nil {
		s.metrics.RecordEnvelopeSent(string(protocol.OpOK))
	}
}

// sendError encodes an ERROR reply and queues it to sess.
func (s *Server) sendError(sess *Session, text string) {
	data, err := protocol.EncodeError(text)
	if err != nil {
		errorLog.Printf("Session %d: failed to encode error: %v", sess.ID, err)
		return
	}
	sess.Send(data)
	if s.metrics != nil {
		s.metrics.RecordEnvelopeSent(string(protocol.OpError))
	}
}
