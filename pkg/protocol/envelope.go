// Package protocol defines the JSON envelope exchanged over the websocket:
// an op code naming the operation plus an op-specific payload. Inbound
// envelopes are decoded and validated here so handlers never probe raw JSON.
package protocol

import (
	"encoding/json"
	"fmt"
)

// OpCode identifies an operation on the wire.
type OpCode string

const (
	OpConnect     OpCode = "CONNECT"
	OpCreateLobby OpCode = "CREATE_LOBBY"
	OpJoinLobby   OpCode = "JOIN_LOBBY"
	OpLeaveLobby  OpCode = "LEAVE_LOBBY"
	OpDeleteLobby OpCode = "DELETE_LOBBY"
	OpGetLobbyIDs OpCode = "GET_LOBBY_IDS"
	OpMessage     OpCode = "MESSAGE"
	OpOK          OpCode = "OK"
	OpError       OpCode = "ERROR"
)

// Valid reports whether the op code is one this server knows about.
func (op OpCode) Valid() bool {
	switch op {
	case OpConnect, OpCreateLobby, OpJoinLobby, OpLeaveLobby,
		OpDeleteLobby, OpGetLobbyIDs, OpMessage, OpOK, OpError:
		return true
	}
	return false
}

// Envelope is the inbound wire unit: {"op_code": ..., "value": {...}}.
// Value is kept raw so each handler can decode its own payload shape.
type Envelope struct {
	Op    OpCode          `json:"op_code"`
	Value json.RawMessage `json:"value"`
}

// DecodeEnvelope parses an inbound text frame. It validates only the outer
// shape; payload field validation happens per-op via the payload types.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Op == "" {
		return nil, fmt.Errorf("malformed envelope: %q field is missing", "op_code")
	}
	if !env.Op.Valid() {
		return nil, fmt.Errorf("unknown op code: %s", env.Op)
	}
	return &env, nil
}

// outbound is the reply wire unit. ERROR envelopes carry no "for" field,
// which omitempty takes care of.
type outbound struct {
	Op    OpCode `json:"op_code"`
	For   OpCode `json:"for,omitempty"`
	Value any    `json:"value"`
}

// EncodeOK builds a success reply for the given request op.
func EncodeOK(forOp OpCode, value any) ([]byte, error) {
	return json.Marshal(outbound{Op: OpOK, For: forOp, Value: value})
}

// EncodeError builds an error reply carrying a human-readable description.
func EncodeError(text string) ([]byte, error) {
	return json.Marshal(outbound{Op: OpError, Value: text})
}

// RelayValue is the payload of a relayed chat message.
type RelayValue struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// EncodeRelay builds the MESSAGE envelope delivered to lobby members.
func EncodeRelay(from, message string) ([]byte, error) {
	return json.Marshal(outbound{
		Op:    OpMessage,
		For:   OpMessage,
		Value: RelayValue{From: from, Message: message},
	})
}

// CreateLobbyResult is the value of a successful CREATE_LOBBY reply.
type CreateLobbyResult struct {
	LobbyID string `json:"lobby_id"`
}

// JoinLobbyResult is the value of a successful JOIN_LOBBY reply.
type JoinLobbyResult struct {
	LobbyID string `json:"lobby_id"`
}
