package protocol

import (
	"encoding/json"
	"fmt"
)

// MissingFieldError reports the first required payload field that is absent.
// The message matches what clients already pattern-match on.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%q field is missing.", e.Field)
}

// Payload is implemented by every inbound payload shape. Validate reports
// the first missing required field; it runs before any registry access.
type Payload interface {
	Validate() error
}

// ConnectPayload binds a user to the current connection.
type ConnectPayload struct {
	UserID string `json:"user_id"`
}

func (p *ConnectPayload) Validate() error {
	if p.UserID == "" {
		return &MissingFieldError{Field: "user_id"}
	}
	return nil
}

// CreateLobbyPayload requests a new lobby hosted by HostID.
type CreateLobbyPayload struct {
	HostID string `json:"host_id"`
}

func (p *CreateLobbyPayload) Validate() error {
	if p.HostID == "" {
		return &MissingFieldError{Field: "host_id"}
	}
	return nil
}

// JoinLobbyPayload adds UserID to an existing lobby.
type JoinLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
	UserID  string `json:"user_id"`
}

func (p *JoinLobbyPayload) Validate() error {
	if p.LobbyID == "" {
		return &MissingFieldError{Field: "lobby_id"}
	}
	if p.UserID == "" {
		return &MissingFieldError{Field: "user_id"}
	}
	return nil
}

// LeaveLobbyPayload removes UserID from a lobby.
type LeaveLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
	UserID  string `json:"user_id"`
}

func (p *LeaveLobbyPayload) Validate() error {
	if p.LobbyID == "" {
		return &MissingFieldError{Field: "lobby_id"}
	}
	if p.UserID == "" {
		return &MissingFieldError{Field: "user_id"}
	}
	return nil
}

// DeleteLobbyPayload tears down a lobby and notifies its members.
type DeleteLobbyPayload struct {
	LobbyID string `json:"lobby_id"`
}

func (p *DeleteLobbyPayload) Validate() error {
	if p.LobbyID == "" {
		return &MissingFieldError{Field: "lobby_id"}
	}
	return nil
}

// MessagePayload relays a chat message to the other members of a lobby.
type MessagePayload struct {
	LobbyID string `json:"lobby_id"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (p *MessagePayload) Validate() error {
	if p.LobbyID == "" {
		return &MissingFieldError{Field: "lobby_id"}
	}
	if p.UserID == "" {
		return &MissingFieldError{Field: "user_id"}
	}
	if p.Message == "" {
		return &MissingFieldError{Field: "message"}
	}
	return nil
}

// DecodePayload unmarshals an envelope's value into dst and validates it.
// A JSON type mismatch is reported the same way as a parse failure so the
// caller can treat both as a malformed payload.
func DecodePayload(env *Envelope, dst Payload) error {
	if len(env.Value) > 0 {
		if err := json.Unmarshal(env.Value, dst); err != nil {
			return fmt.Errorf("malformed payload for %s: %w", env.Op, err)
		}
	}
	return dst.Validate()
}
