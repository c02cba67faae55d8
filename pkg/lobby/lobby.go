// Package lobby tracks the shared listening rooms: who hosts them and who is
// currently in them. The registry is the single source of truth for lobby
// membership; delivery to members is the caller's concern.
package lobby

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnknownUser indicates the user id failed the identity check.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownLobby indicates the lobby id is not in the registry.
	ErrUnknownLobby = errors.New("unknown lobby")
)

// UserChecker reports whether an account id belongs to an existing account.
// Backed by the user store; a pure query.
type UserChecker interface {
	UserExists(userID string) (bool, error)
}

// Lobby is one listening room. Clients always contains the host at creation
// time; leave semantics may remove it later without re-homing ownership.
type Lobby struct {
	ID      string
	HostID  string
	Clients []string
}

// HasClient reports whether userID is a current member.
func (l *Lobby) HasClient(userID string) bool {
	for _, id := range l.Clients {
		if id == userID {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers never iterate members while the
// registry lock is held.
func (l *Lobby) clone() Lobby {
	out := Lobby{ID: l.ID, HostID: l.HostID}
	out.Clients = make([]string, len(l.Clients))
	copy(out.Clients, l.Clients)
	return out
}

// Registry is the shared lobby map. All operations are short critical
// sections; no I/O happens under the lock.
type Registry struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby
	users   UserChecker
}

// NewRegistry creates an empty registry using the given identity check.
func NewRegistry(users UserChecker) *Registry {
	return &Registry{
		lobbies: make(map[string]*Lobby),
		users:   users,
	}
}

// Create makes a new lobby hosted by hostID and returns its id. The id is a
// fresh UUID, regenerated while it collides with an existing lobby; the
// generate-and-insert happens in one critical section so concurrent creates
// can never race to the same id.
func (r *Registry) Create(hostID string) (string, error) {
	if err := r.checkUser(hostID); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lobbyID := uuid.NewString()
	for _, exists := r.lobbies[lobbyID]; exists; _, exists = r.lobbies[lobbyID] {
		lobbyID = uuid.NewString()
	}

	r.lobbies[lobbyID] = &Lobby{
		ID:      lobbyID,
		HostID:  hostID,
		Clients: []string{hostID},
	}
	return lobbyID, nil
}

// Join adds userID to the lobby. Joining a lobby the user is already in is
// idempotent success.
func (r *Registry) Join(lobbyID, userID string) error {
	if err := r.checkUser(userID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[lobbyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLobby, lobbyID)
	}
	if l.HasClient(userID) {
		return nil
	}
	l.Clients = append(l.Clients, userID)
	return nil
}

// Leave removes userID from the lobby. Leaving a lobby the user is not in is
// a no-op success. An emptied lobby is not auto-deleted and ownership is not
// re-homed.
func (r *Registry) Leave(lobbyID, userID string) error {
	if err := r.checkUser(userID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[lobbyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLobby, lobbyID)
	}
	for i, id := range l.Clients {
		if id == userID {
			l.Clients = append(l.Clients[:i], l.Clients[i+1:]...)
			break
		}
	}
	return nil
}

// Delete removes the lobby and returns a snapshot of its final membership so
// the caller can notify each member after the lock is released.
func (r *Registry) Delete(lobbyID string) (Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[lobbyID]
	if !ok {
		return Lobby{}, fmt.Errorf("%w: %s", ErrUnknownLobby, lobbyID)
	}
	delete(r.lobbies, lobbyID)
	return l.clone(), nil
}

// Get returns a snapshot of the lobby, if present.
func (r *Registry) Get(lobbyID string) (Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[lobbyID]
	if !ok {
		return Lobby{}, false
	}
	return l.clone(), true
}

// IDs returns a sorted snapshot of all lobby ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.lobbies))
	for id := range r.lobbies {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// HostedBy returns the ids of all lobbies hosted by hostID.
func (r *Registry) HostedBy(hostID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, l := range r.lobbies {
		if l.HostID == hostID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of lobbies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lobbies)
}

func (r *Registry) checkUser(userID string) error {
	exists, err := r.users.UserExists(userID)
	if err != nil {
		return fmt.Errorf("identity check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	return nil
}
